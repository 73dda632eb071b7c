package service

import (
	"context"

	"gitlab.com/bunkercoin/dashboard_api/cache"
	"gitlab.com/bunkercoin/dashboard_api/model"
)

// ValidLockSummary rejects empty scans so a transient node failure is never cached
func ValidLockSummary(summary *model.LockSummary) bool {
	return summary != nil && summary.TotalLocked > 0
}

// GetLocks returns the lock summary of the tracked mint
func (s *Service) GetLocks(ctx context.Context, force bool) (*model.LockSummary, cache.Origin, error) {
	return serve(ctx, s, KeyLocks, s.cfg.Cache.Locks, force, s.decoder.FetchSummary, ValidLockSummary)
}
