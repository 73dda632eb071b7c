package service

import (
	"context"

	"gitlab.com/bunkercoin/dashboard_api/cache"
	"gitlab.com/bunkercoin/dashboard_api/model"
)

// ValidPrice godoc
func ValidPrice(data *model.PriceData) bool {
	return data != nil && data.Price > 0
}

// ValidHistory godoc
func ValidHistory(points []model.PricePoint) bool {
	return len(points) > 0
}

// GetPrice returns the current market snapshot
func (s *Service) GetPrice(ctx context.Context, force bool) (*model.PriceData, cache.Origin, error) {
	return serve(ctx, s, KeyPrice, s.cfg.Cache.Price, force, s.prices.GetPrice, ValidPrice)
}

// GetHistory returns the daily price history
func (s *Service) GetHistory(ctx context.Context, force bool) ([]model.PricePoint, cache.Origin, error) {
	return serve(ctx, s, KeyHistory, s.cfg.Cache.History, force, s.prices.GetHistory, ValidHistory)
}
