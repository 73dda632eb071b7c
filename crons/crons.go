package crons

import (
	"context"
	"sync"

	"github.com/robfig/cron"
	"github.com/rs/zerolog/log"

	"gitlab.com/bunkercoin/dashboard_api/config"
	"gitlab.com/bunkercoin/dashboard_api/service"
)

var (
	cronService *cron.Cron
	lock        sync.Mutex

	// jobs run on jobsCtx, Close cancels it and waits on running
	jobsCtx, cancelJobs = context.WithCancel(context.Background())
	running             sync.WaitGroup
)

// Start Initiate the crons based on the given configuration file
func Start(crons config.Crons, srv *service.Service) {
	lock.Lock()
	defer lock.Unlock()
	jobsCtx, cancelJobs = context.WithCancel(context.Background())
	cronService = cron.New()
	for id, schedule := range crons {
		callback := GetCronByID(id, srv)
		if callback == nil {
			log.Warn().Str("section", "crons").Str("cron", id).Msg("Unknown cron id, skipped")
			continue
		}
		if err := cronService.AddFunc(schedule, callback); err != nil {
			log.Error().Err(err).Str("section", "crons").Str("cron", id).Str("schedule", schedule).Msg("Invalid cron schedule")
			continue
		}
		// warm the cache once at startup, the shared store may still be empty
		go callback()
	}
	cronService.Start()
}

// GetCronByID get a function to execute based on the id
func GetCronByID(id string, srv *service.Service) func() {
	switch id {
	case "warm_locks":
		return warm(id, func(ctx context.Context) error {
			_, _, err := srv.GetLocks(ctx, true)
			return err
		})
	case "warm_burned":
		return warm(id, func(ctx context.Context) error {
			_, _, err := srv.GetBurned(ctx, true)
			return err
		})
	case "warm_price":
		return warm(id, func(ctx context.Context) error {
			_, _, err := srv.GetPrice(ctx, true)
			return err
		})
	case "warm_history":
		return warm(id, func(ctx context.Context) error {
			_, _, err := srv.GetHistory(ctx, true)
			return err
		})
	case "warm_holders":
		return warm(id, func(ctx context.Context) error {
			_, _, err := srv.GetHolders(ctx, service.DefaultHoldersLimit, true)
			return err
		})
	case "warm_liquidity":
		return warm(id, func(ctx context.Context) error {
			_, _, err := srv.GetLiquidity(ctx, true)
			return err
		})
	}
	return nil
}

// warm wraps a forced refresh. A failed refresh leaves the previous entry in place.
func warm(id string, refresh func(ctx context.Context) error) func() {
	return func() {
		ctx, ok := begin()
		if !ok {
			return
		}
		defer running.Done()
		logger := log.With().Str("section", "crons").Str("cron", id).Logger()
		if err := refresh(ctx); err != nil {
			logger.Warn().Err(err).Msg("Unable to warm cache")
			return
		}
		logger.Debug().Msg("Cache warmed")
	}
}

// begin registers a running job unless the crons were closed
func begin() (context.Context, bool) {
	lock.Lock()
	defer lock.Unlock()
	if jobsCtx.Err() != nil {
		return nil, false
	}
	running.Add(1)
	return jobsCtx, true
}

// Close stops the schedule, cancels running jobs and waits for them
func Close() {
	lock.Lock()
	if cronService != nil {
		cronService.Stop()
	}
	cancelJobs()
	lock.Unlock()
	running.Wait()
}
