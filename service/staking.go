package service

import (
	"context"

	"github.com/ericlagergren/decimal"
	"github.com/rs/zerolog/log"
	"gitlab.com/bunkercoin/dashboard_api/address"
	"gitlab.com/bunkercoin/dashboard_api/cache"
	"gitlab.com/bunkercoin/dashboard_api/conv"
	"gitlab.com/bunkercoin/dashboard_api/model"
	"gitlab.com/bunkercoin/dashboard_api/staking"
	"golang.org/x/sync/errgroup"
)

const ratioPrecision = 4

// GetStakingOverview computes the protocol staking figures from the cached locks.
// The price is optional, without it the TVL is left out.
func (s *Service) GetStakingOverview(ctx context.Context, force bool) (*model.StakingOverview, cache.Origin, error) {
	var (
		summary *model.LockSummary
		origin  cache.Origin
		price   *model.PriceData
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, origin, err = s.GetLocks(gctx, force)
		return err
	})
	g.Go(func() error {
		p, _, err := s.GetPrice(gctx, false)
		if err != nil {
			log.Warn().Err(err).Str("section", "service").Str("action", "staking_overview").Msg("Price unavailable, omitting TVL")
			return nil
		}
		price = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, origin, err
	}
	return s.stakingOverview(summary.Accounts, price), origin, nil
}

func (s *Service) stakingOverview(locks []*model.Lock, price *model.PriceData) *model.StakingOverview {
	pool := s.cfg.Staking.MonthlyRewardPool
	totals := staking.ProtocolTotals(locks)
	overview := &model.StakingOverview{
		TotalStaked:       totals.TotalStaked,
		TotalWeight:       totals.TotalWeight,
		AverageMultiplier: round(totals.AverageMultiplier(), ratioPrecision),
		Positions:         totals.Positions,
		APY:               round(staking.APY(pool, totals), 2),
		MonthlyRewards:    pool,
		Options:           make([]*model.StakingOption, 0, len(staking.Durations)),
	}
	if ValidPrice(price) {
		tvl := conv.NewDecimal().Mul(totals.TotalStaked.Decimal(), conv.NewDecimal().SetFloat64(price.Price))
		value, _ := conv.RoundToPrecision(tvl, 2).Float64()
		overview.TVL = &value
	}

	stake := s.cfg.Staking.EstimateStake
	for _, d := range staking.Durations {
		multiplier := d.Multiplier()
		overview.Options = append(overview.Options, &model.StakingOption{
			Code:         d.Code,
			Label:        d.Label,
			Days:         d.Days,
			Multiplier:   multiplier,
			EstimatedAPY: round(staking.EstimatedAPY(pool, stake, multiplier, totals.TotalWeight+stake*multiplier), 2),
		})
	}
	return overview
}

// GetUserStakes lists the staking positions created by wallet with their share of the pool
func (s *Service) GetUserStakes(ctx context.Context, wallet address.PublicKey, force bool) (*model.UserStakes, cache.Origin, error) {
	summary, origin, err := s.GetLocks(ctx, force)
	if err != nil {
		return nil, origin, err
	}
	return s.userStakes(summary.Accounts, wallet), origin, nil
}

func (s *Service) userStakes(locks []*model.Lock, wallet address.PublicKey) *model.UserStakes {
	pool := s.cfg.Staking.MonthlyRewardPool
	protocol := staking.ProtocolTotals(locks)
	result := &model.UserStakes{Wallet: wallet, Stakes: make([]*model.UserStake, 0)}

	var mine staking.Totals
	for _, lock := range staking.WalletLocks(locks, wallet) {
		weight := staking.StakeWeightOf(lock)
		stake := &model.UserStake{
			Address:      lock.Address,
			Creator:      lock.Creator,
			Name:         lock.Name,
			Amount:       lock.Amount,
			LockDuration: staking.DurationLabel(weight.DurationDays),
			DurationDays: weight.DurationDays,
			Multiplier:   weight.Multiplier,
			StakingUnits: weight.StakingUnits,
			StartDate:    lock.StartDate,
			EndDate:      lock.UnlockDate,
			Status:       model.StakeStatusClaimed,
		}
		if staking.IsActiveStake(lock) {
			stake.Status = model.StakeStatusActive
			stake.EstimatedMonthlyReward = round(staking.RewardEstimate(pool, weight.StakingUnits, protocol.TotalWeight), ratioPrecision)
			mine.TotalStaked += lock.Amount
			mine.TotalWeight += weight.StakingUnits
			mine.Positions++
		}
		result.Stakes = append(result.Stakes, stake)
	}

	result.TotalStaked = mine.TotalStaked
	result.TotalUnits = mine.TotalWeight
	result.AverageMultiplier = round(mine.AverageMultiplier(), ratioPrecision)
	result.PoolShare = round(staking.PoolShare(mine.TotalWeight, protocol.TotalWeight), ratioPrecision)
	result.MonthlyReward = round(staking.RewardEstimate(pool, mine.TotalWeight, protocol.TotalWeight), ratioPrecision)
	return result
}

func round(v float64, precision int) float64 {
	d := new(decimal.Big).SetFloat64(v)
	if !d.IsFinite() {
		return 0
	}
	f, _ := conv.RoundToPrecision(d, precision).Float64()
	return f
}
