// Package staking maps lock durations to reward multipliers and aggregates staking weight.
// Every weight in the service goes through StakeWeightOf so the protocol total and the
// per wallet figures always agree.
package staking

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gitlab.com/bunkercoin/dashboard_api/address"
	"gitlab.com/bunkercoin/dashboard_api/model"
)

const (
	// MinMultiplier applies to the shortest locks
	MinMultiplier = 0.4
	// MaxMultiplier applies to locks of a year or more
	MaxMultiplier = 4.0

	dayMillis = 86_400_000
)

var namePattern = regexp.MustCompile(`(?i)BUNKER\s+STAKING\s+(\d+)(M|Y)`)

// StakeWeight is derived from a lock every time it is needed
type StakeWeight struct {
	DurationDays int64
	Multiplier   float64
	StakingUnits float64
}

// DurationDays rounds the distance between start and end to whole days. It is 0
// when either bound is missing.
func DurationDays(start, end *time.Time) int64 {
	if start == nil || end == nil {
		return 0
	}
	ms := end.UnixNano()/int64(time.Millisecond) - start.UnixNano()/int64(time.Millisecond)
	return int64(math.Round(float64(ms) / dayMillis))
}

// Multiplier returns the reward multiplier of a lock duration
func Multiplier(days int64) float64 {
	switch {
	case days <= 35:
		return 0.4
	case days <= 100:
		return 1.0
	case days <= 190:
		return 2.0
	case days >= 350:
		return 4.0
	default:
		return math.Min(MaxMultiplier, math.Max(MinMultiplier, float64(days)/30/3))
	}
}

// DurationLabel is the human readable bucket of a duration
func DurationLabel(days int64) string {
	switch {
	case days <= 35:
		return "1 month"
	case days <= 100:
		return "3 months"
	case days <= 190:
		return "6 months"
	case days >= 350:
		return "12 months"
	default:
		return fmt.Sprintf("%d months", int64(math.Round(float64(days)/30)))
	}
}

// DurationFromName reads the duration encoded in a staking lock title such as
// "BUNKER STAKING 6M". Months count 30 days and years 365.
func DurationFromName(name string) (int64, bool) {
	match := namePattern.FindStringSubmatch(name)
	if match == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil || n <= 0 || n > 100 {
		return 0, false
	}
	if strings.EqualFold(match[2], "Y") {
		return n * 365, true
	}
	return n * 30, true
}

// LockDurationDays uses the decoded schedule. The lock title is only consulted
// when no start date was decoded.
func LockDurationDays(lock *model.Lock) int64 {
	if lock.StartDate != nil {
		if lock.UnlockDate == nil {
			return 0
		}
		return DurationDays(lock.StartDate, lock.UnlockDate)
	}
	if days, ok := DurationFromName(lock.Name); ok {
		return days
	}
	return 0
}

// Weight is amount in whole tokens times multiplier
func Weight(amount model.Amount, multiplier float64) float64 {
	return amount.Float64() * multiplier
}

// StakeWeightOf computes the weight of one lock
func StakeWeightOf(lock *model.Lock) StakeWeight {
	days := LockDurationDays(lock)
	multiplier := Multiplier(days)
	return StakeWeight{
		DurationDays: days,
		Multiplier:   multiplier,
		StakingUnits: Weight(lock.Amount, multiplier),
	}
}

// IsActiveStake reports whether the lock counts towards the staking pool
func IsActiveStake(lock *model.Lock) bool {
	return lock.Category == model.LockCategoryStaking && lock.Amount > 0
}

// Totals of a set of staking positions
type Totals struct {
	TotalStaked model.Amount
	TotalWeight float64
	Positions   int
}

// AverageMultiplier is weight per staked token, 0 when nothing is staked
func (t Totals) AverageMultiplier() float64 {
	staked := t.TotalStaked.Float64()
	if staked <= 0 {
		return 0
	}
	return t.TotalWeight / staked
}

// ProtocolTotals sums every active staking position
func ProtocolTotals(locks []*model.Lock) Totals {
	var totals Totals
	for _, lock := range locks {
		if !IsActiveStake(lock) {
			continue
		}
		totals.TotalStaked += lock.Amount
		totals.TotalWeight += StakeWeightOf(lock).StakingUnits
		totals.Positions++
	}
	return totals
}

// WalletLocks returns the staking category locks created by wallet, claimed ones included
func WalletLocks(locks []*model.Lock, wallet address.PublicKey) []*model.Lock {
	out := make([]*model.Lock, 0)
	for _, lock := range locks {
		if lock.Category == model.LockCategoryStaking && lock.Creator == wallet {
			out = append(out, lock)
		}
	}
	return out
}

// PoolShare is the percentage of the total weight held by units, 0 for an empty pool
func PoolShare(units, totalUnits float64) float64 {
	if totalUnits <= 0 {
		return 0
	}
	return units / totalUnits * 100
}

// RewardEstimate apportions the monthly pool by weight. The result is not rounded.
func RewardEstimate(monthlyPool, units, totalUnits float64) float64 {
	if totalUnits <= 0 {
		return 0
	}
	return monthlyPool * (units / totalUnits)
}

// APY is yearly rewards over the multiplier adjusted stake, in percent
func APY(monthlyPool float64, totals Totals) float64 {
	avg := totals.AverageMultiplier()
	if avg <= 0 {
		return 0
	}
	effective := totals.TotalStaked.Float64() / avg
	if effective <= 0 {
		return 0
	}
	return monthlyPool * 12 / effective * 100
}

// EstimatedAPY is the APY a hypothetical stake would earn at the given multiplier,
// joining the current pool
func EstimatedAPY(monthlyPool, stake, multiplier, totalWeight float64) float64 {
	if stake <= 0 {
		return 0
	}
	weighted := stake * multiplier
	if totalWeight <= 0 {
		totalWeight = weighted
	}
	return monthlyPool * 12 * (weighted / totalWeight) / stake * 100
}
