package model

import (
	"time"

	"gitlab.com/bunkercoin/dashboard_api/address"
)

// StakeStatus of a staking position
// swagger:model StakeStatus
// enum: active,claimed
type StakeStatus string

const (
	StakeStatusActive  StakeStatus = "active"
	StakeStatusClaimed StakeStatus = "claimed"
)

// StakingOption describes one lock duration offered to users
type StakingOption struct {
	Code         string  `json:"code"`
	Label        string  `json:"label"`
	Days         int64   `json:"days"`
	Multiplier   float64 `json:"multiplier"`
	EstimatedAPY float64 `json:"estimatedApy"`
}

// StakingOverview holds the protocol wide staking figures
// swagger:model StakingOverview
type StakingOverview struct {
	TotalStaked       Amount           `json:"totalStaked"`
	TotalWeight       float64          `json:"totalWeight"`
	AverageMultiplier float64          `json:"averageMultiplier"`
	Positions         int              `json:"positions"`
	TVL               *float64         `json:"tvl"`
	APY               float64          `json:"apy"`
	MonthlyRewards    float64          `json:"monthlyRewards"`
	Options           []*StakingOption `json:"options"`
}

// UserStake is one staking position of a wallet
type UserStake struct {
	Address                address.PublicKey `json:"pubkey"`
	Creator                address.PublicKey `json:"creator"`
	Name                   string            `json:"name"`
	Amount                 Amount            `json:"amount"`
	LockDuration           string            `json:"lockDuration"`
	DurationDays           int64             `json:"durationDays"`
	Multiplier             float64           `json:"multiplier"`
	StakingUnits           float64           `json:"stakingUnits"`
	StartDate              *time.Time        `json:"startDate,omitempty"`
	EndDate                *time.Time        `json:"endDate,omitempty"`
	Status                 StakeStatus       `json:"status"`
	EstimatedMonthlyReward float64           `json:"estimatedMonthlyReward"`
}

// UserStakes lists the positions of a wallet with their totals
// swagger:model UserStakes
type UserStakes struct {
	Wallet            address.PublicKey `json:"wallet"`
	Stakes            []*UserStake      `json:"stakes"`
	TotalStaked       Amount            `json:"totalStaked"`
	TotalUnits        float64           `json:"totalUnits"`
	AverageMultiplier float64           `json:"averageMultiplier"`
	PoolShare         float64           `json:"poolShare"`
	MonthlyReward     float64           `json:"estimatedMonthlyReward"`
}
