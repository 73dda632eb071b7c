package model

import (
	"time"

	"gitlab.com/bunkercoin/dashboard_api/address"
)

// LockCategory groups lock positions for reporting
// swagger:model LockCategory
// enum: team,renovation,protocol,staking,other
type LockCategory string

const (
	LockCategoryTeam       LockCategory = "team"
	LockCategoryRenovation LockCategory = "renovation"
	LockCategoryProtocol   LockCategory = "protocol"
	LockCategoryStaking    LockCategory = "staking"
	LockCategoryOther      LockCategory = "other"
)

func (c LockCategory) IsValid() bool {
	switch c {
	case LockCategoryTeam,
		LockCategoryRenovation,
		LockCategoryProtocol,
		LockCategoryStaking,
		LockCategoryOther:
		return true
	default:
		return false
	}
}

// UnknownLockName is shown for positions without a metadata record
const UnknownLockName = "Unknown Lock"

// Lock is one on-chain vesting escrow of the tracked mint
// swagger:model Lock
type Lock struct {
	Address           address.PublicKey `json:"pubkey"`
	Amount            Amount            `json:"amount"`
	TotalLocked       Amount            `json:"totalLocked"`
	Withdrawn         Amount            `json:"withdrawn"`
	Name              string            `json:"name"`
	Category          LockCategory      `json:"category"`
	Creator           address.PublicKey `json:"creator"`
	Recipient         address.PublicKey `json:"recipient"`
	StartDate         *time.Time        `json:"startDate,omitempty"`
	UnlockDate        *time.Time        `json:"unlockDate,omitempty"`
	CliffTime         *int64            `json:"cliffTime,omitempty"`
	Frequency         uint64            `json:"frequency"`
	NumberOfPeriods   uint64            `json:"numberOfPeriods"`
	CliffUnlockAmount Amount            `json:"cliffUnlockAmount"`
	AmountPerPeriod   Amount            `json:"amountPerPeriod"`
}

// LockSummary aggregates every decoded lock of one fetch cycle
// swagger:model LockSummary
type LockSummary struct {
	TotalLocked      Amount  `json:"totalLocked"`
	TeamLocked       Amount  `json:"teamLocked"`
	RenovationLocked Amount  `json:"renovationLocked"`
	ProtocolLocked   Amount  `json:"protocolLocked"`
	StakingLocked    Amount  `json:"stakingLocked"`
	OtherLocked      Amount  `json:"otherLocked"`
	Accounts         []*Lock `json:"accounts"`
}

// NewLockSummary builds the totals from the given locks
func NewLockSummary(locks []*Lock) *LockSummary {
	summary := &LockSummary{Accounts: make([]*Lock, 0, len(locks))}
	for _, lock := range locks {
		summary.Add(lock)
	}
	return summary
}

// Add a lock to the summary
func (s *LockSummary) Add(lock *Lock) {
	s.Accounts = append(s.Accounts, lock)
	s.TotalLocked += lock.Amount
	switch lock.Category {
	case LockCategoryTeam:
		s.TeamLocked += lock.Amount
	case LockCategoryRenovation:
		s.RenovationLocked += lock.Amount
	case LockCategoryProtocol:
		s.ProtocolLocked += lock.Amount
	case LockCategoryStaking:
		s.StakingLocked += lock.Amount
	default:
		s.OtherLocked += lock.Amount
	}
}
