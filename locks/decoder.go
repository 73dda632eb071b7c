// Package locks decodes vesting escrows of the tracked mint into lock records.
package locks

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gitlab.com/bunkercoin/dashboard_api/address"
	"gitlab.com/bunkercoin/dashboard_api/model"
	"gitlab.com/bunkercoin/dashboard_api/rpc"
)

const (
	minStartTime = 1_600_000_000
	maxStartTime = 2_000_000_000
	minCliffTime = 1_000_000_000
	// schedules longer than this are treated as having no end
	maxScheduleSeconds = 1 << 40
)

// ErrInvariant is returned for escrows whose amounts do not add up
var ErrInvariant = errors.New("lock amounts violate invariants")

// AccountFetcher is the part of the ledger client the decoder needs
type AccountFetcher interface {
	GetFilteredAccounts(ctx context.Context, program address.PublicKey, dataSize uint64, filters ...rpc.Memcmp) ([]rpc.KeyedAccount, error)
	GetMultipleAccounts(ctx context.Context, addresses []address.PublicKey) ([][]byte, error)
}

// Decoder loads every lock of one mint from one lock program
type Decoder struct {
	fetcher  AccountFetcher
	program  address.PublicKey
	mint     address.PublicKey
	maxTotal uint64
}

// NewDecoder constructor. maxTotal is the total supply in minor units.
func NewDecoder(fetcher AccountFetcher, program, mint address.PublicKey, maxTotal uint64) *Decoder {
	return &Decoder{
		fetcher:  fetcher,
		program:  program,
		mint:     mint,
		maxTotal: maxTotal,
	}
}

// FetchSummary scans the lock program and decodes every escrow of the mint.
// Bad records are skipped. A failed scan returns an empty summary with the error.
func (d *Decoder) FetchSummary(ctx context.Context) (*model.LockSummary, error) {
	logger := log.With().Str("section", "locks").Str("action", "fetch_summary").Logger()

	candidates, err := d.fetcher.GetFilteredAccounts(ctx, d.program, 0,
		rpc.Memcmp{Offset: 0, Bytes: EscrowDiscriminator[:]},
		rpc.Memcmp{Offset: MintOffset, Bytes: d.mint[:]},
	)
	if err != nil {
		return model.NewLockSummary(nil), err
	}
	if len(candidates) == 0 {
		return model.NewLockSummary(nil), nil
	}

	metadataKeys := make([]address.PublicKey, len(candidates))
	for i, candidate := range candidates {
		metadataKeys[i], err = MetadataAddress(candidate.Address, d.program)
		if err != nil {
			// leaves a zero key which the node reports as absent
			logger.Warn().Err(err).Str("account", candidate.Address.String()).Msg("Unable to derive metadata address")
		}
	}
	metadata, err := d.fetcher.GetMultipleAccounts(ctx, metadataKeys)
	if err != nil {
		logger.Warn().Err(err).Msg("Unable to load lock metadata, continuing without names")
		metadata = make([][]byte, len(candidates))
	}

	locks := make([]*model.Lock, 0, len(candidates))
	for i, candidate := range candidates {
		escrow, err := DecodeEscrow(candidate.Data)
		if err != nil {
			logger.Warn().Err(err).Str("account", candidate.Address.String()).Msg("Skipping undecodable escrow")
			continue
		}
		var meta *Metadata
		if i < len(metadata) && metadata[i] != nil {
			meta, err = DecodeMetadata(metadata[i])
			if err != nil {
				logger.Debug().Err(err).Str("account", candidate.Address.String()).Msg("Unable to decode lock metadata")
				meta = nil
			}
		}
		lock, err := BuildLock(candidate.Address, escrow, meta, d.maxTotal)
		if err != nil {
			logger.Info().Err(err).Str("account", candidate.Address.String()).Msg("Skipping lock")
			continue
		}
		locks = append(locks, lock)
	}

	logger.Debug().Int("candidates", len(candidates)).Int("accepted", len(locks)).Msg("Decoded locks")
	return model.NewLockSummary(locks), nil
}

// BuildLock validates the escrow amounts and resolves the schedule of one position
func BuildLock(pk address.PublicKey, e *Escrow, meta *Metadata, maxTotal uint64) (*model.Lock, error) {
	if e.NumberOfPeriod > 0 && e.AmountPerPeriod > math.MaxUint64/e.NumberOfPeriod {
		return nil, errors.Wrap(ErrInvariant, "vested amount overflows")
	}
	vested := e.AmountPerPeriod * e.NumberOfPeriod
	if e.CliffUnlockAmount > math.MaxUint64-vested {
		return nil, errors.Wrap(ErrInvariant, "total amount overflows")
	}
	total := e.CliffUnlockAmount + vested
	if total == 0 || total > maxTotal {
		return nil, errors.Wrapf(ErrInvariant, "total locked %d out of range", total)
	}
	if e.TotalClaimedAmount > total {
		return nil, errors.Wrapf(ErrInvariant, "claimed %d exceeds total %d", e.TotalClaimedAmount, total)
	}

	name := model.UnknownLockName
	if meta != nil && meta.Name != "" {
		name = meta.Name
	}

	lock := &model.Lock{
		Address:           pk,
		Amount:            model.Amount(total - e.TotalClaimedAmount),
		TotalLocked:       model.Amount(total),
		Withdrawn:         model.Amount(e.TotalClaimedAmount),
		Name:              name,
		Category:          Classify(name),
		Creator:           e.Creator,
		Recipient:         e.Recipient,
		Frequency:         e.Frequency,
		NumberOfPeriods:   e.NumberOfPeriod,
		CliffUnlockAmount: model.Amount(e.CliffUnlockAmount),
		AmountPerPeriod:   model.Amount(e.AmountPerPeriod),
	}
	if e.CliffTime > 0 && e.CliffTime <= math.MaxInt64 {
		cliff := int64(e.CliffTime)
		lock.CliffTime = &cliff
	}
	lock.StartDate, lock.UnlockDate = ResolveSchedule(e)
	return lock, nil
}

// ResolveSchedule returns the plausible start time and the unlock time
// max(start + frequency*periods, cliff). Either may be nil.
func ResolveSchedule(e *Escrow) (start, unlock *time.Time) {
	var endSeconds uint64
	if e.VestingStartTime > minStartTime && e.VestingStartTime < maxStartTime {
		t := time.Unix(int64(e.VestingStartTime), 0).UTC()
		start = &t
		if e.Frequency > 0 && e.NumberOfPeriod > 0 && e.Frequency <= maxScheduleSeconds/e.NumberOfPeriod {
			endSeconds = e.VestingStartTime + e.Frequency*e.NumberOfPeriod
		}
	}
	if e.CliffTime > minCliffTime && e.CliffTime < maxScheduleSeconds && e.CliffTime > endSeconds {
		endSeconds = e.CliffTime
	}
	if endSeconds > 0 {
		t := time.Unix(int64(endSeconds), 0).UTC()
		unlock = &t
	}
	return start, unlock
}

// Classify maps a lock name to its category. The first matching rule wins.
func Classify(name string) model.LockCategory {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "team"):
		return model.LockCategoryTeam
	case strings.Contains(lower, "renovation"):
		return model.LockCategoryRenovation
	case strings.Contains(lower, "protocol"):
		return model.LockCategoryProtocol
	case strings.HasPrefix(lower, "bunker staking"):
		return model.LockCategoryStaking
	default:
		return model.LockCategoryOther
	}
}
