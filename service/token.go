package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gitlab.com/bunkercoin/dashboard_api/address"
	"gitlab.com/bunkercoin/dashboard_api/cache"
	"gitlab.com/bunkercoin/dashboard_api/codec"
	"gitlab.com/bunkercoin/dashboard_api/model"
	"gitlab.com/bunkercoin/dashboard_api/rpc"
	"golang.org/x/sync/errgroup"
)

const (
	// TokenAccountSize is the size of a token program account
	TokenAccountSize = 165
	// MintAccountSize is the size of a token program mint
	MintAccountSize = 82

	tokenMintOffset   = 0
	tokenOwnerOffset  = 32
	tokenAmountOffset = 64
	mintSupplyOffset  = 36

	// DefaultHoldersLimit is used when no limit is requested
	DefaultHoldersLimit = 10
	// MaxHoldersLimit caps the holders list
	MaxHoldersLimit = 50
)

// ErrAccountMissing is returned when a required account does not exist
var ErrAccountMissing = errors.New("account not found")

// TokenAccount is the decoded part of a token program account
type TokenAccount struct {
	Mint   address.PublicKey
	Owner  address.PublicKey
	Amount uint64
}

// DecodeTokenAccount reads mint, owner and amount of a token account
func DecodeTokenAccount(data []byte) (*TokenAccount, error) {
	if len(data) < TokenAccountSize {
		return nil, errors.Wrapf(codec.ErrMalformedBuffer, "token account of %d bytes", len(data))
	}
	amount, err := codec.U64At(data, tokenAmountOffset)
	if err != nil {
		return nil, err
	}
	account := &TokenAccount{Amount: amount}
	copy(account.Mint[:], data[tokenMintOffset:tokenMintOffset+address.Size])
	copy(account.Owner[:], data[tokenOwnerOffset:tokenOwnerOffset+address.Size])
	return account, nil
}

// DecodeMintSupply reads the current supply of a mint account
func DecodeMintSupply(data []byte) (uint64, error) {
	if len(data) < MintAccountSize {
		return 0, errors.Wrapf(codec.ErrMalformedBuffer, "mint account of %d bytes", len(data))
	}
	return codec.U64At(data, mintSupplyOffset)
}

// ClampHoldersLimit maps a requested limit into [1, MaxHoldersLimit]
func ClampHoldersLimit(limit int) int {
	switch {
	case limit < 1:
		return 1
	case limit > MaxHoldersLimit:
		return MaxHoldersLimit
	default:
		return limit
	}
}

// HoldersKey is the cache key of the holders list of the given limit
func HoldersKey(limit int) string {
	return fmt.Sprintf(keyHolders, limit)
}

// ValidBurned godoc
func ValidBurned(burned model.Amount) bool {
	return burned > 0
}

// ValidHolders godoc
func ValidHolders(holders []*model.TokenBalance) bool {
	return len(holders) > 0
}

// ValidLiquidity requires at least one pool holding tokens
func ValidLiquidity(info *model.LiquidityInfo) bool {
	return info != nil && info.Total > 0 && len(info.Pools) > 0
}

// GetBurned returns the tokens removed from the original supply
func (s *Service) GetBurned(ctx context.Context, force bool) (model.Amount, cache.Origin, error) {
	return serve(ctx, s, KeyBurned, s.cfg.Cache.Burned, force, s.fetchBurned, ValidBurned)
}

func (s *Service) fetchBurned(ctx context.Context) (model.Amount, error) {
	data, err := s.ledger.GetSingleAccount(ctx, s.mint)
	if err != nil {
		return 0, err
	}
	if data == nil {
		return 0, errors.Wrapf(ErrAccountMissing, "mint %s", s.mint)
	}
	supply, err := DecodeMintSupply(data)
	if err != nil {
		return 0, err
	}
	if supply >= s.totalSupply {
		return 0, nil
	}
	return model.Amount(s.totalSupply - supply), nil
}

// GetHolders returns the largest token accounts of the mint, limit is clamped
func (s *Service) GetHolders(ctx context.Context, limit int, force bool) ([]*model.TokenBalance, cache.Origin, error) {
	limit = ClampHoldersLimit(limit)
	produce := func(ctx context.Context) ([]*model.TokenBalance, error) {
		return s.fetchHolders(ctx, limit)
	}
	return serve(ctx, s, HoldersKey(limit), s.cfg.Cache.Holders, force, produce, ValidHolders)
}

func (s *Service) fetchHolders(ctx context.Context, limit int) ([]*model.TokenBalance, error) {
	accounts, err := s.ledger.GetFilteredAccounts(ctx, s.tokenProgram, TokenAccountSize,
		rpc.Memcmp{Offset: tokenMintOffset, Bytes: s.mint[:]})
	if err != nil {
		return nil, err
	}
	holders := make([]*model.TokenBalance, 0, len(accounts))
	for _, account := range accounts {
		token, err := DecodeTokenAccount(account.Data)
		if err != nil {
			log.Debug().Err(err).Str("section", "service").Str("action", "holders").
				Str("account", account.Address.String()).Msg("Skipping token account")
			continue
		}
		if token.Amount == 0 || token.Mint != s.mint {
			continue
		}
		holders = append(holders, &model.TokenBalance{Address: token.Owner, Balance: model.Amount(token.Amount)})
	}
	sort.SliceStable(holders, func(i, j int) bool {
		return holders[i].Balance > holders[j].Balance
	})
	if len(holders) > limit {
		holders = holders[:limit]
	}
	for _, h := range holders {
		h.Percentage = float64(h.Balance) / float64(s.totalSupply) * 100
	}
	return holders, nil
}

// GetLiquidity returns the tokens held by the configured pools
func (s *Service) GetLiquidity(ctx context.Context, force bool) (*model.LiquidityInfo, cache.Origin, error) {
	return serve(ctx, s, KeyLiquidity, s.cfg.Cache.Liquidity, force, s.fetchLiquidity, ValidLiquidity)
}

// fetchLiquidity reads every pool in parallel. A pool that cannot be read is left out.
func (s *Service) fetchLiquidity(ctx context.Context) (*model.LiquidityInfo, error) {
	logger := log.With().Str("section", "service").Str("action", "liquidity").Logger()
	results := make([]*model.LiquidityPool, len(s.pools))
	var lock sync.Mutex
	var failed int

	g, gctx := errgroup.WithContext(ctx)
	for i, pool := range s.pools {
		i, pool := i, pool
		g.Go(func() error {
			data, err := s.ledger.GetSingleAccount(gctx, pool.address)
			if err == nil && data == nil {
				err = errors.Wrapf(ErrAccountMissing, "pool %s", pool.address)
			}
			var token *TokenAccount
			if err == nil {
				token, err = DecodeTokenAccount(data)
			}
			if err == nil && token.Mint != s.mint {
				err = errors.Errorf("pool %s holds mint %s", pool.address, token.Mint)
			}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn().Err(err).Str("platform", pool.platform).Str("account", pool.address.String()).Msg("Skipping liquidity pool")
				lock.Lock()
				failed++
				lock.Unlock()
				return nil
			}
			results[i] = &model.LiquidityPool{Platform: pool.platform, Address: pool.address, Amount: model.Amount(token.Amount)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	info := &model.LiquidityInfo{Pools: make([]*model.LiquidityPool, 0, len(results))}
	for _, pool := range results {
		if pool == nil {
			continue
		}
		info.Pools = append(info.Pools, pool)
		info.Total += pool.Amount
	}
	if failed == len(s.pools) && failed > 0 {
		return info, errors.Wrap(rpc.ErrFetchFailed, "no liquidity pool could be read")
	}
	return info, nil
}
