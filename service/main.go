package service

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"gitlab.com/bunkercoin/dashboard_api/address"
	"gitlab.com/bunkercoin/dashboard_api/cache"
	"gitlab.com/bunkercoin/dashboard_api/config"
	"gitlab.com/bunkercoin/dashboard_api/locks"
	"gitlab.com/bunkercoin/dashboard_api/model"
	"gitlab.com/bunkercoin/dashboard_api/rpc"
)

// Cache keys of the served metrics
const (
	KeyLocks     = "lock-data"
	KeyBurned    = "burned-data"
	KeyPrice     = "price-data"
	KeyHistory   = "price-history"
	KeyLiquidity = "liquidity-data"
	keyHolders   = "holders-%d"
)

// Ledger is the part of the node client the service reads from
type Ledger interface {
	locks.AccountFetcher
	GetSingleAccount(ctx context.Context, pk address.PublicKey) ([]byte, error)
}

// PriceFeed is the market data source
type PriceFeed interface {
	GetPrice(ctx context.Context) (*model.PriceData, error)
	GetHistory(ctx context.Context) ([]model.PricePoint, error)
}

type liquidityPool struct {
	platform string
	address  address.PublicKey
}

// Service computes every served metric behind the freshness cache
type Service struct {
	cfg          config.Config
	cache        *cache.Cache
	ledger       Ledger
	prices       PriceFeed
	decoder      *locks.Decoder
	mint         address.PublicKey
	tokenProgram address.PublicKey
	totalSupply  uint64
	pools        []liquidityPool
}

// NewService validates the token configuration and builds the service
func NewService(cfg config.Config, c *cache.Cache, ledger Ledger, prices PriceFeed) (*Service, error) {
	mint, err := address.FromBase58(cfg.Token.Mint)
	if err != nil {
		return nil, errors.Wrap(err, "token.mint")
	}
	program, err := address.FromBase58(cfg.Token.LockProgram)
	if err != nil {
		return nil, errors.Wrap(err, "token.lock_program")
	}
	tokenProgram, err := address.FromBase58(cfg.Token.TokenProgram)
	if err != nil {
		return nil, errors.Wrap(err, "token.token_program")
	}
	if cfg.Token.Decimals != model.AmountDecimals {
		return nil, errors.Errorf("token.decimals must be %d, got %d", model.AmountDecimals, cfg.Token.Decimals)
	}
	totalSupply, err := supplyUnits(cfg.Token.TotalSupply, cfg.Token.Decimals)
	if err != nil {
		return nil, err
	}
	pools := make([]liquidityPool, 0, len(cfg.Token.LiquidityPools))
	for _, p := range cfg.Token.LiquidityPools {
		pk, err := address.FromBase58(p.Address)
		if err != nil {
			return nil, errors.Wrapf(err, "token.liquidity_pools %s", p.Platform)
		}
		pools = append(pools, liquidityPool{platform: p.Platform, address: pk})
	}

	return &Service{
		cfg:          cfg,
		cache:        c,
		ledger:       ledger,
		prices:       prices,
		decoder:      locks.NewDecoder(ledger, program, mint, totalSupply),
		mint:         mint,
		tokenProgram: tokenProgram,
		totalSupply:  totalSupply,
		pools:        pools,
	}, nil
}

// Cache returns the freshness cache used by the service
func (s *Service) Cache() *cache.Cache {
	return s.cache
}

// Close stops background refreshes
func (s *Service) Close() {
	s.cache.Close()
}

func supplyUnits(supply uint64, decimals uint8) (uint64, error) {
	if decimals > 19 {
		return 0, errors.Errorf("token.decimals %d out of range", decimals)
	}
	scale := uint64(math.Pow10(int(decimals)))
	if supply == 0 || supply > math.MaxUint64/scale {
		return 0, errors.Errorf("token.total_supply %d out of range", supply)
	}
	return supply * scale, nil
}

// serve reads key through the cache, or recomputes and overwrites it when force is set
func serve[T any](ctx context.Context, s *Service, key string, opts cache.Options, force bool, produce cache.Producer[T], valid cache.Validator[T]) (T, cache.Origin, error) {
	if force {
		data, err := cache.ForceRefresh(ctx, s.cache, key, opts, produce, valid)
		return data, cache.OriginMiss, err
	}
	return cache.Fetch(ctx, s.cache, key, opts, produce, valid)
}

var _ Ledger = (*rpc.Client)(nil)
