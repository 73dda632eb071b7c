package service

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"gitlab.com/bunkercoin/dashboard_api/address"
	"gitlab.com/bunkercoin/dashboard_api/cache"
	"gitlab.com/bunkercoin/dashboard_api/config"
	"gitlab.com/bunkercoin/dashboard_api/locks"
	"gitlab.com/bunkercoin/dashboard_api/model"
	"gitlab.com/bunkercoin/dashboard_api/rpc"
)

const (
	testMint        = "8NCievmJCg2d9Vc2TWgz2HkE6ANeSX7kwvdq5AL7pump"
	testLockProgram = "LocpQgucEQHbqNABEYvBvwoxCPsSbG91A1QaQhQQqjn"
	testRaydium     = "Gpb5ADcBXuu2komURWXrAf9UZjM1UfBuYSTfVSiDe4M6"
	testMeteora     = "DjY4XrZZWMLxo13MZ6fU6qcoHX5ZuiJXTgBnE6of1T7B"
	oneToken        = 1_000_000
)

var (
	mintKey    = address.MustFromBase58(testMint)
	programKey = address.MustFromBase58(testLockProgram)
	wallet     = address.PublicKey{7}
)

func testConfig() config.Config {
	opts := cache.Options{MaxAge: time.Minute, MaxAttempts: 1}
	return config.Config{
		Token: config.TokenConfig{
			Mint:         testMint,
			LockProgram:  testLockProgram,
			TokenProgram: "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
			Decimals:     6,
			TotalSupply:  1_000_000_000,
			LiquidityPools: []*config.LiquidityPoolConfig{
				{Platform: "Raydium", Address: testRaydium},
				{Platform: "Meteora", Address: testMeteora},
			},
		},
		Cache: config.CacheConfig{
			Locks: opts, Burned: opts, Price: opts, History: opts, Holders: opts, Liquidity: opts,
		},
		Staking: config.StakingConfig{MonthlyRewardPool: 120000, EstimateStake: 100000},
	}
}

type fakeLedger struct {
	lock     sync.Mutex
	scans    map[address.PublicKey][]rpc.KeyedAccount
	accounts map[address.PublicKey][]byte
	scanErr  error
	calls    int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		scans:    map[address.PublicKey][]rpc.KeyedAccount{},
		accounts: map[address.PublicKey][]byte{},
	}
}

func (f *fakeLedger) GetFilteredAccounts(ctx context.Context, program address.PublicKey, dataSize uint64, filters ...rpc.Memcmp) ([]rpc.KeyedAccount, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls++
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	return f.scans[program], nil
}

func (f *fakeLedger) GetMultipleAccounts(ctx context.Context, keys []address.PublicKey) ([][]byte, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = f.accounts[k]
	}
	return out, nil
}

func (f *fakeLedger) GetSingleAccount(ctx context.Context, pk address.PublicKey) ([]byte, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.accounts[pk], nil
}

// addLock registers an escrow of amount whole tokens and its metadata record
func (f *fakeLedger) addLock(pk address.PublicKey, name string, creator address.PublicKey, tokens uint64, days uint64) {
	escrow := &locks.Escrow{
		Recipient:        creator,
		Mint:             mintKey,
		Creator:          creator,
		CliffTime:        1_700_000_000,
		Frequency:        days * 86400,
		AmountPerPeriod:  tokens * oneToken,
		NumberOfPeriod:   1,
		VestingStartTime: 1_700_000_000,
	}
	f.scans[programKey] = append(f.scans[programKey], rpc.KeyedAccount{Address: pk, Data: locks.EncodeEscrow(escrow)})
	meta, err := locks.MetadataAddress(pk, programKey)
	if err != nil {
		panic(err)
	}
	f.accounts[meta] = locks.EncodeMetadata(&locks.Metadata{Escrow: pk, Name: name})
}

func tokenAccount(mint, owner address.PublicKey, amount uint64) []byte {
	data := make([]byte, TokenAccountSize)
	copy(data[0:], mint[:])
	copy(data[32:], owner[:])
	binary.LittleEndian.PutUint64(data[64:], amount)
	return data
}

func mintAccount(supply uint64) []byte {
	data := make([]byte, MintAccountSize)
	binary.LittleEndian.PutUint64(data[36:], supply)
	return data
}

type fakePrices struct {
	price   *model.PriceData
	history []model.PricePoint
	err     error
	calls   int
}

func (f *fakePrices) GetPrice(ctx context.Context) (*model.PriceData, error) {
	f.calls++
	return f.price, f.err
}

func (f *fakePrices) GetHistory(ctx context.Context) ([]model.PricePoint, error) {
	f.calls++
	return f.history, f.err
}

func newTestService(ledger *fakeLedger, prices *fakePrices) (*Service, *cache.MemoryStore) {
	store := cache.NewMemoryStore()
	svc, err := NewService(testConfig(), cache.New(store), ledger, prices)
	if err != nil {
		panic(err)
	}
	return svc, store
}
