// Package lockbuilder assembles the unsigned transaction that opens a staking lock.
// The transaction creates both token accounts when missing, the vesting escrow and
// its metadata record. Signing and submission are left to the wallet.
package lockbuilder

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gitlab.com/bunkercoin/dashboard_api/address"
	"gitlab.com/bunkercoin/dashboard_api/conv"
	"gitlab.com/bunkercoin/dashboard_api/locks"
	"gitlab.com/bunkercoin/dashboard_api/model"
	"gitlab.com/bunkercoin/dashboard_api/rpc"
	"gitlab.com/bunkercoin/dashboard_api/staking"
	"golang.org/x/crypto/ed25519"
)

// StartDelay is added to the current time to give the wallet time to sign
const StartDelay = 300 * time.Second

var (
	// ErrInvalidDuration is returned for unknown duration codes
	ErrInvalidDuration = errors.New("invalid lock duration")
	// ErrInvalidAmount is returned for unparsable or zero amounts
	ErrInvalidAmount = errors.New("invalid lock amount")
	// ErrInvalidWallet is returned when the wallet is not an address
	ErrInvalidWallet = errors.New("invalid wallet address")
)

// BlockhashSource provides the recent blockhash of new transactions
type BlockhashSource interface {
	GetLatestBlockhash(ctx context.Context) (rpc.Blockhash, error)
}

// Config of the tracked mint and programs
type Config struct {
	Mint                   address.PublicKey
	LockProgram            address.PublicKey
	TokenProgram           address.PublicKey
	AssociatedTokenProgram address.PublicKey
	Decimals               uint8
	TokenSymbol            string
}

// Builder creates lock transactions. It is safe for concurrent use.
type Builder struct {
	cfg    Config
	blocks BlockhashSource
	now    func() time.Time
	random io.Reader
}

// NewBuilder constructor
func NewBuilder(cfg Config, blocks BlockhashSource) *Builder {
	if cfg.TokenSymbol == "" {
		cfg.TokenSymbol = "BUNKER"
	}
	return &Builder{cfg: cfg, blocks: blocks, now: time.Now, random: rand.Reader}
}

// Lock is the validated input of one transaction
type Lock struct {
	Wallet   address.PublicKey
	Amount   uint64
	Duration staking.Duration
}

// ParseRequest validates a build request
func (b *Builder) ParseRequest(req *model.BuildLockRequest) (*Lock, error) {
	wallet, err := address.FromBase58(strings.TrimSpace(req.Wallet))
	if err != nil {
		return nil, errors.Wrap(ErrInvalidWallet, err.Error())
	}
	duration, ok := staking.ParseDuration(req.Duration)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidDuration, "%q", req.Duration)
	}
	amount, err := conv.ParseUnits(strings.TrimSpace(req.Amount), b.cfg.Decimals)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidAmount, err.Error())
	}
	if amount == 0 {
		return nil, errors.Wrap(ErrInvalidAmount, "amount must be positive")
	}
	return &Lock{Wallet: wallet, Amount: amount, Duration: duration}, nil
}

// Build returns the unsigned transaction and the one-time base key that must co-sign it
func (b *Builder) Build(ctx context.Context, req *model.BuildLockRequest) (*model.UnsignedLockTransaction, error) {
	lock, err := b.ParseRequest(req)
	if err != nil {
		return nil, err
	}
	return b.BuildLock(ctx, lock)
}

// BuildLock assembles the transaction of a validated lock
func (b *Builder) BuildLock(ctx context.Context, lock *Lock) (*model.UnsignedLockTransaction, error) {
	logger := log.With().Str("section", "lockbuilder").Str("action", "build").Str("wallet", lock.Wallet.String()).Logger()

	basePublic, baseSecret, err := ed25519.GenerateKey(b.random)
	if err != nil {
		return nil, errors.Wrap(err, "unable to generate base key")
	}
	base, err := address.FromBytes(basePublic)
	if err != nil {
		return nil, err
	}

	escrow, err := locks.EscrowAddress(base, b.cfg.LockProgram)
	if err != nil {
		return nil, errors.Wrap(err, "escrow address")
	}
	escrowMetadata, err := locks.MetadataAddress(escrow, b.cfg.LockProgram)
	if err != nil {
		return nil, errors.Wrap(err, "metadata address")
	}
	eventAuthority, err := locks.EventAuthority(b.cfg.LockProgram)
	if err != nil {
		return nil, errors.Wrap(err, "event authority")
	}
	walletToken, err := address.AssociatedTokenAddress(lock.Wallet, b.cfg.Mint, b.cfg.TokenProgram, b.cfg.AssociatedTokenProgram)
	if err != nil {
		return nil, errors.Wrap(err, "wallet token address")
	}
	escrowToken, err := address.AssociatedTokenAddress(escrow, b.cfg.Mint, b.cfg.TokenProgram, b.cfg.AssociatedTokenProgram)
	if err != nil {
		return nil, errors.Wrap(err, "escrow token address")
	}

	start := b.now().Add(StartDelay).Unix()
	frequency := lock.Duration.Seconds()
	title := lock.Duration.Title()
	amountText := conv.FromUnits(lock.Amount, b.cfg.Decimals)

	instructions := []Instruction{
		CreateAssociatedTokenAccountIdempotent(lock.Wallet, walletToken, lock.Wallet, b.cfg.Mint, b.cfg.TokenProgram, b.cfg.AssociatedTokenProgram),
		CreateAssociatedTokenAccountIdempotent(lock.Wallet, escrowToken, escrow, b.cfg.Mint, b.cfg.TokenProgram, b.cfg.AssociatedTokenProgram),
		CreateVestingEscrowV2(EscrowParams{
			Base:             base,
			Escrow:           escrow,
			Mint:             b.cfg.Mint,
			EscrowToken:      escrowToken,
			Sender:           lock.Wallet,
			SenderToken:      walletToken,
			Recipient:        lock.Wallet,
			TokenProgram:     b.cfg.TokenProgram,
			EventAuthority:   eventAuthority,
			Program:          b.cfg.LockProgram,
			VestingStartTime: uint64(start),
			CliffTime:        uint64(start),
			Frequency:        frequency,
			AmountPerPeriod:  lock.Amount,
			NumberOfPeriod:   1,
		}),
		CreateVestingEscrowMetadata(MetadataParams{
			Escrow:         escrow,
			Creator:        lock.Wallet,
			EscrowMetadata: escrowMetadata,
			Payer:          lock.Wallet,
			Program:        b.cfg.LockProgram,
			Name:           title,
			Description:    title + " lock for " + amountText + " " + b.cfg.TokenSymbol,
		}),
	}

	blockhash, err := b.blocks.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}
	msg, err := CompileMessage(lock.Wallet, blockhash.Hash, instructions)
	if err != nil {
		return nil, err
	}

	logger.Info().Str("escrow", escrow.String()).Str("duration", lock.Duration.Code).Str("amount", amountText).Msg("Built lock transaction")
	return &model.UnsignedLockTransaction{
		Transaction:          base64.StdEncoding.EncodeToString(msg.SerializeUnsigned()),
		Message:              base64.StdEncoding.EncodeToString(msg.Serialize()),
		Signers:              msg.Signers(),
		BaseKey:              base,
		BaseSecret:           base64.StdEncoding.EncodeToString(baseSecret),
		Escrow:               escrow,
		EscrowMetadata:       escrowMetadata,
		Title:                title,
		Amount:               model.Amount(lock.Amount),
		DurationCode:         lock.Duration.Code,
		StartTime:            start,
		EndTime:              start + int64(frequency),
		RecentBlockhash:      blockhash.Hash,
		LastValidBlockHeight: blockhash.LastValidBlockHeight,
	}, nil
}
