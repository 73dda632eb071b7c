package locks

import (
	"github.com/pkg/errors"
	"gitlab.com/bunkercoin/dashboard_api/address"
	"gitlab.com/bunkercoin/dashboard_api/codec"
)

var (
	// EscrowDiscriminator tags vesting escrow accounts
	EscrowDiscriminator = codec.Discriminator{244, 119, 183, 4, 73, 116, 135, 195}
	// MetadataDiscriminator tags vesting escrow metadata accounts
	MetadataDiscriminator = codec.Discriminator{24, 204, 166, 104, 87, 158, 76, 13}
)

// ErrNotEscrow is returned for accounts carrying another discriminator
var ErrNotEscrow = errors.New("account is not a vesting escrow")

// ErrNotMetadata is returned for accounts carrying another discriminator
var ErrNotMetadata = errors.New("account is not a vesting escrow metadata")

const (
	// MintOffset is where the token mint lives in an escrow account
	MintOffset = 40
	// EscrowMinSize is the shortest escrow account that holds every decoded field
	EscrowMinSize = 208
)

// Escrow mirrors the on-chain vesting escrow account
type Escrow struct {
	Recipient           address.PublicKey
	Mint                address.PublicKey
	Creator             address.PublicKey
	Base                address.PublicKey
	Bump                uint8
	UpdateRecipientMode uint8
	CancelMode          uint8
	TokenProgramFlag    uint8
	CliffTime           uint64
	Frequency           uint64
	CliffUnlockAmount   uint64
	AmountPerPeriod     uint64
	NumberOfPeriod      uint64
	TotalClaimedAmount  uint64
	VestingStartTime    uint64
	CancelledAt         uint64
}

// Metadata mirrors the on-chain escrow metadata account
type Metadata struct {
	Escrow         address.PublicKey
	Name           string
	Description    string
	CreatorEmail   string
	RecipientEmail string
}

func readKey(r *codec.Reader) (address.PublicKey, error) {
	b, err := r.Fixed(address.Size)
	if err != nil {
		return address.PublicKey{}, err
	}
	return address.FromBytes(b)
}

// DecodeEscrow parses an escrow account
func DecodeEscrow(data []byte) (*Escrow, error) {
	if len(data) < EscrowMinSize {
		return nil, errors.Wrapf(codec.ErrMalformedBuffer, "escrow account has %d bytes", len(data))
	}
	if !EscrowDiscriminator.Matches(data) {
		return nil, ErrNotEscrow
	}
	r := codec.NewReader(data[codec.DiscriminatorSize:])
	e := &Escrow{}
	var err error
	for _, key := range []*address.PublicKey{&e.Recipient, &e.Mint, &e.Creator, &e.Base} {
		if *key, err = readKey(r); err != nil {
			return nil, err
		}
	}
	for _, b := range []*uint8{&e.Bump, &e.UpdateRecipientMode, &e.CancelMode, &e.TokenProgramFlag} {
		if *b, err = r.U8(); err != nil {
			return nil, err
		}
	}
	// alignment padding before the schedule
	if err = r.Skip(4); err != nil {
		return nil, err
	}
	for _, v := range []*uint64{
		&e.CliffTime, &e.Frequency, &e.CliffUnlockAmount, &e.AmountPerPeriod,
		&e.NumberOfPeriod, &e.TotalClaimedAmount, &e.VestingStartTime, &e.CancelledAt,
	} {
		if *v, err = r.U64(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// DecodeMetadata parses an escrow metadata account
func DecodeMetadata(data []byte) (*Metadata, error) {
	if !MetadataDiscriminator.Matches(data) {
		if len(data) < codec.DiscriminatorSize {
			return nil, codec.ErrMalformedBuffer
		}
		return nil, ErrNotMetadata
	}
	r := codec.NewReader(data[codec.DiscriminatorSize:])
	m := &Metadata{}
	var err error
	if m.Escrow, err = readKey(r); err != nil {
		return nil, err
	}
	for _, s := range []*string{&m.Name, &m.Description, &m.CreatorEmail, &m.RecipientEmail} {
		if *s, err = r.String(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// EncodeEscrow writes the account layout back. Used to build fixtures.
func EncodeEscrow(e *Escrow) []byte {
	w := codec.NewWriter(EscrowMinSize).
		Discriminator(EscrowDiscriminator).
		Raw(e.Recipient[:]).
		Raw(e.Mint[:]).
		Raw(e.Creator[:]).
		Raw(e.Base[:]).
		U8(e.Bump).
		U8(e.UpdateRecipientMode).
		U8(e.CancelMode).
		U8(e.TokenProgramFlag).
		Raw(make([]byte, 4))
	for _, v := range []uint64{
		e.CliffTime, e.Frequency, e.CliffUnlockAmount, e.AmountPerPeriod,
		e.NumberOfPeriod, e.TotalClaimedAmount, e.VestingStartTime, e.CancelledAt,
	} {
		w.U64(v)
	}
	return w.Bytes()
}

// EncodeMetadata writes the metadata layout
func EncodeMetadata(m *Metadata) []byte {
	return codec.NewWriter(64 + len(m.Name) + len(m.Description)).
		Discriminator(MetadataDiscriminator).
		Raw(m.Escrow[:]).
		String(m.Name).
		String(m.Description).
		String(m.CreatorEmail).
		String(m.RecipientEmail).
		Bytes()
}
