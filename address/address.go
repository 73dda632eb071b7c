// Package address implements ledger public keys and program-derived addresses.
package address

import (
	"crypto/sha256"

	"filippo.io/edwards25519"
	jsoniter "github.com/json-iterator/go"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// Size of a public key in bytes
const Size = 32

const (
	// MaxSeedLength is the largest accepted single seed
	MaxSeedLength = 32
	// MaxSeeds is the largest number of seeds, bump included
	MaxSeeds = 16
)

var pdaMarker = []byte("ProgramDerivedAddress")

var (
	// ErrInvalidKey is returned when a text key does not decode to 32 bytes
	ErrInvalidKey = errors.New("invalid public key")
	// ErrMaxSeedLength is returned when a seed or the seed count is too large
	ErrMaxSeedLength = errors.New("max seed length exceeded")
	// ErrNoViableBump is returned when every bump yields an on-curve address
	ErrNoViableBump = errors.New("unable to find a viable program address bump seed")
	// ErrOnCurve is returned by CreateProgramAddress for an on-curve result
	ErrOnCurve = errors.New("derived address is on the curve")
)

// Well known programs
var (
	SystemProgramID = MustFromBase58("11111111111111111111111111111111")
)

// PublicKey is a 32 byte ledger address
type PublicKey [Size]byte

// FromBase58 parses a base58 text address
func FromBase58(s string) (PublicKey, error) {
	var pk PublicKey
	b, err := base58.Decode(s)
	if err != nil {
		return pk, errors.Wrapf(ErrInvalidKey, "%q: %s", s, err)
	}
	if len(b) != Size {
		return pk, errors.Wrapf(ErrInvalidKey, "%q decodes to %d bytes", s, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// MustFromBase58 parses a base58 address and panics on failure. Only for constants.
func MustFromBase58(s string) PublicKey {
	pk, err := FromBase58(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// FromBytes copies a 32 byte slice into a key
func FromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != Size {
		return pk, errors.Wrapf(ErrInvalidKey, "%d bytes", len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// String returns the base58 form
func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// Bytes returns the key as a slice
func (pk PublicKey) Bytes() []byte {
	return pk[:]
}

// IsZero reports whether the key is all zeros
func (pk PublicKey) IsZero() bool {
	return pk == PublicKey{}
}

// MarshalJSON encodes the key as a base58 string
func (pk PublicKey) MarshalJSON() ([]byte, error) {
	return jsoniter.Marshal(pk.String())
}

// UnmarshalJSON decodes a base58 string
func (pk *PublicKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := jsoniter.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := FromBase58(s)
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}

// IsOnCurve reports whether the bytes decode to a point of the ed25519 curve
func IsOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// CreateProgramAddress hashes seeds and the program id into an address that must not
// lie on the curve
func CreateProgramAddress(seeds [][]byte, program PublicKey) (PublicKey, error) {
	if len(seeds) > MaxSeeds {
		return PublicKey{}, ErrMaxSeedLength
	}
	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return PublicKey{}, ErrMaxSeedLength
		}
		h.Write(seed)
	}
	h.Write(program[:])
	h.Write(pdaMarker)
	sum := h.Sum(nil)
	if IsOnCurve(sum) {
		return PublicKey{}, ErrOnCurve
	}
	var pk PublicKey
	copy(pk[:], sum)
	return pk, nil
}

// FindProgramAddress searches bumps from 255 down for the first off-curve address.
// The same seeds always yield the same address and bump.
func FindProgramAddress(seeds [][]byte, program PublicKey) (PublicKey, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return PublicKey{}, 0, ErrMaxSeedLength
	}
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{uint8(bump)}
		pk, err := CreateProgramAddress(withBump, program)
		if err == nil {
			return pk, uint8(bump), nil
		}
		if err != ErrOnCurve {
			return PublicKey{}, 0, err
		}
	}
	return PublicKey{}, 0, ErrNoViableBump
}

// AssociatedTokenAddress derives the canonical token account of owner for mint
func AssociatedTokenAddress(owner, mint, tokenProgram, associatedProgram PublicKey) (PublicKey, error) {
	pk, _, err := FindProgramAddress([][]byte{owner[:], tokenProgram[:], mint[:]}, associatedProgram)
	return pk, err
}
