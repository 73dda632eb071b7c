package address

import (
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	lockProgram  = MustFromBase58("LocpQgucEQHbqNABEYvBvwoxCPsSbG91A1QaQhQQqjn")
	mint         = MustFromBase58("8NCievmJCg2d9Vc2TWgz2HkE6ANeSX7kwvdq5AL7pump")
	tokenProgram = MustFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	ataProgram   = MustFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

func sequentialKey() PublicKey {
	var pk PublicKey
	for i := range pk {
		pk[i] = byte(i + 1)
	}
	return pk
}

func TestBase58(t *testing.T) {
	base := sequentialKey()
	assert.Equal(t, "4wBqpZM9xaSheZzJSMawUKKwhdpChKbZ5eu5ky4Vigw", base.String())

	parsed, err := FromBase58(base.String())
	require.NoError(t, err)
	assert.Equal(t, base, parsed)

	_, err = FromBase58("TokenkegQfeZyiNwAfJHNWmknPx3wjAy7KWLRYxN6gZPsNxU")
	assert.True(t, errors.Is(err, ErrInvalidKey))
	_, err = FromBase58("not-base58-0OIl")
	assert.True(t, errors.Is(err, ErrInvalidKey))
}

func TestJSON(t *testing.T) {
	raw, err := jsoniter.Marshal(struct {
		Key PublicKey `json:"key"`
	}{Key: mint})
	require.NoError(t, err)
	assert.Equal(t, `{"key":"8NCievmJCg2d9Vc2TWgz2HkE6ANeSX7kwvdq5AL7pump"}`, string(raw))

	var out struct {
		Key PublicKey `json:"key"`
	}
	require.NoError(t, jsoniter.Unmarshal(raw, &out))
	assert.Equal(t, mint, out.Key)
}

func TestFindProgramAddress(t *testing.T) {
	tests := []struct {
		name  string
		seeds [][]byte
		want  string
		bump  uint8
	}{
		{
			name:  "event authority singleton",
			seeds: [][]byte{[]byte("__event_authority")},
			want:  "AqUDk3wybxjZujrNbKmjr2YTUZ8RA1a1nyGgs1zSmvTG",
			bump:  253,
		},
		{
			name:  "escrow of a base key",
			seeds: [][]byte{[]byte("escrow"), func() []byte { k := sequentialKey(); return k[:] }()},
			want:  "GWAdQW6y61JmJt7SEqGwErWH8aUGXxiGJACe2TF1UBb9",
			bump:  255,
		},
		{
			name:  "metadata of an escrow",
			seeds: [][]byte{[]byte("escrow_metadata"), MustFromBase58("GWAdQW6y61JmJt7SEqGwErWH8aUGXxiGJACe2TF1UBb9").Bytes()},
			want:  "Btcw1fSem24m1NWa4rNB52CrP2dAPJdp1rqYUctrJqN5",
			bump:  255,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, bump, err := FindProgramAddress(tt.seeds, lockProgram)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, tt.bump, bump)
			assert.False(t, IsOnCurve(got[:]))

			again, againBump, err := FindProgramAddress(tt.seeds, lockProgram)
			require.NoError(t, err)
			assert.Equal(t, got, again)
			assert.Equal(t, bump, againBump)
		})
	}
}

func TestAssociatedTokenAddress(t *testing.T) {
	var wallet PublicKey
	for i := range wallet {
		wallet[i] = 7
	}
	ata, err := AssociatedTokenAddress(wallet, mint, tokenProgram, ataProgram)
	require.NoError(t, err)
	assert.Equal(t, "HGNXysRzJKgaErWB9mc9bhDEnkVmTR8ftmAGosCiTBfx", ata.String())
}

func TestSeedLimits(t *testing.T) {
	_, _, err := FindProgramAddress([][]byte{make([]byte, 33)}, lockProgram)
	assert.Equal(t, ErrMaxSeedLength, err)

	seeds := make([][]byte, MaxSeeds)
	_, _, err = FindProgramAddress(seeds, lockProgram)
	assert.Equal(t, ErrMaxSeedLength, err)
}

func TestUserKeysAreOnCurve(t *testing.T) {
	assert.True(t, IsOnCurve(mint[:]))
}
