package locks

import "gitlab.com/bunkercoin/dashboard_api/address"

var (
	escrowSeed         = []byte("escrow")
	escrowMetadataSeed = []byte("escrow_metadata")
	eventAuthoritySeed = []byte("__event_authority")
)

// EscrowAddress derives the escrow owned by a one-time base key
func EscrowAddress(base, program address.PublicKey) (address.PublicKey, error) {
	pk, _, err := address.FindProgramAddress([][]byte{escrowSeed, base[:]}, program)
	return pk, err
}

// MetadataAddress derives the metadata account of an escrow
func MetadataAddress(escrow, program address.PublicKey) (address.PublicKey, error) {
	pk, _, err := address.FindProgramAddress([][]byte{escrowMetadataSeed, escrow[:]}, program)
	return pk, err
}

// EventAuthority derives the program's event authority singleton
func EventAuthority(program address.PublicKey) (address.PublicKey, error) {
	pk, _, err := address.FindProgramAddress([][]byte{eventAuthoritySeed}, program)
	return pk, err
}
