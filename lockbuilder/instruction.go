package lockbuilder

import (
	"gitlab.com/bunkercoin/dashboard_api/address"
	"gitlab.com/bunkercoin/dashboard_api/codec"
)

var (
	// CreateVestingEscrowV2Discriminator tags the escrow creation instruction
	CreateVestingEscrowV2Discriminator = codec.Discriminator{181, 155, 104, 183, 182, 128, 35, 47}
	// CreateVestingEscrowMetadataDiscriminator tags the metadata instruction
	CreateVestingEscrowMetadataDiscriminator = codec.Discriminator{93, 78, 33, 103, 173, 125, 70, 0}
)

const createAssociatedIdempotent = 1

// AccountMeta is one account of an instruction
type AccountMeta struct {
	PublicKey  address.PublicKey
	IsSigner   bool
	IsWritable bool
}

// Instruction targets one program
type Instruction struct {
	ProgramID address.PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

func signerWritable(pk address.PublicKey) AccountMeta {
	return AccountMeta{PublicKey: pk, IsSigner: true, IsWritable: true}
}

func writable(pk address.PublicKey) AccountMeta {
	return AccountMeta{PublicKey: pk, IsWritable: true}
}

func readonly(pk address.PublicKey) AccountMeta {
	return AccountMeta{PublicKey: pk}
}

// CreateAssociatedTokenAccountIdempotent creates the token account ata of owner
// unless it exists already
func CreateAssociatedTokenAccountIdempotent(payer, ata, owner, mint, tokenProgram, associatedProgram address.PublicKey) Instruction {
	return Instruction{
		ProgramID: associatedProgram,
		Accounts: []AccountMeta{
			signerWritable(payer),
			writable(ata),
			readonly(owner),
			readonly(mint),
			readonly(address.SystemProgramID),
			readonly(tokenProgram),
		},
		Data: []byte{createAssociatedIdempotent},
	}
}

// EscrowParams of the escrow creation instruction
type EscrowParams struct {
	Base                address.PublicKey
	Escrow              address.PublicKey
	Mint                address.PublicKey
	EscrowToken         address.PublicKey
	Sender              address.PublicKey
	SenderToken         address.PublicKey
	Recipient           address.PublicKey
	TokenProgram        address.PublicKey
	EventAuthority      address.PublicKey
	Program             address.PublicKey
	VestingStartTime    uint64
	CliffTime           uint64
	Frequency           uint64
	CliffUnlockAmount   uint64
	AmountPerPeriod     uint64
	NumberOfPeriod      uint64
	UpdateRecipientMode uint8
	CancelMode          uint8
}

// CreateVestingEscrowV2 locks the sender tokens in a new escrow derived from the base key
func CreateVestingEscrowV2(p EscrowParams) Instruction {
	data := codec.NewWriter(8 + 6*8 + 3).
		Discriminator(CreateVestingEscrowV2Discriminator).
		U64(p.VestingStartTime).
		U64(p.CliffTime).
		U64(p.Frequency).
		U64(p.CliffUnlockAmount).
		U64(p.AmountPerPeriod).
		U64(p.NumberOfPeriod).
		U8(p.UpdateRecipientMode).
		U8(p.CancelMode).
		U8(0). // no remaining accounts
		Bytes()

	return Instruction{
		ProgramID: p.Program,
		Accounts: []AccountMeta{
			signerWritable(p.Base),
			writable(p.Escrow),
			readonly(p.Mint),
			writable(p.EscrowToken),
			signerWritable(p.Sender),
			writable(p.SenderToken),
			readonly(p.Recipient),
			readonly(p.TokenProgram),
			readonly(address.SystemProgramID),
			readonly(p.EventAuthority),
			readonly(p.Program),
		},
		Data: data,
	}
}

// MetadataParams of the metadata instruction
type MetadataParams struct {
	Escrow         address.PublicKey
	Creator        address.PublicKey
	EscrowMetadata address.PublicKey
	Payer          address.PublicKey
	Program        address.PublicKey
	Name           string
	Description    string
	CreatorEmail   string
	RecipientEmail string
}

// CreateVestingEscrowMetadata attaches the title of a lock to its escrow
func CreateVestingEscrowMetadata(p MetadataParams) Instruction {
	data := codec.NewWriter(64).
		Discriminator(CreateVestingEscrowMetadataDiscriminator).
		String(p.Name).
		String(p.Description).
		String(p.CreatorEmail).
		String(p.RecipientEmail).
		Bytes()

	return Instruction{
		ProgramID: p.Program,
		Accounts: []AccountMeta{
			writable(p.Escrow),
			{PublicKey: p.Creator, IsSigner: true},
			writable(p.EscrowMetadata),
			signerWritable(p.Payer),
			readonly(address.SystemProgramID),
		},
		Data: data,
	}
}
