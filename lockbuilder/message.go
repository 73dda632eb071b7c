package lockbuilder

import (
	"github.com/pkg/errors"
	"gitlab.com/bunkercoin/dashboard_api/address"
	"gitlab.com/bunkercoin/dashboard_api/codec"
)

const (
	// SignatureSize of an ed25519 signature slot
	SignatureSize = 64
	maxAccounts   = 256
)

// ErrTooManyAccounts is returned when a message cannot index all its accounts
var ErrTooManyAccounts = errors.New("too many accounts in message")

// MessageHeader counts the signer and read-only accounts
type MessageHeader struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

// CompiledInstruction refers to accounts by index into the message account list
type CompiledInstruction struct {
	ProgramIDIndex uint8
	Accounts       []uint8
	Data           []byte
}

// Message is the signed part of a legacy transaction
type Message struct {
	Header          MessageHeader
	AccountKeys     []address.PublicKey
	RecentBlockhash address.PublicKey
	Instructions    []CompiledInstruction
}

type accountFlags struct {
	key      address.PublicKey
	signer   bool
	writable bool
}

// CompileMessage orders the accounts writable signers, read-only signers, writable,
// read-only with the fee payer first, keeping first appearance order in each group.
func CompileMessage(payer address.PublicKey, blockhash address.PublicKey, instructions []Instruction) (*Message, error) {
	index := map[address.PublicKey]int{}
	flags := make([]*accountFlags, 0, 16)
	add := func(meta AccountMeta) {
		if i, ok := index[meta.PublicKey]; ok {
			flags[i].signer = flags[i].signer || meta.IsSigner
			flags[i].writable = flags[i].writable || meta.IsWritable
			return
		}
		index[meta.PublicKey] = len(flags)
		flags = append(flags, &accountFlags{key: meta.PublicKey, signer: meta.IsSigner, writable: meta.IsWritable})
	}

	add(signerWritable(payer))
	for _, ix := range instructions {
		for _, meta := range ix.Accounts {
			add(meta)
		}
		add(readonly(ix.ProgramID))
	}
	if len(flags) > maxAccounts {
		return nil, errors.Wrapf(ErrTooManyAccounts, "%d accounts", len(flags))
	}

	msg := &Message{RecentBlockhash: blockhash, AccountKeys: make([]address.PublicKey, 0, len(flags))}
	groups := []func(a *accountFlags) bool{
		func(a *accountFlags) bool { return a.signer && a.writable },
		func(a *accountFlags) bool { return a.signer && !a.writable },
		func(a *accountFlags) bool { return !a.signer && a.writable },
		func(a *accountFlags) bool { return !a.signer && !a.writable },
	}
	for g, member := range groups {
		for _, a := range flags {
			if !member(a) {
				continue
			}
			msg.AccountKeys = append(msg.AccountKeys, a.key)
			switch g {
			case 0:
				msg.Header.NumRequiredSignatures++
			case 1:
				msg.Header.NumRequiredSignatures++
				msg.Header.NumReadonlySignedAccounts++
			case 3:
				msg.Header.NumReadonlyUnsignedAccounts++
			}
		}
	}

	position := make(map[address.PublicKey]uint8, len(msg.AccountKeys))
	for i, key := range msg.AccountKeys {
		position[key] = uint8(i)
	}
	for _, ix := range instructions {
		compiled := CompiledInstruction{
			ProgramIDIndex: position[ix.ProgramID],
			Accounts:       make([]uint8, len(ix.Accounts)),
			Data:           ix.Data,
		}
		for i, meta := range ix.Accounts {
			compiled.Accounts[i] = position[meta.PublicKey]
		}
		msg.Instructions = append(msg.Instructions, compiled)
	}
	return msg, nil
}

// Signers returns the accounts that must sign, the fee payer first
func (m *Message) Signers() []address.PublicKey {
	out := make([]address.PublicKey, m.Header.NumRequiredSignatures)
	copy(out, m.AccountKeys[:m.Header.NumRequiredSignatures])
	return out
}

// Serialize returns the wire form of the message
func (m *Message) Serialize() []byte {
	w := codec.NewWriter(512).
		U8(m.Header.NumRequiredSignatures).
		U8(m.Header.NumReadonlySignedAccounts).
		U8(m.Header.NumReadonlyUnsignedAccounts)
	buf := codec.PutCompactU16(w.Bytes(), len(m.AccountKeys))
	for _, key := range m.AccountKeys {
		buf = append(buf, key[:]...)
	}
	buf = append(buf, m.RecentBlockhash[:]...)
	buf = codec.PutCompactU16(buf, len(m.Instructions))
	for _, ix := range m.Instructions {
		buf = append(buf, ix.ProgramIDIndex)
		buf = codec.PutCompactU16(buf, len(ix.Accounts))
		buf = append(buf, ix.Accounts...)
		buf = codec.PutCompactU16(buf, len(ix.Data))
		buf = append(buf, ix.Data...)
	}
	return buf
}

// SerializeUnsigned returns the transaction with zeroed signature slots
func (m *Message) SerializeUnsigned() []byte {
	message := m.Serialize()
	n := int(m.Header.NumRequiredSignatures)
	buf := codec.PutCompactU16(make([]byte, 0, 3+n*SignatureSize+len(message)), n)
	buf = append(buf, make([]byte, n*SignatureSize)...)
	return append(buf, message...)
}
