// Package codec reads and writes the fixed-layout little-endian records used by
// on-chain accounts and instruction payloads.
package codec

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// DiscriminatorSize is the width of the leading type tag of accounts and instructions
const DiscriminatorSize = 8

// ErrMalformedBuffer is returned when a buffer is shorter than the field being read
var ErrMalformedBuffer = errors.New("malformed buffer")

// Discriminator identifies the logical type of an account or the operation of an instruction
type Discriminator [DiscriminatorSize]byte

// Matches reports whether data starts with the discriminator
func (d Discriminator) Matches(data []byte) bool {
	return len(data) >= DiscriminatorSize && bytes.Equal(data[:DiscriminatorSize], d[:])
}

// Writer appends encoded fields to an internal buffer
type Writer struct {
	buf []byte
}

// NewWriter creates a writer with the given initial capacity
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Discriminator writes the 8 byte tag
func (w *Writer) Discriminator(d Discriminator) *Writer {
	w.buf = append(w.buf, d[:]...)
	return w
}

// U8 writes a single byte
func (w *Writer) U8(v uint8) *Writer {
	w.buf = append(w.buf, v)
	return w
}

// U32 writes a little-endian 32-bit unsigned integer
func (w *Writer) U32(v uint32) *Writer {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return w
}

// U64 writes a little-endian 64-bit unsigned integer
func (w *Writer) U64(v uint64) *Writer {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return w
}

// Raw appends bytes without a length prefix
func (w *Writer) Raw(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

// String writes a u32 length prefix followed by the UTF-8 bytes
func (w *Writer) String(s string) *Writer {
	w.U32(uint32(len(s)))
	w.buf = append(w.buf, s...)
	return w
}

// Bytes returns the encoded buffer
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Reader decodes fields sequentially from a buffer
type Reader struct {
	buf []byte
	off int
}

// NewReader creates a reader positioned at the start of buf
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset returns the current read position
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, errors.Wrapf(ErrMalformedBuffer, "need %d bytes at offset %d, have %d", n, r.off, r.Remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Skip advances the read position by n bytes
func (r *Reader) Skip(n int) error {
	_, err := r.take(n)
	return err
}

// Discriminator reads the 8 byte tag
func (r *Reader) Discriminator() (Discriminator, error) {
	var d Discriminator
	b, err := r.take(DiscriminatorSize)
	if err != nil {
		return d, err
	}
	copy(d[:], b)
	return d, nil
}

// U8 reads a single byte
func (r *Reader) U8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U32 reads a little-endian 32-bit unsigned integer
func (r *Reader) U32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// U64 reads a little-endian 64-bit unsigned integer
func (r *Reader) U64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Fixed reads exactly n bytes. The returned slice is a copy.
func (r *Reader) Fixed(n int) ([]byte, error) {
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// String reads a u32 length-prefixed UTF-8 string. The declared length is checked
// against the remaining buffer before anything is allocated.
func (r *Reader) String() (string, error) {
	start := r.off
	n, err := r.U32()
	if err != nil {
		return "", err
	}
	if uint64(n) > uint64(r.Remaining()) {
		r.off = start
		return "", errors.Wrapf(ErrMalformedBuffer, "string length %d exceeds remaining %d bytes", n, r.Remaining())
	}
	b, _ := r.take(int(n))
	return string(b), nil
}

// U64At decodes a little-endian u64 at a fixed offset of buf
func U64At(buf []byte, offset int) (uint64, error) {
	if offset < 0 || len(buf) < offset+8 {
		return 0, errors.Wrapf(ErrMalformedBuffer, "u64 at offset %d of %d byte buffer", offset, len(buf))
	}
	return binary.LittleEndian.Uint64(buf[offset:]), nil
}

// U32At decodes a little-endian u32 at a fixed offset of buf
func U32At(buf []byte, offset int) (uint32, error) {
	if offset < 0 || len(buf) < offset+4 {
		return 0, errors.Wrapf(ErrMalformedBuffer, "u32 at offset %d of %d byte buffer", offset, len(buf))
	}
	return binary.LittleEndian.Uint32(buf[offset:]), nil
}
