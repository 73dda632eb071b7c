package codec

import "github.com/pkg/errors"

// CompactU16MaximumBytes - maximum number of bytes of an encoded compact-u16
const CompactU16MaximumBytes = 3

// PutCompactU16 - append a length in the ledger's compact-u16 form
//
// Structure of the result
// byte 1:  ext | B06 | B05 | B04 | B03 | B02 | B01 | B00
// byte 2:  ext | B13 | B12 | B11 | B10 | B09 | B08 | B07
// byte 3:    0 |   0 |   0 |   0 |   0 |   0 | B15 | B14
func PutCompactU16(dst []byte, value int) []byte {
	v := uint16(value)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}

// CompactU16 - decode a compact-u16 from the beginning of buffer
//
// also return the number of bytes used as second value
func CompactU16(buffer []byte) (int, int, error) {
	result := 0
	for count := 0; count < CompactU16MaximumBytes; count++ {
		if count >= len(buffer) {
			return 0, 0, errors.Wrap(ErrMalformedBuffer, "truncated compact-u16")
		}
		b := buffer[count]
		result |= int(b&0x7f) << (7 * uint(count))
		if b&0x80 == 0 {
			if result > 0xffff {
				return 0, 0, errors.Wrap(ErrMalformedBuffer, "compact-u16 overflow")
			}
			return result, count + 1, nil
		}
	}
	return 0, 0, errors.Wrap(ErrMalformedBuffer, "compact-u16 too long")
}
