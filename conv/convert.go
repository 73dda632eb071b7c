package conv

import (
	"strconv"
	"strings"

	"github.com/ericlagergren/decimal"
	"github.com/pkg/errors"
)

// ErrInvalidAmount is returned for amount strings that are not plain non-negative decimals
var ErrInvalidAmount = errors.New("invalid amount")

// ParseUnits converts a decimal amount string into integer minor units with the given
// precision. The fractional part is padded or truncated to exactly precision digits and
// concatenated to the whole part, so no floating point multiply is involved.
func ParseUnits(amount string, precision uint8) (uint64, error) {
	amount = strings.TrimSpace(amount)
	whole, frac := amount, ""
	if i := strings.IndexByte(amount, '.'); i >= 0 {
		whole, frac = amount[:i], amount[i+1:]
	}
	if whole == "" && frac == "" {
		return 0, errors.Wrapf(ErrInvalidAmount, "%q", amount)
	}
	if !isDigits(whole) || !isDigits(frac) {
		return 0, errors.Wrapf(ErrInvalidAmount, "%q", amount)
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > int(precision) {
		frac = frac[:precision]
	} else {
		frac += strings.Repeat("0", int(precision)-len(frac))
	}
	units, err := strconv.ParseUint(whole+frac, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidAmount, "%q overflows at precision %d", amount, precision)
	}
	return units, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ToUnits converts the given amount to uint64 units, returning 0 for invalid input
func ToUnits(amounts string, precision uint8) uint64 {
	units, err := ParseUnits(amounts, precision)
	if err != nil {
		return 0
	}
	return units
}

// FromUnits converts the given units to a decimal string with the given precision
func FromUnits(number uint64, precision uint8) string {
	bytes := []byte{48, 48, 48, 48, 48, 48, 48, 48, 48, 48, 48, 48, 48, 48, 48, 48, 48, 48, 48, 48, 48, 48, 48, 48, 48, 48, 48, 48, 48}
	if precision == 0 {
		return strconv.FormatUint(number, 10)
	}
	i := 0
	for (number != 0 || i < int(precision)) && i <= 28 {
		add := uint8(number % 10)
		number /= 10
		bytes[28-i] = 48 + add
		if i == int(precision)-1 {
			i++
			bytes[28-i] = 46 // . char
		}
		i++
	}
	i--
	if bytes[28-i] == 46 {
		return string(bytes[28-i-1:])
	}

	return string(bytes[28-i:])
}

// UnitsToDecimal returns the token denominated value of units as a decimal
func UnitsToDecimal(units uint64, precision uint8) *decimal.Big {
	dec := NewDecimal()
	dec.SetString(FromUnits(units, precision))
	return dec
}

// NewDecimal creates a decimal using the 128 bit context
func NewDecimal() *decimal.Big {
	dec := &decimal.Big{}
	dec.Context = decimal.Context128
	return dec
}

// RoundToPrecision rounds half away from zero to the given number of fractional digits
func RoundToPrecision(decAmount *decimal.Big, precision int) *decimal.Big {
	decAmount.Context = decimal.Context128
	decAmount.Context.RoundingMode = decimal.ToNearestAway
	decAmount.Quantize(precision)
	return decAmount
}
