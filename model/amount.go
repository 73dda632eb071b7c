package model

import (
	"strings"

	"github.com/ericlagergren/decimal"
	"gitlab.com/bunkercoin/dashboard_api/conv"
)

// AmountDecimals is the number of fractional digits of the tracked mint
const AmountDecimals uint8 = 6

// Amount is a token quantity in minor units.
// It is written to JSON as a plain decimal number in whole tokens and read back exactly.
type Amount uint64

// NewAmountFromString parses a token denominated decimal string
func NewAmountFromString(s string) (Amount, error) {
	units, err := conv.ParseUnits(s, AmountDecimals)
	return Amount(units), err
}

// String returns the whole token representation
func (a Amount) String() string {
	return conv.FromUnits(uint64(a), AmountDecimals)
}

// Units returns the raw minor units
func (a Amount) Units() uint64 {
	return uint64(a)
}

// Decimal returns the token denominated value
func (a Amount) Decimal() *decimal.Big {
	return conv.UnitsToDecimal(uint64(a), AmountDecimals)
}

// Float64 is used only where a ratio is computed in floating point
func (a Amount) Float64() float64 {
	f, _ := a.Decimal().Float64()
	return f
}

// MarshalJSON godoc
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts both a number and a quoted number
func (a *Amount) UnmarshalJSON(data []byte) error {
	units, err := conv.ParseUnits(strings.Trim(string(data), `"`), AmountDecimals)
	if err != nil {
		return err
	}
	*a = Amount(units)
	return nil
}
