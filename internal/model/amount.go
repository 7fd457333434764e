package model

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// Amount is an unsigned on-chain integer (reserves, shares, liquidity, fees).
// It is a value type and encodes to JSON as a decimal string.
type Amount uint256.Int

// NewAmount builds an Amount from a uint64.
func NewAmount(v uint64) Amount {
	return Amount(*uint256.NewInt(v))
}

// AmountFromBig converts a non-negative big.Int that fits in 256 bits.
func AmountFromBig(v *big.Int) (Amount, error) {
	if v == nil {
		return Amount{}, nil
	}
	if v.Sign() < 0 {
		return Amount{}, fmt.Errorf("negative amount: %s", v.String())
	}
	u, overflow := uint256.FromBig(v)
	if overflow {
		return Amount{}, fmt.Errorf("amount overflows 256 bits: %s", v.String())
	}
	return Amount(*u), nil
}

// ParseAmount parses a decimal or 0x-prefixed hex string.
func ParseAmount(input string) (Amount, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Amount{}, nil
	}
	if strings.HasPrefix(input, "-") {
		return Amount{}, fmt.Errorf("negative amount: %s", input)
	}
	if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
		v, ok := new(big.Int).SetString(input[2:], 16)
		if !ok {
			return Amount{}, fmt.Errorf("invalid amount %q", input)
		}
		return AmountFromBig(v)
	}
	u, err := uint256.FromDecimal(input)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", input, err)
	}
	return Amount(*u), nil
}

func (a Amount) uint() *uint256.Int {
	u := uint256.Int(a)
	return &u
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.uint().IsZero()
}

// Big returns a new big.Int holding the amount.
func (a Amount) Big() *big.Int {
	return a.uint().ToBig()
}

func (a Amount) String() string {
	return a.uint().Dec()
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	parsed, err := ParseAmount(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
