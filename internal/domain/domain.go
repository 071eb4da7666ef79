// internal/domain/domain.go
package domain

import (
	"fmt"
	"math/big"
)

// Address identifies an account: a ticket holder, a role member or a payout recipient.
type Address string

// ZeroAddress is never a valid owner or recipient.
const ZeroAddress Address = ""

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func (a Address) String() string {
	return string(a)
}

// ParseAmount parses a non-negative decimal amount.
func ParseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a decimal integer", ErrInvalidAmount, s)
	}
	if err := CheckAmount(v); err != nil {
		return nil, err
	}
	return v, nil
}

// CheckAmount rejects nil and negative amounts.
func CheckAmount(v *big.Int) error {
	if v == nil {
		return fmt.Errorf("%w: missing amount", ErrInvalidAmount)
	}
	if v.Sign() < 0 {
		return fmt.Errorf("%w: %s is negative", ErrInvalidAmount, v)
	}
	return nil
}

// Copy returns an independent copy of v, treating nil as zero.
func Copy(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
