// internal/settings/settings.go
package settings

import (
	"math/big"

	"realticket/internal/domain"
)

// Settings is the mutable sale configuration.
type Settings struct {
	BaseFee   *big.Int `json:"base_fee"`
	BasePrice *big.Int `json:"base_price"`
	Capacity  uint64   `json:"capacity"`
}

// Defaults mirror the original deployment: 0.01 price, 0.001 fee (in wei) and 1000 tickets.
func Defaults() Settings {
	return Settings{
		BaseFee:   big.NewInt(1_000_000_000_000_000),
		BasePrice: big.NewInt(10_000_000_000_000_000),
		Capacity:  1000,
	}
}

// New validates and copies the given values.
func New(fee, price *big.Int, capacity uint64) (Settings, error) {
	if err := domain.CheckAmount(fee); err != nil {
		return Settings{}, err
	}
	if err := domain.CheckAmount(price); err != nil {
		return Settings{}, err
	}
	return Settings{BaseFee: domain.Copy(fee), BasePrice: domain.Copy(price), Capacity: capacity}, nil
}

// PrimaryCost is the minimum value a primary purchase must carry.
func (s Settings) PrimaryCost() *big.Int {
	return new(big.Int).Add(s.BasePrice, s.BaseFee)
}

// ResaleCost is the minimum value a resale purchase at price must carry.
func (s Settings) ResaleCost(price *big.Int) *big.Int {
	return new(big.Int).Add(price, s.BaseFee)
}

// WithFee returns a copy with a new base fee.
func (s Settings) WithFee(fee *big.Int) (Settings, error) {
	return New(fee, s.BasePrice, s.Capacity)
}

// WithPrice returns a copy with a new base price.
func (s Settings) WithPrice(price *big.Int) (Settings, error) {
	return New(s.BaseFee, price, s.Capacity)
}

// WithCapacity returns a copy with a new capacity.
func (s Settings) WithCapacity(capacity uint64) Settings {
	return Settings{BaseFee: domain.Copy(s.BaseFee), BasePrice: domain.Copy(s.BasePrice), Capacity: capacity}
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	return s.WithCapacity(s.Capacity)
}
