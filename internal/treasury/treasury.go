// internal/treasury/treasury.go
package treasury

import (
	"math/big"

	"realticket/internal/domain"
)

// Treasury accumulates sale proceeds until an admin withdraws them.
type Treasury struct {
	balance *big.Int
}

func New() *Treasury {
	return &Treasury{balance: new(big.Int)}
}

// Balance returns a copy of the current balance.
func (t *Treasury) Balance() *big.Int {
	return domain.Copy(t.balance)
}

// Credit adds v to the balance.
func (t *Treasury) Credit(v *big.Int) error {
	if err := domain.CheckAmount(v); err != nil {
		return err
	}
	t.balance.Add(t.balance, v)
	return nil
}

// Drain empties the treasury and returns what it held.
func (t *Treasury) Drain() *big.Int {
	out := t.balance
	t.balance = new(big.Int)
	return out
}

func (t *Treasury) Clone() *Treasury {
	return &Treasury{balance: domain.Copy(t.balance)}
}
