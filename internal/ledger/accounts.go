// internal/ledger/accounts.go
package ledger

import (
	"fmt"
	"math/big"

	"realticket/internal/domain"
)

// Call carries the attribution and attached value of one operation.
type Call struct {
	Caller domain.Address
	Value  *big.Int
}

// Amount returns the attached value, treating nil as zero.
func (c Call) Amount() *big.Int {
	return domain.Copy(c.Value)
}

// Accounts records funds pushed out to recipients.
type Accounts struct {
	balances map[domain.Address]*big.Int
}

func NewAccounts() *Accounts {
	return &Accounts{balances: make(map[domain.Address]*big.Int)}
}

// Pay pushes amount to to. A zero amount is a valid, observable no-op.
func (a *Accounts) Pay(to domain.Address, amount *big.Int) error {
	if to.IsZero() {
		return fmt.Errorf("%w: pay to zero address", domain.ErrInvalidAddress)
	}
	if err := domain.CheckAmount(amount); err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return nil
	}
	bal, ok := a.balances[to]
	if !ok {
		bal = new(big.Int)
		a.balances[to] = bal
	}
	bal.Add(bal, amount)
	return nil
}

// Balance returns what has been paid to addr.
func (a *Accounts) Balance(addr domain.Address) *big.Int {
	return domain.Copy(a.balances[addr])
}

func (a *Accounts) Clone() *Accounts {
	c := &Accounts{balances: make(map[domain.Address]*big.Int, len(a.balances))}
	for addr, bal := range a.balances {
		c.balances[addr] = domain.Copy(bal)
	}
	return c
}
