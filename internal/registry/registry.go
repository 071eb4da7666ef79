// internal/registry/registry.go
package registry

import (
	"fmt"

	"realticket/internal/domain"
)

// Hooks are called around every ownership move between two non-zero addresses.
// BeforeTransfer may veto the move; AfterTransfer runs once ownership has changed.
type Hooks interface {
	BeforeTransfer(from, to domain.Address, id uint64) error
	AfterTransfer(from, to domain.Address, id uint64)
}

// Registry is the asset-ownership book: who owns which id, who may move it, and how many ids
// each address holds. It knows nothing about tickets beyond the hooks it is given.
type Registry struct {
	owners    map[uint64]domain.Address
	balances  map[domain.Address]uint64
	approvals map[uint64]domain.Address
	operators map[domain.Address]map[domain.Address]bool
	hooks     Hooks
}

func New(hooks Hooks) *Registry {
	return &Registry{
		owners:    make(map[uint64]domain.Address),
		balances:  make(map[domain.Address]uint64),
		approvals: make(map[uint64]domain.Address),
		operators: make(map[domain.Address]map[domain.Address]bool),
		hooks:     hooks,
	}
}

// Mint assigns a fresh id to to.
func (r *Registry) Mint(to domain.Address, id uint64) error {
	if to.IsZero() {
		return fmt.Errorf("%w: mint to zero address", domain.ErrInvalidAddress)
	}
	if _, ok := r.owners[id]; ok {
		return fmt.Errorf("%w: %d", domain.ErrAlreadyMinted, id)
	}
	r.owners[id] = to
	r.balances[to]++
	return nil
}

// Burn removes id and its approval.
func (r *Registry) Burn(id uint64) error {
	owner, err := r.OwnerOf(id)
	if err != nil {
		return err
	}
	delete(r.approvals, id)
	delete(r.owners, id)
	r.decrement(owner)
	return nil
}

// OwnerOf returns the current owner of id.
func (r *Registry) OwnerOf(id uint64) (domain.Address, error) {
	owner, ok := r.owners[id]
	if !ok {
		return domain.ZeroAddress, fmt.Errorf("%w: ticket %d", domain.ErrNotFound, id)
	}
	return owner, nil
}

// BalanceOf returns how many ids a holds.
func (r *Registry) BalanceOf(a domain.Address) uint64 {
	return r.balances[a]
}

// Approve lets to move id on the owner's behalf. The zero address clears the approval.
func (r *Registry) Approve(caller, to domain.Address, id uint64) error {
	owner, err := r.OwnerOf(id)
	if err != nil {
		return err
	}
	if to == owner {
		return fmt.Errorf("%w: ticket %d", domain.ErrSelfApproval, id)
	}
	if caller != owner && !r.IsApprovedForAll(owner, caller) {
		return fmt.Errorf("%w: %s may not approve ticket %d", domain.ErrUnauthorized, caller, id)
	}
	if to.IsZero() {
		delete(r.approvals, id)
		return nil
	}
	r.approvals[id] = to
	return nil
}

// GetApproved returns the address approved for id, or the zero address.
func (r *Registry) GetApproved(id uint64) (domain.Address, error) {
	if _, err := r.OwnerOf(id); err != nil {
		return domain.ZeroAddress, err
	}
	return r.approvals[id], nil
}

// SetApprovalForAll lets operator move every id owner holds.
func (r *Registry) SetApprovalForAll(owner, operator domain.Address, approved bool) error {
	if operator.IsZero() || operator == owner {
		return fmt.Errorf("%w: operator %q", domain.ErrInvalidAddress, operator)
	}
	ops := r.operators[owner]
	if !approved {
		delete(ops, operator)
		return nil
	}
	if ops == nil {
		ops = make(map[domain.Address]bool)
		r.operators[owner] = ops
	}
	ops[operator] = true
	return nil
}

// IsApprovedForAll reports whether operator may move every id owner holds.
func (r *Registry) IsApprovedForAll(owner, operator domain.Address) bool {
	return r.operators[owner][operator]
}

// IsApprovedOrOwner reports whether spender may move id.
func (r *Registry) IsApprovedOrOwner(spender domain.Address, id uint64) (bool, error) {
	owner, err := r.OwnerOf(id)
	if err != nil {
		return false, err
	}
	if spender.IsZero() {
		return false, nil
	}
	return spender == owner || r.approvals[id] == spender || r.IsApprovedForAll(owner, spender), nil
}

// TransferFrom moves id from from to to on behalf of caller, who must be the owner or approved.
func (r *Registry) TransferFrom(caller, from, to domain.Address, id uint64) error {
	ok, err := r.IsApprovedOrOwner(caller, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s is not owner nor approved for ticket %d", domain.ErrUnauthorized, caller, id)
	}
	return r.Transfer(from, to, id)
}

// Transfer moves id from from to to without an approval check. It fails if from is not the owner.
func (r *Registry) Transfer(from, to domain.Address, id uint64) error {
	owner, err := r.OwnerOf(id)
	if err != nil {
		return err
	}
	if owner != from {
		return fmt.Errorf("%w: ticket %d is owned by %s, not %s", domain.ErrWrongOwner, id, owner, from)
	}
	if to.IsZero() {
		return fmt.Errorf("%w: transfer to zero address", domain.ErrInvalidAddress)
	}
	if r.hooks != nil {
		if err := r.hooks.BeforeTransfer(from, to, id); err != nil {
			return err
		}
	}

	delete(r.approvals, id)
	r.decrement(from)
	r.balances[to]++
	r.owners[id] = to

	if r.hooks != nil {
		r.hooks.AfterTransfer(from, to, id)
	}
	return nil
}

// Clone returns a deep copy that calls hooks instead of the original's hooks.
func (r *Registry) Clone(hooks Hooks) *Registry {
	c := New(hooks)
	for id, owner := range r.owners {
		c.owners[id] = owner
	}
	for a, n := range r.balances {
		c.balances[a] = n
	}
	for id, a := range r.approvals {
		c.approvals[id] = a
	}
	for owner, ops := range r.operators {
		m := make(map[domain.Address]bool, len(ops))
		for op, ok := range ops {
			m[op] = ok
		}
		c.operators[owner] = m
	}
	return c
}

func (r *Registry) decrement(a domain.Address) {
	if r.balances[a] <= 1 {
		delete(r.balances, a)
		return
	}
	r.balances[a]--
}
