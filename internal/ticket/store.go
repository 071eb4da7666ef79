// internal/ticket/store.go
package ticket

import (
	"fmt"
	"math/big"

	"realticket/internal/domain"
)

// Ticket is the per-ticket state kept by the core. Ownership lives in the asset registry.
type Ticket struct {
	ID          uint64   `json:"id"`
	Status      Status   `json:"status"`
	ResalePrice *big.Int `json:"resale_price"`
}

// Listed reports whether the ticket is offered for resale.
func (t Ticket) Listed() bool {
	return t.ResalePrice != nil && t.ResalePrice.Sign() > 0
}

// Store keeps ticket state keyed by id and owns the lifecycle state machine.
type Store struct {
	tickets map[uint64]*Ticket
	next    uint64
}

func NewStore() *Store {
	return &Store{tickets: make(map[uint64]*Ticket)}
}

// Next returns the id the next Create will assign. It equals the number of tickets ever created.
func (s *Store) Next() uint64 {
	return s.next
}

// Len returns the number of tickets that have not been burned.
func (s *Store) Len() int {
	return len(s.tickets)
}

// Create allocates the next id with status READY and no listing.
func (s *Store) Create() uint64 {
	id := s.next
	s.tickets[id] = &Ticket{ID: id, Status: Ready, ResalePrice: new(big.Int)}
	s.next++
	return id
}

// Get returns a copy of the ticket.
func (s *Store) Get(id uint64) (Ticket, error) {
	t, err := s.lookup(id)
	if err != nil {
		return Ticket{}, err
	}
	return Ticket{ID: t.ID, Status: t.Status, ResalePrice: domain.Copy(t.ResalePrice)}, nil
}

// Remove deletes the ticket and its state.
func (s *Store) Remove(id uint64) error {
	if _, err := s.lookup(id); err != nil {
		return err
	}
	delete(s.tickets, id)
	return nil
}

// Use marks a READY or BOUND ticket as USED.
func (s *Store) Use(id uint64) error {
	t, err := s.lookup(id)
	if err != nil {
		return err
	}
	switch t.Status {
	case Blocked:
		return fmt.Errorf("%w: ticket %d", domain.ErrAlreadyBlocked, id)
	case Used:
		return fmt.Errorf("%w: ticket %d", domain.ErrAlreadyUsed, id)
	}
	t.Status = Used
	return nil
}

// Block marks a READY or BOUND ticket as BLOCKED.
func (s *Store) Block(id uint64) error {
	t, err := s.lookup(id)
	if err != nil {
		return err
	}
	switch t.Status {
	case Used:
		return fmt.Errorf("%w: ticket %d", domain.ErrAlreadyUsed, id)
	case Blocked:
		return fmt.Errorf("%w: ticket %d", domain.ErrAlreadyBlocked, id)
	}
	t.Status = Blocked
	return nil
}

// Bind marks a READY ticket as BOUND. Binding is one-way.
func (s *Store) Bind(id uint64) error {
	t, err := s.lookup(id)
	if err != nil {
		return err
	}
	if t.Status != Ready {
		return fmt.Errorf("%w: ticket %d is %s", domain.ErrNotReady, id, t.Status)
	}
	t.Status = Bound
	return nil
}

// CheckTransferable fails unless the ticket is READY.
func (s *Store) CheckTransferable(id uint64) error {
	t, err := s.lookup(id)
	if err != nil {
		return err
	}
	if t.Status != Ready {
		return fmt.Errorf("%w: ticket %d is %s", domain.ErrNotReady, id, t.Status)
	}
	return nil
}

// SetResalePrice records a listing price; zero clears the listing.
func (s *Store) SetResalePrice(id uint64, price *big.Int) error {
	t, err := s.lookup(id)
	if err != nil {
		return err
	}
	if err := domain.CheckAmount(price); err != nil {
		return err
	}
	t.ResalePrice = domain.Copy(price)
	return nil
}

// ResetResalePrice clears the listing. Missing tickets are ignored.
func (s *Store) ResetResalePrice(id uint64) {
	if t, ok := s.tickets[id]; ok {
		t.ResalePrice = new(big.Int)
	}
}

// Clone returns a deep copy of the store.
func (s *Store) Clone() *Store {
	c := &Store{
		tickets: make(map[uint64]*Ticket, len(s.tickets)),
		next:    s.next,
	}
	for id, t := range s.tickets {
		c.tickets[id] = &Ticket{ID: t.ID, Status: t.Status, ResalePrice: domain.Copy(t.ResalePrice)}
	}
	return c
}

func (s *Store) lookup(id uint64) (*Ticket, error) {
	t, ok := s.tickets[id]
	if !ok {
		return nil, fmt.Errorf("%w: ticket %d", domain.ErrNotFound, id)
	}
	return t, nil
}
