// internal/marketplace/lifecycle.go
package marketplace

import (
	"context"

	"realticket/internal/access"
	"realticket/internal/domain"
	"realticket/internal/ticket"
)

// Mint creates a ticket for to without payment. Requires MANAGER.
func (s *service) Mint(ctx context.Context, caller, to domain.Address) (uint64, error) {
	var id uint64
	err := s.exec(ctx, "mint", caller, func(st *state) error {
		if err := st.roles.Require(access.Manager, caller); err != nil {
			return err
		}
		created, err := st.create(to)
		if err != nil {
			return err
		}
		id = created
		return nil
	})
	return id, err
}

// Burn destroys a ticket. The caller must own it or be approved for it.
func (s *service) Burn(ctx context.Context, caller domain.Address, id uint64) error {
	return s.exec(ctx, "burn", caller, func(st *state) error {
		if err := st.requireOwnerOrApproved(caller, id); err != nil {
			return err
		}
		owner, err := st.assets.OwnerOf(id)
		if err != nil {
			return err
		}
		if err := st.assets.Burn(id); err != nil {
			return err
		}
		if err := st.tickets.Remove(id); err != nil {
			return err
		}
		st.recordTicket(id, EventTicketBurned, TicketBurnedEvent{TicketID: id, Owner: owner, By: caller})
		return nil
	})
}

// UseTicket marks a ticket as used at the door. Requires BOUNCER.
func (s *service) UseTicket(ctx context.Context, caller domain.Address, id uint64) error {
	return s.exec(ctx, "use", caller, func(st *state) error {
		if err := st.roles.Require(access.Bouncer, caller); err != nil {
			return err
		}
		if err := st.tickets.Use(id); err != nil {
			return err
		}
		st.recordTicket(id, EventTicketUsed, TicketStatusChangedEvent{TicketID: id, Status: ticket.Used, By: caller})
		return nil
	})
}

// BlockTicket invalidates a ticket. Requires MANAGER.
func (s *service) BlockTicket(ctx context.Context, caller domain.Address, id uint64) error {
	return s.exec(ctx, "block", caller, func(st *state) error {
		if err := st.roles.Require(access.Manager, caller); err != nil {
			return err
		}
		if err := st.tickets.Block(id); err != nil {
			return err
		}
		st.recordTicket(id, EventTicketBlocked, TicketStatusChangedEvent{TicketID: id, Status: ticket.Blocked, By: caller})
		return nil
	})
}

// BindTicket ties a ticket to its current holder; it can no longer be transferred. Requires MANAGER.
func (s *service) BindTicket(ctx context.Context, caller domain.Address, id uint64) error {
	return s.exec(ctx, "bind", caller, func(st *state) error {
		if err := st.roles.Require(access.Manager, caller); err != nil {
			return err
		}
		if err := st.tickets.Bind(id); err != nil {
			return err
		}
		st.recordTicket(id, EventTicketBound, TicketStatusChangedEvent{TicketID: id, Status: ticket.Bound, By: caller})
		return nil
	})
}

func (s *service) Ticket(ctx context.Context, id uint64) (TicketView, error) {
	var view TicketView
	err := s.read(func(st *state) error {
		t, err := st.tickets.Get(id)
		if err != nil {
			return err
		}
		owner, err := st.assets.OwnerOf(id)
		if err != nil {
			return err
		}
		approved, err := st.assets.GetApproved(id)
		if err != nil {
			return err
		}
		view = TicketView{
			ID:          t.ID,
			Owner:       owner,
			Approved:    approved,
			Status:      t.Status,
			ResalePrice: t.ResalePrice,
		}
		return nil
	})
	return view, err
}

func (s *service) Status(ctx context.Context, id uint64) (ticket.Status, error) {
	var status ticket.Status
	err := s.read(func(st *state) error {
		t, err := st.tickets.Get(id)
		if err != nil {
			return err
		}
		status = t.Status
		return nil
	})
	return status, err
}

func (s *service) OwnerOf(ctx context.Context, id uint64) (domain.Address, error) {
	var owner domain.Address
	err := s.read(func(st *state) error {
		var err error
		owner, err = st.assets.OwnerOf(id)
		return err
	})
	return owner, err
}

func (s *service) BalanceOf(ctx context.Context, owner domain.Address) uint64 {
	var n uint64
	_ = s.read(func(st *state) error {
		n = st.assets.BalanceOf(owner)
		return nil
	})
	return n
}

// TransferFrom moves a ticket directly between holders, through the transfer gate.
func (s *service) TransferFrom(ctx context.Context, caller, from, to domain.Address, id uint64) error {
	return s.exec(ctx, "transfer", caller, func(st *state) error {
		return st.assets.TransferFrom(caller, from, to, id)
	})
}

func (s *service) Approve(ctx context.Context, caller, to domain.Address, id uint64) error {
	return s.exec(ctx, "approve", caller, func(st *state) error {
		owner, err := st.assets.OwnerOf(id)
		if err != nil {
			return err
		}
		if err := st.assets.Approve(caller, to, id); err != nil {
			return err
		}
		st.recordTicket(id, EventApproval, ApprovalEvent{TicketID: id, Owner: owner, Approved: to})
		return nil
	})
}

func (s *service) GetApproved(ctx context.Context, id uint64) (domain.Address, error) {
	var approved domain.Address
	err := s.read(func(st *state) error {
		var err error
		approved, err = st.assets.GetApproved(id)
		return err
	})
	return approved, err
}

func (s *service) SetApprovalForAll(ctx context.Context, caller, operator domain.Address, approved bool) error {
	return s.exec(ctx, "approve_all", caller, func(st *state) error {
		if err := st.assets.SetApprovalForAll(caller, operator, approved); err != nil {
			return err
		}
		st.recordContract(EventApprovalForAll, ApprovalForAllEvent{Owner: caller, Operator: operator, Approved: approved})
		return nil
	})
}

func (s *service) IsApprovedForAll(ctx context.Context, owner, operator domain.Address) bool {
	var ok bool
	_ = s.read(func(st *state) error {
		ok = st.assets.IsApprovedForAll(owner, operator)
		return nil
	})
	return ok
}
