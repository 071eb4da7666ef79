// internal/marketplace/replay.go
package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"realticket/internal/domain"
	"realticket/internal/eventstore"
	"realticket/internal/settings"
)

const replayBatch = 500

// ErrJournalMismatch means a journalled event cannot be applied to the state rebuilt so far.
var ErrJournalMismatch = errors.New("journal does not match replayed state")

// replay rebuilds st from every journalled event in commit order and returns how many it applied.
func replay(ctx context.Context, journal eventstore.Journal, st *state) (int, error) {
	var from int64
	n := 0
	for {
		events, err := journal.StreamEvents(ctx, from, replayBatch)
		if err != nil {
			return n, fmt.Errorf("failed to stream journal: %w", err)
		}
		for _, e := range events {
			if err := st.apply(e); err != nil {
				return n, fmt.Errorf("failed to replay event %d (%s): %w", e.ID, e.EventType, err)
			}
			n++
		}
		if len(events) < replayBatch {
			break
		}
		from = events[len(events)-1].ID
	}
	// The transfer gate buffers events while replaying; they are already journalled.
	st.pending = nil
	return n, nil
}

// apply performs the state change one committed event describes. Authorization was
// checked when the event was first recorded, so only structural checks run here.
func (st *state) apply(e eventstore.Event) error {
	switch e.EventType {
	case EventTicketMinted:
		var ev TicketMintedEvent
		if err := json.Unmarshal(e.EventData, &ev); err != nil {
			return err
		}
		if next := st.tickets.Next(); next != ev.TicketID {
			return fmt.Errorf("%w: minted ticket %d, expected %d", ErrJournalMismatch, ev.TicketID, next)
		}
		return st.assets.Mint(ev.Owner, st.tickets.Create())

	case EventTicketTransferred:
		var ev TicketTransferredEvent
		if err := json.Unmarshal(e.EventData, &ev); err != nil {
			return err
		}
		return st.assets.Transfer(ev.From, ev.To, ev.TicketID)

	case EventTicketUsed, EventTicketBlocked, EventTicketBound:
		var ev TicketStatusChangedEvent
		if err := json.Unmarshal(e.EventData, &ev); err != nil {
			return err
		}
		switch e.EventType {
		case EventTicketUsed:
			return st.tickets.Use(ev.TicketID)
		case EventTicketBlocked:
			return st.tickets.Block(ev.TicketID)
		default:
			return st.tickets.Bind(ev.TicketID)
		}

	case EventTicketBurned:
		var ev TicketBurnedEvent
		if err := json.Unmarshal(e.EventData, &ev); err != nil {
			return err
		}
		if err := st.assets.Burn(ev.TicketID); err != nil {
			return err
		}
		return st.tickets.Remove(ev.TicketID)

	case EventTicketListed:
		var ev TicketListedEvent
		if err := json.Unmarshal(e.EventData, &ev); err != nil {
			return err
		}
		price, err := domain.ParseAmount(ev.Price)
		if err != nil {
			return err
		}
		return st.tickets.SetResalePrice(ev.TicketID, price)

	case EventPrimarySale:
		var ev PrimarySaleEvent
		if err := json.Unmarshal(e.EventData, &ev); err != nil {
			return err
		}
		return st.settle(ev.Treasury, ev.Buyer, ev.Refund)

	case EventResaleSale:
		var ev ResaleSaleEvent
		if err := json.Unmarshal(e.EventData, &ev); err != nil {
			return err
		}
		price, err := domain.ParseAmount(ev.Price)
		if err != nil {
			return err
		}
		if err := st.accounts.Pay(ev.Seller, price); err != nil {
			return err
		}
		return st.settle(ev.Treasury, ev.Buyer, ev.Refund)

	case EventApproval:
		var ev ApprovalEvent
		if err := json.Unmarshal(e.EventData, &ev); err != nil {
			return err
		}
		return st.assets.Approve(ev.Owner, ev.Approved, ev.TicketID)

	case EventApprovalForAll:
		var ev ApprovalForAllEvent
		if err := json.Unmarshal(e.EventData, &ev); err != nil {
			return err
		}
		return st.assets.SetApprovalForAll(ev.Owner, ev.Operator, ev.Approved)

	case EventTreasuryWithdrawn:
		var ev TreasuryWithdrawnEvent
		if err := json.Unmarshal(e.EventData, &ev); err != nil {
			return err
		}
		want, err := domain.ParseAmount(ev.Amount)
		if err != nil {
			return err
		}
		drained := st.treasury.Drain()
		if drained.Cmp(want) != 0 {
			return fmt.Errorf("%w: withdrew %s, treasury held %s", ErrJournalMismatch, want, drained)
		}
		return st.accounts.Pay(ev.Recipient, drained)

	case EventSettingsChanged:
		var ev SettingsChangedEvent
		if err := json.Unmarshal(e.EventData, &ev); err != nil {
			return err
		}
		fee, err := domain.ParseAmount(ev.BaseFee)
		if err != nil {
			return err
		}
		price, err := domain.ParseAmount(ev.BasePrice)
		if err != nil {
			return err
		}
		next, err := settings.New(fee, price, ev.Capacity)
		if err != nil {
			return err
		}
		st.settings = next
		return nil

	case EventPaused, EventUnpaused:
		st.paused = e.EventType == EventPaused
		return nil

	case EventRoleGranted, EventRoleRevoked:
		var ev RoleEvent
		if err := json.Unmarshal(e.EventData, &ev); err != nil {
			return err
		}
		return st.applyRole(e.EventType, ev)
	}
	return fmt.Errorf("%w: unknown event type %q", ErrJournalMismatch, e.EventType)
}

// settle credits the treasury share of a sale and refunds the buyer.
func (st *state) settle(credit string, buyer domain.Address, refund string) error {
	c, err := domain.ParseAmount(credit)
	if err != nil {
		return err
	}
	r, err := domain.ParseAmount(refund)
	if err != nil {
		return err
	}
	if err := st.treasury.Credit(c); err != nil {
		return err
	}
	return st.accounts.Pay(buyer, r)
}

func (st *state) applyRole(eventType string, ev RoleEvent) error {
	var err error
	switch {
	case eventType == EventRoleGranted:
		_, err = st.roles.Grant(ev.By, ev.Role, ev.Account)
	case ev.Account == ev.By:
		_, err = st.roles.Renounce(ev.By, ev.Role)
	default:
		_, err = st.roles.Revoke(ev.By, ev.Role, ev.Account)
	}
	if errors.Is(err, domain.ErrUnauthorized) {
		// Grants trace back to the deployer, so a different deployer cannot replay them.
		return fmt.Errorf("%w: %v", ErrJournalMismatch, err)
	}
	return err
}
