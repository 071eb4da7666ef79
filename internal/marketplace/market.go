// internal/marketplace/market.go
package marketplace

import (
	"context"
	"fmt"
	"math/big"

	"realticket/internal/domain"
	"realticket/internal/ledger"
)

// PrimaryPurchase mints a new ticket to the caller in exchange for at least price plus fee.
// Proceeds go to the treasury.
func (s *service) PrimaryPurchase(ctx context.Context, call ledger.Call) (uint64, error) {
	value := call.Amount()

	var id uint64
	err := s.exec(ctx, "primary_purchase", call.Caller, func(st *state) error {
		if err := domain.CheckAmount(value); err != nil {
			return err
		}
		cost := st.settings.PrimaryCost()
		if value.Cmp(cost) < 0 {
			return fmt.Errorf("%w: sent %s, need %s", domain.ErrInsufficientValue, value, cost)
		}

		created, err := st.create(call.Caller)
		if err != nil {
			return err
		}

		credit, refund := s.split(value, cost)
		if err := st.treasury.Credit(credit); err != nil {
			return err
		}
		if err := st.accounts.Pay(call.Caller, refund); err != nil {
			return err
		}

		st.recordTicket(created, EventPrimarySale, PrimarySaleEvent{
			TicketID: created,
			Buyer:    call.Caller,
			Value:    value.String(),
			Treasury: credit.String(),
			Refund:   refund.String(),
		})
		id = created
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.countSale(ctx, "primary")
	return id, nil
}

// ListForResale offers a ticket at price, which may not exceed the base price. Zero withdraws the offer.
func (s *service) ListForResale(ctx context.Context, caller domain.Address, id uint64, price *big.Int) error {
	return s.exec(ctx, "list", caller, func(st *state) error {
		if _, err := st.tickets.Get(id); err != nil {
			return err
		}
		if err := st.requireOwnerOrApproved(caller, id); err != nil {
			return err
		}
		if err := domain.CheckAmount(price); err != nil {
			return err
		}
		if price.Cmp(st.settings.BasePrice) > 0 {
			return fmt.Errorf("%w: %s > %s", domain.ErrPriceTooHigh, price, st.settings.BasePrice)
		}
		if err := st.tickets.SetResalePrice(id, price); err != nil {
			return err
		}
		st.recordTicket(id, EventTicketListed, TicketListedEvent{TicketID: id, Price: price.String(), By: caller})
		return nil
	})
}

// ResalePurchase buys a listed ticket from expectedSeller. The seller receives the listed price,
// the treasury the rest, and ownership moves through the transfer gate.
func (s *service) ResalePurchase(ctx context.Context, call ledger.Call, id uint64, expectedSeller domain.Address) error {
	value := call.Amount()

	err := s.exec(ctx, "resale_purchase", call.Caller, func(st *state) error {
		if err := domain.CheckAmount(value); err != nil {
			return err
		}
		t, err := st.tickets.Get(id)
		if err != nil {
			return err
		}
		// Rejected before the value check, which alone would let an unlisted ticket
		// (price zero) go to anyone paying the fee.
		if !t.Listed() {
			return fmt.Errorf("%w: ticket %d", domain.ErrNotListed, id)
		}
		price := t.ResalePrice
		cost := st.settings.ResaleCost(price)
		if value.Cmp(cost) < 0 {
			return fmt.Errorf("%w: sent %s, need %s", domain.ErrInsufficientValue, value, cost)
		}

		if err := st.accounts.Pay(expectedSeller, price); err != nil {
			return err
		}
		// The treasury keeps everything above the seller's price, at least the fee.
		credit, refund := s.split(new(big.Int).Sub(value, price), st.settings.BaseFee)
		if err := st.treasury.Credit(credit); err != nil {
			return err
		}
		if err := st.accounts.Pay(call.Caller, refund); err != nil {
			return err
		}

		if err := st.assets.Transfer(expectedSeller, call.Caller, id); err != nil {
			return err
		}

		st.recordTicket(id, EventResaleSale, ResaleSaleEvent{
			TicketID: id,
			Seller:   expectedSeller,
			Buyer:    call.Caller,
			Price:    price.String(),
			Treasury: credit.String(),
			Refund:   refund.String(),
		})
		return nil
	})
	if err != nil {
		return err
	}
	s.countSale(ctx, "resale")
	return nil
}

// split divides value into the treasury credit and the buyer refund according to the refund policy.
func (s *service) split(value, required *big.Int) (credit, refund *big.Int) {
	if !s.refundExcess {
		return domain.Copy(value), new(big.Int)
	}
	return domain.Copy(required), new(big.Int).Sub(value, required)
}

func (s *service) SalePrice(ctx context.Context, id uint64) (*big.Int, error) {
	var price *big.Int
	err := s.read(func(st *state) error {
		t, err := st.tickets.Get(id)
		if err != nil {
			return err
		}
		price = t.ResalePrice
		return nil
	})
	return price, err
}

func (s *service) Price(ctx context.Context) *big.Int {
	return s.Settings(ctx).BasePrice
}

func (s *service) Fee(ctx context.Context) *big.Int {
	return s.Settings(ctx).BaseFee
}

func (s *service) Capacity(ctx context.Context) uint64 {
	return s.Settings(ctx).Capacity
}

func (s *service) TotalMinted(ctx context.Context) uint64 {
	var n uint64
	_ = s.read(func(st *state) error {
		n = st.tickets.Next()
		return nil
	})
	return n
}
