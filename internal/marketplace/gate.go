// internal/marketplace/gate.go
package marketplace

import (
	"fmt"

	"realticket/internal/domain"
)

// transferGate is installed into the asset registry and runs around every ownership move,
// whatever started it: a direct transfer, a resale purchase or an approved operator.
type transferGate struct {
	st *state
}

func (g transferGate) BeforeTransfer(from, to domain.Address, id uint64) error {
	if g.st.paused {
		return fmt.Errorf("%w: ticket %d", domain.ErrPaused, id)
	}
	return g.st.tickets.CheckTransferable(id)
}

func (g transferGate) AfterTransfer(from, to domain.Address, id uint64) {
	g.st.tickets.ResetResalePrice(id)
	g.st.recordTicket(id, EventTicketTransferred, TicketTransferredEvent{TicketID: id, From: from, To: to})
}
