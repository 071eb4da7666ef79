// internal/marketplace/events.go
package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"realticket/internal/access"
	"realticket/internal/domain"
	"realticket/internal/eventstore"
	"realticket/internal/ticket"
)

const (
	AggregateTicket   = "ticket"
	AggregateContract = "contract"
)

const (
	EventTicketMinted      = "TicketMinted"
	EventTicketTransferred = "TicketTransferred"
	EventTicketUsed        = "TicketUsed"
	EventTicketBlocked     = "TicketBlocked"
	EventTicketBound       = "TicketBound"
	EventTicketBurned      = "TicketBurned"
	EventTicketListed      = "TicketListed"
	EventPrimarySale       = "PrimarySale"
	EventResaleSale        = "ResaleSale"
	EventApproval          = "Approval"
	EventApprovalForAll    = "ApprovalForAll"
	EventTreasuryWithdrawn = "TreasuryWithdrawn"
	EventSettingsChanged   = "SettingsChanged"
	EventPaused            = "Paused"
	EventUnpaused          = "Unpaused"
	EventRoleGranted       = "RoleGranted"
	EventRoleRevoked       = "RoleRevoked"
)

var aggregateNamespace = uuid.MustParse("5b1f0a52-3c0e-4d6b-9b8e-7f2a61c0d4e9")

// ContractAggregateID is the aggregate for contract-wide events: settings, treasury, pause and roles.
var ContractAggregateID = uuid.NewSHA1(aggregateNamespace, []byte(AggregateContract))

// TicketAggregateID derives a stable aggregate id from a ticket id.
func TicketAggregateID(id uint64) uuid.UUID {
	return uuid.NewSHA1(aggregateNamespace, []byte(AggregateTicket+"/"+strconv.FormatUint(id, 10)))
}

// TicketMintedEvent is published when a ticket is created by mint or primary purchase.
type TicketMintedEvent struct {
	TicketID uint64         `json:"ticket_id"`
	Owner    domain.Address `json:"owner"`
}

// TicketTransferredEvent is published on every ownership move.
type TicketTransferredEvent struct {
	TicketID uint64         `json:"ticket_id"`
	From     domain.Address `json:"from"`
	To       domain.Address `json:"to"`
}

// TicketStatusChangedEvent is published by use, block and bind.
type TicketStatusChangedEvent struct {
	TicketID uint64         `json:"ticket_id"`
	Status   ticket.Status  `json:"status"`
	By       domain.Address `json:"by"`
}

type TicketBurnedEvent struct {
	TicketID uint64         `json:"ticket_id"`
	Owner    domain.Address `json:"owner"`
	By       domain.Address `json:"by"`
}

type TicketListedEvent struct {
	TicketID uint64         `json:"ticket_id"`
	Price    string         `json:"price"`
	By       domain.Address `json:"by"`
}

type PrimarySaleEvent struct {
	TicketID uint64         `json:"ticket_id"`
	Buyer    domain.Address `json:"buyer"`
	Value    string         `json:"value"`
	Treasury string         `json:"treasury"`
	Refund   string         `json:"refund"`
}

type ResaleSaleEvent struct {
	TicketID uint64         `json:"ticket_id"`
	Seller   domain.Address `json:"seller"`
	Buyer    domain.Address `json:"buyer"`
	Price    string         `json:"price"`
	Treasury string         `json:"treasury"`
	Refund   string         `json:"refund"`
}

type ApprovalEvent struct {
	TicketID uint64         `json:"ticket_id"`
	Owner    domain.Address `json:"owner"`
	Approved domain.Address `json:"approved"`
}

type ApprovalForAllEvent struct {
	Owner    domain.Address `json:"owner"`
	Operator domain.Address `json:"operator"`
	Approved bool           `json:"approved"`
}

type TreasuryWithdrawnEvent struct {
	Recipient domain.Address `json:"recipient"`
	Amount    string         `json:"amount"`
	By        domain.Address `json:"by"`
}

type SettingsChangedEvent struct {
	BaseFee   string         `json:"base_fee"`
	BasePrice string         `json:"base_price"`
	Capacity  uint64         `json:"capacity"`
	By        domain.Address `json:"by"`
}

type PauseEvent struct {
	By domain.Address `json:"by"`
}

type RoleEvent struct {
	Role    access.Role    `json:"role"`
	Account domain.Address `json:"account"`
	By      domain.Address `json:"by"`
}

type pendingEvent struct {
	aggregateID   uuid.UUID
	aggregateType string
	eventType     string
	data          interface{}
}

func (st *state) recordTicket(id uint64, eventType string, data interface{}) {
	st.pending = append(st.pending, pendingEvent{
		aggregateID:   TicketAggregateID(id),
		aggregateType: AggregateTicket,
		eventType:     eventType,
		data:          data,
	})
}

func (st *state) recordContract(eventType string, data interface{}) {
	st.pending = append(st.pending, pendingEvent{
		aggregateID:   ContractAggregateID,
		aggregateType: AggregateContract,
		eventType:     eventType,
		data:          data,
	})
}

// commit journals the events buffered by an operation. A journal failure discards the operation.
func (s *service) commit(ctx context.Context, next *state) error {
	if len(next.pending) == 0 {
		return nil
	}

	events := make([]eventstore.Event, 0, len(next.pending))
	for _, p := range next.pending {
		jsonData, err := json.Marshal(p.data)
		if err != nil {
			return fmt.Errorf("failed to marshal %s event: %w", p.eventType, err)
		}
		events = append(events, eventstore.Event{
			AggregateID:   p.aggregateID,
			AggregateType: p.aggregateType,
			EventType:     p.eventType,
			EventData:     jsonData,
		})
	}

	if err := s.journal.Append(ctx, events); err != nil {
		return fmt.Errorf("failed to append events: %w", err)
	}
	next.pending = nil
	return nil
}
