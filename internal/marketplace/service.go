// internal/marketplace/service.go
package marketplace

import (
	"context"
	"encoding/json"
	"math/big"
	"time"

	"realticket/internal/access"
	"realticket/internal/domain"
	"realticket/internal/ledger"
	"realticket/internal/settings"
	"realticket/internal/ticket"
)

// TicketView is a ticket together with its registry facts.
type TicketView struct {
	ID          uint64
	Owner       domain.Address
	Approved    domain.Address
	Status      ticket.Status
	ResalePrice *big.Int
}

// Summary is the contract-wide state at one instant.
type Summary struct {
	Paused      bool
	Treasury    *big.Int
	TotalMinted uint64
	Outstanding int
	Settings    settings.Settings
}

// HistoryEntry is one journalled change to a ticket.
type HistoryEntry struct {
	Version   int
	Type      string
	Data      json.RawMessage
	CreatedAt time.Time
}

// History is a ticket's journal from some version on. Version is the latest one.
type History struct {
	TicketID uint64
	Version  int
	Entries  []HistoryEntry
}

// Service defines the ticket marketplace: lifecycle, primary and secondary sales,
// role administration, settings, pause control and the treasury.
type Service interface {
	HasRole(ctx context.Context, role access.Role, account domain.Address) (bool, error)
	RoleMemberCount(ctx context.Context, role access.Role) (int, error)
	RoleMember(ctx context.Context, role access.Role, index int) (domain.Address, error)
	RoleMembers(ctx context.Context, role access.Role) ([]domain.Address, error)
	GrantRole(ctx context.Context, caller domain.Address, role access.Role, account domain.Address) error
	RevokeRole(ctx context.Context, caller domain.Address, role access.Role, account domain.Address) error
	RenounceRole(ctx context.Context, caller domain.Address, role access.Role) error

	Mint(ctx context.Context, caller, to domain.Address) (uint64, error)
	Burn(ctx context.Context, caller domain.Address, id uint64) error
	UseTicket(ctx context.Context, caller domain.Address, id uint64) error
	BlockTicket(ctx context.Context, caller domain.Address, id uint64) error
	BindTicket(ctx context.Context, caller domain.Address, id uint64) error
	Ticket(ctx context.Context, id uint64) (TicketView, error)
	Status(ctx context.Context, id uint64) (ticket.Status, error)
	TicketHistory(ctx context.Context, id uint64, since int) (History, error)

	OwnerOf(ctx context.Context, id uint64) (domain.Address, error)
	BalanceOf(ctx context.Context, owner domain.Address) uint64
	TransferFrom(ctx context.Context, caller, from, to domain.Address, id uint64) error
	Approve(ctx context.Context, caller, to domain.Address, id uint64) error
	GetApproved(ctx context.Context, id uint64) (domain.Address, error)
	SetApprovalForAll(ctx context.Context, caller, operator domain.Address, approved bool) error
	IsApprovedForAll(ctx context.Context, owner, operator domain.Address) bool

	PrimaryPurchase(ctx context.Context, call ledger.Call) (uint64, error)
	ListForResale(ctx context.Context, caller domain.Address, id uint64, price *big.Int) error
	ResalePurchase(ctx context.Context, call ledger.Call, id uint64, expectedSeller domain.Address) error
	SalePrice(ctx context.Context, id uint64) (*big.Int, error)
	Price(ctx context.Context) *big.Int
	Fee(ctx context.Context) *big.Int
	Capacity(ctx context.Context) uint64
	TotalMinted(ctx context.Context) uint64
	Settings(ctx context.Context) settings.Settings

	SetBaseFee(ctx context.Context, caller domain.Address, fee *big.Int) error
	SetPrice(ctx context.Context, caller domain.Address, price *big.Int) error
	SetCapacity(ctx context.Context, caller domain.Address, capacity uint64) error
	SetSettings(ctx context.Context, caller domain.Address, fee, price *big.Int, capacity uint64) error

	Withdraw(ctx context.Context, caller, recipient domain.Address) (*big.Int, error)
	TreasuryBalance(ctx context.Context) *big.Int
	AccountBalance(ctx context.Context, account domain.Address) *big.Int

	Pause(ctx context.Context, caller domain.Address) error
	Unpause(ctx context.Context, caller domain.Address) error
	Paused(ctx context.Context) bool
	Summary(ctx context.Context) Summary
}
