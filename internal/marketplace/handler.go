// internal/marketplace/handler.go
package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"realticket/internal/access"
	"realticket/internal/auth"
	"realticket/internal/domain"
	"realticket/internal/ledger"
	"realticket/internal/ticket"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the public reads and, behind authenticated, every mutating operation.
func (h *Handler) Routes(r chi.Router, authenticated ...func(http.Handler) http.Handler) {
	r.Get("/healthz", h.HandleHealth)
	r.Get("/status", h.HandleStatus)
	r.Get("/settings", h.HandleGetSettings)
	r.Get("/tickets/{id}", h.HandleGetTicket)
	r.Get("/tickets/{id}/history", h.HandleTicketHistory)
	r.Get("/roles/{role}/members", h.HandleRoleMembers)
	r.Get("/roles/{role}/members/{index}", h.HandleRoleMember)
	r.Get("/accounts/{address}", h.HandleAccount)

	r.Group(func(r chi.Router) {
		r.Use(authenticated...)

		r.Put("/settings", h.HandleSetSettings)
		r.Put("/settings/{field}", h.HandleSetSetting)
		r.Post("/purchase", h.HandlePrimaryPurchase)
		r.Post("/tickets", h.HandleMint)
		r.Delete("/tickets/{id}", h.HandleBurn)
		r.Post("/tickets/{id}/{transition:use|block|bind}", h.HandleTransition)
		r.Post("/tickets/{id}/transfer", h.HandleTransfer)
		r.Post("/tickets/{id}/approve", h.HandleApprove)
		r.Put("/tickets/{id}/listing", h.HandleList)
		r.Post("/tickets/{id}/buy", h.HandleResalePurchase)
		r.Put("/operators/{operator}", h.HandleSetOperator)
		r.Post("/withdraw", h.HandleWithdraw)
		r.Post("/pause", h.HandlePause)
		r.Post("/unpause", h.HandleUnpause)
		r.Put("/roles/{role}/holders/{address}", h.HandleGrantRole)
		r.Delete("/roles/{role}/holders/{address}", h.HandleRevokeRole)
	})
}

type settingsResponse struct {
	BaseFee   string `json:"base_fee"`
	BasePrice string `json:"base_price"`
	Capacity  uint64 `json:"capacity"`
}

type statusResponse struct {
	Paused      bool             `json:"paused"`
	Treasury    string           `json:"treasury"`
	TotalMinted uint64           `json:"total_minted"`
	Outstanding int              `json:"outstanding"`
	Settings    settingsResponse `json:"settings"`
}

type ticketResponse struct {
	ID          uint64         `json:"id"`
	Owner       domain.Address `json:"owner"`
	Approved    domain.Address `json:"approved,omitempty"`
	Status      ticket.Status  `json:"status"`
	ResalePrice string         `json:"resale_price"`
}

type accountResponse struct {
	Address domain.Address `json:"address"`
	Balance string         `json:"balance"`
	Tickets uint64         `json:"tickets"`
	Roles   []access.Role  `json:"roles"`
}

type historyEntryResponse struct {
	Version   int             `json:"version"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

type historyResponse struct {
	TicketID uint64                 `json:"ticket_id"`
	Version  int                    `json:"version"`
	Events   []historyEntryResponse `json:"events"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	sum := h.service.Summary(r.Context())
	writeJSON(w, http.StatusOK, statusResponse{
		Paused:      sum.Paused,
		Treasury:    sum.Treasury.String(),
		TotalMinted: sum.TotalMinted,
		Outstanding: sum.Outstanding,
		Settings: settingsResponse{
			BaseFee:   sum.Settings.BaseFee.String(),
			BasePrice: sum.Settings.BasePrice.String(),
			Capacity:  sum.Settings.Capacity,
		},
	})
}

func (h *Handler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	s := h.service.Settings(r.Context())
	writeJSON(w, http.StatusOK, settingsResponse{
		BaseFee:   s.BaseFee.String(),
		BasePrice: s.BasePrice.String(),
		Capacity:  s.Capacity,
	})
}

func (h *Handler) HandleSetSettings(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req settingsResponse
	if !decode(w, r, &req) {
		return
	}
	fee, ok := parseAmount(w, req.BaseFee)
	if !ok {
		return
	}
	price, ok := parseAmount(w, req.BasePrice)
	if !ok {
		return
	}
	if err := h.service.SetSettings(r.Context(), caller, fee, price, req.Capacity); err != nil {
		writeServiceError(w, err)
		return
	}
	h.HandleGetSettings(w, r)
}

func (h *Handler) HandleSetSetting(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req struct {
		Value string `json:"value"`
	}
	if !decode(w, r, &req) {
		return
	}

	var err error
	switch chi.URLParam(r, "field") {
	case "fee":
		v, ok := parseAmount(w, req.Value)
		if !ok {
			return
		}
		err = h.service.SetBaseFee(r.Context(), caller, v)
	case "price":
		v, ok := parseAmount(w, req.Value)
		if !ok {
			return
		}
		err = h.service.SetPrice(r.Context(), caller, v)
	case "capacity":
		v, perr := strconv.ParseUint(req.Value, 10, 64)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "capacity must be an unsigned integer")
			return
		}
		err = h.service.SetCapacity(r.Context(), caller, v)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown setting")
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.HandleGetSettings(w, r)
}

func (h *Handler) HandlePrimaryPurchase(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req struct {
		Value string `json:"value"`
	}
	if !decode(w, r, &req) {
		return
	}
	value, ok := parseAmount(w, req.Value)
	if !ok {
		return
	}

	id, err := h.service.PrimaryPurchase(r.Context(), ledger.Call{Caller: caller, Value: value})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeTicket(w, r, http.StatusCreated, id)
}

func (h *Handler) HandleMint(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req struct {
		To domain.Address `json:"to"`
	}
	if !decode(w, r, &req) {
		return
	}

	id, err := h.service.Mint(r.Context(), caller, req.To)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeTicket(w, r, http.StatusCreated, id)
}

func (h *Handler) HandleGetTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := ticketID(w, r)
	if !ok {
		return
	}
	h.writeTicket(w, r, http.StatusOK, id)
}

// HandleTicketHistory serves the ticket's journal; ?since=N returns only versions after N.
func (h *Handler) HandleTicketHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := ticketID(w, r)
	if !ok {
		return
	}
	since := 0
	if raw := r.URL.Query().Get("since"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_version", "since must be an integer")
			return
		}
		since = n
	}

	history, err := h.service.TicketHistory(r.Context(), id, since)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := historyResponse{
		TicketID: history.TicketID,
		Version:  history.Version,
		Events:   make([]historyEntryResponse, 0, len(history.Entries)),
	}
	for _, e := range history.Entries {
		resp.Events = append(resp.Events, historyEntryResponse{
			Version:   e.Version,
			Type:      e.Type,
			Data:      e.Data,
			CreatedAt: e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleBurn(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := ticketID(w, r)
	if !ok {
		return
	}
	if err := h.service.Burn(r.Context(), caller, id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := ticketID(w, r)
	if !ok {
		return
	}

	var err error
	switch chi.URLParam(r, "transition") {
	case "use":
		err = h.service.UseTicket(r.Context(), caller, id)
	case "block":
		err = h.service.BlockTicket(r.Context(), caller, id)
	case "bind":
		err = h.service.BindTicket(r.Context(), caller, id)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeTicket(w, r, http.StatusOK, id)
}

func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := ticketID(w, r)
	if !ok {
		return
	}
	var req struct {
		From domain.Address `json:"from"`
		To   domain.Address `json:"to"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.From.IsZero() {
		req.From = caller
	}
	if err := h.service.TransferFrom(r.Context(), caller, req.From, req.To, id); err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeTicket(w, r, http.StatusOK, id)
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := ticketID(w, r)
	if !ok {
		return
	}
	var req struct {
		To domain.Address `json:"to"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.service.Approve(r.Context(), caller, req.To, id); err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeTicket(w, r, http.StatusOK, id)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := ticketID(w, r)
	if !ok {
		return
	}
	var req struct {
		Price string `json:"price"`
	}
	if !decode(w, r, &req) {
		return
	}
	price, ok := parseAmount(w, req.Price)
	if !ok {
		return
	}
	if err := h.service.ListForResale(r.Context(), caller, id, price); err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeTicket(w, r, http.StatusOK, id)
}

func (h *Handler) HandleResalePurchase(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := ticketID(w, r)
	if !ok {
		return
	}
	var req struct {
		Seller domain.Address `json:"seller"`
		Value  string         `json:"value"`
	}
	if !decode(w, r, &req) {
		return
	}
	value, ok := parseAmount(w, req.Value)
	if !ok {
		return
	}
	call := ledger.Call{Caller: caller, Value: value}
	if err := h.service.ResalePurchase(r.Context(), call, id, req.Seller); err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeTicket(w, r, http.StatusOK, id)
}

func (h *Handler) HandleSetOperator(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req struct {
		Approved bool `json:"approved"`
	}
	if !decode(w, r, &req) {
		return
	}
	operator := domain.Address(chi.URLParam(r, "operator"))
	if err := h.service.SetApprovalForAll(r.Context(), caller, operator, req.Approved); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"operator": operator, "approved": req.Approved})
}

func (h *Handler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req struct {
		Recipient domain.Address `json:"recipient"`
	}
	if !decode(w, r, &req) {
		return
	}
	amount, err := h.service.Withdraw(r.Context(), caller, req.Recipient)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"recipient": req.Recipient.String(), "amount": amount.String()})
}

func (h *Handler) HandlePause(w http.ResponseWriter, r *http.Request) {
	h.handlePauseToggle(w, r, h.service.Pause)
}

func (h *Handler) HandleUnpause(w http.ResponseWriter, r *http.Request) {
	h.handlePauseToggle(w, r, h.service.Unpause)
}

func (h *Handler) handlePauseToggle(w http.ResponseWriter, r *http.Request, toggle func(context.Context, domain.Address) error) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	if err := toggle(r.Context(), caller); err != nil {
		writeServiceError(w, err)
		return
	}
	h.HandleStatus(w, r)
}

func (h *Handler) HandleRoleMembers(w http.ResponseWriter, r *http.Request) {
	role, ok := roleParam(w, r)
	if !ok {
		return
	}
	members, err := h.service.RoleMembers(r.Context(), role)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"role":    role,
		"count":   len(members),
		"members": members,
	})
}

func (h *Handler) HandleRoleMember(w http.ResponseWriter, r *http.Request) {
	role, ok := roleParam(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_index", "index must be an integer")
		return
	}
	member, err := h.service.RoleMember(r.Context(), role, index)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"role": role, "index": index, "member": member})
}

func (h *Handler) HandleGrantRole(w http.ResponseWriter, r *http.Request) {
	h.handleRoleChange(w, r, h.service.GrantRole)
}

// HandleRevokeRole revokes a role, or renounces it when the caller names itself.
func (h *Handler) HandleRevokeRole(w http.ResponseWriter, r *http.Request) {
	h.handleRoleChange(w, r, func(ctx context.Context, caller domain.Address, role access.Role, account domain.Address) error {
		if caller == account {
			return h.service.RenounceRole(ctx, caller, role)
		}
		return h.service.RevokeRole(ctx, caller, role, account)
	})
}

func (h *Handler) handleRoleChange(w http.ResponseWriter, r *http.Request, change func(context.Context, domain.Address, access.Role, domain.Address) error) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	role, ok := roleParam(w, r)
	if !ok {
		return
	}
	account := domain.Address(chi.URLParam(r, "address"))
	if err := change(r.Context(), caller, role, account); err != nil {
		writeServiceError(w, err)
		return
	}
	has, err := h.service.HasRole(r.Context(), role, account)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"role": role, "account": account, "granted": has})
}

func (h *Handler) HandleAccount(w http.ResponseWriter, r *http.Request) {
	account := domain.Address(chi.URLParam(r, "address"))
	resp := accountResponse{
		Address: account,
		Balance: h.service.AccountBalance(r.Context(), account).String(),
		Tickets: h.service.BalanceOf(r.Context(), account),
		Roles:   []access.Role{},
	}
	for _, role := range access.Roles {
		has, err := h.service.HasRole(r.Context(), role, account)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if has {
			resp.Roles = append(resp.Roles, role)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeTicket(w http.ResponseWriter, r *http.Request, status int, id uint64) {
	view, err := h.service.Ticket(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, status, ticketResponse{
		ID:          view.ID,
		Owner:       view.Owner,
		Approved:    view.Approved,
		Status:      view.Status,
		ResalePrice: view.ResalePrice.String(),
	})
}

func requireCaller(w http.ResponseWriter, r *http.Request) (domain.Address, bool) {
	caller, ok := auth.Caller(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "caller identity required")
		return domain.ZeroAddress, false
	}
	return caller, true
}

func ticketID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_ticket_id", "ticket id must be an unsigned integer")
		return 0, false
	}
	return id, true
}

func roleParam(w http.ResponseWriter, r *http.Request) (access.Role, bool) {
	role, err := access.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		writeServiceError(w, err)
		return "", false
	}
	return role, true
}

func parseAmount(w http.ResponseWriter, s string) (*big.Int, bool) {
	v, err := domain.ParseAmount(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_amount", fmt.Sprintf("invalid amount %q", s))
		return nil, false
	}
	return v, true
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "invalid request body")
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, err error) {
	code, status := ErrorCode(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeError(w, status, code, msg)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
