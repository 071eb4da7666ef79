// internal/clients/marketplace_client.go
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"realticket/internal/access"
	"realticket/internal/auth"
	"realticket/internal/domain"
	"realticket/internal/marketplace"
	"realticket/internal/settings"
	"realticket/internal/ticket"
)

// APIError is a non-2xx response. It unwraps to the matching domain error when the code is known.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return marketplace.ErrorForCode(e.Code)
}

// Account is the public view of an address.
type Account struct {
	Address domain.Address
	Balance *big.Int
	Tickets uint64
	Roles   []access.Role
}

type MarketplaceClient struct {
	baseURL    string
	account    domain.Address
	apiKey     string
	httpClient *http.Client
}

func NewMarketplaceClient(baseURL string) *MarketplaceClient {
	return &MarketplaceClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithCredentials returns a copy that authenticates as account.
func (c *MarketplaceClient) WithCredentials(account domain.Address, apiKey string) *MarketplaceClient {
	cp := *c
	cp.account = account
	cp.apiKey = apiKey
	return &cp
}

type ticketBody struct {
	ID          uint64         `json:"id"`
	Owner       domain.Address `json:"owner"`
	Approved    domain.Address `json:"approved"`
	Status      ticket.Status  `json:"status"`
	ResalePrice string         `json:"resale_price"`
}

func (b ticketBody) view() (marketplace.TicketView, error) {
	price, err := domain.ParseAmount(b.ResalePrice)
	if err != nil {
		return marketplace.TicketView{}, err
	}
	return marketplace.TicketView{
		ID:          b.ID,
		Owner:       b.Owner,
		Approved:    b.Approved,
		Status:      b.Status,
		ResalePrice: price,
	}, nil
}

type settingsBody struct {
	BaseFee   string `json:"base_fee"`
	BasePrice string `json:"base_price"`
	Capacity  uint64 `json:"capacity"`
}

func (b settingsBody) settings() (settings.Settings, error) {
	fee, err := domain.ParseAmount(b.BaseFee)
	if err != nil {
		return settings.Settings{}, err
	}
	price, err := domain.ParseAmount(b.BasePrice)
	if err != nil {
		return settings.Settings{}, err
	}
	return settings.New(fee, price, b.Capacity)
}

func (c *MarketplaceClient) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

func (c *MarketplaceClient) Status(ctx context.Context) (marketplace.Summary, error) {
	var body struct {
		Paused      bool         `json:"paused"`
		Treasury    string       `json:"treasury"`
		TotalMinted uint64       `json:"total_minted"`
		Outstanding int          `json:"outstanding"`
		Settings    settingsBody `json:"settings"`
	}
	if err := c.do(ctx, http.MethodGet, "/status", nil, &body); err != nil {
		return marketplace.Summary{}, err
	}
	treasury, err := domain.ParseAmount(body.Treasury)
	if err != nil {
		return marketplace.Summary{}, err
	}
	s, err := body.Settings.settings()
	if err != nil {
		return marketplace.Summary{}, err
	}
	return marketplace.Summary{
		Paused:      body.Paused,
		Treasury:    treasury,
		TotalMinted: body.TotalMinted,
		Outstanding: body.Outstanding,
		Settings:    s,
	}, nil
}

func (c *MarketplaceClient) Settings(ctx context.Context) (settings.Settings, error) {
	var body settingsBody
	if err := c.do(ctx, http.MethodGet, "/settings", nil, &body); err != nil {
		return settings.Settings{}, err
	}
	return body.settings()
}

func (c *MarketplaceClient) UpdateSettings(ctx context.Context, s settings.Settings) (settings.Settings, error) {
	req := settingsBody{BaseFee: s.BaseFee.String(), BasePrice: s.BasePrice.String(), Capacity: s.Capacity}
	var body settingsBody
	if err := c.do(ctx, http.MethodPut, "/settings", req, &body); err != nil {
		return settings.Settings{}, err
	}
	return body.settings()
}

// SetSetting changes one of "fee", "price" or "capacity".
func (c *MarketplaceClient) SetSetting(ctx context.Context, field, value string) (settings.Settings, error) {
	var body settingsBody
	req := map[string]string{"value": value}
	if err := c.do(ctx, http.MethodPut, "/settings/"+url.PathEscape(field), req, &body); err != nil {
		return settings.Settings{}, err
	}
	return body.settings()
}

func (c *MarketplaceClient) Purchase(ctx context.Context, value *big.Int) (marketplace.TicketView, error) {
	return c.ticketCall(ctx, http.MethodPost, "/purchase", map[string]string{"value": value.String()})
}

func (c *MarketplaceClient) Mint(ctx context.Context, to domain.Address) (marketplace.TicketView, error) {
	return c.ticketCall(ctx, http.MethodPost, "/tickets", map[string]domain.Address{"to": to})
}

func (c *MarketplaceClient) Ticket(ctx context.Context, id uint64) (marketplace.TicketView, error) {
	return c.ticketCall(ctx, http.MethodGet, ticketPath(id, ""), nil)
}

// TicketHistory fetches the ticket's journal entries after version since.
func (c *MarketplaceClient) TicketHistory(ctx context.Context, id uint64, since int) (marketplace.History, error) {
	var body struct {
		TicketID uint64 `json:"ticket_id"`
		Version  int    `json:"version"`
		Events   []struct {
			Version   int             `json:"version"`
			Type      string          `json:"type"`
			Data      json.RawMessage `json:"data"`
			CreatedAt time.Time       `json:"created_at"`
		} `json:"events"`
	}
	path := fmt.Sprintf("/tickets/%d/history?since=%d", id, since)
	if err := c.do(ctx, http.MethodGet, path, nil, &body); err != nil {
		return marketplace.History{}, err
	}
	history := marketplace.History{TicketID: body.TicketID, Version: body.Version}
	for _, e := range body.Events {
		history.Entries = append(history.Entries, marketplace.HistoryEntry{
			Version:   e.Version,
			Type:      e.Type,
			Data:      e.Data,
			CreatedAt: e.CreatedAt,
		})
	}
	return history, nil
}

func (c *MarketplaceClient) Burn(ctx context.Context, id uint64) error {
	return c.do(ctx, http.MethodDelete, ticketPath(id, ""), nil, nil)
}

func (c *MarketplaceClient) Use(ctx context.Context, id uint64) (marketplace.TicketView, error) {
	return c.ticketCall(ctx, http.MethodPost, ticketPath(id, "use"), nil)
}

func (c *MarketplaceClient) Block(ctx context.Context, id uint64) (marketplace.TicketView, error) {
	return c.ticketCall(ctx, http.MethodPost, ticketPath(id, "block"), nil)
}

func (c *MarketplaceClient) Bind(ctx context.Context, id uint64) (marketplace.TicketView, error) {
	return c.ticketCall(ctx, http.MethodPost, ticketPath(id, "bind"), nil)
}

// Transfer moves id from from to to. An empty from means the authenticated account.
func (c *MarketplaceClient) Transfer(ctx context.Context, id uint64, from, to domain.Address) (marketplace.TicketView, error) {
	req := map[string]domain.Address{"from": from, "to": to}
	return c.ticketCall(ctx, http.MethodPost, ticketPath(id, "transfer"), req)
}

func (c *MarketplaceClient) Approve(ctx context.Context, id uint64, to domain.Address) (marketplace.TicketView, error) {
	return c.ticketCall(ctx, http.MethodPost, ticketPath(id, "approve"), map[string]domain.Address{"to": to})
}

func (c *MarketplaceClient) List(ctx context.Context, id uint64, price *big.Int) (marketplace.TicketView, error) {
	return c.ticketCall(ctx, http.MethodPut, ticketPath(id, "listing"), map[string]string{"price": price.String()})
}

func (c *MarketplaceClient) Buy(ctx context.Context, id uint64, seller domain.Address, value *big.Int) (marketplace.TicketView, error) {
	req := map[string]string{"seller": seller.String(), "value": value.String()}
	return c.ticketCall(ctx, http.MethodPost, ticketPath(id, "buy"), req)
}

func (c *MarketplaceClient) SetOperator(ctx context.Context, operator domain.Address, approved bool) error {
	path := "/operators/" + url.PathEscape(operator.String())
	return c.do(ctx, http.MethodPut, path, map[string]bool{"approved": approved}, nil)
}

func (c *MarketplaceClient) Withdraw(ctx context.Context, recipient domain.Address) (*big.Int, error) {
	var body struct {
		Amount string `json:"amount"`
	}
	if err := c.do(ctx, http.MethodPost, "/withdraw", map[string]domain.Address{"recipient": recipient}, &body); err != nil {
		return nil, err
	}
	return domain.ParseAmount(body.Amount)
}

func (c *MarketplaceClient) Pause(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/pause", nil, nil)
}

func (c *MarketplaceClient) Unpause(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/unpause", nil, nil)
}

func (c *MarketplaceClient) RoleMembers(ctx context.Context, role access.Role) ([]domain.Address, error) {
	var body struct {
		Members []domain.Address `json:"members"`
	}
	if err := c.do(ctx, http.MethodGet, rolePath(role)+"/members", nil, &body); err != nil {
		return nil, err
	}
	return body.Members, nil
}

func (c *MarketplaceClient) RoleMember(ctx context.Context, role access.Role, index int) (domain.Address, error) {
	var body struct {
		Member domain.Address `json:"member"`
	}
	path := rolePath(role) + "/members/" + strconv.Itoa(index)
	if err := c.do(ctx, http.MethodGet, path, nil, &body); err != nil {
		return domain.ZeroAddress, err
	}
	return body.Member, nil
}

func (c *MarketplaceClient) GrantRole(ctx context.Context, role access.Role, account domain.Address) error {
	return c.do(ctx, http.MethodPut, holderPath(role, account), nil, nil)
}

// RevokeRole revokes role from account, or renounces it when account is the caller.
func (c *MarketplaceClient) RevokeRole(ctx context.Context, role access.Role, account domain.Address) error {
	return c.do(ctx, http.MethodDelete, holderPath(role, account), nil, nil)
}

func (c *MarketplaceClient) Account(ctx context.Context, address domain.Address) (Account, error) {
	var body struct {
		Address domain.Address `json:"address"`
		Balance string         `json:"balance"`
		Tickets uint64         `json:"tickets"`
		Roles   []access.Role  `json:"roles"`
	}
	if err := c.do(ctx, http.MethodGet, "/accounts/"+url.PathEscape(address.String()), nil, &body); err != nil {
		return Account{}, err
	}
	balance, err := domain.ParseAmount(body.Balance)
	if err != nil {
		return Account{}, err
	}
	return Account{Address: body.Address, Balance: balance, Tickets: body.Tickets, Roles: body.Roles}, nil
}

func (c *MarketplaceClient) ticketCall(ctx context.Context, method, path string, req interface{}) (marketplace.TicketView, error) {
	var body ticketBody
	if err := c.do(ctx, method, path, req, &body); err != nil {
		return marketplace.TicketView{}, err
	}
	return body.view()
}

func (c *MarketplaceClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !c.account.IsZero() {
		req.Header.Set(auth.HeaderAccount, c.account.String())
		req.Header.Set(auth.HeaderAPIKey, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var body struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.NewDecoder(resp.Body).Decode(&body) == nil {
			apiErr.Code = body.Code
			apiErr.Message = body.Error
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	return nil
}

func ticketPath(id uint64, action string) string {
	p := "/tickets/" + strconv.FormatUint(id, 10)
	if action != "" {
		p += "/" + action
	}
	return p
}

func rolePath(role access.Role) string {
	return "/roles/" + url.PathEscape(string(role))
}

func holderPath(role access.Role, account domain.Address) string {
	return rolePath(role) + "/holders/" + url.PathEscape(account.String())
}
