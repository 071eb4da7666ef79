package clients

import (
	"context"
	"math/big"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realticket/internal/access"
	"realticket/internal/auth"
	"realticket/internal/domain"
	"realticket/internal/marketplace"
	"realticket/internal/settings"
	"realticket/internal/ticket"
)

func newTestMarketplace(t *testing.T) *MarketplaceClient {
	t.Helper()
	svc, err := marketplace.NewService(context.Background(), nil, marketplace.Config{
		Deployer: "admin",
		Settings: settings.Defaults(),
	})
	require.NoError(t, err)
	keys, err := auth.ParseKeyring("admin:admin-key,alice:alice-key,bob:bob-key")
	require.NoError(t, err)

	r := chi.NewRouter()
	marketplace.NewHandler(svc).Routes(r, auth.Authenticate(keys))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return NewMarketplaceClient(srv.URL)
}

func TestMarketplaceClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	base := newTestMarketplace(t)
	admin := base.WithCredentials("admin", "admin-key")
	alice := base.WithCredentials("alice", "alice-key")
	bob := base.WithCredentials("bob", "bob-key")

	require.NoError(t, base.Health(ctx))

	bought, err := alice.Purchase(ctx, big.NewInt(11e15))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), bought.ID)
	assert.Equal(t, domain.Address("alice"), bought.Owner)
	assert.Equal(t, ticket.Ready, bought.Status)

	listed, err := alice.List(ctx, bought.ID, big.NewInt(1e16))
	require.NoError(t, err)
	assert.Equal(t, "10000000000000000", listed.ResalePrice.String())

	sold, err := bob.Buy(ctx, bought.ID, "alice", big.NewInt(2e16))
	require.NoError(t, err)
	assert.Equal(t, domain.Address("bob"), sold.Owner)
	assert.Equal(t, 0, sold.ResalePrice.Sign())

	acct, err := base.Account(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "10000000000000000", acct.Balance.String())

	minted, err := admin.Mint(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), minted.ID)

	used, err := admin.Use(ctx, minted.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.Used, used.Status)

	summary, err := base.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), summary.TotalMinted)
	assert.Equal(t, "21000000000000000", summary.Treasury.String())

	paid, err := admin.Withdraw(ctx, "vault")
	require.NoError(t, err)
	assert.Equal(t, "21000000000000000", paid.String())

	require.NoError(t, admin.GrantRole(ctx, access.Bouncer, "bob"))
	members, err := base.RoleMembers(ctx, access.Bouncer)
	require.NoError(t, err)
	assert.Equal(t, []domain.Address{"admin", "bob"}, members)
	member, err := base.RoleMember(ctx, access.Bouncer, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.Address("bob"), member)
	require.NoError(t, bob.RevokeRole(ctx, access.Bouncer, "bob"))

	s, err := admin.SetSetting(ctx, "capacity", "2")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), s.Capacity)
}

func TestMarketplaceClientErrors(t *testing.T) {
	ctx := context.Background()
	base := newTestMarketplace(t)
	admin := base.WithCredentials("admin", "admin-key")
	alice := base.WithCredentials("alice", "alice-key")

	_, err := base.Purchase(ctx, big.NewInt(11e15))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.StatusCode)
	assert.Equal(t, "unauthenticated", apiErr.Code)

	_, err = alice.Purchase(ctx, big.NewInt(1))
	assert.ErrorIs(t, err, domain.ErrInsufficientValue)

	_, err = alice.Ticket(ctx, 9)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	t0, err := alice.Purchase(ctx, big.NewInt(11e15))
	require.NoError(t, err)
	require.NoError(t, admin.Pause(ctx))
	_, err = alice.Transfer(ctx, t0.ID, "", "bob")
	assert.ErrorIs(t, err, domain.ErrPaused)
	require.NoError(t, admin.Unpause(ctx))
	assert.ErrorIs(t, admin.Unpause(ctx), domain.ErrNotPaused)

	_, err = alice.Withdraw(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestMarketplaceClientTicketHistory(t *testing.T) {
	ctx := context.Background()
	base := newTestMarketplace(t)
	alice := base.WithCredentials("alice", "alice-key")

	bought, err := alice.Purchase(ctx, big.NewInt(11e15))
	require.NoError(t, err)
	_, err = alice.List(ctx, bought.ID, big.NewInt(5e15))
	require.NoError(t, err)

	history, err := base.TicketHistory(ctx, bought.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, history.Version)
	require.Len(t, history.Entries, 2)
	assert.Equal(t, marketplace.EventPrimarySale, history.Entries[0].Type)
	assert.Equal(t, marketplace.EventTicketListed, history.Entries[1].Type)
	assert.False(t, history.Entries[1].CreatedAt.IsZero())

	_, err = base.TicketHistory(ctx, 42, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
