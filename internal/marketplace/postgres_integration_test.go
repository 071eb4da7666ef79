package marketplace

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realticket/internal/domain"
	"realticket/internal/eventstore"
	"realticket/internal/ledger"
	"realticket/internal/settings"
)

// setupJournalDB connects to DATABASE_URL and empties the journal. It skips when no database is reachable.
func setupJournalDB(t *testing.T) *eventstore.PostgresStore {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("skipping postgres integration tests: DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping postgres integration tests: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := eventstore.NewPostgresStore(db)
	require.NoError(t, store.Migrate(context.Background()))
	_, err = db.Exec("TRUNCATE TABLE events RESTART IDENTITY")
	require.NoError(t, err)
	return store
}

func TestPostgresJournalFullFlow(t *testing.T) {
	store := setupJournalDB(t)
	ctx := context.Background()
	svc, err := NewService(ctx, store, Config{Deployer: deployer, Settings: settings.Defaults()})
	require.NoError(t, err)

	id, err := svc.PrimaryPurchase(ctx, ledger.Call{Caller: alice, Value: amount(11e15)})
	require.NoError(t, err)
	require.NoError(t, svc.ListForResale(ctx, alice, id, basePrice))
	require.NoError(t, svc.ResalePurchase(ctx, ledger.Call{Caller: bob, Value: amount(2e16)}, id, alice))
	require.NoError(t, svc.UseTicket(ctx, deployer, id))
	_, err = svc.Withdraw(ctx, deployer, vault)
	require.NoError(t, err)

	events, err := store.LoadEvents(ctx, TicketAggregateID(id), 0, 0)
	require.NoError(t, err)
	types := make([]string, 0, len(events))
	for i, e := range events {
		assert.Equal(t, i+1, e.Version)
		types = append(types, e.EventType)
	}
	assert.Equal(t, []string{
		EventTicketMinted, EventPrimarySale, EventTicketListed,
		EventTicketTransferred, EventResaleSale, EventTicketUsed,
	}, types)

	version, err := store.GetCurrentVersion(ctx, ContractAggregateID)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestPostgresJournalConcurrentPurchases(t *testing.T) {
	store := setupJournalDB(t)
	ctx := context.Background()
	svc, err := NewService(ctx, store, Config{Deployer: deployer, Settings: settings.Defaults().WithCapacity(5)})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	sold := 0
	for _, buyer := range []domain.Address{alice, bob, carol, alice, bob, carol, alice, bob} {
		buyer := buyer
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.PrimaryPurchase(ctx, ledger.Call{Caller: buyer, Value: amount(11e15)}); err == nil {
				mu.Lock()
				sold++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, sold)
	events, err := store.StreamEvents(ctx, 0, 100)
	require.NoError(t, err)
	assert.Len(t, events, 10)
}

func TestPostgresJournalRestart(t *testing.T) {
	store := setupJournalDB(t)
	ctx := context.Background()
	cfg := Config{Deployer: deployer, Settings: settings.Defaults()}

	first, err := NewService(ctx, store, cfg)
	require.NoError(t, err)
	id := buy(t, first, alice)
	require.NoError(t, first.ListForResale(ctx, alice, id, basePrice))

	second, err := NewService(ctx, store, cfg)
	require.NoError(t, err)
	price, err := second.SalePrice(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, price.Cmp(basePrice))

	next := buy(t, second, bob)
	assert.Equal(t, id+1, next)

	history, err := second.TicketHistory(ctx, next, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, history.Version)
}
