package eventstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB attempts to connect to a PostgreSQL database for testing.
// It skips the test if the connection cannot be established.
func setupTestDB(t testing.TB) *sql.DB {
	t.Helper()

	pgUser := os.Getenv("PGUSER")
	pgPassword := os.Getenv("PGPASSWORD")
	pgHost := os.Getenv("PGHOST")
	pgPort := os.Getenv("PGPORT")
	pgDB := os.Getenv("PGDATABASE")

	if pgUser == "" {
		pgUser = "user"
	}
	if pgPassword == "" {
		pgPassword = "password"
	}
	if pgHost == "" {
		pgHost = "localhost"
	}
	if pgPort == "" {
		pgPort = "5432"
	}
	if pgDB == "" {
		pgDB = "testdb"
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		pgHost, pgPort, pgUser, pgPassword, pgDB)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to open database connection: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping postgres tests: could not connect to postgres: %v", err)
	}

	if err := NewPostgresStore(db).Migrate(context.Background()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	return db
}

type TestEvent struct {
	Message string `json:"message"`
}

func TestPostgresAppendAndLoad(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	store := NewPostgresStore(db)
	ctx := context.Background()
	aggregateID := uuid.New()

	require.NoError(t, store.Append(ctx, []Event{
		testEvent(t, aggregateID, "TicketMinted"),
		testEvent(t, aggregateID, "TicketListed"),
	}))
	require.NoError(t, store.Append(ctx, []Event{testEvent(t, aggregateID, "TicketTransferred")}))

	events, err := store.LoadEvents(ctx, aggregateID, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{events[0].Version, events[1].Version, events[2].Version})
	assert.Equal(t, "TicketTransferred", events[2].EventType)

	version, err := store.GetCurrentVersion(ctx, aggregateID)
	require.NoError(t, err)
	assert.Equal(t, 3, version)

	streamed, err := store.StreamEvents(ctx, events[0].ID, 2)
	require.NoError(t, err)
	require.Len(t, streamed, 2)
	assert.Greater(t, streamed[0].ID, events[0].ID)
}

func BenchmarkAppendEvents(b *testing.B) {
	db := setupTestDB(b)
	defer db.Close()
	store := NewPostgresStore(db)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		events := []Event{testEvent(b, uuid.New(), fmt.Sprintf("event %d", i))}
		b.StartTimer()

		if err := store.Append(context.Background(), events); err != nil {
			b.Fatalf("Append failed: %v", err)
		}
	}
}

func BenchmarkLoadEvents(b *testing.B) {
	db := setupTestDB(b)
	defer db.Close()
	store := NewPostgresStore(db)

	aggregateID := uuid.New()
	for i := 0; i < 10; i++ {
		if err := store.Append(context.Background(), []Event{testEvent(b, aggregateID, "TestEvent")}); err != nil {
			b.Fatalf("failed to setup events for benchmark: %v", err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := store.LoadEvents(context.Background(), aggregateID, 0, 0); err != nil {
			b.Fatalf("LoadEvents failed: %v", err)
		}
	}
}
