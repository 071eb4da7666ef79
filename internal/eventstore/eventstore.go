package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")
	ErrInvalidVersion      = errors.New("invalid version number")
)

// checkRange validates a LoadEvents version window. A zero toVersion means no upper bound.
func checkRange(fromVersion, toVersion int) error {
	if fromVersion < 0 || toVersion < 0 || (toVersion > 0 && toVersion < fromVersion) {
		return fmt.Errorf("%w: range [%d, %d]", ErrInvalidVersion, fromVersion, toVersion)
	}
	return nil
}

// Event is a committed domain event with its metadata
type Event struct {
	ID            int64                  `json:"id" db:"id"`
	AggregateID   uuid.UUID              `json:"aggregate_id" db:"aggregate_id"`
	AggregateType string                 `json:"aggregate_type" db:"aggregate_type"`
	EventType     string                 `json:"event_type" db:"event_type"`
	EventData     json.RawMessage        `json:"event_data" db:"event_data"`
	Metadata      map[string]interface{} `json:"metadata" db:"metadata"`
	Version       int                    `json:"version" db:"version"`
	CreatedAt     time.Time              `json:"created_at" db:"created_at"`
}

// Journal is an append-only event log. Append assigns IDs and per-aggregate versions
// and stores the whole batch or nothing.
type Journal interface {
	Append(ctx context.Context, events []Event) error
	LoadEvents(ctx context.Context, aggregateID uuid.UUID, fromVersion, toVersion int) ([]Event, error)
	GetCurrentVersion(ctx context.Context, aggregateID uuid.UUID) (int, error)
	StreamEvents(ctx context.Context, fromID int64, batchSize int) ([]Event, error)
}
