package eventstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps events in process. It is the journal used when no database is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	events   []Event
	versions map[uuid.UUID]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{versions: make(map[uuid.UUID]int)}
}

func (m *MemoryStore) Append(ctx context.Context, events []Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	next := int64(len(m.events))
	versions := make(map[uuid.UUID]int)
	batch := make([]Event, 0, len(events))
	for _, event := range events {
		v, ok := versions[event.AggregateID]
		if !ok {
			v = m.versions[event.AggregateID]
		}
		v++
		versions[event.AggregateID] = v

		next++
		event.ID = next
		event.Version = v
		event.CreatedAt = now
		batch = append(batch, event)
	}

	m.events = append(m.events, batch...)
	for id, v := range versions {
		m.versions[id] = v
	}
	return nil
}

func (m *MemoryStore) LoadEvents(ctx context.Context, aggregateID uuid.UUID, fromVersion, toVersion int) ([]Event, error) {
	if err := checkRange(fromVersion, toVersion); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Event
	for _, event := range m.events {
		if event.AggregateID != aggregateID || event.Version < fromVersion {
			continue
		}
		if toVersion > 0 && event.Version > toVersion {
			continue
		}
		out = append(out, event)
	}
	return out, nil
}

func (m *MemoryStore) GetCurrentVersion(ctx context.Context, aggregateID uuid.UUID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.versions[aggregateID], nil
}

func (m *MemoryStore) StreamEvents(ctx context.Context, fromID int64, batchSize int) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if fromID < 0 {
		fromID = 0
	}
	var out []Event
	for i := fromID; i < int64(len(m.events)) && len(out) < batchSize; i++ {
		out = append(out, m.events[i])
	}
	return out, nil
}
