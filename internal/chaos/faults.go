// internal/chaos/faults.go
package chaos

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"realticket/internal/eventstore"
)

var ErrInjectedFault = errors.New("injected journal fault")

// FaultyJournal wraps a Journal and fails or delays appends on demand. Reads pass through.
type FaultyJournal struct {
	eventstore.Journal

	mu          sync.Mutex
	failureRate float64
	latency     time.Duration
	appends     int
	failures    int
}

func NewFaultyJournal(inner eventstore.Journal) *FaultyJournal {
	return &FaultyJournal{Journal: inner}
}

// InjectFailure makes a fraction of appends fail; 1 fails all of them.
func (j *FaultyJournal) InjectFailure(rate float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.failureRate = rate
}

func (j *FaultyJournal) InjectLatency(d time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.latency = d
}

// Clear removes every injected fault.
func (j *FaultyJournal) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.failureRate = 0
	j.latency = 0
}

// Stats returns the number of appends attempted and failed by injection.
func (j *FaultyJournal) Stats() (appends, failures int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.appends, j.failures
}

func (j *FaultyJournal) Append(ctx context.Context, events []eventstore.Event) error {
	j.mu.Lock()
	j.appends++
	latency := j.latency
	fail := j.failureRate >= 1 || (j.failureRate > 0 && rand.Float64() < j.failureRate)
	if fail {
		j.failures++
	}
	j.mu.Unlock()

	if latency > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(latency):
		}
	}
	if fail {
		return ErrInjectedFault
	}
	return j.Journal.Append(ctx, events)
}

// CountEvents returns how many journal entries of eventType exist, across all aggregates.
func CountEvents(ctx context.Context, j eventstore.Journal, eventType string) (int, error) {
	const batch = 500
	var from int64
	n := 0
	for {
		events, err := j.StreamEvents(ctx, from, batch)
		if err != nil {
			return 0, err
		}
		for _, e := range events {
			if e.EventType == eventType {
				n++
			}
		}
		if len(events) < batch {
			return n, nil
		}
		from = events[len(events)-1].ID
	}
}

var _ eventstore.Journal = (*FaultyJournal)(nil)
