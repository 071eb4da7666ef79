// internal/ledger/ledger.go
package ledger

import (
	"context"
	"sync"
)

// Snapshot is state that can be copied so an operation can run against the copy.
type Snapshot[S any] interface {
	Clone() S
}

// Ledger serialises operations over a state value and applies each one all-or-nothing.
// An operation runs against a clone; the clone replaces the live state only when the
// operation and the commit callback both succeed.
type Ledger[S Snapshot[S]] struct {
	mu    sync.Mutex
	state S
}

func New[S Snapshot[S]](initial S) *Ledger[S] {
	return &Ledger[S]{state: initial}
}

// CommitFunc runs after a successful operation and before the new state is installed.
// Returning an error discards the operation.
type CommitFunc[S any] func(ctx context.Context, next S) error

// Execute runs fn against a copy of the state.
func (l *Ledger[S]) Execute(ctx context.Context, fn func(ctx context.Context, tx S) error, commit CommitFunc[S]) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state.Clone()
	if err := fn(ctx, next); err != nil {
		return err
	}
	if commit != nil {
		if err := commit(ctx, next); err != nil {
			return err
		}
	}
	l.state = next
	return nil
}

// Read runs fn against the live state. fn must not mutate it.
func (l *Ledger[S]) Read(fn func(st S) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.state)
}
