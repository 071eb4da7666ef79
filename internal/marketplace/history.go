// internal/marketplace/history.go
package marketplace

import (
	"context"
	"fmt"

	"realticket/internal/domain"
	"realticket/internal/eventstore"
)

// TicketHistory returns the journalled changes to a ticket after version since. Burned
// tickets keep their history.
func (s *service) TicketHistory(ctx context.Context, id uint64, since int) (History, error) {
	if since < 0 {
		return History{}, fmt.Errorf("%w: since %d", eventstore.ErrInvalidVersion, since)
	}
	aggregate := TicketAggregateID(id)

	current, err := s.journal.GetCurrentVersion(ctx, aggregate)
	if err != nil {
		return History{}, fmt.Errorf("failed to read ticket version: %w", err)
	}
	if current == 0 {
		return History{}, fmt.Errorf("%w: ticket %d has no history", domain.ErrNotFound, id)
	}

	history := History{TicketID: id, Version: current}
	if since >= current {
		return history, nil
	}
	events, err := s.journal.LoadEvents(ctx, aggregate, since+1, current)
	if err != nil {
		return History{}, fmt.Errorf("failed to load ticket history: %w", err)
	}
	for _, e := range events {
		history.Entries = append(history.Entries, HistoryEntry{
			Version:   e.Version,
			Type:      e.EventType,
			Data:      e.EventData,
			CreatedAt: e.CreatedAt,
		})
	}
	return history, nil
}
