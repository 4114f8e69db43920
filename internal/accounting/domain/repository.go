package domain

import (
	"context"
	"time"
)

// JournalRepository persists journal entries append-only.
type JournalRepository interface {
	SaveEntry(ctx context.Context, entry *JournalEntry) error
	// ListEntries returns entries dated within [from, to]; zero times mean
	// unbounded.
	ListEntries(ctx context.Context, from, to time.Time) ([]*JournalEntry, error)
	// ExistsBySourceEvent reports whether an entry for the source event id is
	// already posted. The consumer uses it for at-least-once delivery.
	ExistsBySourceEvent(ctx context.Context, sourceEventID string) (bool, error)
}
