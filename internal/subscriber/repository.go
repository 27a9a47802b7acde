package subscriber

import (
	"context"

	"github.com/pauljasperdev/gemhog/internal/domain"
)

// SubscribeResult reports what Subscribe did for an email.
type SubscribeResult struct {
	ID string
	// IsNew is true for a first-ever signup AND for a re-subscription after
	// an unsubscribe; both are fresh subscriptions for notification
	// purposes. False when the record already exists as pending or active.
	IsNew bool
}

// Repository defines the data access contract for subscriber records.
// All operations are keyed by email; the store guarantees at most one record
// per address. Writes are atomic per email.
type Repository interface {
	// Subscribe creates a pending record, revives an unsubscribed one
	// (resetting subscribed_at and clearing unsubscribed_at), or leaves an
	// existing pending/active record untouched. Two concurrent calls for
	// the same new email must not duplicate-insert; the unique constraint
	// on email resolves the race.
	Subscribe(ctx context.Context, email string) (SubscribeResult, error)

	// Verify marks the record active and stamps verified_at.
	// Returns ErrNotFound if no record exists.
	Verify(ctx context.Context, email string) error

	// Unsubscribe marks the record unsubscribed and stamps unsubscribed_at.
	// Returns ErrNotFound if no record exists.
	Unsubscribe(ctx context.Context, email string) error

	// FindByEmail returns the record, or nil if none exists.
	FindByEmail(ctx context.Context, email string) (*domain.Subscriber, error)
}
