// Package postgres implements the service-layer repository interfaces
// against PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/pauljasperdev/gemhog/internal/domain"
	"github.com/pauljasperdev/gemhog/internal/subscriber"
)

// uniqueViolation is the Postgres error code for a unique constraint breach.
const uniqueViolation = "23505"

// SubscriberRepo implements subscriber.Repository against PostgreSQL.
// Emails are stored exactly as submitted; uniqueness is case-sensitive.
type SubscriberRepo struct{ db *sql.DB }

// NewSubscriberRepo creates a Postgres-backed subscriber repository.
func NewSubscriberRepo(db *sql.DB) *SubscriberRepo { return &SubscriberRepo{db: db} }

// Subscribe inserts a pending record, revives an unsubscribed one, or leaves
// a pending/active one untouched. Two concurrent calls for the same new
// email both pass the existence check; the unique constraint on email
// rejects the loser's insert, which then retries down the update path.
func (r *SubscriberRepo) Subscribe(ctx context.Context, email string) (subscriber.SubscribeResult, error) {
	result, found, err := r.subscribeExisting(ctx, email)
	if err != nil {
		return subscriber.SubscribeResult{}, err
	}
	if found {
		return result, nil
	}

	id := uuid.New().String()
	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO subscribers (id, email, status, subscribed_at, created_at, updated_at)
		VALUES ($1, $2, 'pending', $3, $3, $3)
	`, id, email, now)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			// Lost the insert race; the row exists now.
			result, found, err := r.subscribeExisting(ctx, email)
			if err != nil {
				return subscriber.SubscribeResult{}, err
			}
			if !found {
				return subscriber.SubscribeResult{}, fmt.Errorf("subscribe %q: row missing after unique violation", email)
			}
			return result, nil
		}
		return subscriber.SubscribeResult{}, fmt.Errorf("insert subscriber: %w", err)
	}

	return subscriber.SubscribeResult{ID: id, IsNew: true}, nil
}

// subscribeExisting handles the existing-row paths of Subscribe. The second
// return value is false when no row exists for the email.
func (r *SubscriberRepo) subscribeExisting(ctx context.Context, email string) (subscriber.SubscribeResult, bool, error) {
	var (
		id     string
		status domain.SubscriberStatus
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, status FROM subscribers WHERE email = $1`, email,
	).Scan(&id, &status)
	if err == sql.ErrNoRows {
		return subscriber.SubscribeResult{}, false, nil
	}
	if err != nil {
		return subscriber.SubscribeResult{}, false, fmt.Errorf("lookup subscriber: %w", err)
	}

	if status != domain.SubscriberUnsubscribed {
		return subscriber.SubscribeResult{ID: id, IsNew: false}, true, nil
	}

	// Re-subscription revives the row in place: back to pending, fresh
	// subscribed_at, unsubscribed_at cleared. verified_at keeps its
	// historical value. The status guard keeps a concurrent unsubscribe
	// from being silently overwritten twice.
	_, err = r.db.ExecContext(ctx, `
		UPDATE subscribers
		SET status = 'pending', subscribed_at = NOW(), unsubscribed_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'unsubscribed'
	`, id)
	if err != nil {
		return subscriber.SubscribeResult{}, false, fmt.Errorf("revive subscriber: %w", err)
	}

	return subscriber.SubscribeResult{ID: id, IsNew: true}, true, nil
}

// Verify marks the subscriber active. Re-verifying an active record just
// re-stamps verified_at; token expiry keeps redundant calls rare.
func (r *SubscriberRepo) Verify(ctx context.Context, email string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscribers
		SET status = 'active', verified_at = NOW(), updated_at = NOW()
		WHERE email = $1
	`, email)
	if err != nil {
		return fmt.Errorf("verify subscriber: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return subscriber.ErrNotFound
	}
	return nil
}

// Unsubscribe marks the subscriber unsubscribed.
func (r *SubscriberRepo) Unsubscribe(ctx context.Context, email string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscribers
		SET status = 'unsubscribed', unsubscribed_at = NOW(), updated_at = NOW()
		WHERE email = $1
	`, email)
	if err != nil {
		return fmt.Errorf("unsubscribe subscriber: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return subscriber.ErrNotFound
	}
	return nil
}

// FindByEmail returns the subscriber record, or nil if none exists.
func (r *SubscriberRepo) FindByEmail(ctx context.Context, email string) (*domain.Subscriber, error) {
	sub := &domain.Subscriber{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, status, subscribed_at, verified_at, unsubscribed_at, created_at, updated_at
		FROM subscribers WHERE email = $1
	`, email).Scan(
		&sub.ID, &sub.Email, &sub.Status, &sub.SubscribedAt,
		&sub.VerifiedAt, &sub.UnsubscribedAt, &sub.CreatedAt, &sub.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find subscriber: %w", err)
	}
	return sub, nil
}
