package domain

import "time"

// SubscriberStatus enumerates the states a subscriber can be in.
type SubscriberStatus string

const (
	// SubscriberPending means the address signed up but has not confirmed yet.
	SubscriberPending SubscriberStatus = "pending"
	// SubscriberActive means the address clicked its verification link.
	SubscriberActive SubscriberStatus = "active"
	// SubscriberUnsubscribed means the address opted out.
	SubscriberUnsubscribed SubscriberStatus = "unsubscribed"
)

// Subscriber represents a single email recipient. There is at most one row
// per email address for the lifetime of the relationship; re-subscribing
// after an unsubscribe mutates the existing row rather than creating a new
// one.
type Subscriber struct {
	ID     string           `json:"id" db:"id"`
	Email  string           `json:"email" db:"email"`
	Status SubscriberStatus `json:"status" db:"status"`

	// SubscribedAt is reset on every re-subscription. VerifiedAt is a
	// historical record: once set it survives unsubscribe/resubscribe
	// cycles. UnsubscribedAt is cleared when the subscriber comes back.
	SubscribedAt   time.Time  `json:"subscribed_at" db:"subscribed_at"`
	VerifiedAt     *time.Time `json:"verified_at" db:"verified_at"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at" db:"unsubscribed_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
