// Package subscriber implements the subscription lifecycle workflow.
//
// A subscriber moves through pending -> active -> unsubscribed, and back to
// pending on re-subscription. The workflow orchestrates the token codec, the
// subscriber repository, and the email sender to drive double opt-in
// verification and one-click unsubscribe.
//
// The service layer contains pure business logic and depends on the
// Repository interface defined in repository.go. It never imports
// net/http or database/sql directly. Every failure a token or the store can
// produce is mapped to a small closed set of outcomes before it reaches the
// HTTP boundary.
package subscriber
