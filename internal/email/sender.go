// Package email delivers rendered messages to subscribers.
//
// The Sender interface has two implementations: SESSender for production
// delivery through AWS SES, and ConsoleSender which logs the message instead
// of sending it. Which one runs is decided once at startup from
// configuration (a "from" address selects SES), never per call.
package email

import "context"

// Message is a fully rendered email ready for delivery.
type Message struct {
	To      string
	Subject string
	HTML    string
	// Headers carries extra SMTP headers, e.g. List-Unsubscribe for
	// RFC 8058 one-click unsubscribe.
	Headers map[string]string
}

// Sender delivers a message or reports a typed failure. Implementations
// carry their own timeout policy; callers do not retry.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}
