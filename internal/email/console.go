package email

import (
	"context"
	"encoding/json"

	"github.com/pauljasperdev/gemhog/internal/pkg/logger"
)

// ConsoleSender logs messages instead of delivering them. It is the
// development fallback when no SES "from" address is configured, so signup
// flows can be exercised locally without AWS credentials.
type ConsoleSender struct{}

// NewConsoleSender creates a console sender.
func NewConsoleSender() *ConsoleSender {
	return &ConsoleSender{}
}

const previewLength = 200

// Send logs the recipient, subject, a truncated HTML preview, and any extra
// headers. It never fails.
func (s *ConsoleSender) Send(_ context.Context, msg *Message) error {
	preview := msg.HTML
	if len(preview) > previewLength {
		preview = preview[:previewLength] + "..."
	}

	logger.Info("email (console)", "to", msg.To, "subject", msg.Subject)
	logger.Debug("email body preview", "html", preview)
	if len(msg.Headers) > 0 {
		headers, _ := json.Marshal(msg.Headers)
		logger.Debug("email headers", "headers", string(headers))
	}
	return nil
}
