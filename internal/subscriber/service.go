package subscriber

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pauljasperdev/gemhog/internal/domain"
	"github.com/pauljasperdev/gemhog/internal/email"
	"github.com/pauljasperdev/gemhog/internal/pkg/logger"
	"github.com/pauljasperdev/gemhog/internal/token"
)

// Outcome is the closed vocabulary of user-facing results for token-driven
// operations. These render directly as confirmation pages; internal errors
// never escape past this type.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeExpired Outcome = "expired" // verify only
	OutcomeInvalid Outcome = "invalid"
	OutcomeError   Outcome = "error"
)

// Config carries the workflow's token and URL settings.
type Config struct {
	// Secret signs and verifies all action tokens. Independent from any
	// session secret; never transmitted to the client.
	Secret string
	// AppURL is the public base URL embedded in email links.
	AppURL string
	// VerifyTokenTTL bounds the verification window. Default 7 days.
	VerifyTokenTTL time.Duration
	// UnsubscribeTokenTTL bounds the unsubscribe link. Default 365 days:
	// the link must stay valid for the life of the relationship since it
	// rides in every email's List-Unsubscribe header.
	UnsubscribeTokenTTL time.Duration
}

// Service implements the subscribe, verify, and unsubscribe use cases.
// Dependencies are injected once at construction; there is no lazy wiring
// and no cached subscriber state (every use case re-reads the store).
type Service struct {
	repo      Repository
	sender    email.Sender
	templates *email.Templates
	cfg       Config
}

// NewService creates the subscription workflow service.
func NewService(repo Repository, sender email.Sender, templates *email.Templates, cfg Config) *Service {
	if cfg.VerifyTokenTTL == 0 {
		cfg.VerifyTokenTTL = 7 * 24 * time.Hour
	}
	if cfg.UnsubscribeTokenTTL == 0 {
		cfg.UnsubscribeTokenTTL = 365 * 24 * time.Hour
	}
	return &Service{repo: repo, sender: sender, templates: templates, cfg: cfg}
}

// Subscribe registers an email and sends a verification email when the
// subscription is new or still pending. A pending subscriber re-submitting
// the form gets a fresh verification email; an active one gets nothing
// (silent success). The caller's response must not depend on which path was
// taken; the anti-enumeration property lives at the HTTP layer.
func (s *Service) Subscribe(ctx context.Context, addr string) error {
	result, err := s.repo.Subscribe(ctx, addr)
	if err != nil {
		return fmt.Errorf("subscribe %q: %w", addr, err)
	}

	// Subscribe alone doesn't distinguish existing-pending from
	// existing-active; re-read to decide whether to (re)send.
	sub, err := s.repo.FindByEmail(ctx, addr)
	if err != nil {
		return fmt.Errorf("find subscriber %q: %w", addr, err)
	}

	shouldSend := result.IsNew || (sub != nil && sub.Status == domain.SubscriberPending)
	if !shouldSend {
		logger.Debug("subscribe no-op", "email", addr)
		return nil
	}

	if err := s.sendVerification(ctx, addr); err != nil {
		return err
	}

	logger.Info("verification email queued", "email", addr, "is_new", result.IsNew)
	return nil
}

func (s *Service) sendVerification(ctx context.Context, addr string) error {
	now := time.Now()
	verifyToken := token.Create(token.Payload{
		Email:     addr,
		Action:    token.ActionVerify,
		ExpiresAt: now.Add(s.cfg.VerifyTokenTTL).UnixMilli(),
	}, s.cfg.Secret)
	unsubscribeToken := token.Create(token.Payload{
		Email:     addr,
		Action:    token.ActionUnsubscribe,
		ExpiresAt: now.Add(s.cfg.UnsubscribeTokenTTL).UnixMilli(),
	}, s.cfg.Secret)

	verifyURL := s.cfg.AppURL + "/api/verify?token=" + verifyToken
	unsubscribeURL := s.cfg.AppURL + "/api/unsubscribe?token=" + unsubscribeToken

	rendered, err := s.templates.Verification(verifyURL)
	if err != nil {
		return err
	}

	msg := &email.Message{
		To:      addr,
		Subject: rendered.Subject,
		HTML:    rendered.HTML,
		Headers: map[string]string{
			"List-Unsubscribe":      "<" + unsubscribeURL + ">",
			"List-Unsubscribe-Post": "List-Unsubscribe=One-Click",
		},
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

// Verify consumes a verification token and activates the subscriber.
func (s *Service) Verify(ctx context.Context, tok string) Outcome {
	payload, err := token.Verify(tok, s.cfg.Secret)
	if err != nil {
		var terr *token.Error
		if errors.As(err, &terr) && terr.Reason == token.ReasonExpired {
			return OutcomeExpired
		}
		return OutcomeInvalid
	}
	if payload.Action != token.ActionVerify {
		return OutcomeInvalid
	}

	if err := s.repo.Verify(ctx, payload.Email); err != nil {
		// A valid token for a missing record: the token outlived the data.
		if errors.Is(err, ErrNotFound) {
			return OutcomeInvalid
		}
		logger.Error("verify failed", "email", payload.Email, "err", err.Error())
		return OutcomeError
	}

	logger.Info("subscriber verified", "email", payload.Email)
	return OutcomeSuccess
}

// Unsubscribe consumes an unsubscribe token and opts the subscriber out.
// Expired tokens map to invalid here; the distinction only matters for
// verification, where the user can re-request a link.
func (s *Service) Unsubscribe(ctx context.Context, tok string) Outcome {
	payload, err := token.Verify(tok, s.cfg.Secret)
	if err != nil {
		return OutcomeInvalid
	}
	if payload.Action != token.ActionUnsubscribe {
		return OutcomeInvalid
	}

	if err := s.repo.Unsubscribe(ctx, payload.Email); err != nil {
		if errors.Is(err, ErrNotFound) {
			return OutcomeInvalid
		}
		logger.Error("unsubscribe failed", "email", payload.Email, "err", err.Error())
		return OutcomeError
	}

	// Goodbye email is best-effort; the unsubscribe already committed.
	if rendered, err := s.templates.UnsubscribeConfirmation(s.cfg.AppURL); err == nil {
		msg := &email.Message{To: payload.Email, Subject: rendered.Subject, HTML: rendered.HTML}
		if err := s.sender.Send(ctx, msg); err != nil {
			logger.Warn("unsubscribe confirmation email failed", "email", payload.Email, "err", err.Error())
		}
	}

	logger.Info("subscriber unsubscribed", "email", payload.Email)
	return OutcomeSuccess
}
