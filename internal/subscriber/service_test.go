package subscriber

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pauljasperdev/gemhog/internal/domain"
	"github.com/pauljasperdev/gemhog/internal/email"
	"github.com/pauljasperdev/gemhog/internal/token"
)

const (
	testSecret = "service-test-secret-0123456789-0123456789"
	testAppURL = "https://gemhog.example"
)

// mockRepo is an in-memory repository mirroring the store's state machine.
type mockRepo struct {
	mu    sync.Mutex
	store map[string]*domain.Subscriber
	// failWith, when set, makes every operation fail (simulated outage).
	failWith error
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[string]*domain.Subscriber)}
}

func (m *mockRepo) Subscribe(_ context.Context, addr string) (SubscribeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return SubscribeResult{}, m.failWith
	}
	now := time.Now()
	if sub, ok := m.store[addr]; ok {
		if sub.Status != domain.SubscriberUnsubscribed {
			return SubscribeResult{ID: sub.ID, IsNew: false}, nil
		}
		sub.Status = domain.SubscriberPending
		sub.SubscribedAt = now
		sub.UnsubscribedAt = nil
		sub.UpdatedAt = now
		return SubscribeResult{ID: sub.ID, IsNew: true}, nil
	}
	sub := &domain.Subscriber{
		ID:           uuid.New().String(),
		Email:        addr,
		Status:       domain.SubscriberPending,
		SubscribedAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.store[addr] = sub
	return SubscribeResult{ID: sub.ID, IsNew: true}, nil
}

func (m *mockRepo) Verify(_ context.Context, addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	sub, ok := m.store[addr]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	sub.Status = domain.SubscriberActive
	sub.VerifiedAt = &now
	sub.UpdatedAt = now
	return nil
}

func (m *mockRepo) Unsubscribe(_ context.Context, addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	sub, ok := m.store[addr]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	sub.Status = domain.SubscriberUnsubscribed
	sub.UnsubscribedAt = &now
	sub.UpdatedAt = now
	return nil
}

func (m *mockRepo) FindByEmail(_ context.Context, addr string) (*domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	sub, ok := m.store[addr]
	if !ok {
		return nil, nil
	}
	copied := *sub
	return &copied, nil
}

// mockSender records every message it is asked to deliver.
type mockSender struct {
	mu       sync.Mutex
	sent     []*email.Message
	failWith error
}

func (m *mockSender) Send(_ context.Context, msg *email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockSender) messages() []*email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*email.Message(nil), m.sent...)
}

func newTestService(t *testing.T) (*Service, *mockRepo, *mockSender) {
	t.Helper()
	templates, err := email.NewTemplates()
	if err != nil {
		t.Fatalf("failed to build templates: %v", err)
	}
	repo := newMockRepo()
	sender := &mockSender{}
	svc := NewService(repo, sender, templates, Config{Secret: testSecret, AppURL: testAppURL})
	return svc, repo, sender
}

func mintToken(action token.Action, addr string, expiresAt int64) string {
	return token.Create(token.Payload{Email: addr, Action: action, ExpiresAt: expiresAt}, testSecret)
}

func futureMillis() int64 {
	return time.Now().Add(time.Hour).UnixMilli()
}

func TestSubscribeNewSendsVerificationEmail(t *testing.T) {
	svc, _, sender := newTestService(t)

	if err := svc.Subscribe(context.Background(), "new@example.com"); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	sent := sender.messages()
	if len(sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(sent))
	}
	msg := sent[0]
	if msg.To != "new@example.com" {
		t.Errorf("To = %q, want new@example.com", msg.To)
	}
	if !strings.Contains(msg.Subject, "Confirm") {
		t.Errorf("Subject = %q, want it to contain %q", msg.Subject, "Confirm")
	}
	if !strings.Contains(msg.HTML, testAppURL+"/api/verify?token=") {
		t.Error("email body is missing the verify URL")
	}
	if !strings.HasPrefix(msg.Headers["List-Unsubscribe"], "<"+testAppURL+"/api/unsubscribe?token=") {
		t.Errorf("List-Unsubscribe = %q, want an unsubscribe URL", msg.Headers["List-Unsubscribe"])
	}
	if msg.Headers["List-Unsubscribe-Post"] != "List-Unsubscribe=One-Click" {
		t.Errorf("List-Unsubscribe-Post = %q", msg.Headers["List-Unsubscribe-Post"])
	}
}

func TestSubscribeResendWhilePending(t *testing.T) {
	svc, _, sender := newTestService(t)
	ctx := context.Background()

	// A pending subscriber re-submitting the form gets a fresh email.
	if err := svc.Subscribe(ctx, "dup@example.com"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Subscribe(ctx, "dup@example.com"); err != nil {
		t.Fatal(err)
	}

	if got := len(sender.messages()); got != 2 {
		t.Errorf("sent %d emails across two pending subscribes, want 2", got)
	}
}

func TestSubscribeActiveIsSilent(t *testing.T) {
	svc, repo, sender := newTestService(t)
	ctx := context.Background()

	if err := svc.Subscribe(ctx, "active@example.com"); err != nil {
		t.Fatal(err)
	}
	if err := repo.Verify(ctx, "active@example.com"); err != nil {
		t.Fatal(err)
	}

	if err := svc.Subscribe(ctx, "active@example.com"); err != nil {
		t.Fatal(err)
	}

	if got := len(sender.messages()); got != 1 {
		t.Errorf("sent %d emails, want 1 (no re-notification for active subscribers)", got)
	}
}

func TestSubscribeStoreFailurePropagates(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.failWith = errors.New("db down")

	if err := svc.Subscribe(context.Background(), "user@example.com"); err == nil {
		t.Error("expected error when the store is down")
	}
}

func TestSubscribeSendFailurePropagates(t *testing.T) {
	svc, _, sender := newTestService(t)
	sender.failWith = errors.New("smtp refused")

	if err := svc.Subscribe(context.Background(), "user@example.com"); err == nil {
		t.Error("expected error when email delivery fails")
	}
}

func TestVerifyOutcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		if err := svc.Subscribe(ctx, "user@example.com"); err != nil {
			t.Fatal(err)
		}

		tok := mintToken(token.ActionVerify, "user@example.com", futureMillis())
		if got := svc.Verify(ctx, tok); got != OutcomeSuccess {
			t.Errorf("outcome = %q, want success", got)
		}

		sub, _ := repo.FindByEmail(ctx, "user@example.com")
		if sub.Status != domain.SubscriberActive {
			t.Errorf("status = %q, want active", sub.Status)
		}
		if sub.VerifiedAt == nil {
			t.Error("VerifiedAt not stamped")
		}
	})

	t.Run("expired token is expired, not invalid", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		tok := mintToken(token.ActionVerify, "user@example.com", time.Now().Add(-time.Second).UnixMilli())
		if got := svc.Verify(ctx, tok); got != OutcomeExpired {
			t.Errorf("outcome = %q, want expired", got)
		}
	})

	t.Run("garbage token is invalid", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		if got := svc.Verify(ctx, "not-a-token"); got != OutcomeInvalid {
			t.Errorf("outcome = %q, want invalid", got)
		}
	})

	t.Run("unknown email is invalid, not error", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		tok := mintToken(token.ActionVerify, "ghost@example.com", futureMillis())
		if got := svc.Verify(ctx, tok); got != OutcomeInvalid {
			t.Errorf("outcome = %q, want invalid", got)
		}
	})

	t.Run("unsubscribe token rejected", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		if err := svc.Subscribe(ctx, "user@example.com"); err != nil {
			t.Fatal(err)
		}
		tok := mintToken(token.ActionUnsubscribe, "user@example.com", futureMillis())
		if got := svc.Verify(ctx, tok); got != OutcomeInvalid {
			t.Errorf("outcome = %q, want invalid", got)
		}
	})

	t.Run("store outage is error", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		repo.failWith = errors.New("db down")
		tok := mintToken(token.ActionVerify, "user@example.com", futureMillis())
		if got := svc.Verify(ctx, tok); got != OutcomeError {
			t.Errorf("outcome = %q, want error", got)
		}
	})
}

func TestUnsubscribeOutcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("success sends confirmation email", func(t *testing.T) {
		svc, repo, sender := newTestService(t)
		if err := svc.Subscribe(ctx, "user@example.com"); err != nil {
			t.Fatal(err)
		}

		tok := mintToken(token.ActionUnsubscribe, "user@example.com", futureMillis())
		if got := svc.Unsubscribe(ctx, tok); got != OutcomeSuccess {
			t.Errorf("outcome = %q, want success", got)
		}

		sub, _ := repo.FindByEmail(ctx, "user@example.com")
		if sub.Status != domain.SubscriberUnsubscribed {
			t.Errorf("status = %q, want unsubscribed", sub.Status)
		}

		sent := sender.messages()
		last := sent[len(sent)-1]
		if !strings.Contains(last.Subject, "unsubscribed") {
			t.Errorf("confirmation subject = %q", last.Subject)
		}
	})

	t.Run("expired token is invalid here", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		tok := mintToken(token.ActionUnsubscribe, "user@example.com", time.Now().Add(-time.Second).UnixMilli())
		if got := svc.Unsubscribe(ctx, tok); got != OutcomeInvalid {
			t.Errorf("outcome = %q, want invalid", got)
		}
	})

	t.Run("unknown email is invalid", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		tok := mintToken(token.ActionUnsubscribe, "ghost@example.com", futureMillis())
		if got := svc.Unsubscribe(ctx, tok); got != OutcomeInvalid {
			t.Errorf("outcome = %q, want invalid", got)
		}
	})

	t.Run("confirmation email failure does not change the outcome", func(t *testing.T) {
		svc, _, sender := newTestService(t)
		if err := svc.Subscribe(ctx, "user@example.com"); err != nil {
			t.Fatal(err)
		}
		sender.failWith = errors.New("smtp refused")

		tok := mintToken(token.ActionUnsubscribe, "user@example.com", futureMillis())
		if got := svc.Unsubscribe(ctx, tok); got != OutcomeSuccess {
			t.Errorf("outcome = %q, want success (goodbye email is best-effort)", got)
		}
	})
}

func TestFullLifecycle(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	addr := "lifecycle@example.com"

	// subscribe -> verify -> unsubscribe -> subscribe again
	if err := svc.Subscribe(ctx, addr); err != nil {
		t.Fatal(err)
	}
	if got := svc.Verify(ctx, mintToken(token.ActionVerify, addr, futureMillis())); got != OutcomeSuccess {
		t.Fatalf("verify outcome = %q", got)
	}

	afterVerify, _ := repo.FindByEmail(ctx, addr)
	firstVerifiedAt := afterVerify.VerifiedAt
	if firstVerifiedAt == nil {
		t.Fatal("VerifiedAt not set after verify")
	}

	if got := svc.Unsubscribe(ctx, mintToken(token.ActionUnsubscribe, addr, futureMillis())); got != OutcomeSuccess {
		t.Fatalf("unsubscribe outcome = %q", got)
	}
	if err := svc.Subscribe(ctx, addr); err != nil {
		t.Fatal(err)
	}

	final, _ := repo.FindByEmail(ctx, addr)
	if final.Status != domain.SubscriberPending {
		t.Errorf("final status = %q, want pending", final.Status)
	}
	if final.UnsubscribedAt != nil {
		t.Error("UnsubscribedAt should be cleared on re-subscribe")
	}
	if final.VerifiedAt == nil || !final.VerifiedAt.Equal(*firstVerifiedAt) {
		t.Error("VerifiedAt should survive the unsubscribe/resubscribe cycle unchanged")
	}
}
