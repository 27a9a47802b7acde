package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pauljasperdev/gemhog/internal/pkg/httputil"
	"github.com/pauljasperdev/gemhog/internal/subscriber"
)

// Handlers holds the HTTP handlers for the subscriber API.
type Handlers struct {
	svc       *subscriber.Service
	appURL    string
	startTime time.Time
}

// NewHandlers creates handlers backed by the subscriber service.
// appURL is the public site URL that verify/unsubscribe redirects land on.
func NewHandlers(svc *subscriber.Service, appURL string) *Handlers {
	return &Handlers{
		svc:       svc,
		appURL:    strings.TrimRight(appURL, "/"),
		startTime: time.Now(),
	}
}

// HealthCheck handles GET /health.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{
		"status": "healthy",
		"uptime": time.Since(h.startTime).String(),
	})
}

type subscribeRequest struct {
	Email string `json:"email"`
}

// Subscribe handles POST /api/subscribe. The response never reveals whether
// the address was already on the list.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "Invalid email address")
		return
	}

	addr := strings.TrimSpace(req.Email)
	if !ValidateEmail(addr) {
		httputil.BadRequest(w, "Invalid email address")
		return
	}

	if err := h.svc.Subscribe(r.Context(), addr); err != nil {
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, map[string]string{
		"message": "Check your email to confirm your subscription",
	})
}

// Verify handles GET /api/verify. The link arrives from an email client, so
// every outcome redirects to a human-readable status page.
func (h *Handlers) Verify(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("token")
	if tok == "" {
		httputil.BadRequest(w, "Missing token")
		return
	}

	outcome := h.svc.Verify(r.Context(), tok)
	h.redirectStatus(w, r, "/verify", outcome)
}

// Unsubscribe handles POST /api/unsubscribe. Mail clients performing RFC 8058
// one-click unsubscribe POST here and expect a JSON status, not a redirect.
func (h *Handlers) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("token")
	if tok == "" {
		httputil.BadRequest(w, "Missing token")
		return
	}

	switch h.svc.Unsubscribe(r.Context(), tok) {
	case subscriber.OutcomeSuccess:
		httputil.OK(w, map[string]string{"message": "Unsubscribed successfully"})
	case subscriber.OutcomeInvalid, subscriber.OutcomeExpired:
		httputil.BadRequest(w, "Invalid or expired link")
	default:
		httputil.Error(w, http.StatusInternalServerError, "Something went wrong")
	}
}

// UnsubscribeRedirect handles GET /api/unsubscribe, the variant a human
// reaches by clicking the footer link in an email.
func (h *Handlers) UnsubscribeRedirect(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("token")
	if tok == "" {
		h.redirectStatus(w, r, "/unsubscribe", subscriber.OutcomeInvalid)
		return
	}

	outcome := h.svc.Unsubscribe(r.Context(), tok)
	h.redirectStatus(w, r, "/unsubscribe", outcome)
}

func (h *Handlers) redirectStatus(w http.ResponseWriter, r *http.Request, page string, outcome subscriber.Outcome) {
	target := h.appURL + page + "?status=" + url.QueryEscape(string(outcome))
	http.Redirect(w, r, target, http.StatusFound)
}

// ValidateEmail performs basic email validation.
func ValidateEmail(email string) bool {
	if len(email) < 3 || len(email) > 254 {
		return false
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}

	local, domain := parts[0], parts[1]
	if len(local) == 0 || len(local) > 64 {
		return false
	}
	if len(domain) == 0 || len(domain) > 253 {
		return false
	}
	if !strings.Contains(domain, ".") {
		return false
	}
	if strings.ContainsAny(email, " \t\r\n") {
		return false
	}

	_, err := url.Parse("mailto:" + email)
	return err == nil
}
