// Package token implements stateless signed action tokens.
//
// A token authorizes exactly one state transition (verify or unsubscribe)
// for exactly one email address, and expires at an absolute deadline. It is
// never stored server-side: the payload travels inside the token itself,
// authenticated by an HMAC-SHA256 signature under a server-held secret.
//
// Wire format: base64url(json_payload + "." + hex(hmac_sha256(secret, json_payload)))
// with no base64 padding. The payload JSON may itself contain "." characters,
// so decoding splits on the last separator, not the first.
//
// There is no revocation list. The actions a token authorizes are idempotent
// and low-risk to repeat, so the expiry window is the only mitigation against
// replay.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// Action identifies the state transition a token authorizes.
type Action string

const (
	ActionVerify      Action = "verify"
	ActionUnsubscribe Action = "unsubscribe"
)

// Payload is the signed content of an action token. Field order matters:
// it fixes the JSON serialization, and the signature covers the exact bytes.
type Payload struct {
	Email     string `json:"email"`
	Action    Action `json:"action"`
	ExpiresAt int64  `json:"expiresAt"` // epoch milliseconds
}

// Reason classifies why token verification failed.
type Reason string

const (
	// ReasonMalformed covers undecodable base64, a missing separator, and
	// unparseable payload JSON.
	ReasonMalformed Reason = "malformed"
	// ReasonInvalidSignature means the HMAC did not match under the
	// verifying secret.
	ReasonInvalidSignature Reason = "invalid_signature"
	// ReasonExpired means the signature was valid but the deadline passed.
	ReasonExpired Reason = "expired"
)

// Error is the typed failure returned by Verify. Callers branch on Reason;
// every reason is an expected, user-facing outcome, never a server fault.
type Error struct {
	Reason Reason
}

func (e *Error) Error() string {
	return "invalid token: " + string(e.Reason)
}

const sep = "."

// Create builds a signed token for the given payload. It cannot fail for a
// well-formed payload and has no side effects.
func Create(p Payload, secret string) string {
	data, _ := json.Marshal(p)
	sig := sign(data, secret)
	return base64.RawURLEncoding.EncodeToString(append(append(data, sep...), sig...))
}

// Verify decodes and authenticates a token. It returns the payload only if
// the token decodes structurally, the signature matches under secret, and
// the deadline has not passed. The signature comparison is constant-time.
func Verify(tok, secret string) (Payload, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return Payload{}, &Error{Reason: ReasonMalformed}
	}

	// The payload is JSON and may contain the separator; split on the last one.
	lastDot := strings.LastIndex(string(decoded), sep)
	if lastDot == -1 {
		return Payload{}, &Error{Reason: ReasonMalformed}
	}

	data := decoded[:lastDot]
	sig := decoded[lastDot+1:]

	expected := sign(data, secret)
	if len(sig) != len(expected) || !hmac.Equal(sig, expected) {
		return Payload{}, &Error{Reason: ReasonInvalidSignature}
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, &Error{Reason: ReasonMalformed}
	}

	if time.Now().UnixMilli() > p.ExpiresAt {
		return Payload{}, &Error{Reason: ReasonExpired}
	}

	return p, nil
}

// sign computes the lowercase hex HMAC-SHA256 of data under secret.
func sign(data []byte, secret string) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	return []byte(hex.EncodeToString(h.Sum(nil)))
}
