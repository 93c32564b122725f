// Package fingerprint derives short-lived, non-reversible visitor tokens
// from raw connection attributes. No other package may see the raw
// IP/user-agent; callers hand them in and get back an opaque token.
package fingerprint

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/hushmetrics/hushmetrics/internal/errs"
)

const (
	// TokenLength is the hex length of a visitor fingerprint.
	TokenLength = 16

	// MinSecretLength is the minimum byte length of the process secret.
	MinSecretLength = 32

	saltContext = "hushmetrics:visitor-salt:"
)

// Hasher computes visitor fingerprints keyed by a per-day salt.
// Safe for concurrent use.
type Hasher struct {
	secret []byte

	mu    sync.Mutex
	epoch string // Cached salt's calendar day (YYYY-MM-DD)
	salt  []byte
}

// New creates a Hasher from the process secret. Fails closed: a missing
// or short secret is a configuration error surfaced at startup, never a
// silent weak default.
func New(secret string) (*Hasher, error) {
	if secret == "" {
		return nil, errs.Configuration("fingerprint secret is not set")
	}
	if len(secret) < MinSecretLength {
		return nil, errs.Configuration("fingerprint secret is too short")
	}
	return &Hasher{secret: []byte(secret)}, nil
}

// Fingerprint returns the visitor token for (ip, userAgent) at the given
// time. Deterministic within a salt epoch (one UTC calendar day);
// unlinkable across epochs. Purely in-memory, no I/O.
func (h *Hasher) Fingerprint(ip, userAgent string, now time.Time) string {
	salt := h.dailySalt(now)

	digest := sha256.New()
	digest.Write(salt)
	digest.Write([]byte(ip))
	digest.Write([]byte(userAgent))

	// Truncated on purpose: the goal is unlinkability across days, not
	// universal uniqueness, and the short token caps what a leaked
	// database row could ever reveal.
	return hex.EncodeToString(digest.Sum(nil))[:TokenLength]
}

// dailySalt derives the salt for the epoch containing t. Pure given
// (date, secret): every process sharing the secret computes the same
// salt without coordination. Cached per epoch.
func (h *Hasher) dailySalt(t time.Time) []byte {
	epoch := t.UTC().Format("2006-01-02")

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.epoch == epoch {
		return h.salt
	}

	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(saltContext + epoch))
	h.epoch = epoch
	h.salt = mac.Sum(nil)
	return h.salt
}
