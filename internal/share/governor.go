// Package share issues and validates time-boxed, optionally
// password-protected tokens granting read-only access to one site's
// statistics.
package share

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hushmetrics/hushmetrics/internal/errs"
	"github.com/hushmetrics/hushmetrics/internal/model"
)

// Token format: shr_{prefix}_{secret}
// Example: shr_7a9x3k_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b
const (
	tokenPrefixBytes = 3  // 6 hex chars
	tokenSecretBytes = 16 // 32 hex chars
)

// Repository persists share tokens. Lookups for validation always hit
// the store so revocation is visible immediately.
type Repository interface {
	Create(ctx context.Context, token *model.ShareToken) error
	// Get returns nil, nil when the token does not exist.
	Get(ctx context.Context, token string) (*model.ShareToken, error)
	// Delete removes the token. Reports whether a row existed.
	Delete(ctx context.Context, token string) (bool, error)
}

// CreateOptions configures a new share token.
type CreateOptions struct {
	ExpiresIn      time.Duration // 0 means no expiry
	AllowedPeriods []model.SharePeriod
	Password       string // Empty means unprotected
}

// Governor owns the share token lifecycle.
type Governor struct {
	repo Repository
	now  func() time.Time
}

// NewGovernor creates a Governor.
func NewGovernor(repo Repository) *Governor {
	return &Governor{repo: repo, now: time.Now}
}

// Create issues a new token for siteID owned by ownerID.
func (g *Governor) Create(ctx context.Context, siteID, ownerID string, opts CreateOptions) (*model.ShareToken, error) {
	if siteID == "" {
		return nil, errs.Validationf("site id is required")
	}
	if ownerID == "" {
		return nil, errs.Validationf("owner id is required")
	}
	for _, period := range opts.AllowedPeriods {
		if !period.IsValid() {
			return nil, errs.Validationf("unknown period %q", period)
		}
	}
	if opts.ExpiresIn < 0 {
		return nil, errs.Validationf("expiry must not be negative")
	}

	value, err := generateToken()
	if err != nil {
		return nil, errs.Upstream("generate token", err)
	}

	now := g.now().UTC()
	token := &model.ShareToken{
		Token:          value,
		SiteID:         siteID,
		OwnerID:        ownerID,
		AllowedPeriods: opts.AllowedPeriods,
		CreatedAt:      now,
	}
	if opts.ExpiresIn > 0 {
		expires := now.Add(opts.ExpiresIn)
		token.ExpiresAt = &expires
	}
	if opts.Password != "" {
		hash, err := hashPassword(opts.Password)
		if err != nil {
			return nil, errs.Upstream("hash password", err)
		}
		token.PasswordHash = hash
	}

	if err := g.repo.Create(ctx, token); err != nil {
		return nil, errs.Upstream("store share token", err)
	}
	return token, nil
}

// Validate checks a token against a period and optional password, in
// order: existence, expiry, period restriction, password. Success yields
// the site and period only; owner identity never leaves this package.
func (g *Governor) Validate(ctx context.Context, tokenValue string, period model.SharePeriod, password string) (*model.ShareGrant, error) {
	if !period.IsValid() {
		return nil, errs.Validationf("unknown period %q", period)
	}

	token, err := g.repo.Get(ctx, tokenValue)
	if err != nil {
		return nil, errs.Upstream("load share token", err)
	}
	if token == nil {
		return nil, errs.NotFound("share not found")
	}

	if token.Status(g.now()) == model.ShareStatusExpired {
		return nil, errs.Authorization("share has expired")
	}

	if !token.AllowsPeriod(period) {
		return nil, errs.Authorization(fmt.Sprintf("period %q is not allowed for this share", period))
	}

	if token.PasswordProtected() {
		ok, err := verifyPassword(password, token.PasswordHash)
		if err != nil {
			return nil, errs.Upstream("verify password", err)
		}
		if !ok {
			return nil, errs.Authorization("invalid share password")
		}
	}

	return &model.ShareGrant{SiteID: token.SiteID, Period: period}, nil
}

// Revoke deletes a token on behalf of its owner. A token owned by
// someone else reports not found, deliberately indistinguishable from a
// token that does not exist.
func (g *Governor) Revoke(ctx context.Context, tokenValue, ownerID string) error {
	token, err := g.repo.Get(ctx, tokenValue)
	if err != nil {
		return errs.Upstream("load share token", err)
	}
	if token == nil || token.OwnerID != ownerID {
		return errs.NotFound("share not found")
	}

	existed, err := g.repo.Delete(ctx, tokenValue)
	if err != nil {
		return errs.Upstream("delete share token", err)
	}
	if !existed {
		// Lost a race with another revocation; same outcome for the caller.
		return errs.NotFound("share not found")
	}
	return nil
}

func generateToken() (string, error) {
	prefix := make([]byte, tokenPrefixBytes)
	if _, err := rand.Read(prefix); err != nil {
		return "", fmt.Errorf("generate prefix: %w", err)
	}
	secret := make([]byte, tokenSecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return fmt.Sprintf("shr_%s_%s", hex.EncodeToString(prefix), hex.EncodeToString(secret)), nil
}
