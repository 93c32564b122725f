// Package auth verifies owner credentials for the management API.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/hushmetrics/hushmetrics/internal/middleware"
)

// ErrUnknownToken is returned for tokens that match no principal.
var ErrUnknownToken = errors.New("unknown token")

type principal struct {
	tokenHash [32]byte
	identity  middleware.Identity
}

// StaticTokenProvider resolves bearer tokens from a fixed table loaded
// at process start. Tokens are held as hashes; lookup is linear with a
// constant-time compare per entry so timing reveals nothing about how
// close a guess came.
type StaticTokenProvider struct {
	principals []principal
}

// ParseStaticTokens builds a provider from comma-separated
// token:userID:email triples (email optional).
func ParseStaticTokens(raw string) (*StaticTokenProvider, error) {
	p := &StaticTokenProvider{}
	if strings.TrimSpace(raw) == "" {
		return p, nil
	}

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, errors.New("api token entries must be token:userID[:email]")
		}
		identity := middleware.Identity{UserID: parts[1]}
		if len(parts) == 3 {
			identity.Email = parts[2]
		}
		p.principals = append(p.principals, principal{
			tokenHash: sha256.Sum256([]byte(parts[0])),
			identity:  identity,
		})
	}
	return p, nil
}

// Verify implements middleware.IdentityProvider.
func (p *StaticTokenProvider) Verify(_ context.Context, token string) (*middleware.Identity, error) {
	sum := sha256.Sum256([]byte(token))

	var found *middleware.Identity
	for i := range p.principals {
		if subtle.ConstantTimeCompare(sum[:], p.principals[i].tokenHash[:]) == 1 {
			found = &p.principals[i].identity
		}
	}
	if found == nil {
		return nil, ErrUnknownToken
	}
	identity := *found
	return &identity, nil
}

// Empty reports whether no tokens are configured.
func (p *StaticTokenProvider) Empty() bool {
	return len(p.principals) == 0
}
