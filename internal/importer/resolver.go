package importer

import "context"

// StaticResolver grants every authenticated owner the same external
// account credential. Deployments with per-user source accounts swap in
// their own resolver.
type StaticResolver struct {
	AccountID string
}

// Resolve returns the configured credential. An empty account ID yields
// an invalid credential, which the coordinator rejects.
func (r StaticResolver) Resolve(_ context.Context, _ string) (Credential, error) {
	return Credential{AccountID: r.AccountID, Valid: r.AccountID != ""}, nil
}
