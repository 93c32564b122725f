package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hushmetrics/hushmetrics/internal/model"
)

// ShareRepository provides database access for share tokens,
// implementing share.Repository.
type ShareRepository struct {
	repo *Repository
}

// NewShareRepository creates a new ShareRepository.
func NewShareRepository(repo *Repository) *ShareRepository {
	return &ShareRepository{repo: repo}
}

// Create stores a new share token.
func (r *ShareRepository) Create(ctx context.Context, token *model.ShareToken) error {
	query := `
		INSERT INTO share_tokens (
			token, site_id, owner_id, allowed_periods, password_hash,
			created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	periods := make([]string, len(token.AllowedPeriods))
	for i, p := range token.AllowedPeriods {
		periods[i] = string(p)
	}

	_, err := r.repo.pool.Exec(ctx, query,
		token.Token,
		token.SiteID,
		token.OwnerID,
		periods,
		nullableString(token.PasswordHash),
		token.CreatedAt,
		token.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert share token: %w", err)
	}
	return nil
}

// Get loads a share token. Returns nil, nil when it does not exist.
func (r *ShareRepository) Get(ctx context.Context, tokenValue string) (*model.ShareToken, error) {
	query := `
		SELECT token, site_id, owner_id, allowed_periods,
		       COALESCE(password_hash, ''), created_at, expires_at
		FROM share_tokens
		WHERE token = $1
	`

	var token model.ShareToken
	var periods []string
	err := r.repo.pool.QueryRow(ctx, query, tokenValue).Scan(
		&token.Token,
		&token.SiteID,
		&token.OwnerID,
		&periods,
		&token.PasswordHash,
		&token.CreatedAt,
		&token.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query share token: %w", err)
	}

	token.AllowedPeriods = make([]model.SharePeriod, len(periods))
	for i, p := range periods {
		token.AllowedPeriods[i] = model.SharePeriod(p)
	}
	return &token, nil
}

// Delete removes a share token. Reports whether a row existed.
func (r *ShareRepository) Delete(ctx context.Context, tokenValue string) (bool, error) {
	tag, err := r.repo.pool.Exec(ctx, `DELETE FROM share_tokens WHERE token = $1`, tokenValue)
	if err != nil {
		return false, fmt.Errorf("delete share token: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
