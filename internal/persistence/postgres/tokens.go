// Package postgres provides pgx-backed persistence for auth tokens and the
// resource snapshot ledger.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/trackersync/internal/domain"
)

// ErrTokenNotFound is returned when no provider authorization exists for a user.
var ErrTokenNotFound = errors.New("auth token not found")

// TokenRepository stores provider authorizations.
type TokenRepository struct {
	pool *pgxpool.Pool
}

// NewTokenRepository constructs a TokenRepository.
func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// Load fetches the stored token for a user.
func (r *TokenRepository) Load(ctx context.Context, userID string) (domain.AuthToken, error) {
	const query = `SELECT user_id, access_token, refresh_token, token_type, expires_at, scopes, status, last_sync_at
        FROM auth_tokens WHERE user_id=$1`

	var (
		tok        domain.AuthToken
		scopes     []string
		lastSyncAt *time.Time
	)
	row := r.pool.QueryRow(ctx, query, userID)
	if err := row.Scan(&tok.SubjectUserID, &tok.AccessToken, &tok.RefreshToken, &tok.TokenType, &tok.ExpiresAt, &scopes, &tok.Status, &lastSyncAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AuthToken{}, ErrTokenNotFound
		}
		return domain.AuthToken{}, domain.WrapError(domain.KindStorage, err, "load auth token")
	}

	tok.Scopes = domain.ScopeSet(scopes)
	tok.LastSyncAt = lastSyncAt
	return tok, nil
}

// Save upserts the token row, replacing credentials, status and watermark.
func (r *TokenRepository) Save(ctx context.Context, tok domain.AuthToken) error {
	const stmt = `INSERT INTO auth_tokens (user_id, access_token, refresh_token, token_type, expires_at, scopes, status, last_sync_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())
        ON CONFLICT (user_id) DO UPDATE SET
            access_token=EXCLUDED.access_token,
            refresh_token=EXCLUDED.refresh_token,
            token_type=EXCLUDED.token_type,
            expires_at=EXCLUDED.expires_at,
            scopes=EXCLUDED.scopes,
            status=EXCLUDED.status,
            last_sync_at=EXCLUDED.last_sync_at,
            updated_at=NOW()`

	_, err := r.pool.Exec(ctx, stmt,
		tok.SubjectUserID,
		tok.AccessToken,
		tok.RefreshToken,
		tok.TokenType,
		tok.ExpiresAt,
		tok.ScopeList(),
		tok.Status,
		tok.LastSyncAt,
	)
	if err != nil {
		return domain.WrapError(domain.KindStorage, err, "save auth token")
	}
	return nil
}
