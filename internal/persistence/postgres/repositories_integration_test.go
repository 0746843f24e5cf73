//go:build integration
// +build integration

package postgres

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/trackersync/internal/domain"
)

func TestTokenRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	repo := NewTokenRepository(pool)

	watermark := time.Date(2026, time.August, 14, 12, 0, 0, 0, time.UTC)
	tok := domain.AuthToken{
		SubjectUserID: "user-1",
		AccessToken:   "access",
		RefreshToken:  "refresh",
		TokenType:     "Bearer",
		ExpiresAt:     1789500000,
		Scopes:        domain.ScopeSet([]string{domain.ScopeWeight, domain.ScopeActivity}),
		Status:        domain.TokenStatusValid,
		LastSyncAt:    &watermark,
	}

	require.NoError(t, repo.Save(ctx, tok))

	loaded, err := repo.Load(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, "access", loaded.AccessToken)
	require.Equal(t, domain.TokenStatusValid, loaded.Status)
	require.True(t, loaded.HasScope(domain.ScopeWeight))
	require.True(t, loaded.HasScope(domain.ScopeActivity))
	require.False(t, loaded.HasScope(domain.ScopeSleep))
	require.NotNil(t, loaded.LastSyncAt)
	require.True(t, loaded.LastSyncAt.Equal(watermark))

	// Save upserts: a refresh replaces credentials in place.
	tok.AccessToken = "rotated"
	tok.Status = domain.TokenStatusExpired
	require.NoError(t, repo.Save(ctx, tok))

	loaded, err = repo.Load(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, "rotated", loaded.AccessToken)
	require.Equal(t, domain.TokenStatusExpired, loaded.Status)
}

func TestTokenRepositoryLoadMissing(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	repo := NewTokenRepository(pool)

	_, err := repo.Load(ctx, "nobody")
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestSnapshotRepositoryExistsAndSave(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	repo := NewSnapshotRepository(pool)

	snapshot := domain.ResourceSnapshot{
		UserID:     "user-1",
		Provider:   "fitbit",
		Category:   domain.CategoryActivity,
		NaturalKey: "1001",
		RawPayload: json.RawMessage(`{"logId":1001,"activityName":"Run"}`),
		SyncedAt:   time.Now().UTC(),
	}

	exists, err := repo.Exists(ctx, "user-1", domain.CategoryActivity, "1001")
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, repo.Save(ctx, snapshot))

	exists, err = repo.Exists(ctx, "user-1", domain.CategoryActivity, "1001")
	require.NoError(t, err)
	require.True(t, exists)

	// Duplicate inserts are silently absorbed by the ledger.
	require.NoError(t, repo.Save(ctx, snapshot))

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM resource_snapshots`).Scan(&count))
	require.Equal(t, 1, count)

	// The same key under another category or user is a distinct row.
	exists, err = repo.Exists(ctx, "user-1", domain.CategorySleep, "1001")
	require.NoError(t, err)
	require.False(t, exists)

	exists, err = repo.Exists(ctx, "user-2", domain.CategoryActivity, "1001")
	require.NoError(t, err)
	require.False(t, exists)
}

func setupPostgres(t *testing.T, ctx context.Context) (*pgxpool.Pool, func()) {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("tracker"),
		postgrescontainer.WithUsername("tracker"),
		postgrescontainer.WithPassword("tracker"),
	)
	require.NoError(t, err)

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))
	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pg.Terminate(ctx)
	}
	return pool, cleanup
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	t.Helper()

	migrationsPath := resolvePath(t, "../../../db/postgres/migrations")
	files, err := filepath.Glob(filepath.Join(migrationsPath, "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	sort.Strings(files)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, file := range files {
		content, readErr := os.ReadFile(file)
		require.NoErrorf(t, readErr, "read migration %s", file)
		_, execErr := pool.Exec(ctx, string(content))
		require.NoErrorf(t, execErr, "execute migration %s", file)
	}
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}
