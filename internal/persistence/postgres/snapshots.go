package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/trackersync/internal/domain"
)

// SnapshotRepository is the append-only dedup ledger. Rows are never updated;
// existence of (user_id, category, natural_key) is the whole contract.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository constructs a SnapshotRepository.
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// Exists reports whether a snapshot with the given natural key was already committed.
func (r *SnapshotRepository) Exists(ctx context.Context, userID string, category domain.Category, naturalKey string) (bool, error) {
	const query = `SELECT EXISTS (
        SELECT 1 FROM resource_snapshots WHERE user_id=$1 AND category=$2 AND natural_key=$3)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, category, naturalKey).Scan(&exists); err != nil {
		return false, domain.WrapError(domain.KindStorage, err, "snapshot exists")
	}
	return exists, nil
}

// Save appends one snapshot. A concurrent run inserting the same key first is
// not an error; the ledger only needs the row to exist.
func (r *SnapshotRepository) Save(ctx context.Context, snapshot domain.ResourceSnapshot) error {
	const stmt = `INSERT INTO resource_snapshots (user_id, provider, category, natural_key, raw_payload, synced_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (user_id, category, natural_key) DO NOTHING`

	_, err := r.pool.Exec(ctx, stmt,
		snapshot.UserID,
		snapshot.Provider,
		snapshot.Category,
		snapshot.NaturalKey,
		snapshot.RawPayload,
		snapshot.SyncedAt,
	)
	if err != nil {
		return domain.WrapError(domain.KindStorage, err, "save snapshot")
	}
	return nil
}
