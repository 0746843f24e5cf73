package dedup

import (
	"context"

	"example.com/trackersync/internal/domain"
)

// SnapshotStore is the ledger lookup the filter needs.
type SnapshotStore interface {
	Exists(ctx context.Context, userID string, category domain.Category, naturalKey string) (bool, error)
}

// Filter drops previously committed items, preserving input order.
type Filter struct {
	store SnapshotStore
}

// NewFilter constructs a Filter.
func NewFilter(store SnapshotStore) *Filter {
	return &Filter{store: store}
}

// FilterNew returns the items whose natural key has no snapshot yet, with the
// key filled in on each survivor. Items repeated within the batch are also
// collapsed so a single run can never commit the same key twice.
func (f *Filter) FilterNew(ctx context.Context, userID string, items []domain.RawItem) ([]domain.RawItem, error) {
	if len(items) == 0 {
		return nil, nil
	}

	out := make([]domain.RawItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for _, item := range items {
		key, err := DeriveKey(item)
		if err != nil {
			return nil, err
		}

		if _, dup := seen[key]; dup {
			recordDropped(item.Category)
			continue
		}

		exists, err := f.store.Exists(ctx, userID, item.Category, key)
		if err != nil {
			return nil, domain.WrapError(domain.KindStorage, err, "snapshot lookup").WithCategory(item.Category)
		}
		if exists {
			recordDropped(item.Category)
			continue
		}

		seen[key] = struct{}{}
		item.NaturalKey = key
		out = append(out, item)
	}

	return out, nil
}
