// Package syncer orchestrates a sync run: window computation, scope-gated
// concurrent fetches, dedup, normalization and the publish-then-persist
// commit with watermark advancement.
package syncer

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"example.com/trackersync/internal/domain"
	"example.com/trackersync/internal/events"
	"example.com/trackersync/internal/observability"
)

// ProviderClient is the outbound provider port.
type ProviderClient interface {
	FetchCategory(ctx context.Context, token domain.AuthToken, category domain.Category, window domain.SyncWindow) ([]domain.RawItem, error)
	Revoke(ctx context.Context, accessToken string) error
}

// TokenManager recovers auth failures around provider operations.
type TokenManager interface {
	EnsureValid(ctx context.Context, tok domain.AuthToken) (domain.AuthToken, error)
	WithAuth(ctx context.Context, tok domain.AuthToken, op func(context.Context, domain.AuthToken) error) (domain.AuthToken, error)
}

// TokenStore loads and saves persisted provider authorizations.
type TokenStore interface {
	Load(ctx context.Context, userID string) (domain.AuthToken, error)
	Save(ctx context.Context, tok domain.AuthToken) error
}

// Deduper drops already-committed raw items.
type Deduper interface {
	FilterNew(ctx context.Context, userID string, items []domain.RawItem) ([]domain.RawItem, error)
}

// SnapshotWriter appends to the dedup ledger.
type SnapshotWriter interface {
	Save(ctx context.Context, snapshot domain.ResourceSnapshot) error
}

// Bus is the outbound event port.
type Bus interface {
	PublishBatch(ctx context.Context, topic, eventType, userID string, records []any) error
	Publish(ctx context.Context, topic, eventType, userID string, record any) error
}

// Option configures optional engine behaviour.
type Option func(*Engine)

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine is the synchronization engine. RunSync is its sole upward entry point.
type Engine struct {
	provider  ProviderClient
	tokens    TokenStore
	manager   TokenManager
	filter    Deduper
	snapshots SnapshotWriter
	bus       Bus

	providerName string
	locks        *userLocks
	now          func() time.Time
	logger       *log.Logger
}

// NewEngine constructs an Engine.
func NewEngine(provider ProviderClient, tokens TokenStore, manager TokenManager, filter Deduper, snapshots SnapshotWriter, bus Bus, providerName string, opts ...Option) *Engine {
	e := &Engine{
		provider:     provider,
		tokens:       tokens,
		manager:      manager,
		filter:       filter,
		snapshots:    snapshots,
		bus:          bus,
		providerName: providerName,
		locks:        newUserLocks(),
		now:          time.Now,
		logger:       log.New(log.Writer(), "[syncer] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunSync executes one sync run for a user. The user's lock is held for the
// whole run so overlapping invocations cannot race the token state.
func (e *Engine) RunSync(ctx context.Context, userID string) (domain.SyncResult, error) {
	release := e.locks.acquire(userID)
	defer release()

	result, err := e.run(ctx, userID)
	if err != nil {
		recordRun(outcome(err))
		return domain.SyncResult{}, err
	}
	recordRun("ok")
	observability.RecordSyncCompleted(e.now())
	return result, nil
}

func (e *Engine) run(ctx context.Context, userID string) (domain.SyncResult, error) {
	tok, err := e.tokens.Load(ctx, userID)
	if err != nil {
		if _, kinded := domain.KindOf(err); kinded {
			return domain.SyncResult{}, err
		}
		return domain.SyncResult{}, domain.WrapError(domain.KindValidation, err, "no provider authorization for user "+userID)
	}

	tok, err = e.manager.EnsureValid(ctx, tok)
	if err != nil {
		return domain.SyncResult{}, err
	}

	categories := categoriesFor(tok)
	windows := windowsFor(tok, e.now())

	var fetched map[domain.Category][]domain.RawItem
	tok, err = e.manager.WithAuth(ctx, tok, func(ctx context.Context, t domain.AuthToken) error {
		m, fetchErr := e.fetchAll(ctx, t, categories, windows)
		if fetchErr != nil {
			return fetchErr
		}
		fetched = m
		return nil
	})
	if err != nil {
		return domain.SyncResult{}, err
	}

	batches := make([]batch, 0, len(categories))
	for _, category := range categories {
		fresh, filterErr := e.filter.FilterNew(ctx, userID, fetched[category])
		if filterErr != nil {
			return domain.SyncResult{}, filterErr
		}
		b, prepErr := prepareBatch(category, fresh, userID)
		if prepErr != nil {
			return domain.SyncResult{}, prepErr
		}
		batches = append(batches, b)
	}

	result := domain.NewSyncResult()
	for _, b := range batches {
		if commitErr := e.commitBatch(ctx, userID, b); commitErr != nil {
			e.logger.Printf("commit %s for user %s failed: %v", b.category, userID, commitErr)
			recordCommitFailure(b.category)
			continue
		}
		tally(&result, b)
	}

	if err := e.advanceWatermark(ctx, tok); err != nil {
		return domain.SyncResult{}, err
	}
	return result, nil
}

// Authorization returns the stored provider authorization for a user.
func (e *Engine) Authorization(ctx context.Context, userID string) (domain.AuthToken, error) {
	tok, err := e.tokens.Load(ctx, userID)
	if err != nil {
		if _, kinded := domain.KindOf(err); kinded {
			return domain.AuthToken{}, err
		}
		return domain.AuthToken{}, domain.WrapError(domain.KindValidation, err, "no provider authorization for user "+userID)
	}
	return tok, nil
}

// RevokeAuthorization revokes the provider token and persists the terminal
// state so future runs short-circuit.
func (e *Engine) RevokeAuthorization(ctx context.Context, userID string) error {
	release := e.locks.acquire(userID)
	defer release()

	tok, err := e.Authorization(ctx, userID)
	if err != nil {
		return err
	}

	if err := e.provider.Revoke(ctx, tok.AccessToken); err != nil {
		return err
	}

	tok.Status = domain.TokenStatusRevoked
	if err := e.tokens.Save(ctx, tok); err != nil {
		return domain.WrapError(domain.KindStorage, err, "persist revoked token")
	}
	return nil
}

// fetchAll fans out one goroutine per category, each walking the windows
// oldest-first, and fans the results back in. The first failure cancels the
// remaining fetches and aborts the run.
func (e *Engine) fetchAll(ctx context.Context, tok domain.AuthToken, categories []domain.Category, windows []domain.SyncWindow) (map[domain.Category][]domain.RawItem, error) {
	g, ctx := errgroup.WithContext(ctx)
	results := make([][]domain.RawItem, len(categories))

	for i, category := range categories {
		i, category := i, category
		g.Go(func() error {
			var items []domain.RawItem
			for _, window := range windows {
				fetched, err := e.provider.FetchCategory(ctx, tok, category, window)
				if err != nil {
					return err
				}
				items = append(items, fetched...)
			}
			results[i] = items
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	fetched := make(map[domain.Category][]domain.RawItem, len(categories))
	for i, category := range categories {
		fetched[category] = results[i]
	}
	return fetched, nil
}

// advanceWatermark moves the watermark to now and emits the state notification.
// It runs after every category was attempted, regardless of commit failures.
func (e *Engine) advanceWatermark(ctx context.Context, tok domain.AuthToken) error {
	now := e.now().UTC()
	tok.LastSyncAt = &now

	if err := e.tokens.Save(ctx, tok); err != nil {
		return domain.WrapError(domain.KindStorage, err, "advance watermark")
	}
	observability.RecordWatermarkAdvanced(now)

	notification := events.WatermarkAdvanced{
		UserID:     tok.SubjectUserID,
		Watermark:  now,
		OccurredAt: now,
	}
	if err := e.bus.Publish(ctx, events.TopicSyncState, events.TypeWatermarkAdvanced, tok.SubjectUserID, notification); err != nil {
		// The watermark is already advanced; the notification is best effort.
		e.logger.Printf("watermark notification for user %s failed: %v", tok.SubjectUserID, err)
	}
	return nil
}

// categoriesFor lists the categories the token's scopes permit, in commit order.
func categoriesFor(tok domain.AuthToken) []domain.Category {
	var categories []domain.Category
	if tok.HasScope(domain.ScopeWeight) {
		categories = append(categories, domain.CategoryWeight, domain.CategoryBodyFat)
	}
	if tok.HasScope(domain.ScopeActivity) {
		categories = append(categories, domain.CategoryActivity)
		categories = append(categories, domain.LogCategories...)
	}
	if tok.HasScope(domain.ScopeSleep) {
		categories = append(categories, domain.CategorySleep)
	}
	return categories
}

func outcome(err error) string {
	if kind, ok := domain.KindOf(err); ok {
		return string(kind)
	}
	return "error"
}
