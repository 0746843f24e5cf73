// Package token implements the provider token lifecycle: refresh-on-expiry
// and bounded retry around authenticated operations.
package token

import (
	"context"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"

	"example.com/trackersync/internal/domain"
)

// Refresher exchanges an expired token pair for a fresh one.
type Refresher interface {
	Refresh(ctx context.Context, accessToken, refreshToken string) (domain.AuthToken, error)
}

// Store persists token state between runs.
type Store interface {
	Save(ctx context.Context, token domain.AuthToken) error
}

// DefaultMaxAttempts bounds how often an operation is tried before an
// unrefreshable expiry becomes terminal.
const DefaultMaxAttempts = 3

// Option configures optional behaviour for the Manager.
type Option func(*Manager)

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithMaxAttempts overrides the retry bound.
func WithMaxAttempts(n int) Option {
	return func(m *Manager) { m.maxAttempts = n }
}

// WithBackOff overrides the backoff policy factory, one policy per WithAuth call.
func WithBackOff(factory func() backoff.BackOff) Option {
	return func(m *Manager) { m.newBackOff = factory }
}

// Manager wraps provider operations with refresh-and-retry semantics and
// keeps the persisted token state in step with what the provider reports.
type Manager struct {
	refresher   Refresher
	store       Store
	maxAttempts int
	newBackOff  func() backoff.BackOff
	logger      *log.Logger
}

// NewManager constructs a Manager.
func NewManager(refresher Refresher, store Store, opts ...Option) *Manager {
	m := &Manager{
		refresher:   refresher,
		store:       store,
		maxAttempts: DefaultMaxAttempts,
		newBackOff:  defaultBackOff,
		logger:      log.New(log.Writer(), "[token] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func defaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second
	return bo
}

// EnsureValid returns a usable token, refreshing one that is locally known to
// be expired. Tokens stored as invalid or revoked short-circuit without a
// provider call.
func (m *Manager) EnsureValid(ctx context.Context, tok domain.AuthToken) (domain.AuthToken, error) {
	switch tok.Status {
	case domain.TokenStatusInvalid:
		return tok, domain.NewError(domain.KindAuthInvalid, "stored token for user %s is invalid", tok.SubjectUserID)
	case domain.TokenStatusRevoked:
		return tok, domain.NewError(domain.KindAuthRevoked, "stored token for user %s is revoked", tok.SubjectUserID)
	}

	if tok.Status == domain.TokenStatusExpired || tok.ExpiredBy(time.Now()) {
		return m.refresh(ctx, tok)
	}
	return tok, nil
}

// WithAuth executes op and recovers auth-expired failures by refreshing and
// retrying up to the attempt bound. Exhausting the bound is terminal but keeps
// its own kind so callers can distinguish it from a token the provider
// rejected outright.
func (m *Manager) WithAuth(ctx context.Context, tok domain.AuthToken, op func(context.Context, domain.AuthToken) error) (domain.AuthToken, error) {
	bo := m.newBackOff()

	for attempt := 1; ; attempt++ {
		err := op(ctx, tok)
		if err == nil {
			return tok, nil
		}

		kind, _ := domain.KindOf(err)
		switch kind {
		case domain.KindAuthExpired:
			if attempt >= m.maxAttempts {
				m.persistStatus(ctx, tok, domain.TokenStatusExpired)
				return tok, domain.WrapError(domain.KindAuthRefreshExhausted, err,
					"token refresh retries exhausted")
			}

			refreshed, refreshErr := m.refresh(ctx, tok)
			if refreshErr != nil {
				return tok, refreshErr
			}
			tok = refreshed

			if waitErr := m.wait(ctx, bo); waitErr != nil {
				return tok, waitErr
			}

		case domain.KindAuthInvalid:
			m.persistStatus(ctx, tok, domain.TokenStatusInvalid)
			return tok, err

		case domain.KindAuthRevoked:
			m.persistStatus(ctx, tok, domain.TokenStatusRevoked)
			return tok, err

		default:
			return tok, err
		}
	}
}

// refresh exchanges the token pair, carries over identity and watermark, and
// persists the new state before it is used.
func (m *Manager) refresh(ctx context.Context, tok domain.AuthToken) (domain.AuthToken, error) {
	refreshed, err := m.refresher.Refresh(ctx, tok.AccessToken, tok.RefreshToken)
	if err != nil {
		switch kind, _ := domain.KindOf(err); kind {
		case domain.KindAuthInvalid, domain.KindAuthExpired:
			m.persistStatus(ctx, tok, domain.TokenStatusInvalid)
			return tok, domain.WrapError(domain.KindAuthInvalid, err, "refresh rejected")
		case domain.KindAuthRevoked:
			m.persistStatus(ctx, tok, domain.TokenStatusRevoked)
			return tok, err
		}
		return tok, err
	}

	if refreshed.SubjectUserID == "" {
		refreshed.SubjectUserID = tok.SubjectUserID
	}
	refreshed.LastSyncAt = tok.LastSyncAt
	if len(refreshed.Scopes) == 0 {
		refreshed.Scopes = tok.Scopes
	}

	if err := m.store.Save(ctx, refreshed); err != nil {
		return tok, domain.WrapError(domain.KindStorage, err, "persist refreshed token")
	}
	return refreshed, nil
}

func (m *Manager) persistStatus(ctx context.Context, tok domain.AuthToken, status domain.TokenStatus) {
	tok.Status = status
	if err := m.store.Save(ctx, tok); err != nil {
		m.logger.Printf("persist token status=%s for user %s: %v", status, tok.SubjectUserID, err)
	}
}

func (m *Manager) wait(ctx context.Context, bo backoff.BackOff) error {
	delay := bo.NextBackOff()
	if delay == backoff.Stop {
		delay = time.Second
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
