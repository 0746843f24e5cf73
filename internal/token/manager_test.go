package token

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"

	"example.com/trackersync/internal/domain"
)

func newTestManager(refresher *stubRefresher, store *stubStore, t *testing.T, opts ...Option) *Manager {
	base := []Option{
		WithLogger(log.New(testWriter{t}, "", 0)),
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	}
	return NewManager(refresher, store, append(base, opts...)...)
}

func TestEnsureValidPassesThroughUsableToken(t *testing.T) {
	refresher := &stubRefresher{}
	store := &stubStore{}
	m := newTestManager(refresher, store, t)

	tok := domain.AuthToken{
		SubjectUserID: "user-1",
		AccessToken:   "access",
		ExpiresAt:     time.Now().Add(time.Hour).Unix(),
		Status:        domain.TokenStatusValid,
	}

	got, err := m.EnsureValid(context.Background(), tok)
	require.NoError(t, err)
	require.Equal(t, "access", got.AccessToken)
	require.Zero(t, refresher.calls)
}

func TestEnsureValidShortCircuitsInvalidAndRevoked(t *testing.T) {
	refresher := &stubRefresher{}
	store := &stubStore{}
	m := newTestManager(refresher, store, t)

	_, err := m.EnsureValid(context.Background(), domain.AuthToken{Status: domain.TokenStatusInvalid})
	require.True(t, domain.IsKind(err, domain.KindAuthInvalid))

	_, err = m.EnsureValid(context.Background(), domain.AuthToken{Status: domain.TokenStatusRevoked})
	require.True(t, domain.IsKind(err, domain.KindAuthRevoked))

	require.Zero(t, refresher.calls, "no provider call for terminal tokens")
}

func TestEnsureValidRefreshesExpiredToken(t *testing.T) {
	watermark := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	refresher := &stubRefresher{next: domain.AuthToken{
		AccessToken:  "fresh-access",
		RefreshToken: "fresh-refresh",
		ExpiresAt:    time.Now().Add(8 * time.Hour).Unix(),
		Status:       domain.TokenStatusValid,
	}}
	store := &stubStore{}
	m := newTestManager(refresher, store, t)

	stale := domain.AuthToken{
		SubjectUserID: "user-1",
		AccessToken:   "stale",
		RefreshToken:  "stale-refresh",
		ExpiresAt:     time.Now().Add(-time.Minute).Unix(),
		Scopes:        domain.ScopeSet([]string{domain.ScopeWeight}),
		Status:        domain.TokenStatusValid,
		LastSyncAt:    &watermark,
	}

	got, err := m.EnsureValid(context.Background(), stale)
	require.NoError(t, err)
	require.Equal(t, 1, refresher.calls)
	require.Equal(t, "fresh-access", got.AccessToken)

	// Identity, watermark and scopes carry over when the provider omits them.
	require.Equal(t, "user-1", got.SubjectUserID)
	require.Equal(t, &watermark, got.LastSyncAt)
	require.True(t, got.HasScope(domain.ScopeWeight))

	// The refreshed pair is persisted before use.
	require.Len(t, store.saved, 1)
	require.Equal(t, "fresh-refresh", store.saved[0].RefreshToken)
}

func TestWithAuthRefreshesAndRetries(t *testing.T) {
	refresher := &stubRefresher{next: domain.AuthToken{
		AccessToken:  "fresh",
		RefreshToken: "fresh-refresh",
		Status:       domain.TokenStatusValid,
	}}
	store := &stubStore{}
	m := newTestManager(refresher, store, t)

	calls := 0
	_, err := m.WithAuth(context.Background(), domain.AuthToken{SubjectUserID: "user-1", AccessToken: "stale"}, func(_ context.Context, tok domain.AuthToken) error {
		calls++
		if tok.AccessToken == "stale" {
			return domain.NewError(domain.KindAuthExpired, "expired")
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Equal(t, 1, refresher.calls)
}

func TestWithAuthExhaustsRetryBound(t *testing.T) {
	refresher := &stubRefresher{next: domain.AuthToken{
		AccessToken:  "fresh",
		RefreshToken: "fresh-refresh",
		Status:       domain.TokenStatusValid,
	}}
	store := &stubStore{}
	m := newTestManager(refresher, store, t, WithMaxAttempts(3))

	calls := 0
	_, err := m.WithAuth(context.Background(), domain.AuthToken{SubjectUserID: "user-1"}, func(context.Context, domain.AuthToken) error {
		calls++
		return domain.NewError(domain.KindAuthExpired, "still expired")
	})

	require.True(t, domain.IsKind(err, domain.KindAuthRefreshExhausted))
	require.Equal(t, 3, calls)
	// Three attempts mean exactly two refreshes in between.
	require.Equal(t, 2, refresher.calls)

	// The token stays expired rather than invalid so a later run may retry.
	last := store.saved[len(store.saved)-1]
	require.Equal(t, domain.TokenStatusExpired, last.Status)
}

func TestWithAuthInvalidTokenIsTerminal(t *testing.T) {
	refresher := &stubRefresher{}
	store := &stubStore{}
	m := newTestManager(refresher, store, t)

	calls := 0
	_, err := m.WithAuth(context.Background(), domain.AuthToken{SubjectUserID: "user-1"}, func(context.Context, domain.AuthToken) error {
		calls++
		return domain.NewError(domain.KindAuthInvalid, "bad token")
	})

	require.True(t, domain.IsKind(err, domain.KindAuthInvalid))
	require.Equal(t, 1, calls)
	require.Zero(t, refresher.calls)
	require.Equal(t, domain.TokenStatusInvalid, store.saved[0].Status)
}

func TestRefreshRejectionMarksToken(t *testing.T) {
	cases := []struct {
		name       string
		refreshErr error
		wantKind   domain.ErrorKind
		wantStatus domain.TokenStatus
	}{
		{
			name:       "invalid grant revokes",
			refreshErr: domain.NewError(domain.KindAuthRevoked, "invalid_grant"),
			wantKind:   domain.KindAuthRevoked,
			wantStatus: domain.TokenStatusRevoked,
		},
		{
			name:       "rejected refresh invalidates",
			refreshErr: domain.NewError(domain.KindAuthInvalid, "invalid_token"),
			wantKind:   domain.KindAuthInvalid,
			wantStatus: domain.TokenStatusInvalid,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			refresher := &stubRefresher{err: tc.refreshErr}
			store := &stubStore{}
			m := newTestManager(refresher, store, t)

			_, err := m.WithAuth(context.Background(), domain.AuthToken{SubjectUserID: "user-1"}, func(context.Context, domain.AuthToken) error {
				return domain.NewError(domain.KindAuthExpired, "expired")
			})

			require.True(t, domain.IsKind(err, tc.wantKind))
			require.Equal(t, tc.wantStatus, store.saved[0].Status)
		})
	}
}

func TestWithAuthPassesThroughOtherFailures(t *testing.T) {
	refresher := &stubRefresher{}
	store := &stubStore{}
	m := newTestManager(refresher, store, t)

	_, err := m.WithAuth(context.Background(), domain.AuthToken{}, func(context.Context, domain.AuthToken) error {
		return domain.NewError(domain.KindRateLimited, "slow down")
	})

	require.True(t, domain.IsKind(err, domain.KindRateLimited))
	require.Zero(t, refresher.calls)
	require.Empty(t, store.saved)
}

type stubRefresher struct {
	calls int
	next  domain.AuthToken
	err   error
}

func (r *stubRefresher) Refresh(_ context.Context, _, _ string) (domain.AuthToken, error) {
	r.calls++
	if r.err != nil {
		return domain.AuthToken{}, r.err
	}
	return r.next, nil
}

type stubStore struct {
	saved []domain.AuthToken
	err   error
}

func (s *stubStore) Save(_ context.Context, tok domain.AuthToken) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, tok)
	return nil
}

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.t.Log(string(p))
	return len(p), nil
}
