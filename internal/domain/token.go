package domain

import "time"

// TokenStatus tracks the lifecycle of a stored provider authorization.
type TokenStatus string

const (
	TokenStatusValid   TokenStatus = "valid"
	TokenStatusExpired TokenStatus = "expired"
	TokenStatusInvalid TokenStatus = "invalid"
	TokenStatusRevoked TokenStatus = "revoked"
)

// OAuth scopes granted by the provider, gating which categories a sync may fetch.
const (
	ScopeWeight   = "rwei"
	ScopeActivity = "ract"
	ScopeSleep    = "rsle"
)

// AuthToken is the persisted provider authorization for one subject.
// It is mutated only through refresh, revoke and watermark advancement.
type AuthToken struct {
	SubjectUserID string
	AccessToken   string
	RefreshToken  string
	TokenType     string
	ExpiresAt     int64 // unix seconds
	Scopes        map[string]struct{}
	Status        TokenStatus
	LastSyncAt    *time.Time
}

// HasScope reports whether the provider granted the given OAuth scope.
func (t AuthToken) HasScope(scope string) bool {
	_, ok := t.Scopes[scope]
	return ok
}

// ExpiredBy reports whether the access token is locally known to be expired at now.
func (t AuthToken) ExpiredBy(now time.Time) bool {
	return t.ExpiresAt > 0 && now.Unix() >= t.ExpiresAt
}

// ScopeList returns the scopes as a sorted-insensitive slice for persistence.
func (t AuthToken) ScopeList() []string {
	out := make([]string, 0, len(t.Scopes))
	for s := range t.Scopes {
		out = append(out, s)
	}
	return out
}

// ScopeSet builds the scope set from a persisted slice.
func ScopeSet(scopes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		if s != "" {
			set[s] = struct{}{}
		}
	}
	return set
}
