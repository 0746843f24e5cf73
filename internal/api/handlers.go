// Package api exposes HTTP handlers for the sync service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"example.com/trackersync/internal/auth"
	"example.com/trackersync/internal/domain"
	"example.com/trackersync/internal/events"
)

// SyncEngine is the engine surface the handlers need.
type SyncEngine interface {
	RunSync(ctx context.Context, userID string) (domain.SyncResult, error)
	Authorization(ctx context.Context, userID string) (domain.AuthToken, error)
	RevokeAuthorization(ctx context.Context, userID string) error
}

// JobEnqueuer publishes queued sync invocations.
type JobEnqueuer interface {
	Publish(ctx context.Context, topic, eventType, userID string, record any) error
}

// Handler coordinates HTTP requests with the sync engine.
type Handler struct {
	engine   SyncEngine
	enqueuer JobEnqueuer
}

// NewHandler builds a Handler.
func NewHandler(engine SyncEngine, enqueuer JobEnqueuer) *Handler {
	return &Handler{engine: engine, enqueuer: enqueuer}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/sync", h.sync)
	mux.HandleFunc("/v1/sync/", h.syncByUser)
	mux.HandleFunc("/v1/tokens/", h.tokenByUser)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// SyncRequest is the payload for POST /v1/sync.
type SyncRequest struct {
	UserID string `json:"user_id"`
}

// Validate ensures request correctness.
func (r SyncRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("user_id is required")
	}
	return nil
}

// SyncEnqueuedResponse acknowledges a queued sync job.
type SyncEnqueuedResponse struct {
	UserID string `json:"user_id"`
	Queued bool   `json:"queued"`
}

func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeSyncWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope sync:write required")
		return
	}

	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	if r.URL.Query().Get("mode") == "enqueue" {
		job := events.SyncJob{UserID: req.UserID}
		if err := h.enqueuer.Publish(r.Context(), events.TopicSyncJobs, events.TypeSyncRequested, req.UserID, job); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, SyncEnqueuedResponse{UserID: req.UserID, Queued: true})
		return
	}

	result, err := h.engine.RunSync(r.Context(), req.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// AuthorizationStatusResponse describes the stored provider authorization.
type AuthorizationStatusResponse struct {
	UserID    string     `json:"user_id"`
	Status    string     `json:"status"`
	Scopes    []string   `json:"scopes"`
	Watermark *time.Time `json:"watermark,omitempty"`
}

func (h *Handler) syncByUser(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/sync/")
	userID, tail, _ := strings.Cut(rest, "/")
	if userID == "" || tail != "status" {
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeSyncRead) && !claims.HasScope(auth.ScopeSyncWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope sync:read required")
		return
	}

	tok, err := h.engine.Authorization(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AuthorizationStatusResponse{
		UserID:    tok.SubjectUserID,
		Status:    string(tok.Status),
		Scopes:    tok.ScopeList(),
		Watermark: tok.LastSyncAt,
	})
}

func (h *Handler) tokenByUser(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimPrefix(r.URL.Path, "/v1/tokens/")
	if userID == "" || strings.Contains(userID, "/") {
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
		return
	}
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeSyncWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope sync:write required")
		return
	}

	if err := h.engine.RevokeAuthorization(r.Context(), userID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	kind, ok := domain.KindOf(err)
	if !ok {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	switch kind {
	case domain.KindValidation:
		writeError(w, http.StatusBadRequest, string(kind), err.Error())
	case domain.KindAuthExpired, domain.KindAuthInvalid, domain.KindAuthRevoked, domain.KindAuthRefreshExhausted:
		writeError(w, http.StatusConflict, string(kind), err.Error())
	case domain.KindRateLimited:
		writeError(w, http.StatusTooManyRequests, string(kind), err.Error())
	case domain.KindProviderUnavailable, domain.KindMalformedPayload:
		writeError(w, http.StatusBadGateway, string(kind), err.Error())
	default:
		writeError(w, http.StatusInternalServerError, string(kind), err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
