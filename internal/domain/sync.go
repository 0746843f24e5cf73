package domain

import (
	"encoding/json"
	"time"
)

// DateLayout is the civil-date format used for provider windows and log dates.
const DateLayout = "2006-01-02"

// SyncWindow is a date-granular half-open fetch interval [Start, End).
// Windows are derived per run and never persisted. The provider wire uses
// inclusive boundary dates, so EndDate renders the day before End.
type SyncWindow struct {
	Start time.Time
	End   time.Time
}

// StartDate renders the window start as a provider date string.
func (w SyncWindow) StartDate() string { return w.Start.Format(DateLayout) }

// EndDate renders the inclusive window end as a provider date string.
func (w SyncWindow) EndDate() string { return w.End.AddDate(0, 0, -1).Format(DateLayout) }

// RawItem is a fetched provider record, tagged with its category and natural
// key at fetch time so later stages never re-derive them.
type RawItem struct {
	Category   Category
	NaturalKey string
	Payload    json.RawMessage
}

// ResourceSnapshot is the append-only dedup ledger entry proving a raw item
// was committed downstream.
type ResourceSnapshot struct {
	UserID     string
	Provider   string
	Category   Category
	NaturalKey string
	RawPayload json.RawMessage
	SyncedAt   time.Time
}

// SyncResult summarizes one sync run. It is returned to the caller and never persisted.
type SyncResult struct {
	Activities int             `json:"activities"`
	Weights    int             `json:"weights"`
	Sleep      int             `json:"sleep"`
	Logs       map[LogType]int `json:"logs"`
}

// NewSyncResult builds a result with every log sub-type present at zero.
func NewSyncResult() SyncResult {
	logs := make(map[LogType]int, len(LogTypes))
	for _, t := range LogTypes {
		logs[t] = 0
	}
	return SyncResult{Logs: logs}
}

// Total returns the number of entities published across all categories.
func (r SyncResult) Total() int {
	n := r.Activities + r.Weights + r.Sleep
	for _, c := range r.Logs {
		n += c
	}
	return n
}
