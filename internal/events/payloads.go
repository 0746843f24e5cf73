// Package events defines the published topics, event payloads and the Kafka
// publisher used by the sync pipeline.
package events

import "time"

// Topics emitted and consumed by the service.
const (
	TopicWeights    = "tracker.weights"
	TopicBodyFat    = "tracker.bodyfat"
	TopicActivities = "tracker.activities"
	TopicSleep      = "tracker.sleep"
	TopicLogs       = "tracker.logs"
	TopicSyncState  = "tracker.sync_state"
	TopicSyncJobs   = "tracker.sync_jobs"
)

// Event type header values.
const (
	TypeWeightSynced      = "weight.synced"
	TypeBodyFatSynced     = "body_fat.synced"
	TypeActivitySynced    = "activity.synced"
	TypeSleepSynced       = "sleep.synced"
	TypeLogSynced         = "log.synced"
	TypeWatermarkAdvanced = "sync.watermark_advanced"
	TypeSyncRequested     = "sync.requested"
)

// WatermarkAdvanced notifies consumers that a user's sync watermark moved.
type WatermarkAdvanced struct {
	UserID     string    `json:"user_id"`
	Watermark  time.Time `json:"watermark"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SyncJob is the queued invocation payload. Consumer-side dedup against the
// snapshot ledger, not the queue, is the idempotence backstop.
type SyncJob struct {
	UserID string `json:"user_id"`
}
