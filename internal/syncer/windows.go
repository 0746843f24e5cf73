package syncer

import (
	"time"

	"example.com/trackersync/internal/domain"
)

// backfillMonths is how far back a first sync reaches, chunked one month per
// window to bound provider payload sizes.
const backfillMonths = 6

// windowsFor computes the fetch windows for a run. With no watermark the run
// backfills the trailing six months in month-sized windows, oldest first,
// with the last window running through the current day. With a watermark it
// uses a single window from the watermark date to today.
func windowsFor(tok domain.AuthToken, now time.Time) []domain.SyncWindow {
	today := civilDate(now)

	if tok.LastSyncAt == nil {
		windows := make([]domain.SyncWindow, 0, backfillMonths)
		for i := 0; i < backfillMonths; i++ {
			windows = append(windows, domain.SyncWindow{
				Start: today.AddDate(0, i-backfillMonths, 0),
				End:   today.AddDate(0, i-backfillMonths+1, 0),
			})
		}
		// Stretch the final window to cover today, same as the watermark path.
		windows[backfillMonths-1].End = today.AddDate(0, 0, 1)
		return windows
	}

	return []domain.SyncWindow{{
		Start: civilDate(*tok.LastSyncAt),
		End:   today.AddDate(0, 0, 1),
	}}
}

// civilDate truncates a timestamp to its UTC date.
func civilDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
