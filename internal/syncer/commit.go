package syncer

import (
	"context"

	"example.com/trackersync/internal/domain"
	"example.com/trackersync/internal/events"
	"example.com/trackersync/internal/normalize"
)

// batch is one category's deduped items with their normalized entities,
// ready to commit.
type batch struct {
	category   domain.Category
	topic      string
	eventType  string
	items      []domain.RawItem
	records    []any
	companions []any // body fat entities split out of weight records
	logType    domain.LogType
}

// prepareBatch normalizes every item in a category. Normalization failures
// abort the run before anything is published.
func prepareBatch(category domain.Category, items []domain.RawItem, subjectID string) (batch, error) {
	b := batch{category: category, items: items}

	switch category {
	case domain.CategoryWeight:
		b.topic, b.eventType = events.TopicWeights, events.TypeWeightSynced
		for _, item := range items {
			weight, companion, err := normalize.Weight(item, subjectID)
			if err != nil {
				return batch{}, err
			}
			b.records = append(b.records, weight)
			if companion != nil {
				b.companions = append(b.companions, *companion)
			}
		}

	case domain.CategoryBodyFat:
		b.topic, b.eventType = events.TopicBodyFat, events.TypeBodyFatSynced
		for _, item := range items {
			fat, err := normalize.BodyFat(item, subjectID)
			if err != nil {
				return batch{}, err
			}
			b.records = append(b.records, fat)
		}

	case domain.CategoryActivity:
		b.topic, b.eventType = events.TopicActivities, events.TypeActivitySynced
		for _, item := range items {
			activity, err := normalize.Activity(item, subjectID)
			if err != nil {
				return batch{}, err
			}
			b.records = append(b.records, activity)
		}

	case domain.CategorySleep:
		b.topic, b.eventType = events.TopicSleep, events.TypeSleepSynced
		for _, item := range items {
			sleep, err := normalize.Sleep(item, subjectID)
			if err != nil {
				return batch{}, err
			}
			b.records = append(b.records, sleep)
		}

	default:
		logType, ok := category.LogType()
		if !ok {
			return batch{}, domain.NewError(domain.KindValidation, "unknown category %q", category)
		}
		b.topic, b.eventType, b.logType = events.TopicLogs, events.TypeLogSynced, logType
		for _, item := range items {
			entry, err := normalize.Log(item, subjectID)
			if err != nil {
				return batch{}, err
			}
			b.records = append(b.records, entry)
		}
	}

	return b, nil
}

// commitBatch publishes a non-empty batch and, only after publish succeeds,
// persists its snapshots. A crash between the two steps re-publishes on the
// next run; downstream consumers dedup on natural key.
func (e *Engine) commitBatch(ctx context.Context, userID string, b batch) error {
	if len(b.records) == 0 {
		return nil
	}

	if err := e.bus.PublishBatch(ctx, b.topic, b.eventType, userID, b.records); err != nil {
		return err
	}
	if len(b.companions) > 0 {
		if err := e.bus.PublishBatch(ctx, events.TopicBodyFat, events.TypeBodyFatSynced, userID, b.companions); err != nil {
			return err
		}
	}

	now := e.now().UTC()
	for _, item := range b.items {
		snapshot := domain.ResourceSnapshot{
			UserID:     userID,
			Provider:   e.providerName,
			Category:   item.Category,
			NaturalKey: item.NaturalKey,
			RawPayload: item.Payload,
			SyncedAt:   now,
		}
		if err := e.snapshots.Save(ctx, snapshot); err != nil {
			return err
		}
	}
	return nil
}

func tally(result *domain.SyncResult, b batch) {
	switch b.category {
	case domain.CategoryWeight:
		result.Weights += len(b.records)
	case domain.CategoryActivity:
		result.Activities += len(b.records)
	case domain.CategorySleep:
		result.Sleep += len(b.records)
	case domain.CategoryBodyFat:
		// standalone body fat entries are published but not counted
	default:
		if b.logType != "" {
			result.Logs[b.logType] += len(b.records)
		}
	}
}
