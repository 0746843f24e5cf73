// Package dedup drops raw provider items that were already committed in a
// previous run, using category-specific natural keys against the snapshot ledger.
package dedup

import (
	"encoding/json"
	"fmt"
	"strconv"

	"example.com/trackersync/internal/domain"
	"example.com/trackersync/internal/provider"
)

// DeriveKey computes the natural key for a raw item. Provider-assigned log ids
// are used where they exist; weight, body fat and log series fall back to a
// composite of date and value.
func DeriveKey(item domain.RawItem) (string, error) {
	switch item.Category {
	case domain.CategoryWeight:
		var rec provider.WeightRecord
		if err := json.Unmarshal(item.Payload, &rec); err != nil {
			return "", malformed(item.Category, err)
		}
		return rec.Date + "|" + formatValue(rec.Weight), nil

	case domain.CategoryBodyFat:
		var rec provider.BodyFatRecord
		if err := json.Unmarshal(item.Payload, &rec); err != nil {
			return "", malformed(item.Category, err)
		}
		return rec.Date + "|" + formatValue(rec.Fat), nil

	case domain.CategoryActivity:
		var rec provider.ActivityRecord
		if err := json.Unmarshal(item.Payload, &rec); err != nil {
			return "", malformed(item.Category, err)
		}
		if rec.LogID == 0 {
			return "", domain.NewError(domain.KindMalformedPayload, "activity record missing logId").WithCategory(item.Category)
		}
		return strconv.FormatInt(rec.LogID, 10), nil

	case domain.CategorySleep:
		var rec provider.SleepRecord
		if err := json.Unmarshal(item.Payload, &rec); err != nil {
			return "", malformed(item.Category, err)
		}
		if rec.LogID == 0 {
			return "", domain.NewError(domain.KindMalformedPayload, "sleep record missing logId").WithCategory(item.Category)
		}
		return strconv.FormatInt(rec.LogID, 10), nil

	case domain.CategoryLogActiveMinutes:
		var rec provider.ActiveMinutesPoint
		if err := json.Unmarshal(item.Payload, &rec); err != nil {
			return "", malformed(item.Category, err)
		}
		return rec.DateTime + "|" + formatValue(rec.MinutesFairly) + "|" + formatValue(rec.MinutesVeryActive), nil
	}

	if item.Category.IsLog() {
		var rec provider.SeriesPoint
		if err := json.Unmarshal(item.Payload, &rec); err != nil {
			return "", malformed(item.Category, err)
		}
		return rec.DateTime + "|" + rec.Value, nil
	}

	return "", domain.NewError(domain.KindValidation, "no key derivation for category %q", item.Category)
}

func malformed(category domain.Category, err error) error {
	return domain.WrapError(domain.KindMalformedPayload, err, fmt.Sprintf("derive key for %s", category)).WithCategory(category)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
