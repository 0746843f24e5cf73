// Package normalize maps raw provider payloads into canonical domain entities.
// Every function is pure: a well-formed payload always maps, a malformed one
// yields a malformed-payload error, nothing panics.
package normalize

import (
	"encoding/json"
	"strconv"
	"time"

	"example.com/trackersync/internal/domain"
	"example.com/trackersync/internal/provider"
)

// Unit conversion factors. All canonical durations are milliseconds, all
// canonical distances are meters.
const (
	MillisPerMinute = 60000
	MillisPerSecond = 1000

	MetersPerKilometer = 1000
	MetersPerMile      = 1609.344
)

// Weight normalizes a weight record. A body fat percentage nested inside the
// record is split into a companion BodyFat entity sharing the same timestamp.
func Weight(item domain.RawItem, subjectID string) (domain.Weight, *domain.BodyFat, error) {
	var rec provider.WeightRecord
	if err := json.Unmarshal(item.Payload, &rec); err != nil {
		return domain.Weight{}, nil, malformed(item.Category, err, "decode weight record")
	}

	measuredAt, err := parseDateTime(rec.Date, rec.Time)
	if err != nil {
		return domain.Weight{}, nil, malformed(item.Category, err, "parse weight timestamp")
	}

	weight := domain.Weight{
		SubjectID:  subjectID,
		MeasuredAt: measuredAt,
		Kilograms:  rec.Weight,
		Source:     rec.Source,
	}

	var companion *domain.BodyFat
	if rec.Fat > 0 {
		companion = &domain.BodyFat{
			SubjectID:  subjectID,
			MeasuredAt: measuredAt,
			Percentage: rec.Fat,
			Source:     rec.Source,
		}
	}
	return weight, companion, nil
}

// BodyFat normalizes a standalone body fat record.
func BodyFat(item domain.RawItem, subjectID string) (domain.BodyFat, error) {
	var rec provider.BodyFatRecord
	if err := json.Unmarshal(item.Payload, &rec); err != nil {
		return domain.BodyFat{}, malformed(item.Category, err, "decode body fat record")
	}

	measuredAt, err := parseDateTime(rec.Date, rec.Time)
	if err != nil {
		return domain.BodyFat{}, malformed(item.Category, err, "parse body fat timestamp")
	}

	return domain.BodyFat{
		SubjectID:  subjectID,
		MeasuredAt: measuredAt,
		Percentage: rec.Fat,
		Source:     rec.Source,
	}, nil
}

// Activity normalizes an activity session: duration stays in milliseconds,
// level minutes become milliseconds, distance becomes meters, and heart rate
// zones are slotted by exact provider name.
func Activity(item domain.RawItem, subjectID string) (domain.PhysicalActivity, error) {
	var rec provider.ActivityRecord
	if err := json.Unmarshal(item.Payload, &rec); err != nil {
		return domain.PhysicalActivity{}, malformed(item.Category, err, "decode activity record")
	}

	startedAt, err := time.Parse(time.RFC3339, rec.StartTime)
	if err != nil {
		return domain.PhysicalActivity{}, malformed(item.Category, err, "parse activity start time")
	}

	levels := make([]domain.ActivityLevel, 0, len(rec.ActivityLevels))
	for _, lvl := range rec.ActivityLevels {
		levels = append(levels, domain.ActivityLevel{
			Name:           lvl.Name,
			DurationMillis: int64(lvl.Minutes * MillisPerMinute),
		})
	}

	return domain.PhysicalActivity{
		SubjectID:        subjectID,
		LogID:            strconv.FormatInt(rec.LogID, 10),
		Name:             rec.ActivityName,
		StartedAt:        startedAt,
		DurationMillis:   rec.Duration,
		DistanceMeters:   distanceMeters(rec.Distance, rec.DistanceUnit),
		Calories:         rec.Calories,
		Steps:            rec.Steps,
		AverageHeartRate: rec.AverageHeartRate,
		Zones:            slotZones(rec.HeartRateZones),
		Levels:           levels,
	}, nil
}

// Provider zone names, matched exactly. Unmatched names leave their slot empty.
const (
	zoneOutOfRange = "Out of Range"
	zoneFatBurn    = "Fat Burn"
	zoneCardio     = "Cardio"
	zonePeak       = "Peak"
)

func slotZones(zones []provider.ZoneRecord) domain.HeartRateZones {
	var out domain.HeartRateZones
	for _, z := range zones {
		zone := &domain.HeartRateZone{
			MinBPM:         z.Min,
			MaxBPM:         z.Max,
			DurationMillis: int64(z.Minutes * MillisPerMinute),
			CaloriesOut:    z.CaloriesOut,
		}
		switch z.Name {
		case zoneOutOfRange:
			if out.OutOfRange == nil {
				out.OutOfRange = zone
			}
		case zoneFatBurn:
			if out.FatBurn == nil {
				out.FatBurn = zone
			}
		case zoneCardio:
			if out.Cardio == nil {
				out.Cardio = zone
			}
		case zonePeak:
			if out.Peak == nil {
				out.Peak = zone
			}
		}
	}
	return out
}

func distanceMeters(value float64, unit string) float64 {
	switch unit {
	case "Kilometer":
		return value * MetersPerKilometer
	case "Mile":
		return value * MetersPerMile
	default:
		return value
	}
}

// Sleep normalizes a sleep session. The summary shape is disambiguated
// structurally: phase keys (asleep/awake/restless) win over stage keys when a
// payload carries both, which is documented-undefined provider input.
func Sleep(item domain.RawItem, subjectID string) (domain.Sleep, error) {
	var rec provider.SleepRecord
	if err := json.Unmarshal(item.Payload, &rec); err != nil {
		return domain.Sleep{}, malformed(item.Category, err, "decode sleep record")
	}

	startedAt, err := time.Parse(time.RFC3339, rec.StartTime)
	if err != nil {
		return domain.Sleep{}, malformed(item.Category, err, "parse sleep start time")
	}
	endedAt, err := time.Parse(time.RFC3339, rec.EndTime)
	if err != nil {
		return domain.Sleep{}, malformed(item.Category, err, "parse sleep end time")
	}

	data := make([]domain.SleepDataPoint, 0, len(rec.Levels.Data))
	for _, p := range rec.Levels.Data {
		at, err := time.Parse(time.RFC3339, p.DateTime)
		if err != nil {
			return domain.Sleep{}, malformed(item.Category, err, "parse sleep data point")
		}
		data = append(data, domain.SleepDataPoint{At: at, Level: p.Level, Seconds: p.Seconds})
	}

	pattern := domain.SleepPattern{Data: data}
	if summary := rec.Levels.Summary; summary != nil {
		if isPhasesSummary(summary) {
			pattern.Phases = &domain.SleepPhasesSummary{
				Asleep:   phaseTotals(summary["asleep"]),
				Awake:    phaseTotals(summary["awake"]),
				Restless: phaseTotals(summary["restless"]),
			}
		} else {
			pattern.Stages = &domain.SleepStagesSummary{
				Deep:  phaseTotals(summary["deep"]),
				Light: phaseTotals(summary["light"]),
				REM:   phaseTotals(summary["rem"]),
				Wake:  phaseTotals(summary["wake"]),
			}
		}
	}

	return domain.Sleep{
		SubjectID:      subjectID,
		LogID:          strconv.FormatInt(rec.LogID, 10),
		StartedAt:      startedAt,
		EndedAt:        endedAt,
		DurationMillis: rec.Duration,
		Efficiency:     rec.Efficiency,
		MainSleep:      rec.IsMainSleep,
		Pattern:        pattern,
	}, nil
}

func isPhasesSummary(summary map[string]provider.SleepSummaryEntry) bool {
	for _, key := range []string{"asleep", "awake", "restless"} {
		if _, ok := summary[key]; ok {
			return true
		}
	}
	return false
}

func phaseTotals(entry provider.SleepSummaryEntry) domain.SleepPhaseTotals {
	return domain.SleepPhaseTotals{
		Count:  entry.Count,
		Millis: int64(entry.Minutes * MillisPerMinute),
	}
}

// Log normalizes one daily log entry. Active minutes carry the pointwise sum
// of the fairly-active and very-active series.
func Log(item domain.RawItem, subjectID string) (domain.Log, error) {
	logType, ok := item.Category.LogType()
	if !ok {
		return domain.Log{}, domain.NewError(domain.KindValidation, "category %q is not a log stream", item.Category)
	}

	if item.Category == domain.CategoryLogActiveMinutes {
		var rec provider.ActiveMinutesPoint
		if err := json.Unmarshal(item.Payload, &rec); err != nil {
			return domain.Log{}, malformed(item.Category, err, "decode active minutes point")
		}
		return domain.Log{
			SubjectID: subjectID,
			Type:      logType,
			Date:      rec.DateTime,
			Value:     rec.MinutesFairly + rec.MinutesVeryActive,
		}, nil
	}

	var rec provider.SeriesPoint
	if err := json.Unmarshal(item.Payload, &rec); err != nil {
		return domain.Log{}, malformed(item.Category, err, "decode series point")
	}
	value, err := strconv.ParseFloat(rec.Value, 64)
	if err != nil {
		return domain.Log{}, malformed(item.Category, err, "parse series value")
	}

	return domain.Log{
		SubjectID: subjectID,
		Type:      logType,
		Date:      rec.DateTime,
		Value:     value,
	}, nil
}

func parseDateTime(date, clock string) (time.Time, error) {
	if clock == "" {
		return time.Parse(domain.DateLayout, date)
	}
	return time.Parse(domain.DateLayout+" 15:04:05", date+" "+clock)
}

func malformed(category domain.Category, err error, msg string) error {
	return domain.WrapError(domain.KindMalformedPayload, err, msg).WithCategory(category)
}
