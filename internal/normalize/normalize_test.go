package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/trackersync/internal/domain"
)

func rawItem(category domain.Category, payload string) domain.RawItem {
	return domain.RawItem{Category: category, Payload: []byte(payload)}
}

func TestWeightSplitsBodyFatCompanion(t *testing.T) {
	item := rawItem(domain.CategoryWeight, `{"date":"2026-08-14","time":"08:15:30","weight":70.5,"fat":23.1,"source":"Aria"}`)

	weight, companion, err := Weight(item, "child-1")
	require.NoError(t, err)

	require.Equal(t, "child-1", weight.SubjectID)
	require.Equal(t, 70.5, weight.Kilograms)
	require.Equal(t, time.Date(2026, time.August, 14, 8, 15, 30, 0, time.UTC), weight.MeasuredAt)

	require.NotNil(t, companion)
	require.Equal(t, 23.1, companion.Percentage)
	require.Equal(t, weight.MeasuredAt, companion.MeasuredAt)
}

func TestWeightWithoutFatHasNoCompanion(t *testing.T) {
	item := rawItem(domain.CategoryWeight, `{"date":"2026-08-14","weight":70.5,"source":"API"}`)

	weight, companion, err := Weight(item, "child-1")
	require.NoError(t, err)
	require.Nil(t, companion)

	// Date-only records resolve to midnight.
	require.Equal(t, time.Date(2026, time.August, 14, 0, 0, 0, 0, time.UTC), weight.MeasuredAt)
}

func TestWeightMalformedDate(t *testing.T) {
	item := rawItem(domain.CategoryWeight, `{"date":"14/08/2026","weight":70.5}`)

	_, _, err := Weight(item, "child-1")
	require.True(t, domain.IsKind(err, domain.KindMalformedPayload))
}

func TestActivityConvertsUnits(t *testing.T) {
	item := rawItem(domain.CategoryActivity, `{
		"logId": 1001,
		"activityName": "Run",
		"startTime": "2026-08-14T07:00:00Z",
		"duration": 1800000,
		"distance": 2,
		"distanceUnit": "Mile",
		"calories": 250,
		"steps": 4200,
		"averageHeartRate": 140,
		"activityLevel": [
			{"name": "lightly", "minutes": 5},
			{"name": "very", "minutes": 20}
		]
	}`)

	activity, err := Activity(item, "child-1")
	require.NoError(t, err)

	require.Equal(t, "1001", activity.LogID)
	require.Equal(t, int64(1800000), activity.DurationMillis)
	require.Equal(t, 2*MetersPerMile, activity.DistanceMeters)
	require.InDelta(t, 3218.688, activity.DistanceMeters, 0.001)

	require.Len(t, activity.Levels, 2)
	require.Equal(t, int64(300000), activity.Levels[0].DurationMillis)
	require.Equal(t, int64(1200000), activity.Levels[1].DurationMillis)
}

func TestActivityKilometerDistance(t *testing.T) {
	item := rawItem(domain.CategoryActivity, `{"logId":1,"startTime":"2026-08-14T07:00:00Z","distance":5,"distanceUnit":"Kilometer"}`)

	activity, err := Activity(item, "child-1")
	require.NoError(t, err)
	require.Equal(t, float64(5000), activity.DistanceMeters)
}

func TestActivitySlotsHeartRateZonesByName(t *testing.T) {
	item := rawItem(domain.CategoryActivity, `{
		"logId": 1001,
		"startTime": "2026-08-14T07:00:00Z",
		"heartRateZones": [
			{"name": "Peak", "min": 165, "max": 220, "minutes": 3, "caloriesOut": 40},
			{"name": "Out of Range", "min": 30, "max": 95, "minutes": 10, "caloriesOut": 50},
			{"name": "Custom Zone", "min": 100, "max": 120, "minutes": 7},
			{"name": "Peak", "min": 1, "max": 2, "minutes": 99}
		]
	}`)

	activity, err := Activity(item, "child-1")
	require.NoError(t, err)

	zones := activity.Zones
	require.NotNil(t, zones.Peak)
	require.NotNil(t, zones.OutOfRange)
	require.Nil(t, zones.FatBurn)
	require.Nil(t, zones.Cardio)

	// First occurrence of a name wins; unknown names are ignored.
	require.Equal(t, 165, zones.Peak.MinBPM)
	require.Equal(t, int64(180000), zones.Peak.DurationMillis)
	require.Equal(t, int64(600000), zones.OutOfRange.DurationMillis)
}

func TestSleepPhasesSummary(t *testing.T) {
	item := rawItem(domain.CategorySleep, `{
		"logId": 2001,
		"startTime": "2026-08-13T22:30:00Z",
		"endTime": "2026-08-14T06:30:00Z",
		"duration": 28800000,
		"efficiency": 92,
		"isMainSleep": true,
		"levels": {
			"data": [
				{"dateTime": "2026-08-13T22:30:00Z", "level": "restless", "seconds": 300},
				{"dateTime": "2026-08-13T22:35:00Z", "level": "asleep", "seconds": 27000}
			],
			"summary": {
				"asleep": {"count": 1, "minutes": 450},
				"awake": {"count": 0, "minutes": 0},
				"restless": {"count": 1, "minutes": 5}
			}
		}
	}`)

	sleep, err := Sleep(item, "child-1")
	require.NoError(t, err)

	require.Equal(t, "2001", sleep.LogID)
	require.True(t, sleep.MainSleep)
	require.Len(t, sleep.Pattern.Data, 2)
	require.Equal(t, int64(27000), sleep.Pattern.Data[1].Seconds)

	require.NotNil(t, sleep.Pattern.Phases)
	require.Nil(t, sleep.Pattern.Stages)
	require.Equal(t, int64(450*MillisPerMinute), sleep.Pattern.Phases.Asleep.Millis)
	require.Equal(t, 1, sleep.Pattern.Phases.Restless.Count)
}

func TestSleepStagesSummary(t *testing.T) {
	item := rawItem(domain.CategorySleep, `{
		"logId": 2002,
		"startTime": "2026-08-13T22:30:00Z",
		"endTime": "2026-08-14T06:30:00Z",
		"duration": 28800000,
		"levels": {
			"summary": {
				"deep": {"count": 4, "minutes": 80},
				"light": {"count": 20, "minutes": 240},
				"rem": {"count": 5, "minutes": 100},
				"wake": {"count": 25, "minutes": 60}
			}
		}
	}`)

	sleep, err := Sleep(item, "child-1")
	require.NoError(t, err)

	require.Nil(t, sleep.Pattern.Phases)
	require.NotNil(t, sleep.Pattern.Stages)
	require.Equal(t, int64(80*MillisPerMinute), sleep.Pattern.Stages.Deep.Millis)
	require.Equal(t, 5, sleep.Pattern.Stages.REM.Count)
}

func TestSleepAmbiguousSummaryPrefersPhases(t *testing.T) {
	item := rawItem(domain.CategorySleep, `{
		"logId": 2003,
		"startTime": "2026-08-13T22:30:00Z",
		"endTime": "2026-08-14T06:30:00Z",
		"levels": {
			"summary": {
				"asleep": {"count": 1, "minutes": 400},
				"deep": {"count": 4, "minutes": 80}
			}
		}
	}`)

	sleep, err := Sleep(item, "child-1")
	require.NoError(t, err)
	require.NotNil(t, sleep.Pattern.Phases)
	require.Nil(t, sleep.Pattern.Stages)
}

func TestLogSeriesValue(t *testing.T) {
	item := rawItem(domain.CategoryLogSteps, `{"dateTime":"2026-08-14","value":"11520"}`)

	entry, err := Log(item, "child-1")
	require.NoError(t, err)
	require.Equal(t, domain.LogTypeSteps, entry.Type)
	require.Equal(t, "2026-08-14", entry.Date)
	require.Equal(t, float64(11520), entry.Value)
}

func TestLogActiveMinutesSumsSeries(t *testing.T) {
	item := rawItem(domain.CategoryLogActiveMinutes, `{"dateTime":"2026-08-14","minutesFairlyActive":22,"minutesVeryActive":13}`)

	entry, err := Log(item, "child-1")
	require.NoError(t, err)
	require.Equal(t, domain.LogTypeActiveMinutes, entry.Type)
	require.Equal(t, float64(35), entry.Value)
}

func TestLogRejectsNonNumericValue(t *testing.T) {
	item := rawItem(domain.CategoryLogCalories, `{"dateTime":"2026-08-14","value":"lots"}`)

	_, err := Log(item, "child-1")
	require.True(t, domain.IsKind(err, domain.KindMalformedPayload))
}

func TestLogRejectsNonLogCategory(t *testing.T) {
	item := rawItem(domain.CategoryWeight, `{}`)

	_, err := Log(item, "child-1")
	require.True(t, domain.IsKind(err, domain.KindValidation))
}
