// Package provider implements the HTTP client for the fitness tracker API and
// classifies provider failures into the shared error taxonomy.
package provider

// Wire shapes returned by the provider API. Raw items carry these payloads
// through the pipeline; the dedup filter and normalizer unmarshal them again
// rather than holding parsed structs, keeping RawItem opaque.

// WeightRecord is one body weight log entry. The provider assigns no stable id
// to weight entries; dedup keys are derived from date and value.
type WeightRecord struct {
	Date   string  `json:"date"`
	Time   string  `json:"time"`
	Weight float64 `json:"weight"` // kilograms
	Fat    float64 `json:"fat,omitempty"`
	Source string  `json:"source"`
}

// BodyFatRecord is one body fat log entry.
type BodyFatRecord struct {
	Date   string  `json:"date"`
	Time   string  `json:"time"`
	Fat    float64 `json:"fat"`
	Source string  `json:"source"`
}

// ZoneRecord is one heart rate zone as reported by the provider, identified by
// free-text name.
type ZoneRecord struct {
	Name        string  `json:"name"`
	Min         int     `json:"min"`
	Max         int     `json:"max"`
	Minutes     float64 `json:"minutes"`
	CaloriesOut float64 `json:"caloriesOut"`
}

// LevelRecord is the time spent at one intensity level within an activity.
type LevelRecord struct {
	Name    string  `json:"name"`
	Minutes float64 `json:"minutes"`
}

// ActivityRecord is one logged activity session.
type ActivityRecord struct {
	LogID            int64         `json:"logId"`
	ActivityName     string        `json:"activityName"`
	StartTime        string        `json:"startTime"` // RFC 3339
	Duration         int64         `json:"duration"`  // milliseconds
	Distance         float64       `json:"distance"`
	DistanceUnit     string        `json:"distanceUnit"` // "Kilometer" or "Mile"
	Calories         int           `json:"calories"`
	Steps            int64         `json:"steps"`
	AverageHeartRate int           `json:"averageHeartRate"`
	HeartRateZones   []ZoneRecord  `json:"heartRateZones"`
	ActivityLevels   []LevelRecord `json:"activityLevel"`
}

// SleepLevelPoint is one ordered entry of the within-sleep level series.
type SleepLevelPoint struct {
	DateTime string `json:"dateTime"` // RFC 3339
	Level    string `json:"level"`
	Seconds  int64  `json:"seconds"`
}

// SleepSummaryEntry aggregates one phase or stage of a sleep session.
type SleepSummaryEntry struct {
	Count   int     `json:"count"`
	Minutes float64 `json:"minutes"`
}

// SleepLevels carries the data series plus the summary object. The summary is
// a map because the provider switches between the classic phase keys
// (asleep/awake/restless) and the stage keys (deep/light/rem/wake) without a
// type tag.
type SleepLevels struct {
	Data    []SleepLevelPoint            `json:"data"`
	Summary map[string]SleepSummaryEntry `json:"summary"`
}

// SleepRecord is one logged sleep session.
type SleepRecord struct {
	LogID       int64       `json:"logId"`
	StartTime   string      `json:"startTime"` // RFC 3339
	EndTime     string      `json:"endTime"`
	Duration    int64       `json:"duration"` // milliseconds
	Efficiency  int         `json:"efficiency"`
	IsMainSleep bool        `json:"isMainSleep"`
	Levels      SleepLevels `json:"levels"`
}

// SeriesPoint is one entry of a daily time series. Values arrive as strings on
// the wire.
type SeriesPoint struct {
	DateTime string `json:"dateTime"` // YYYY-MM-DD
	Value    string `json:"value"`
}

// ActiveMinutesPoint pairs the fairly-active and very-active series for one
// date. The pairing is positional and truncated to the shorter series; the
// normalizer sums the two fields.
type ActiveMinutesPoint struct {
	DateTime          string  `json:"dateTime"`
	MinutesFairly     float64 `json:"minutesFairlyActive"`
	MinutesVeryActive float64 `json:"minutesVeryActive"`
}
