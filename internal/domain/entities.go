package domain

import "time"

// Weight is a normalized body weight measurement in kilograms.
type Weight struct {
	SubjectID  string    `json:"child_id"`
	MeasuredAt time.Time `json:"measured_at"`
	Kilograms  float64   `json:"kilograms"`
	Source     string    `json:"source,omitempty"`
}

// BodyFat is a normalized body fat percentage measurement.
type BodyFat struct {
	SubjectID  string    `json:"child_id"`
	MeasuredAt time.Time `json:"measured_at"`
	Percentage float64   `json:"percentage"`
	Source     string    `json:"source,omitempty"`
}

// HeartRateZone summarizes time spent in one heart rate band.
type HeartRateZone struct {
	MinBPM         int     `json:"min_bpm"`
	MaxBPM         int     `json:"max_bpm"`
	DurationMillis int64   `json:"duration_millis"`
	CaloriesOut    float64 `json:"calories_out"`
}

// HeartRateZones holds at most one zone per canonical slot. Slots the
// provider did not report are nil.
type HeartRateZones struct {
	OutOfRange *HeartRateZone `json:"out_of_range,omitempty"`
	FatBurn    *HeartRateZone `json:"fat_burn,omitempty"`
	Cardio     *HeartRateZone `json:"cardio,omitempty"`
	Peak       *HeartRateZone `json:"peak,omitempty"`
}

// ActivityLevel is the time spent at one intensity level within an activity.
type ActivityLevel struct {
	Name           string `json:"name"`
	DurationMillis int64  `json:"duration_millis"`
}

// PhysicalActivity is a normalized activity session.
type PhysicalActivity struct {
	SubjectID        string          `json:"child_id"`
	LogID            string          `json:"log_id"`
	Name             string          `json:"name"`
	StartedAt        time.Time       `json:"started_at"`
	DurationMillis   int64           `json:"duration_millis"`
	DistanceMeters   float64         `json:"distance_meters"`
	Calories         int             `json:"calories"`
	Steps            int64           `json:"steps"`
	AverageHeartRate int             `json:"average_heart_rate,omitempty"`
	Zones            HeartRateZones  `json:"heart_rate_zones"`
	Levels           []ActivityLevel `json:"levels,omitempty"`
}

// SleepDataPoint is one ordered entry of the within-sleep level series.
type SleepDataPoint struct {
	At      time.Time `json:"at"`
	Level   string    `json:"level"`
	Seconds int64     `json:"seconds"`
}

// SleepPhaseTotals aggregates one classic-format sleep phase.
type SleepPhaseTotals struct {
	Count  int   `json:"count"`
	Millis int64 `json:"millis"`
}

// SleepPhasesSummary is the classic asleep/awake/restless summary shape.
type SleepPhasesSummary struct {
	Asleep   SleepPhaseTotals `json:"asleep"`
	Awake    SleepPhaseTotals `json:"awake"`
	Restless SleepPhaseTotals `json:"restless"`
}

// SleepStagesSummary is the stages-format deep/light/rem/wake summary shape.
type SleepStagesSummary struct {
	Deep  SleepPhaseTotals `json:"deep"`
	Light SleepPhaseTotals `json:"light"`
	REM   SleepPhaseTotals `json:"rem"`
	Wake  SleepPhaseTotals `json:"wake"`
}

// SleepPattern carries the ordered data series plus exactly one summary shape.
// Phases and Stages are mutually exclusive; the populated one mirrors the
// structure the provider returned.
type SleepPattern struct {
	Data   []SleepDataPoint    `json:"data"`
	Phases *SleepPhasesSummary `json:"phases,omitempty"`
	Stages *SleepStagesSummary `json:"stages,omitempty"`
}

// Sleep is a normalized sleep session.
type Sleep struct {
	SubjectID      string       `json:"child_id"`
	LogID          string       `json:"log_id"`
	StartedAt      time.Time    `json:"started_at"`
	EndedAt        time.Time    `json:"ended_at"`
	DurationMillis int64        `json:"duration_millis"`
	Efficiency     int          `json:"efficiency,omitempty"`
	MainSleep      bool         `json:"main_sleep"`
	Pattern        SleepPattern `json:"pattern"`
}

// Log is one normalized daily log entry of a fixed sub-type.
type Log struct {
	SubjectID string  `json:"child_id"`
	Type      LogType `json:"type"`
	Date      string  `json:"date"` // YYYY-MM-DD
	Value     float64 `json:"value"`
}
