// Package domain defines the canonical entities and contracts shared by the sync pipeline.
package domain

// Category identifies one provider data stream. Log streams carry their
// sub-type in the category so the pipeline never has to re-derive it by
// inspecting payload shape.
type Category string

const (
	CategoryWeight   Category = "weight"
	CategoryBodyFat  Category = "body_fat"
	CategoryActivity Category = "activity"
	CategorySleep    Category = "sleep"

	CategoryLogSteps            Category = "log:steps"
	CategoryLogCalories         Category = "log:calories"
	CategoryLogDistance         Category = "log:distance"
	CategoryLogSedentaryMinutes Category = "log:sedentary_minutes"
	CategoryLogActiveMinutes    Category = "log:active_minutes"
)

// LogType enumerates the fixed set of daily log series emitted downstream.
type LogType string

const (
	LogTypeSteps            LogType = "steps"
	LogTypeCalories         LogType = "calories"
	LogTypeDistance         LogType = "distance"
	LogTypeSedentaryMinutes LogType = "sedentary_minutes"
	LogTypeActiveMinutes    LogType = "active_minutes"
)

// LogTypes lists every log sub-type in a stable order.
var LogTypes = []LogType{
	LogTypeSteps,
	LogTypeCalories,
	LogTypeDistance,
	LogTypeSedentaryMinutes,
	LogTypeActiveMinutes,
}

// LogCategories lists the log fetch categories in the same order as LogTypes.
var LogCategories = []Category{
	CategoryLogSteps,
	CategoryLogCalories,
	CategoryLogDistance,
	CategoryLogSedentaryMinutes,
	CategoryLogActiveMinutes,
}

// LogCategory maps a log sub-type to its fetch category.
func LogCategory(t LogType) Category {
	return Category("log:" + string(t))
}

// LogType returns the log sub-type carried by a log category.
func (c Category) LogType() (LogType, bool) {
	const prefix = "log:"
	s := string(c)
	if len(s) > len(prefix) && s[:len(prefix)] == prefix {
		return LogType(s[len(prefix):]), true
	}
	return "", false
}

// IsLog reports whether the category is one of the log sub-type streams.
func (c Category) IsLog() bool {
	_, ok := c.LogType()
	return ok
}
