package models

import "time"

// DayLayout is the calendar-day key format used by Statistics.DailyProcessed.
const DayLayout = "2006-01-02"

// Statistics is the process-wide aggregate kept next to the application collection.
// It is only ever incremented, so it drifts from the live records after deletes.
type Statistics struct {
	DailyProcessed    map[string]int `json:"dailyProcessed"`
	TotalApplications int            `json:"totalApplications"`
	TotalApproved     int            `json:"totalApproved"`
	TotalRejected     int            `json:"totalRejected"`
}

// NewStatistics returns a zeroed aggregate.
func NewStatistics() Statistics {
	return Statistics{DailyProcessed: map[string]int{}}
}

// ProcessedOn returns the decisions recorded for the UTC calendar day of t.
func (s Statistics) ProcessedOn(t time.Time) int {
	return s.DailyProcessed[DayKey(t)]
}

// DayKey formats t as its UTC calendar day.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayLayout)
}
