package service

import (
	"github.com/noah-isme/lab-booking-api/internal/models"
	"github.com/noah-isme/lab-booking-api/pkg/timeofday"
)

// DefaultCapacityFactor derates the theoretical maximum number of tests per day.
const DefaultCapacityFactor = 0.75

// DailyCapacity returns how many tests fit into workingMinutes. It is at least 1
// whenever there are working minutes.
func DailyCapacity(workingMinutes, durationMinutes int, factor float64) int {
	if workingMinutes <= 0 {
		return 1
	}
	if durationMinutes <= 0 {
		durationMinutes = 1
	}
	if factor <= 0 || factor > 1 {
		factor = DefaultCapacityFactor
	}
	rawMax := workingMinutes / durationMinutes
	daily := int(float64(rawMax) * factor)
	if daily < 1 {
		daily = 1
	}
	return daily
}

// proportionalCapacity scales base by the share of the window covered by [opens, closes).
func proportionalCapacity(base int, wStart, wEnd, opens, closes timeofday.Clock) int {
	length := wEnd.Minutes() - wStart.Minutes()
	if length <= 0 {
		return 0
	}
	start := max(wStart.Minutes(), opens.Minutes())
	end := min(wEnd.Minutes(), closes.Minutes())
	if end <= start {
		return 0
	}
	adjusted := base * (end - start) / length
	if adjusted > base {
		return base
	}
	if adjusted < 0 {
		return 0
	}
	return adjusted
}

// applyOverride folds one open override into the running capacity of a window.
// Overrides without hours leave the window unconstrained.
func applyOverride(current int, window models.TestWindow, holiday *models.Holiday) int {
	if holiday == nil || holiday.IsClosed || holiday.OpensAt == nil || holiday.ClosesAt == nil {
		return current
	}
	return min(current, proportionalCapacity(window.MaxTests, window.WindowStart, window.WindowEnd, *holiday.OpensAt, *holiday.ClosesAt))
}

// EffectiveCapacity is the window's base capacity reduced by every open override.
// Closed overrides are the caller's concern and are skipped here.
func EffectiveCapacity(window models.TestWindow, overrides ...*models.Holiday) int {
	capacity := window.MaxTests
	for _, holiday := range overrides {
		capacity = applyOverride(capacity, window, holiday)
	}
	return capacity
}
