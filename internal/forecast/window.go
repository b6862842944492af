package forecast

import "github.com/andresuchdata/reorder-planner/internal/domain"

// Direction selects how a window is walked from its anchor date
type Direction int

const (
	// Forward starts at the anchor day and walks into later months (demand forecasting).
	Forward Direction = iota
	// Backward treats the anchor day as the window end and walks into earlier months (growth lookback).
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// SumProRatedWindow pro-rates a 12-month history over windowDays days anchored at
// (anchorMonth, anchorDay). Each month's total is spread evenly across its days.
// Windows longer than a year wrap the same 12-month pattern again.
// history must hold 12 entries; callers validate that.
func SumProRatedWindow(history []float64, anchorMonth, anchorDay, windowDays int, dir Direction) float64 {
	if windowDays <= 0 {
		return 0
	}

	total := 0.0
	daysLeft := windowDays
	m := anchorMonth

	// First, partial segment inside the anchor month
	first := anchorDay
	if dir == Forward {
		first = domain.DaysInMonth[m] - anchorDay + 1
	}
	if first > 0 {
		used := min(daysLeft, first)
		total += dailyRate(history, m) * float64(used)
		daysLeft -= used
		m = step(m, dir)
	}

	// Then whole (or the final partial) months
	for daysLeft > 0 {
		used := min(daysLeft, domain.DaysInMonth[m])
		total += dailyRate(history, m) * float64(used)
		daysLeft -= used
		m = step(m, dir)
	}

	return total
}

// WindowMonths returns the month indices a forward window touches, in walk order
// and without repeats.
func WindowMonths(anchorMonth, anchorDay, windowDays int) []int {
	var months []int
	seen := make(map[int]bool, domain.MonthsPerYear)
	add := func(m int) {
		if !seen[m] {
			seen[m] = true
			months = append(months, m)
		}
	}

	daysLeft := windowDays
	m := anchorMonth
	if first := domain.DaysInMonth[m] - anchorDay + 1; first > 0 && daysLeft > 0 {
		add(m)
		daysLeft -= min(daysLeft, first)
		m = step(m, Forward)
	}
	for daysLeft > 0 && len(months) < domain.MonthsPerYear {
		add(m)
		daysLeft -= min(daysLeft, domain.DaysInMonth[m])
		m = step(m, Forward)
	}

	return months
}

func dailyRate(history []float64, month int) float64 {
	return history[month] / float64(domain.DaysInMonth[month])
}

func step(m int, dir Direction) int {
	if dir == Backward {
		return (m - 1 + domain.MonthsPerYear) % domain.MonthsPerYear
	}
	return (m + 1) % domain.MonthsPerYear
}
