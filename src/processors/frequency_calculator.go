// backend/src/processors/frequency_calculator.go
package processors

import (
	"time"

	"github.com/username/monbudget/backend/src/models"
	"github.com/username/monbudget/backend/src/utils"
)

// ComputeNext returns the first scheduled date strictly after from.
//
// from is the last executed date (or the start date). For month-based
// frequencies the day of month is anchorDay, clamped to the length of the
// target month; when anchorDay is 0 the day of from is used instead. The
// weekend policy is applied to the raw date. A roll-back that would land on
// or before from rolls forward to Monday instead.
func ComputeNext(freq models.Frequency, interval, anchorDay int, from models.Date, policy models.WeekendPolicy) models.Date {
	if interval < 1 {
		interval = 1
	}
	if anchorDay < 1 || anchorDay > 31 {
		anchorDay = 0
	}

	base := from
	if freq.IsMonthBased() && anchorDay > 0 {
		base = nominalDate(from, anchorDay, policy)
	}

	for {
		raw := advance(freq, interval, anchorDay, base)
		if adjusted := AdjustForWeekend(raw, policy); adjusted.After(from) {
			return adjusted
		}
		if forward := rollForward(raw); forward.After(from) {
			return forward
		}
		base = raw
	}
}

// FirstExecution seeds prochaine_execution for a new template: the first
// anchor date on or after start, weekend-adjusted, never before start.
func FirstExecution(freq models.Frequency, anchorDay int, start models.Date, policy models.WeekendPolicy) models.Date {
	candidate := start
	if freq.IsMonthBased() && anchorDay >= 1 && anchorDay <= 31 {
		candidate = dayInMonth(start.Year(), start.Month(), anchorDay)
		if candidate.Before(start) {
			candidate = addMonths(start, 1, anchorDay)
		}
	}

	adjusted := AdjustForWeekend(candidate, policy)
	if adjusted.Before(start) {
		return rollForward(candidate)
	}
	return adjusted
}

// NextExecution computes the date following from for tpl. Month-based
// templates without jour_execution are anchored on the day of date_debut so
// short months do not make the schedule drift.
func NextExecution(tpl *models.RecurrenceTemplate, from models.Date) models.Date {
	return ComputeNext(tpl.Frequence, tpl.Intervalle, effectiveAnchor(tpl), from, tpl.ToleranceWeekend)
}

// FirstExecutionFor is FirstExecution applied to tpl's schedule.
func FirstExecutionFor(tpl *models.RecurrenceTemplate) models.Date {
	return FirstExecution(tpl.Frequence, effectiveAnchor(tpl), tpl.DateDebut, tpl.ToleranceWeekend)
}

func effectiveAnchor(tpl *models.RecurrenceTemplate) int {
	if !tpl.Frequence.IsMonthBased() {
		return 0
	}
	if anchor := tpl.AnchorDay(); anchor > 0 {
		return anchor
	}
	return tpl.DateDebut.Day()
}

// AdjustForWeekend moves a Saturday or Sunday according to policy.
func AdjustForWeekend(d models.Date, policy models.WeekendPolicy) models.Date {
	switch d.Weekday() {
	case time.Saturday:
		switch policy {
		case models.WeekendNextBusinessDay:
			return d.AddDays(2)
		case models.WeekendPreviousBusinessDay:
			return d.AddDays(-1)
		}
	case time.Sunday:
		switch policy {
		case models.WeekendNextBusinessDay:
			return d.AddDays(1)
		case models.WeekendPreviousBusinessDay:
			return d.AddDays(-2)
		}
	}
	return d
}

func rollForward(d models.Date) models.Date {
	return AdjustForWeekend(d, models.WeekendNextBusinessDay)
}

// nominalDate undoes a weekend adjustment so the next period is counted from
// the unadjusted anchor date. Only a weekend day carrying the anchor, at most
// two days away in the direction the policy moved it, qualifies.
func nominalDate(from models.Date, anchorDay int, policy models.WeekendPolicy) models.Date {
	if from.Day() == clampDay(from.Year(), from.Month(), anchorDay) {
		return from
	}

	var offsets []int
	switch policy {
	case models.WeekendPreviousBusinessDay:
		offsets = []int{1, 2}
	case models.WeekendNextBusinessDay:
		offsets = []int{-1, -2}
	default:
		return from
	}

	for _, off := range offsets {
		c := from.AddDays(off)
		if utils.IsWeekend(c.Time) && c.Day() == clampDay(c.Year(), c.Month(), anchorDay) {
			return c
		}
	}
	return from
}

func advance(freq models.Frequency, interval, anchorDay int, base models.Date) models.Date {
	switch freq {
	case models.FrequencyDaily:
		return base.AddDays(interval)
	case models.FrequencyWeekly:
		return base.AddDays(7 * interval)
	}

	day := anchorDay
	if day == 0 {
		day = base.Day()
	}
	months := freq.MonthsPerPeriod()
	if months == 0 {
		// Unknown frequency: treat as monthly rather than loop forever.
		months = 1
	}
	return addMonths(base, months*interval, day)
}

// addMonths moves d by n months and places it on day, clamped to the month length.
func addMonths(d models.Date, n, day int) models.Date {
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return dayInMonth(first.Year(), first.Month(), day)
}

func dayInMonth(year int, month time.Month, day int) models.Date {
	return models.NewDate(year, month, clampDay(year, month, day))
}

func clampDay(year int, month time.Month, day int) int {
	if last := utils.DaysInMonth(year, month); day > last {
		return last
	}
	return day
}
