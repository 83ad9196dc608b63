// Package services holds the business logic between the HTTP layer and
// storage: ownership checks, posting validation, budgets, reports, savings
// execution and the import/export/backup operations behind queued tasks.
package services

import (
	"fmt"

	"finbook/internal/core"
)

// DuenessChecker decides whether a savings plan should execute again. Each
// interval has its own implementation.
type DuenessChecker interface {
	// IsDue reports whether a plan whose last execution was lastExecution
	// (zero if never executed) is due on today. startDate anchors the
	// schedule, e.g. the day of month for monthly plans.
	IsDue(lastExecution, today, startDate core.Date) bool
}

// WeeklyChecker fires once every seven days.
type WeeklyChecker struct{}

func (WeeklyChecker) IsDue(lastExecution, today, startDate core.Date) bool {
	if lastExecution.IsZero() {
		return !today.Before(startDate)
	}
	return !today.Before(lastExecution.AddDays(7))
}

// MonthlyChecker fires once per month on the start date's day, clamped to
// shorter months.
type MonthlyChecker struct{}

func (MonthlyChecker) IsDue(lastExecution, today, startDate core.Date) bool {
	return dueByMonths(lastExecution, today, startDate, 1)
}

// QuarterlyChecker fires once every three months on the start date's day.
type QuarterlyChecker struct{}

func (QuarterlyChecker) IsDue(lastExecution, today, startDate core.Date) bool {
	return dueByMonths(lastExecution, today, startDate, 3)
}

// YearlyChecker fires once per year on the start date's month and day.
type YearlyChecker struct{}

func (YearlyChecker) IsDue(lastExecution, today, startDate core.Date) bool {
	return dueByMonths(lastExecution, today, startDate, 12)
}

// dueByMonths is the shared schedule arithmetic: the plan is due once the
// month distance from the last execution reaches months and today has reached
// the anchor day (clamped to the current month's length).
func dueByMonths(lastExecution, today, startDate core.Date, months int) bool {
	if lastExecution.IsZero() {
		return !today.Before(startDate)
	}
	elapsed := (today.Year()-lastExecution.Year())*12 + today.Month() - lastExecution.Month()
	if elapsed < months {
		return false
	}
	if elapsed > months {
		return true
	}
	targetDay := startDate.Day()
	if last := core.DaysInMonth(today.Year(), today.Month()); targetDay > last {
		targetDay = last
	}
	return today.Day() >= targetDay
}

var duenessStrategies = map[core.PlanInterval]DuenessChecker{
	core.IntervalWeekly:    WeeklyChecker{},
	core.IntervalMonthly:   MonthlyChecker{},
	core.IntervalQuarterly: QuarterlyChecker{},
	core.IntervalYearly:    YearlyChecker{},
}

// GetDuenessChecker returns the checker for a plan interval.
func GetDuenessChecker(interval core.PlanInterval) (DuenessChecker, error) {
	checker, ok := duenessStrategies[interval]
	if !ok {
		return nil, fmt.Errorf("unknown plan interval: %s", interval)
	}
	return checker, nil
}
