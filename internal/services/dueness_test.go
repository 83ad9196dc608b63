package services

import (
	"testing"

	"finbook/internal/core"
)

func TestWeeklyChecker_IsDue(t *testing.T) {
	checker := WeeklyChecker{}
	today := core.NewDate(2026, 1, 15)
	startDate := core.NewDate(2026, 1, 1)

	tests := []struct {
		name          string
		lastExecution core.Date
		want          bool
	}{
		{
			name:          "never executed - is due",
			lastExecution: core.Date{},
			want:          true,
		},
		{
			name:          "executed today - not due",
			lastExecution: core.NewDate(2026, 1, 15),
			want:          false,
		},
		{
			name:          "executed six days ago - not due",
			lastExecution: core.NewDate(2026, 1, 10),
			want:          false,
		},
		{
			name:          "executed seven days ago - is due",
			lastExecution: core.NewDate(2026, 1, 8),
			want:          true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checker.IsDue(tt.lastExecution, today, startDate)
			if got != tt.want {
				t.Errorf("WeeklyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeeklyChecker_NeverExecutedBeforeStart(t *testing.T) {
	checker := WeeklyChecker{}
	if checker.IsDue(core.Date{}, core.NewDate(2026, 1, 15), core.NewDate(2026, 2, 1)) {
		t.Error("plan should not be due before its start date")
	}
}

func TestMonthlyChecker_IsDue(t *testing.T) {
	checker := MonthlyChecker{}
	startDate := core.NewDate(2026, 1, 15)

	tests := []struct {
		name          string
		lastExecution core.Date
		today         core.Date
		want          bool
	}{
		{
			name:          "never executed on start date - is due",
			lastExecution: core.Date{},
			today:         core.NewDate(2026, 1, 15),
			want:          true,
		},
		{
			name:          "same month - not due",
			lastExecution: core.NewDate(2026, 1, 15),
			today:         core.NewDate(2026, 1, 31),
			want:          false,
		},
		{
			name:          "next month before anchor day - not due",
			lastExecution: core.NewDate(2026, 1, 15),
			today:         core.NewDate(2026, 2, 14),
			want:          false,
		},
		{
			name:          "next month on anchor day - is due",
			lastExecution: core.NewDate(2026, 1, 15),
			today:         core.NewDate(2026, 2, 15),
			want:          true,
		},
		{
			name:          "skipped a month - is due",
			lastExecution: core.NewDate(2026, 1, 15),
			today:         core.NewDate(2026, 3, 1),
			want:          true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checker.IsDue(tt.lastExecution, tt.today, startDate)
			if got != tt.want {
				t.Errorf("MonthlyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonthlyChecker_ClampsAnchorDay(t *testing.T) {
	checker := MonthlyChecker{}
	// Anchored on the 31st: February executes on the 28th.
	startDate := core.NewDate(2026, 1, 31)
	lastExecution := core.NewDate(2026, 1, 31)

	if checker.IsDue(lastExecution, core.NewDate(2026, 2, 27), startDate) {
		t.Error("should not be due before clamped anchor day")
	}
	if !checker.IsDue(lastExecution, core.NewDate(2026, 2, 28), startDate) {
		t.Error("should be due on the last day of February")
	}
}

func TestQuarterlyChecker_IsDue(t *testing.T) {
	checker := QuarterlyChecker{}
	startDate := core.NewDate(2026, 1, 10)
	lastExecution := core.NewDate(2026, 1, 10)

	if checker.IsDue(lastExecution, core.NewDate(2026, 3, 10), startDate) {
		t.Error("should not be due after two months")
	}
	if !checker.IsDue(lastExecution, core.NewDate(2026, 4, 10), startDate) {
		t.Error("should be due three months after execution")
	}
}

func TestYearlyChecker_IsDue(t *testing.T) {
	checker := YearlyChecker{}
	startDate := core.NewDate(2025, 6, 1)
	lastExecution := core.NewDate(2025, 6, 1)

	if checker.IsDue(lastExecution, core.NewDate(2026, 5, 31), startDate) {
		t.Error("should not be due before a year has passed")
	}
	if !checker.IsDue(lastExecution, core.NewDate(2026, 6, 1), startDate) {
		t.Error("should be due one year after execution")
	}
}

func TestGetDuenessChecker(t *testing.T) {
	for _, interval := range []core.PlanInterval{
		core.IntervalWeekly, core.IntervalMonthly,
		core.IntervalQuarterly, core.IntervalYearly,
	} {
		if _, err := GetDuenessChecker(interval); err != nil {
			t.Errorf("GetDuenessChecker(%s) error: %v", interval, err)
		}
	}
	if _, err := GetDuenessChecker("biweekly"); err == nil {
		t.Error("expected error for unknown interval")
	}
}
