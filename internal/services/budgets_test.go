package services

import (
	"testing"

	"finbook/internal/core"
)

func TestCountOccurrences_Monthly(t *testing.T) {
	tests := []struct {
		name string
		rule core.BudgetRule
		from core.Date
		to   core.Date
		want int
	}{
		{
			name: "one per month over a quarter",
			rule: core.BudgetRule{Frequency: core.FreqMonthly, Interval: 1, AnchorDate: core.NewDate(2026, 1, 15)},
			from: core.NewDate(2026, 1, 1),
			to:   core.NewDate(2026, 3, 31),
			want: 3,
		},
		{
			name: "window starts after anchor day",
			rule: core.BudgetRule{Frequency: core.FreqMonthly, Interval: 1, AnchorDate: core.NewDate(2026, 1, 15)},
			from: core.NewDate(2026, 1, 16),
			to:   core.NewDate(2026, 3, 31),
			want: 2,
		},
		{
			name: "every second month",
			rule: core.BudgetRule{Frequency: core.FreqMonthly, Interval: 2, AnchorDate: core.NewDate(2026, 1, 1)},
			from: core.NewDate(2026, 1, 1),
			to:   core.NewDate(2026, 6, 30),
			want: 3, // Jan, Mar, May
		},
		{
			name: "anchor after window",
			rule: core.BudgetRule{Frequency: core.FreqMonthly, Interval: 1, AnchorDate: core.NewDate(2026, 7, 1)},
			from: core.NewDate(2026, 1, 1),
			to:   core.NewDate(2026, 6, 30),
			want: 0,
		},
		{
			name: "end date truncates the window",
			rule: core.BudgetRule{
				Frequency:  core.FreqMonthly,
				Interval:   1,
				AnchorDate: core.NewDate(2026, 1, 15),
				EndDate:    core.NewDate(2026, 2, 28),
			},
			from: core.NewDate(2026, 1, 1),
			to:   core.NewDate(2026, 12, 31),
			want: 2, // Jan 15, Feb 15
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CountOccurrences(tt.rule, tt.from, tt.to)
			if got != tt.want {
				t.Errorf("CountOccurrences() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCountOccurrences_MonthlyClampsWithoutDrift(t *testing.T) {
	// Anchored on Jan 31: occurrences land on Jan 31, Feb 28, Mar 31 — the
	// clamped February execution must not pull later months to the 28th.
	rule := core.BudgetRule{Frequency: core.FreqMonthly, Interval: 1, AnchorDate: core.NewDate(2026, 1, 31)}

	if got := CountOccurrences(rule, core.NewDate(2026, 2, 1), core.NewDate(2026, 2, 28)); got != 1 {
		t.Errorf("February count = %d, want 1", got)
	}
	if got := CountOccurrences(rule, core.NewDate(2026, 3, 29), core.NewDate(2026, 3, 31)); got != 1 {
		t.Errorf("late March count = %d, want 1 (day must stay on the 31st)", got)
	}
	if got := CountOccurrences(rule, core.NewDate(2026, 3, 1), core.NewDate(2026, 3, 28)); got != 0 {
		t.Errorf("early March count = %d, want 0", got)
	}
}

func TestCountOccurrences_DailyAndWeekly(t *testing.T) {
	tests := []struct {
		name string
		rule core.BudgetRule
		from core.Date
		to   core.Date
		want int
	}{
		{
			name: "daily over ten days",
			rule: core.BudgetRule{Frequency: core.FreqDaily, Interval: 1, AnchorDate: core.NewDate(2026, 1, 1)},
			from: core.NewDate(2026, 1, 1),
			to:   core.NewDate(2026, 1, 10),
			want: 10,
		},
		{
			name: "every third day, window offset from anchor",
			rule: core.BudgetRule{Frequency: core.FreqDaily, Interval: 3, AnchorDate: core.NewDate(2026, 1, 1)},
			from: core.NewDate(2026, 1, 2),
			to:   core.NewDate(2026, 1, 10),
			want: 3, // Jan 4, 7, 10
		},
		{
			name: "weekly across one month",
			rule: core.BudgetRule{Frequency: core.FreqWeekly, Interval: 1, AnchorDate: core.NewDate(2026, 1, 5)},
			from: core.NewDate(2026, 1, 1),
			to:   core.NewDate(2026, 1, 31),
			want: 4, // Jan 5, 12, 19, 26
		},
		{
			name: "biweekly",
			rule: core.BudgetRule{Frequency: core.FreqWeekly, Interval: 2, AnchorDate: core.NewDate(2026, 1, 5)},
			from: core.NewDate(2026, 1, 1),
			to:   core.NewDate(2026, 2, 28),
			want: 4, // Jan 5, 19, Feb 2, 16
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CountOccurrences(tt.rule, tt.from, tt.to)
			if got != tt.want {
				t.Errorf("CountOccurrences() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCountOccurrences_Yearly(t *testing.T) {
	rule := core.BudgetRule{Frequency: core.FreqYearly, Interval: 1, AnchorDate: core.NewDate(2024, 6, 1)}
	got := CountOccurrences(rule, core.NewDate(2024, 1, 1), core.NewDate(2026, 12, 31))
	if got != 3 {
		t.Errorf("CountOccurrences() = %d, want 3", got)
	}
}

func TestCountOccurrences_InvertedWindow(t *testing.T) {
	rule := core.BudgetRule{Frequency: core.FreqDaily, Interval: 1, AnchorDate: core.NewDate(2026, 1, 1)}
	if got := CountOccurrences(rule, core.NewDate(2026, 2, 1), core.NewDate(2026, 1, 1)); got != 0 {
		t.Errorf("CountOccurrences() = %d, want 0", got)
	}
}
