package core

import (
	"strings"
	"time"
)

// RuleFrequency is the base cadence of a budget rule.
type RuleFrequency string

const (
	FreqDaily   RuleFrequency = "daily"
	FreqWeekly  RuleFrequency = "weekly"
	FreqMonthly RuleFrequency = "monthly"
	FreqYearly  RuleFrequency = "yearly"
)

// ParseRuleFrequency validates a wire-format frequency string.
func ParseRuleFrequency(s string) (RuleFrequency, error) {
	switch f := RuleFrequency(strings.TrimSpace(strings.ToLower(s))); f {
	case FreqDaily, FreqWeekly, FreqMonthly, FreqYearly:
		return f, nil
	default:
		return "", ErrInvalidRule
	}
}

// BudgetRule generates expected spending occurrences: one every Interval
// frequency-units starting at AnchorDate, optionally ending at EndDate.
// A monthly rule anchored on the 31st clamps to shorter months' last day.
type BudgetRule struct {
	ID         int64         `json:"id"`
	Frequency  RuleFrequency `json:"frequency"`
	Interval   int           `json:"interval"`
	AnchorDate Date          `json:"anchor_date"`
	EndDate    Date          `json:"end_date,omitempty"`
}

func (r BudgetRule) Validate() error {
	if _, err := ParseRuleFrequency(string(r.Frequency)); err != nil {
		return err
	}
	if r.Interval < 1 {
		return ErrInvalidRule
	}
	if err := r.AnchorDate.Validate(); err != nil {
		return ErrInvalidRule
	}
	if !r.EndDate.IsZero() && r.EndDate.Before(r.AnchorDate) {
		return ErrInvalidRule
	}
	return nil
}

// Budget caps spending for a category and/or posting kind. The expected amount
// for a window is the number of rule occurrences in it times
// AmountPerOccurrence; the actual amount is the sum of matching postings.
type Budget struct {
	ID                  int64        `json:"id"`
	UserID              int64        `json:"-"`
	Name                string       `json:"name"`
	CategoryID          int64        `json:"category_id,omitempty"`
	Kind                PostingKind  `json:"kind,omitempty"`
	AmountPerOccurrence Money        `json:"amount_per_occurrence_cents"`
	Rules               []BudgetRule `json:"rules"`
	Active              bool         `json:"active"`
	CreatedAt           time.Time    `json:"created_at"`
}

func (b Budget) Validate() error {
	if err := validateName(b.Name); err != nil {
		return err
	}
	if err := b.AmountPerOccurrence.Validate(); err != nil {
		return err
	}
	if b.CategoryID == 0 && b.Kind == "" {
		return ErrBudgetUnscoped
	}
	if b.Kind != "" {
		if _, err := ParsePostingKind(string(b.Kind)); err != nil {
			return err
		}
	}
	if len(b.Rules) == 0 {
		return ErrInvalidRule
	}
	for _, rule := range b.Rules {
		if err := rule.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// BudgetStatus is the computed state of a budget over a window.
type BudgetStatus struct {
	BudgetID    int64 `json:"budget_id"`
	From        Date  `json:"from"`
	To          Date  `json:"to"`
	Occurrences int   `json:"occurrences"`
	Expected    Money `json:"expected_cents"`
	Actual      Money `json:"actual_cents"`
	Remaining   Money `json:"remaining_cents"`
	Exceeded    bool  `json:"exceeded"`
}
