package core

import (
	"errors"
	"strings"
	"time"
)

// PlanInterval is the execution cadence of a savings plan.
type PlanInterval string

const (
	IntervalWeekly    PlanInterval = "weekly"
	IntervalMonthly   PlanInterval = "monthly"
	IntervalQuarterly PlanInterval = "quarterly"
	IntervalYearly    PlanInterval = "yearly"
)

// ParsePlanInterval validates a wire-format interval string.
func ParsePlanInterval(s string) (PlanInterval, error) {
	switch i := PlanInterval(strings.TrimSpace(strings.ToLower(s))); i {
	case IntervalWeekly, IntervalMonthly, IntervalQuarterly, IntervalYearly:
		return i, nil
	default:
		return "", ErrInvalidInterval
	}
}

// SavingsPlan books a recurring posting onto an account. The savings worker
// checks dueness against LastExecution and the interval; plans past EndDate
// are deactivated instead of executed.
type SavingsPlan struct {
	ID            int64        `json:"id"`
	UserID        int64        `json:"-"`
	Name          string       `json:"name"`
	AccountID     int64        `json:"account_id"`
	ContactID     int64        `json:"contact_id,omitempty"`
	CategoryID    int64        `json:"category_id,omitempty"`
	Amount        Money        `json:"amount_cents"`
	Interval      PlanInterval `json:"interval"`
	StartDate     Date         `json:"start_date"`
	EndDate       Date         `json:"end_date,omitempty"`
	LastExecution Date         `json:"last_execution,omitempty"`
	Active        bool         `json:"active"`
	CreatedAt     time.Time    `json:"created_at"`
}

func (p SavingsPlan) Validate() error {
	if err := validateName(p.Name); err != nil {
		return err
	}
	if p.AccountID == 0 {
		return ErrMissingAccount
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if _, err := ParsePlanInterval(string(p.Interval)); err != nil {
		return err
	}
	if err := p.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}
	if !p.EndDate.IsZero() && p.EndDate.Before(p.StartDate) {
		return errors.New("end date must not be before start date")
	}
	return nil
}

// Expired reports whether the plan's end date lies before the given day.
func (p SavingsPlan) Expired(today Date) bool {
	return !p.EndDate.IsZero() && p.EndDate.Before(today)
}
