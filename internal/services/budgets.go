package services

import (
	"context"

	"finbook/internal/core"
	"finbook/internal/log"
	"finbook/internal/storage"
)

// BudgetService manages budgets and computes their status over date windows.
// Expected spending is the number of rule occurrences in the window times the
// per-occurrence amount; actual spending is summed from matching postings.
type BudgetService struct {
	repo   *storage.Repository
	logger *log.Logger
}

func NewBudgetService(repo *storage.Repository, logger *log.Logger) *BudgetService {
	return &BudgetService{repo: repo, logger: logger.WithComponent(log.ComponentBudgets)}
}

func (s *BudgetService) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := s.checkCategory(ctx, b); err != nil {
		return core.Budget{}, err
	}
	b.Active = true
	created, err := s.repo.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, err
	}
	s.logger.InfoContext(ctx, "budget created",
		log.FieldUserID, b.UserID, log.FieldBudgetID, created.ID)
	return created, nil
}

func (s *BudgetService) Get(ctx context.Context, userID, id int64) (core.Budget, error) {
	return s.repo.GetBudget(ctx, userID, id)
}

func (s *BudgetService) List(ctx context.Context, userID int64, activeOnly bool) ([]core.Budget, error) {
	return s.repo.ListBudgets(ctx, userID, activeOnly)
}

func (s *BudgetService) Update(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := s.checkCategory(ctx, b); err != nil {
		return core.Budget{}, err
	}
	existing, err := s.repo.GetBudget(ctx, b.UserID, b.ID)
	if err != nil {
		return core.Budget{}, err
	}
	b.CreatedAt = existing.CreatedAt
	if err := s.repo.UpdateBudget(ctx, b); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (s *BudgetService) Delete(ctx context.Context, userID, id int64) error {
	return s.repo.DeleteBudget(ctx, userID, id)
}

func (s *BudgetService) checkCategory(ctx context.Context, b core.Budget) error {
	if b.CategoryID == 0 {
		return nil
	}
	_, err := s.repo.GetCategory(ctx, b.UserID, b.CategoryID)
	return err
}

// Status computes a budget's state over [from, to].
func (s *BudgetService) Status(ctx context.Context, userID, budgetID int64, from, to core.Date) (core.BudgetStatus, error) {
	b, err := s.repo.GetBudget(ctx, userID, budgetID)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	return s.statusOf(ctx, b, from, to)
}

func (s *BudgetService) statusOf(ctx context.Context, b core.Budget, from, to core.Date) (core.BudgetStatus, error) {
	if to.Before(from) {
		return core.BudgetStatus{}, core.ErrInvalidRange
	}
	occurrences := 0
	for _, rule := range b.Rules {
		occurrences += CountOccurrences(rule, from, to)
	}

	sum, err := s.repo.SumPostings(ctx, b.UserID, storage.PostingFilter{
		From:       from,
		To:         to,
		Basis:      core.BasisBooking,
		Kind:       b.Kind,
		CategoryID: b.CategoryID,
	})
	if err != nil {
		return core.BudgetStatus{}, err
	}
	// Spending postings carry negative amounts; budgets track magnitudes.
	if sum < 0 {
		sum = -sum
	}

	status := core.BudgetStatus{
		BudgetID:    b.ID,
		From:        from,
		To:          to,
		Occurrences: occurrences,
		Expected:    core.Money{Cents: int64(occurrences) * b.AmountPerOccurrence.Cents},
		Actual:      core.Money{Cents: sum},
	}
	status.Remaining = core.Money{Cents: status.Expected.Cents - status.Actual.Cents}
	status.Exceeded = status.Actual.Cents > status.Expected.Cents
	return status, nil
}

// MonthStatus is the status over the calendar month containing day. Posting
// writes use it to decide whether a budget just tipped over.
func (s *BudgetService) MonthStatus(ctx context.Context, b core.Budget, day core.Date) (core.BudgetStatus, error) {
	from := core.NewDate(day.Year(), day.Month(), 1)
	to := core.NewDate(day.Year(), day.Month(), core.DaysInMonth(day.Year(), day.Month()))
	return s.statusOf(ctx, b, from, to)
}

// Matching returns the user's active budgets whose scope covers a posting.
func (s *BudgetService) Matching(ctx context.Context, userID int64, p core.Posting) ([]core.Budget, error) {
	budgets, err := s.repo.ListBudgets(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	var matched []core.Budget
	for _, b := range budgets {
		if b.CategoryID != 0 && b.CategoryID != p.CategoryID {
			continue
		}
		if b.Kind != "" && b.Kind != p.Kind {
			continue
		}
		matched = append(matched, b)
	}
	return matched, nil
}

// CountOccurrences counts how many of a rule's scheduled dates fall inside
// [from, to] inclusive. Month-based schedules clamp the anchor day to shorter
// months, always measuring from the anchor so the day never drifts.
func CountOccurrences(rule core.BudgetRule, from, to core.Date) int {
	if to.Before(from) || rule.Interval < 1 {
		return 0
	}
	end := to
	if !rule.EndDate.IsZero() && rule.EndDate.Before(end) {
		end = rule.EndDate
	}
	if end.Before(rule.AnchorDate) {
		return 0
	}

	switch rule.Frequency {
	case core.FreqDaily, core.FreqWeekly:
		stepDays := rule.Interval
		if rule.Frequency == core.FreqWeekly {
			stepDays *= 7
		}
		return countDaySteps(rule.AnchorDate, from, end, stepDays)
	case core.FreqMonthly:
		return countMonthSteps(rule.AnchorDate, from, end, rule.Interval)
	case core.FreqYearly:
		return countMonthSteps(rule.AnchorDate, from, end, 12*rule.Interval)
	default:
		return 0
	}
}

func countDaySteps(anchor, from, end core.Date, stepDays int) int {
	first := 0
	if anchor.Before(from) {
		gap := int(from.Sub(anchor.Time).Hours() / 24)
		first = (gap + stepDays - 1) / stepDays
	}
	last := int(end.Sub(anchor.Time).Hours()/24) / stepDays
	if last < first {
		return 0
	}
	return last - first + 1
}

func countMonthSteps(anchor, from, end core.Date, stepMonths int) int {
	count := 0
	for k := 0; ; k++ {
		occurrence := anchor.AddMonths(k * stepMonths)
		if occurrence.After(end) {
			return count
		}
		if !occurrence.Before(from) {
			count++
		}
	}
}
