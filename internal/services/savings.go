package services

import (
	"context"
	"fmt"

	"finbook/internal/core"
	"finbook/internal/log"
	"finbook/internal/storage"
)

// SavingsService manages savings plans and executes the due ones: each
// execution books a transfer posting off the plan's account and advances the
// plan's last execution date.
type SavingsService struct {
	repo        *storage.Repository
	notifier    Notifier
	invalidator Invalidator
	logger      *log.Logger
}

func NewSavingsService(repo *storage.Repository, notifier Notifier, logger *log.Logger) *SavingsService {
	return &SavingsService{
		repo:     repo,
		notifier: notifier,
		logger:   logger.WithComponent(log.ComponentSavings),
	}
}

func (s *SavingsService) SetInvalidator(inv Invalidator) { s.invalidator = inv }

func (s *SavingsService) Create(ctx context.Context, p core.SavingsPlan) (core.SavingsPlan, error) {
	if err := p.Validate(); err != nil {
		return core.SavingsPlan{}, err
	}
	if err := s.checkReferences(ctx, p); err != nil {
		return core.SavingsPlan{}, err
	}
	p.Active = true
	p.LastExecution = core.Date{}
	created, err := s.repo.CreateSavingsPlan(ctx, p)
	if err != nil {
		return core.SavingsPlan{}, err
	}
	s.logger.InfoContext(ctx, "savings plan created",
		log.FieldUserID, p.UserID, log.FieldPlanID, created.ID)
	return created, nil
}

func (s *SavingsService) Get(ctx context.Context, userID, id int64) (core.SavingsPlan, error) {
	return s.repo.GetSavingsPlan(ctx, userID, id)
}

func (s *SavingsService) List(ctx context.Context, userID int64, activeOnly bool) ([]core.SavingsPlan, error) {
	return s.repo.ListSavingsPlans(ctx, userID, activeOnly)
}

func (s *SavingsService) Update(ctx context.Context, p core.SavingsPlan) (core.SavingsPlan, error) {
	if err := p.Validate(); err != nil {
		return core.SavingsPlan{}, err
	}
	if err := s.checkReferences(ctx, p); err != nil {
		return core.SavingsPlan{}, err
	}
	existing, err := s.repo.GetSavingsPlan(ctx, p.UserID, p.ID)
	if err != nil {
		return core.SavingsPlan{}, err
	}
	p.LastExecution = existing.LastExecution
	p.CreatedAt = existing.CreatedAt
	if err := s.repo.UpdateSavingsPlan(ctx, p); err != nil {
		return core.SavingsPlan{}, err
	}
	return p, nil
}

func (s *SavingsService) Deactivate(ctx context.Context, userID, id int64) error {
	return s.repo.DeactivateSavingsPlan(ctx, userID, id)
}

func (s *SavingsService) Delete(ctx context.Context, userID, id int64) error {
	return s.repo.DeleteSavingsPlan(ctx, userID, id)
}

func (s *SavingsService) checkReferences(ctx context.Context, p core.SavingsPlan) error {
	if _, err := s.repo.GetAccount(ctx, p.UserID, p.AccountID); err != nil {
		return fmt.Errorf("account %d: %w", p.AccountID, err)
	}
	if p.ContactID != 0 {
		if _, err := s.repo.GetContact(ctx, p.UserID, p.ContactID); err != nil {
			return fmt.Errorf("contact %d: %w", p.ContactID, err)
		}
	}
	if p.CategoryID != 0 {
		if _, err := s.repo.GetCategory(ctx, p.UserID, p.CategoryID); err != nil {
			return fmt.Errorf("category %d: %w", p.CategoryID, err)
		}
	}
	return nil
}

// Execute runs a plan immediately regardless of its schedule, booking the
// transfer posting and advancing the last execution date. Inactive plans
// return ErrNotFound.
func (s *SavingsService) Execute(ctx context.Context, userID, id int64, today core.Date) (core.SavingsPlan, error) {
	plan, err := s.repo.GetSavingsPlan(ctx, userID, id)
	if err != nil {
		return core.SavingsPlan{}, err
	}
	if !plan.Active {
		return core.SavingsPlan{}, core.ErrNotFound
	}
	if err := s.executePlan(ctx, plan, today); err != nil {
		return core.SavingsPlan{}, err
	}
	return s.repo.GetSavingsPlan(ctx, userID, id)
}

// ExecuteDue runs one scheduling pass over every active plan. Expired plans
// are deactivated; due plans get a transfer posting and a notification.
// Returns how many plans executed.
func (s *SavingsService) ExecuteDue(ctx context.Context, today core.Date) (int, error) {
	plans, err := s.repo.ListActiveSavingsPlansAllUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active plans: %w", err)
	}

	executed := 0
	for _, plan := range plans {
		if plan.Expired(today) {
			if err := s.repo.DeactivateSavingsPlan(ctx, plan.UserID, plan.ID); err != nil {
				s.logger.ErrorContext(ctx, "deactivate expired plan",
					log.FieldPlanID, plan.ID, "error", err)
			} else {
				s.logger.InfoContext(ctx, "savings plan expired",
					log.FieldUserID, plan.UserID, log.FieldPlanID, plan.ID)
			}
			continue
		}

		checker, err := GetDuenessChecker(plan.Interval)
		if err != nil {
			s.logger.ErrorContext(ctx, "savings plan has unknown interval",
				log.FieldPlanID, plan.ID, "error", err)
			continue
		}
		if !checker.IsDue(plan.LastExecution, today, plan.StartDate) {
			continue
		}

		if err := s.executePlan(ctx, plan, today); err != nil {
			s.logger.ErrorContext(ctx, "execute savings plan",
				log.FieldUserID, plan.UserID, log.FieldPlanID, plan.ID, "error", err)
			continue
		}
		executed++
	}
	return executed, nil
}

func (s *SavingsService) executePlan(ctx context.Context, plan core.SavingsPlan, today core.Date) error {
	posting := core.Posting{
		UserID:        plan.UserID,
		Kind:          core.KindTransfer,
		AccountID:     plan.AccountID,
		ContactID:     plan.ContactID,
		CategoryID:    plan.CategoryID,
		SavingsPlanID: plan.ID,
		BookingDate:   today,
		ValutaDate:    today,
		Amount:        plan.Amount.Neg(),
		Note:          fmt.Sprintf("Savings plan: %s", plan.Name),
	}
	if _, err := s.repo.CreatePosting(ctx, posting, ""); err != nil {
		return fmt.Errorf("create posting: %w", err)
	}
	if err := s.repo.UpdateSavingsPlanExecution(ctx, plan.UserID, plan.ID, today); err != nil {
		return fmt.Errorf("record execution: %w", err)
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(plan.UserID)
	}
	s.logger.InfoContext(ctx, "savings plan executed",
		log.FieldUserID, plan.UserID,
		log.FieldPlanID, plan.ID,
		log.FieldAmount, plan.Amount.Cents)

	if s.notifier == nil {
		return nil
	}
	title := fmt.Sprintf("Savings plan %q executed", plan.Name)
	message := fmt.Sprintf("Transferred %s on %s.", plan.Amount, today)
	if err := s.notifier.Notify(ctx, plan.UserID, core.NotifySavingsExecuted, title, message); err != nil {
		s.logger.WarnContext(ctx, "savings notification", log.FieldPlanID, plan.ID, "error", err)
	}
	return nil
}
