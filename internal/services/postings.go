package services

import (
	"context"
	"fmt"

	"finbook/internal/core"
	"finbook/internal/log"
	"finbook/internal/storage"
)

// Invalidator drops cached derived data for a user after a write. The report
// service implements it.
type Invalidator interface {
	Invalidate(userID int64)
}

// Notifier records an in-app notification. Implemented by NotificationService.
type Notifier interface {
	Notify(ctx context.Context, userID int64, kind core.NotificationKind, title, message string) error
}

// PostingService writes ledger entries. Every write validates the posting,
// checks that referenced entities belong to the same user, keeps the
// aggregates current (done transactionally in storage) and invalidates cached
// reports.
type PostingService struct {
	repo        *storage.Repository
	budgets     *BudgetService
	notifier    Notifier
	invalidator Invalidator
	logger      *log.Logger
}

func NewPostingService(repo *storage.Repository, budgets *BudgetService, notifier Notifier, logger *log.Logger) *PostingService {
	return &PostingService{
		repo:     repo,
		budgets:  budgets,
		notifier: notifier,
		logger:   logger.WithComponent(log.ComponentPostings),
	}
}

// SetInvalidator wires the report cache. Separate from the constructor because
// the report service is built after the posting service.
func (s *PostingService) SetInvalidator(inv Invalidator) { s.invalidator = inv }

func (s *PostingService) Create(ctx context.Context, p core.Posting) (core.Posting, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return core.Posting{}, err
	}
	if err := s.checkReferences(ctx, p); err != nil {
		return core.Posting{}, err
	}
	created, err := s.repo.CreatePosting(ctx, p, "")
	if err != nil {
		return core.Posting{}, err
	}
	s.afterWrite(ctx, created)
	s.logger.InfoContext(ctx, "posting created",
		log.FieldUserID, p.UserID,
		log.FieldPostingID, created.ID,
		log.FieldKind, p.Kind,
		log.FieldAmount, p.Amount.Cents)
	return created, nil
}

func (s *PostingService) Get(ctx context.Context, userID, id int64) (core.Posting, error) {
	return s.repo.GetPosting(ctx, userID, id)
}

func (s *PostingService) List(ctx context.Context, userID int64, f storage.PostingFilter) ([]core.Posting, error) {
	if !f.To.IsZero() && !f.From.IsZero() && f.To.Before(f.From) {
		return nil, core.ErrInvalidRange
	}
	return s.repo.ListPostings(ctx, userID, f)
}

func (s *PostingService) Update(ctx context.Context, p core.Posting) (core.Posting, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return core.Posting{}, err
	}
	if err := s.checkReferences(ctx, p); err != nil {
		return core.Posting{}, err
	}
	existing, err := s.repo.GetPosting(ctx, p.UserID, p.ID)
	if err != nil {
		return core.Posting{}, err
	}
	p.SavingsPlanID = existing.SavingsPlanID
	p.CreatedAt = existing.CreatedAt
	if err := s.repo.UpdatePosting(ctx, p); err != nil {
		return core.Posting{}, err
	}
	s.afterWrite(ctx, p)
	return p, nil
}

// Delete removes a posting and returns the IDs of attachment payloads that
// should be removed from disk.
func (s *PostingService) Delete(ctx context.Context, userID, id int64) ([]string, error) {
	attachmentIDs, err := s.repo.DeletePosting(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(userID)
	}
	s.logger.InfoContext(ctx, "posting deleted",
		log.FieldUserID, userID, log.FieldPostingID, id)
	return attachmentIDs, nil
}

// checkReferences verifies every foreign key points at a row owned by the
// posting's user. A reference to another user's row reads as not found.
func (s *PostingService) checkReferences(ctx context.Context, p core.Posting) error {
	if p.AccountID == 0 {
		return core.ErrMissingAccount
	}
	if _, err := s.repo.GetAccount(ctx, p.UserID, p.AccountID); err != nil {
		return fmt.Errorf("account %d: %w", p.AccountID, err)
	}
	if p.ContactID != 0 {
		if _, err := s.repo.GetContact(ctx, p.UserID, p.ContactID); err != nil {
			return fmt.Errorf("contact %d: %w", p.ContactID, err)
		}
	}
	if p.SecurityID != 0 {
		if _, err := s.repo.GetSecurity(ctx, p.UserID, p.SecurityID); err != nil {
			return fmt.Errorf("security %d: %w", p.SecurityID, err)
		}
	}
	if p.CategoryID != 0 {
		if _, err := s.repo.GetCategory(ctx, p.UserID, p.CategoryID); err != nil {
			return fmt.Errorf("category %d: %w", p.CategoryID, err)
		}
	}
	return nil
}

// afterWrite invalidates cached reports and raises a notification when this
// write tipped a budget over its expected amount.
func (s *PostingService) afterWrite(ctx context.Context, p core.Posting) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(p.UserID)
	}
	if s.budgets == nil || s.notifier == nil {
		return
	}

	budgets, err := s.budgets.Matching(ctx, p.UserID, p)
	if err != nil {
		s.logger.WarnContext(ctx, "budget lookup after posting write", "error", err)
		return
	}
	magnitude := p.Amount.Cents
	if magnitude < 0 {
		magnitude = -magnitude
	}
	for _, b := range budgets {
		status, err := s.budgets.MonthStatus(ctx, b, p.BookingDate)
		if err != nil {
			s.logger.WarnContext(ctx, "budget status after posting write",
				log.FieldBudgetID, b.ID, "error", err)
			continue
		}
		// Only the write that crosses the line notifies, not every one after.
		if !status.Exceeded || status.Actual.Cents-magnitude > status.Expected.Cents {
			continue
		}
		title := fmt.Sprintf("Budget %q exceeded", b.Name)
		message := fmt.Sprintf("Spent %s of %s for %s.",
			status.Actual, status.Expected, p.BookingDate.Format("January 2006"))
		if err := s.notifier.Notify(ctx, p.UserID, core.NotifyBudgetExceeded, title, message); err != nil {
			s.logger.WarnContext(ctx, "budget notification",
				log.FieldBudgetID, b.ID, "error", err)
		}
	}
}
