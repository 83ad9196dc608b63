package services

import (
	"context"

	"finbook/internal/core"
	"finbook/internal/log"
	"finbook/internal/storage"
)

// EntityService manages the reference data postings point at: accounts,
// contacts, securities and categories. Deletion is refused while any posting
// or plan still references the row.
type EntityService struct {
	repo   *storage.Repository
	logger *log.Logger
}

func NewEntityService(repo *storage.Repository, logger *log.Logger) *EntityService {
	return &EntityService{repo: repo, logger: logger.WithComponent(log.ComponentStorage)}
}

func (s *EntityService) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	a.Active = true
	return s.repo.CreateAccount(ctx, a)
}

func (s *EntityService) GetAccount(ctx context.Context, userID, id int64) (core.Account, error) {
	return s.repo.GetAccount(ctx, userID, id)
}

func (s *EntityService) ListAccounts(ctx context.Context, userID int64, activeOnly bool) ([]core.Account, error) {
	return s.repo.ListAccounts(ctx, userID, activeOnly)
}

func (s *EntityService) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	existing, err := s.repo.GetAccount(ctx, a.UserID, a.ID)
	if err != nil {
		return core.Account{}, err
	}
	a.CreatedAt = existing.CreatedAt
	if err := s.repo.UpdateAccount(ctx, a); err != nil {
		return core.Account{}, err
	}
	return a, nil
}

func (s *EntityService) DeleteAccount(ctx context.Context, userID, id int64) error {
	return s.repo.DeleteAccount(ctx, userID, id)
}

func (s *EntityService) CreateContact(ctx context.Context, c core.Contact) (core.Contact, error) {
	if err := c.Validate(); err != nil {
		return core.Contact{}, err
	}
	c.Active = true
	return s.repo.CreateContact(ctx, c)
}

func (s *EntityService) GetContact(ctx context.Context, userID, id int64) (core.Contact, error) {
	return s.repo.GetContact(ctx, userID, id)
}

func (s *EntityService) ListContacts(ctx context.Context, userID int64, activeOnly bool) ([]core.Contact, error) {
	return s.repo.ListContacts(ctx, userID, activeOnly)
}

func (s *EntityService) UpdateContact(ctx context.Context, c core.Contact) (core.Contact, error) {
	if err := c.Validate(); err != nil {
		return core.Contact{}, err
	}
	existing, err := s.repo.GetContact(ctx, c.UserID, c.ID)
	if err != nil {
		return core.Contact{}, err
	}
	c.CreatedAt = existing.CreatedAt
	if err := s.repo.UpdateContact(ctx, c); err != nil {
		return core.Contact{}, err
	}
	return c, nil
}

func (s *EntityService) DeleteContact(ctx context.Context, userID, id int64) error {
	return s.repo.DeleteContact(ctx, userID, id)
}

func (s *EntityService) CreateSecurity(ctx context.Context, sec core.Security) (core.Security, error) {
	if err := sec.Validate(); err != nil {
		return core.Security{}, err
	}
	sec.Active = true
	return s.repo.CreateSecurity(ctx, sec)
}

func (s *EntityService) GetSecurity(ctx context.Context, userID, id int64) (core.Security, error) {
	return s.repo.GetSecurity(ctx, userID, id)
}

func (s *EntityService) ListSecurities(ctx context.Context, userID int64, activeOnly bool) ([]core.Security, error) {
	return s.repo.ListSecurities(ctx, userID, activeOnly)
}

func (s *EntityService) UpdateSecurity(ctx context.Context, sec core.Security) (core.Security, error) {
	if err := sec.Validate(); err != nil {
		return core.Security{}, err
	}
	existing, err := s.repo.GetSecurity(ctx, sec.UserID, sec.ID)
	if err != nil {
		return core.Security{}, err
	}
	sec.CreatedAt = existing.CreatedAt
	if err := s.repo.UpdateSecurity(ctx, sec); err != nil {
		return core.Security{}, err
	}
	return sec, nil
}

func (s *EntityService) DeleteSecurity(ctx context.Context, userID, id int64) error {
	return s.repo.DeleteSecurity(ctx, userID, id)
}

func (s *EntityService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c.Active = true
	return s.repo.CreateCategory(ctx, c)
}

func (s *EntityService) GetCategory(ctx context.Context, userID, id int64) (core.Category, error) {
	return s.repo.GetCategory(ctx, userID, id)
}

func (s *EntityService) ListCategories(ctx context.Context, userID int64, activeOnly bool) ([]core.Category, error) {
	return s.repo.ListCategories(ctx, userID, activeOnly)
}

func (s *EntityService) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	existing, err := s.repo.GetCategory(ctx, c.UserID, c.ID)
	if err != nil {
		return core.Category{}, err
	}
	c.CreatedAt = existing.CreatedAt
	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func (s *EntityService) DeleteCategory(ctx context.Context, userID, id int64) error {
	return s.repo.DeleteCategory(ctx, userID, id)
}
