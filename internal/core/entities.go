package core

import (
	"strings"
	"time"
)

// AccountKind classifies an account for display and reporting.
type AccountKind string

const (
	AccountChecking  AccountKind = "checking"
	AccountSavings   AccountKind = "savings"
	AccountBrokerage AccountKind = "brokerage"
	AccountCash      AccountKind = "cash"
)

// Account is a bank or cash account owned by a user. Postings always belong to
// exactly one account.
type Account struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"-"`
	Name      string      `json:"name"`
	IBAN      string      `json:"iban,omitempty"`
	Kind      AccountKind `json:"kind"`
	Note      string      `json:"note,omitempty"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"created_at"`
}

func (a Account) Validate() error {
	if err := validateName(a.Name); err != nil {
		return err
	}
	switch a.Kind {
	case AccountChecking, AccountSavings, AccountBrokerage, AccountCash:
	default:
		return ErrInvalidKind
	}
	return nil
}

// Contact is a counterparty: an employer, a shop, a landlord. Entity-level
// report rows group postings by contact.
type Contact struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	Name      string    `json:"name"`
	IBAN      string    `json:"iban,omitempty"`
	Note      string    `json:"note,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func (c Contact) Validate() error {
	return validateName(c.Name)
}

// Security is a tradable instrument referenced by buy/sell/dividend postings.
type Security struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	Name      string    `json:"name"`
	ISIN      string    `json:"isin,omitempty"`
	Symbol    string    `json:"symbol,omitempty"`
	Note      string    `json:"note,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func (s Security) Validate() error {
	if err := validateName(s.Name); err != nil {
		return err
	}
	if s.ISIN != "" && len(s.ISIN) != 12 {
		return ErrInvalidISIN
	}
	return nil
}

// Category labels postings for budgeting and the middle level of report trees.
type Category struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	Name      string    `json:"name"`
	Note      string    `json:"note,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func (c Category) Validate() error {
	return validateName(c.Name)
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > 200 {
		return ErrNameTooLong
	}
	return nil
}
