package core

import (
	"strings"
	"time"
)

// PostingKind is the type level of the report hierarchy. Kinds that reference a
// security require SecurityID; dividend, interest and security_sell postings
// may carry a withheld tax amount.
type PostingKind string

const (
	KindIncome       PostingKind = "income"
	KindExpense      PostingKind = "expense"
	KindTransfer     PostingKind = "transfer"
	KindSecurityBuy  PostingKind = "security_buy"
	KindSecuritySell PostingKind = "security_sell"
	KindDividend     PostingKind = "dividend"
	KindFee          PostingKind = "fee"
	KindInterest     PostingKind = "interest"
)

// PostingKinds lists all valid kinds in display order.
var PostingKinds = []PostingKind{
	KindIncome, KindExpense, KindTransfer,
	KindSecurityBuy, KindSecuritySell, KindDividend,
	KindFee, KindInterest,
}

// ParsePostingKind validates a wire-format kind string.
func ParsePostingKind(s string) (PostingKind, error) {
	k := PostingKind(strings.TrimSpace(strings.ToLower(s)))
	for _, valid := range PostingKinds {
		if k == valid {
			return k, nil
		}
	}
	return "", ErrInvalidKind
}

// RequiresSecurity reports whether postings of this kind must reference a security.
func (k PostingKind) RequiresSecurity() bool {
	switch k {
	case KindSecurityBuy, KindSecuritySell, KindDividend:
		return true
	}
	return false
}

// AllowsTax reports whether postings of this kind may carry withheld tax.
func (k PostingKind) AllowsTax() bool {
	switch k {
	case KindDividend, KindInterest, KindSecuritySell:
		return true
	}
	return false
}

// Posting is a single ledger entry on an account. Amount is signed: income,
// dividends and sell proceeds are positive; expenses, fees and buys negative.
// ValutaDate defaults to BookingDate when not set explicitly.
type Posting struct {
	ID            int64       `json:"id"`
	UserID        int64       `json:"-"`
	Kind          PostingKind `json:"kind"`
	AccountID     int64       `json:"account_id"`
	ContactID     int64       `json:"contact_id,omitempty"`
	SecurityID    int64       `json:"security_id,omitempty"`
	CategoryID    int64       `json:"category_id,omitempty"`
	SavingsPlanID int64       `json:"savings_plan_id,omitempty"`
	BookingDate   Date        `json:"booking_date"`
	ValutaDate    Date        `json:"valuta_date"`
	Amount        Money       `json:"amount_cents"`
	TaxAmount     Money       `json:"tax_cents,omitempty"`
	Note          string      `json:"note,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// NetAmount returns the amount after withheld tax. For postings without tax
// this equals Amount.
func (p Posting) NetAmount() Money {
	return Money{Cents: p.Amount.Cents - p.TaxAmount.Cents}
}

// Normalize fills derivable fields before validation: valuta falls back to the
// booking date.
func (p *Posting) Normalize() {
	if p.ValutaDate.IsZero() {
		p.ValutaDate = p.BookingDate
	}
}

func (p Posting) Validate() error {
	if _, err := ParsePostingKind(string(p.Kind)); err != nil {
		return err
	}
	if p.AccountID == 0 {
		return ErrMissingAccount
	}
	if err := p.BookingDate.Validate(); err != nil {
		return err
	}
	if err := p.ValutaDate.Validate(); err != nil {
		return err
	}
	if p.Amount.IsZero() {
		return ErrInvalidAmount
	}
	if p.Kind.RequiresSecurity() && p.SecurityID == 0 {
		return ErrMissingSecurity
	}
	if !p.TaxAmount.IsZero() {
		if !p.Kind.AllowsTax() {
			return ErrTaxNotAllowed
		}
		if p.TaxAmount.Cents < 0 {
			return ErrInvalidAmount
		}
		if abs(p.TaxAmount.Cents) > abs(p.Amount.Cents) {
			return ErrTaxExceedsAmount
		}
	}
	if len(p.Note) > 500 {
		return ErrNoteTooLong
	}
	return nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
