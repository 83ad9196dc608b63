package services

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"finbook/internal/core"
	"finbook/internal/log"
	"finbook/internal/storage"
)

// RowError ties an import failure to its 1-based CSV line.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportResult summarizes one CSV import run.
type ImportResult struct {
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors,omitempty"`
}

// ImportService reads postings from CSV. Referenced accounts, categories,
// contacts and securities are resolved by name and must already exist; rows
// are deduplicated by a content hash so re-running the same file is safe.
type ImportService struct {
	repo        *storage.Repository
	invalidator Invalidator
	logger      *log.Logger
}

func NewImportService(repo *storage.Repository, logger *log.Logger) *ImportService {
	return &ImportService{repo: repo, logger: logger.WithComponent(log.ComponentImport)}
}

func (s *ImportService) SetInvalidator(inv Invalidator) { s.invalidator = inv }

// columns of the import format, in order.
const (
	colBookingDate = iota
	colValutaDate
	colKind
	colAmount
	colTax
	colAccount
	colCategory
	colContact
	colSecurity
	colNote
	columnCount
)

// Run parses and imports the CSV. A malformed file fails as a whole; bad rows
// are reported per line and do not stop the rest.
func (s *ImportService) Run(ctx context.Context, userID int64, r io.Reader) (ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = columnCount
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return ImportResult{}, fmt.Errorf("read csv header: %w", err)
	}
	if !strings.EqualFold(strings.TrimSpace(header[colBookingDate]), "booking_date") {
		return ImportResult{}, errors.New("unrecognized csv header, expected booking_date,valuta_date,kind,amount,tax,account,category,contact,security,note")
	}

	resolver, err := newNameResolver(ctx, s.repo, userID)
	if err != nil {
		return ImportResult{}, err
	}

	var result ImportResult
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			result.Errors = append(result.Errors, RowError{Line: line, Message: err.Error()})
			continue
		}

		posting, err := s.parseRow(record, userID, resolver)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Line: line, Message: err.Error()})
			continue
		}

		_, err = s.repo.CreatePosting(ctx, posting, rowHash(userID, record))
		switch {
		case errors.Is(err, core.ErrDuplicatePosting):
			result.Skipped++
		case err != nil:
			result.Errors = append(result.Errors, RowError{Line: line, Message: err.Error()})
		default:
			result.Imported++
		}
	}

	if result.Imported > 0 && s.invalidator != nil {
		s.invalidator.Invalidate(userID)
	}
	s.logger.InfoContext(ctx, "import finished",
		log.FieldUserID, userID,
		"imported", result.Imported,
		"skipped", result.Skipped,
		"failed", len(result.Errors))
	return result, nil
}

func (s *ImportService) parseRow(record []string, userID int64, resolver *nameResolver) (core.Posting, error) {
	bookingDate, err := core.ParseDate(strings.TrimSpace(record[colBookingDate]))
	if err != nil {
		return core.Posting{}, fmt.Errorf("booking_date %q: %w", record[colBookingDate], err)
	}
	valutaDate := bookingDate
	if v := strings.TrimSpace(record[colValutaDate]); v != "" {
		if valutaDate, err = core.ParseDate(v); err != nil {
			return core.Posting{}, fmt.Errorf("valuta_date %q: %w", v, err)
		}
	}
	kind, err := core.ParsePostingKind(record[colKind])
	if err != nil {
		return core.Posting{}, fmt.Errorf("kind %q: %w", record[colKind], err)
	}
	amountCents, err := core.ParseSignedDecimalToCents(record[colAmount])
	if err != nil {
		return core.Posting{}, fmt.Errorf("amount %q: %w", record[colAmount], err)
	}
	var taxCents int64
	if v := strings.TrimSpace(record[colTax]); v != "" {
		if taxCents, err = core.ParseDecimalToCents(v); err != nil {
			return core.Posting{}, fmt.Errorf("tax %q: %w", v, err)
		}
	}

	p := core.Posting{
		UserID:      userID,
		Kind:        kind,
		BookingDate: bookingDate,
		ValutaDate:  valutaDate,
		Amount:      core.Money{Cents: amountCents},
		TaxAmount:   core.Money{Cents: taxCents},
		Note:        strings.TrimSpace(record[colNote]),
	}

	if p.AccountID, err = resolver.account(record[colAccount]); err != nil {
		return core.Posting{}, err
	}
	if p.CategoryID, err = resolver.category(record[colCategory]); err != nil {
		return core.Posting{}, err
	}
	if p.ContactID, err = resolver.contact(record[colContact]); err != nil {
		return core.Posting{}, err
	}
	if p.SecurityID, err = resolver.security(record[colSecurity]); err != nil {
		return core.Posting{}, err
	}

	if err := p.Validate(); err != nil {
		return core.Posting{}, err
	}
	return p, nil
}

// rowHash fingerprints one CSV row for idempotent re-imports. The hash covers
// the raw field values, so editing a row in the file makes it a new posting.
func rowHash(userID int64, record []string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d", userID)
	for _, field := range record {
		h.Write([]byte{0})
		h.Write([]byte(strings.TrimSpace(field)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// nameResolver maps case-insensitive entity names to IDs. Unknown names are
// errors; the importer never creates reference data on the fly.
type nameResolver struct {
	accounts   map[string]int64
	categories map[string]int64
	contacts   map[string]int64
	securities map[string]int64
}

func newNameResolver(ctx context.Context, repo *storage.Repository, userID int64) (*nameResolver, error) {
	r := &nameResolver{
		accounts:   map[string]int64{},
		categories: map[string]int64{},
		contacts:   map[string]int64{},
		securities: map[string]int64{},
	}

	accounts, err := repo.ListAccounts(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		r.accounts[normalizeName(a.Name)] = a.ID
	}
	categories, err := repo.ListCategories(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	for _, c := range categories {
		r.categories[normalizeName(c.Name)] = c.ID
	}
	contacts, err := repo.ListContacts(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	for _, c := range contacts {
		r.contacts[normalizeName(c.Name)] = c.ID
	}
	securities, err := repo.ListSecurities(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	for _, sec := range securities {
		r.securities[normalizeName(sec.Name)] = sec.ID
	}
	return r, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (r *nameResolver) account(name string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, core.ErrMissingAccount
	}
	id, ok := r.accounts[normalizeName(name)]
	if !ok {
		return 0, fmt.Errorf("unknown account %q", strings.TrimSpace(name))
	}
	return id, nil
}

func (r *nameResolver) category(name string) (int64, error) {
	return r.optional(r.categories, name, "category")
}

func (r *nameResolver) contact(name string) (int64, error) {
	return r.optional(r.contacts, name, "contact")
}

func (r *nameResolver) security(name string) (int64, error) {
	return r.optional(r.securities, name, "security")
}

func (r *nameResolver) optional(names map[string]int64, name, what string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, nil
	}
	id, ok := names[normalizeName(name)]
	if !ok {
		return 0, fmt.Errorf("unknown %s %q", what, strings.TrimSpace(name))
	}
	return id, nil
}
