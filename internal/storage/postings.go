package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"finbook/internal/core"
)

// PostingFilter narrows posting listings and exports. Zero values mean "any".
type PostingFilter struct {
	From       core.Date
	To         core.Date
	Basis      core.DateBasis
	Kind       core.PostingKind
	AccountID  int64
	CategoryID int64
	ContactID  int64
	SecurityID int64
	Limit      int
	Offset     int
}

const postingColumns = `id, user_id, kind, account_id, contact_id, security_id, category_id,
	savings_plan_id, booking_date, valuta_date, amount_cents, tax_cents, note, created_at, updated_at`

// CreatePosting inserts a posting and adjusts the aggregate rollups in the
// same transaction. importHash may be empty; a duplicate hash for the user
// yields ErrDuplicatePosting.
func (r *Repository) CreatePosting(ctx context.Context, p core.Posting, importHash string) (core.Posting, error) {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO postings (user_id, kind, account_id, contact_id, security_id, category_id,
				savings_plan_id, booking_date, valuta_date, amount_cents, tax_cents, note, import_hash,
				created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.UserID, p.Kind, p.AccountID, nullID(p.ContactID), nullID(p.SecurityID),
			nullID(p.CategoryID), nullID(p.SavingsPlanID), p.BookingDate.String(), p.ValutaDate.String(),
			p.Amount.Cents, p.TaxAmount.Cents, p.Note, nullString(importHash), now, now)
		if err != nil {
			// modernc.org/sqlite reports the violation by column list
			// ("UNIQUE constraint failed: postings.user_id, postings.import_hash"),
			// not by index name.
			if strings.Contains(err.Error(), "import_hash") {
				return core.ErrDuplicatePosting
			}
			return fmt.Errorf("insert posting: %w", err)
		}
		p.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		return adjustAggregates(ctx, tx, p, +1)
	})
	if err != nil {
		return core.Posting{}, err
	}
	return p, nil
}

// GetPosting fetches a posting owned by the user.
func (r *Repository) GetPosting(ctx context.Context, userID, id int64) (core.Posting, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+postingColumns+` FROM postings WHERE id = ? AND user_id = ?`, id, userID)
	p, err := scanPosting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Posting{}, core.ErrNotFound
	}
	if err != nil {
		return core.Posting{}, fmt.Errorf("select posting: %w", err)
	}
	return p, nil
}

// ListPostings returns filtered postings ordered by the filter's date basis,
// newest first.
func (r *Repository) ListPostings(ctx context.Context, userID int64, f PostingFilter) ([]core.Posting, error) {
	dateCol := "booking_date"
	if f.Basis == core.BasisValuta {
		dateCol = "valuta_date"
	}

	query := `SELECT ` + postingColumns + ` FROM postings WHERE user_id = ?`
	args := []any{userID}

	if !f.From.IsZero() {
		query += ` AND ` + dateCol + ` >= ?`
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		query += ` AND ` + dateCol + ` <= ?`
		args = append(args, f.To.String())
	}
	if f.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, f.Kind)
	}
	if f.AccountID != 0 {
		query += ` AND account_id = ?`
		args = append(args, f.AccountID)
	}
	if f.CategoryID != 0 {
		query += ` AND category_id = ?`
		args = append(args, f.CategoryID)
	}
	if f.ContactID != 0 {
		query += ` AND contact_id = ?`
		args = append(args, f.ContactID)
	}
	if f.SecurityID != 0 {
		query += ` AND security_id = ?`
		args = append(args, f.SecurityID)
	}
	query += ` ORDER BY ` + dateCol + ` DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select postings: %w", err)
	}
	defer rows.Close()

	var postings []core.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan posting: %w", err)
		}
		postings = append(postings, p)
	}
	return postings, rows.Err()
}

// UpdatePosting replaces a posting's mutable fields, reversing the old
// aggregate contribution and applying the new one transactionally.
func (r *Repository) UpdatePosting(ctx context.Context, p core.Posting) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+postingColumns+` FROM postings WHERE id = ? AND user_id = ?`, p.ID, p.UserID)
		old, err := scanPosting(row)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("select posting for update: %w", err)
		}

		if err := adjustAggregates(ctx, tx, old, -1); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE postings SET kind = ?, account_id = ?, contact_id = ?, security_id = ?,
				category_id = ?, booking_date = ?, valuta_date = ?, amount_cents = ?, tax_cents = ?,
				note = ?, updated_at = ?
			 WHERE id = ? AND user_id = ?`,
			p.Kind, p.AccountID, nullID(p.ContactID), nullID(p.SecurityID), nullID(p.CategoryID),
			p.BookingDate.String(), p.ValutaDate.String(), p.Amount.Cents, p.TaxAmount.Cents,
			p.Note, time.Now().UTC(), p.ID, p.UserID)
		if err != nil {
			return fmt.Errorf("update posting: %w", err)
		}
		return adjustAggregates(ctx, tx, p, +1)
	})
}

// DeletePosting removes a posting and its aggregate contribution, returning
// the IDs of attachments that referenced it so the service can unlink files.
func (r *Repository) DeletePosting(ctx context.Context, userID, id int64) ([]string, error) {
	var attachmentIDs []string
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+postingColumns+` FROM postings WHERE id = ? AND user_id = ?`, id, userID)
		p, err := scanPosting(row)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("select posting for delete: %w", err)
		}

		if err := adjustAggregates(ctx, tx, p, -1); err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT id FROM attachments WHERE user_id = ? AND owner_kind = ? AND owner_id = ?`,
			userID, core.OwnerPosting, id)
		if err != nil {
			return fmt.Errorf("select posting attachments: %w", err)
		}
		for rows.Next() {
			var attID string
			if err := rows.Scan(&attID); err != nil {
				rows.Close()
				return fmt.Errorf("scan attachment id: %w", err)
			}
			attachmentIDs = append(attachmentIDs, attID)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate attachments: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM attachments WHERE user_id = ? AND owner_kind = ? AND owner_id = ?`,
			userID, core.OwnerPosting, id); err != nil {
			return fmt.Errorf("delete posting attachments: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM postings WHERE id = ? AND user_id = ?`, id, userID); err != nil {
			return fmt.Errorf("delete posting: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return attachmentIDs, nil
}

// SumPostings totals posting amounts matching the filter; used for budget
// actuals. Sums use the booking basis unless the filter says otherwise.
func (r *Repository) SumPostings(ctx context.Context, userID int64, f PostingFilter) (int64, error) {
	dateCol := "booking_date"
	if f.Basis == core.BasisValuta {
		dateCol = "valuta_date"
	}
	query := `SELECT COALESCE(SUM(amount_cents), 0) FROM postings WHERE user_id = ?`
	args := []any{userID}
	if !f.From.IsZero() {
		query += ` AND ` + dateCol + ` >= ?`
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		query += ` AND ` + dateCol + ` <= ?`
		args = append(args, f.To.String())
	}
	if f.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, f.Kind)
	}
	if f.CategoryID != 0 {
		query += ` AND category_id = ?`
		args = append(args, f.CategoryID)
	}
	var sum int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum postings: %w", err)
	}
	return sum, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosting(row rowScanner) (core.Posting, error) {
	var p core.Posting
	var contactID, securityID, catID, planID sql.NullInt64
	var bookingDate, valutaDate string
	err := row.Scan(&p.ID, &p.UserID, &p.Kind, &p.AccountID, &contactID, &securityID, &catID,
		&planID, &bookingDate, &valutaDate, &p.Amount.Cents, &p.TaxAmount.Cents, &p.Note,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return core.Posting{}, err
	}
	p.ContactID = contactID.Int64
	p.SecurityID = securityID.Int64
	p.CategoryID = catID.Int64
	p.SavingsPlanID = planID.Int64
	if p.BookingDate, err = core.ParseDate(bookingDate); err != nil {
		return core.Posting{}, fmt.Errorf("parse booking date %q: %w", bookingDate, err)
	}
	if p.ValutaDate, err = core.ParseDate(valutaDate); err != nil {
		return core.Posting{}, fmt.Errorf("parse valuta date %q: %w", valutaDate, err)
	}
	return p, nil
}
