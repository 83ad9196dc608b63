package storage

import (
	"context"
	"database/sql"
	"fmt"

	"finbook/internal/core"
)

// adjustAggregates applies one posting's contribution to the monthly rollup
// rows, once per date basis. sign is +1 on insert and -1 on delete; an update
// reverses the old posting and applies the new one. Rows that drop to an
// empty count are removed so rebuilds and incremental maintenance converge on
// the same table contents.
func adjustAggregates(ctx context.Context, tx *sql.Tx, p core.Posting, sign int64) error {
	entityKind, entityID := p.Entity()
	for _, basis := range []core.DateBasis{core.BasisBooking, core.BasisValuta} {
		date := p.DateFor(basis)
		_, err := tx.ExecContext(ctx,
			`INSERT INTO posting_aggregates
				(user_id, basis, year, month, kind, category_id, entity_kind, entity_id, sum_cents, tax_cents, count)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (user_id, basis, year, month, kind, category_id, entity_kind, entity_id)
			 DO UPDATE SET
				sum_cents = sum_cents + excluded.sum_cents,
				tax_cents = tax_cents + excluded.tax_cents,
				count = count + excluded.count`,
			p.UserID, basis, date.Year(), date.Month(), p.Kind, p.CategoryID, entityKind, entityID,
			sign*p.Amount.Cents, sign*p.TaxAmount.Cents, sign)
		if err != nil {
			return fmt.Errorf("adjust aggregate (%s): %w", basis, err)
		}
	}
	_, err := tx.ExecContext(ctx,
		`DELETE FROM posting_aggregates WHERE user_id = ? AND count <= 0`, p.UserID)
	if err != nil {
		return fmt.Errorf("prune empty aggregates: %w", err)
	}
	return nil
}

// QueryAggregates returns the rollup rows of one user/basis between two
// months inclusive, given as (year, month) pairs.
func (r *Repository) QueryAggregates(ctx context.Context, userID int64, basis core.DateBasis,
	fromYear, fromMonth, toYear, toMonth int) ([]core.PostingAggregate, error) {

	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, basis, year, month, kind, category_id, entity_kind, entity_id,
			sum_cents, tax_cents, count
		 FROM posting_aggregates
		 WHERE user_id = ? AND basis = ?
		   AND (year * 12 + month) >= ? AND (year * 12 + month) <= ?
		 ORDER BY year, month`,
		userID, basis, fromYear*12+fromMonth, toYear*12+toMonth)
	if err != nil {
		return nil, fmt.Errorf("select aggregates: %w", err)
	}
	defer rows.Close()

	var aggs []core.PostingAggregate
	for rows.Next() {
		var a core.PostingAggregate
		if err := rows.Scan(&a.UserID, &a.Basis, &a.Year, &a.Month, &a.Kind, &a.CategoryID,
			&a.EntityKind, &a.EntityID, &a.SumCents, &a.TaxCents, &a.Count); err != nil {
			return nil, fmt.Errorf("scan aggregate: %w", err)
		}
		aggs = append(aggs, a)
	}
	return aggs, rows.Err()
}

// RebuildAggregates recomputes a user's entire rollup table from the postings
// inside one transaction. Used by the queued rebuild task and after imports.
func (r *Repository) RebuildAggregates(ctx context.Context, userID int64) (int64, error) {
	var rebuilt int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM posting_aggregates WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("clear aggregates: %w", err)
		}
		for _, basis := range []core.DateBasis{core.BasisBooking, core.BasisValuta} {
			dateCol := "booking_date"
			if basis == core.BasisValuta {
				dateCol = "valuta_date"
			}
			res, err := tx.ExecContext(ctx, fmt.Sprintf(
				`INSERT INTO posting_aggregates
					(user_id, basis, year, month, kind, category_id, entity_kind, entity_id, sum_cents, tax_cents, count)
				 SELECT user_id, ?, CAST(substr(%[1]s, 1, 4) AS INTEGER), CAST(substr(%[1]s, 6, 2) AS INTEGER),
					kind, COALESCE(category_id, 0),
					CASE
						WHEN security_id IS NOT NULL THEN 'security'
						WHEN contact_id IS NOT NULL THEN 'contact'
						ELSE 'account'
					END,
					COALESCE(security_id, COALESCE(contact_id, account_id)),
					SUM(amount_cents), SUM(tax_cents), COUNT(*)
				 FROM postings WHERE user_id = ?
				 GROUP BY user_id,
					CAST(substr(%[1]s, 1, 4) AS INTEGER), CAST(substr(%[1]s, 6, 2) AS INTEGER),
					kind, COALESCE(category_id, 0),
					CASE
						WHEN security_id IS NOT NULL THEN 'security'
						WHEN contact_id IS NOT NULL THEN 'contact'
						ELSE 'account'
					END,
					COALESCE(security_id, COALESCE(contact_id, account_id))`, dateCol),
				basis, userID)
			if err != nil {
				return fmt.Errorf("rebuild aggregates (%s): %w", basis, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				rebuilt += n
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rebuilt, nil
}
