package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"finbook/internal/core"
)

const planColumns = `id, user_id, name, account_id, contact_id, category_id, amount_cents,
	interval, start_date, end_date, last_execution, active, created_at`

func (r *Repository) CreateSavingsPlan(ctx context.Context, p core.SavingsPlan) (core.SavingsPlan, error) {
	p.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO savings_plans (user_id, name, account_id, contact_id, category_id,
			amount_cents, interval, start_date, end_date, last_execution, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.Name, p.AccountID, nullID(p.ContactID), nullID(p.CategoryID),
		p.Amount.Cents, p.Interval, p.StartDate.String(), nullString(p.EndDate.String()),
		nullString(p.LastExecution.String()), p.Active, p.CreatedAt)
	if err != nil {
		return core.SavingsPlan{}, fmt.Errorf("insert savings plan: %w", err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return core.SavingsPlan{}, fmt.Errorf("last insert id: %w", err)
	}
	return p, nil
}

func (r *Repository) GetSavingsPlan(ctx context.Context, userID, id int64) (core.SavingsPlan, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM savings_plans WHERE id = ? AND user_id = ?`, id, userID)
	p, err := scanSavingsPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsPlan{}, core.ErrNotFound
	}
	if err != nil {
		return core.SavingsPlan{}, fmt.Errorf("select savings plan: %w", err)
	}
	return p, nil
}

func (r *Repository) ListSavingsPlans(ctx context.Context, userID int64, activeOnly bool) ([]core.SavingsPlan, error) {
	query := `SELECT ` + planColumns + ` FROM savings_plans WHERE user_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("select savings plans: %w", err)
	}
	defer rows.Close()

	var plans []core.SavingsPlan
	for rows.Next() {
		p, err := scanSavingsPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan savings plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// ListActiveSavingsPlansAllUsers feeds the savings worker, which runs across
// every user's plans.
func (r *Repository) ListActiveSavingsPlansAllUsers(ctx context.Context) ([]core.SavingsPlan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+planColumns+` FROM savings_plans WHERE active = 1 ORDER BY user_id, id`)
	if err != nil {
		return nil, fmt.Errorf("select active savings plans: %w", err)
	}
	defer rows.Close()

	var plans []core.SavingsPlan
	for rows.Next() {
		p, err := scanSavingsPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan savings plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (r *Repository) UpdateSavingsPlan(ctx context.Context, p core.SavingsPlan) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE savings_plans SET name = ?, account_id = ?, contact_id = ?, category_id = ?,
			amount_cents = ?, interval = ?, start_date = ?, end_date = ?, active = ?
		 WHERE id = ? AND user_id = ?`,
		p.Name, p.AccountID, nullID(p.ContactID), nullID(p.CategoryID), p.Amount.Cents,
		p.Interval, p.StartDate.String(), nullString(p.EndDate.String()), p.Active, p.ID, p.UserID)
	if err != nil {
		return fmt.Errorf("update savings plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// UpdateSavingsPlanExecution advances LastExecution after a successful booking.
func (r *Repository) UpdateSavingsPlanExecution(ctx context.Context, userID, id int64, executed core.Date) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE savings_plans SET last_execution = ? WHERE id = ? AND user_id = ?`,
		executed.String(), id, userID)
	if err != nil {
		return fmt.Errorf("update savings plan execution: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeactivateSavingsPlan turns off a plan, e.g. when it passes its end date.
func (r *Repository) DeactivateSavingsPlan(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE savings_plans SET active = 0 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deactivate savings plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteSavingsPlan(ctx context.Context, userID, id int64) error {
	// Booked postings survive the plan: they are detached from it so the
	// plan row can be removed without violating the foreign key.
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE postings SET savings_plan_id = NULL WHERE savings_plan_id = ? AND user_id = ?`,
			id, userID); err != nil {
			return fmt.Errorf("detach postings from plan: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM savings_plans WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return fmt.Errorf("delete savings plan: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return core.ErrNotFound
		}
		return nil
	})
	return err
}

func scanSavingsPlan(row rowScanner) (core.SavingsPlan, error) {
	var p core.SavingsPlan
	var contactID, categoryID sql.NullInt64
	var startDate string
	var endDate, lastExecution sql.NullString
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.AccountID, &contactID, &categoryID,
		&p.Amount.Cents, &p.Interval, &startDate, &endDate, &lastExecution, &p.Active, &p.CreatedAt)
	if err != nil {
		return core.SavingsPlan{}, err
	}
	p.ContactID = contactID.Int64
	p.CategoryID = categoryID.Int64
	if p.StartDate, err = core.ParseDate(startDate); err != nil {
		return core.SavingsPlan{}, fmt.Errorf("parse start date %q: %w", startDate, err)
	}
	if endDate.Valid {
		if p.EndDate, err = core.ParseDate(endDate.String); err != nil {
			return core.SavingsPlan{}, fmt.Errorf("parse end date %q: %w", endDate.String, err)
		}
	}
	if lastExecution.Valid {
		if p.LastExecution, err = core.ParseDate(lastExecution.String); err != nil {
			return core.SavingsPlan{}, fmt.Errorf("parse last execution %q: %w", lastExecution.String, err)
		}
	}
	return p, nil
}
