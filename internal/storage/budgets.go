package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"finbook/internal/core"
)

func (r *Repository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	b.CreatedAt = time.Now().UTC()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO budgets (user_id, name, category_id, kind, amount_cents, active, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			b.UserID, b.Name, nullID(b.CategoryID), string(b.Kind), b.AmountPerOccurrence.Cents,
			b.Active, b.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert budget: %w", err)
		}
		if b.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		return insertRules(ctx, tx, b.ID, b.Rules)
	})
	if err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (r *Repository) GetBudget(ctx context.Context, userID, id int64) (core.Budget, error) {
	var b core.Budget
	var categoryID sql.NullInt64
	var kind string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, category_id, kind, amount_cents, active, created_at
		 FROM budgets WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&b.ID, &b.UserID, &b.Name, &categoryID, &kind, &b.AmountPerOccurrence.Cents,
			&b.Active, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("select budget: %w", err)
	}
	b.CategoryID = categoryID.Int64
	b.Kind = core.PostingKind(kind)
	if b.Rules, err = r.listRules(ctx, b.ID); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (r *Repository) ListBudgets(ctx context.Context, userID int64, activeOnly bool) ([]core.Budget, error) {
	query := `SELECT id, user_id, name, category_id, kind, amount_cents, active, created_at
		 FROM budgets WHERE user_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("select budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var b core.Budget
		var categoryID sql.NullInt64
		var kind string
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &categoryID, &kind,
			&b.AmountPerOccurrence.Cents, &b.Active, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.CategoryID = categoryID.Int64
		b.Kind = core.PostingKind(kind)
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range budgets {
		if budgets[i].Rules, err = r.listRules(ctx, budgets[i].ID); err != nil {
			return nil, err
		}
	}
	return budgets, nil
}

// UpdateBudget replaces the budget row and its full rule set.
func (r *Repository) UpdateBudget(ctx context.Context, b core.Budget) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE budgets SET name = ?, category_id = ?, kind = ?, amount_cents = ?, active = ?
			 WHERE id = ? AND user_id = ?`,
			b.Name, nullID(b.CategoryID), string(b.Kind), b.AmountPerOccurrence.Cents, b.Active,
			b.ID, b.UserID)
		if err != nil {
			return fmt.Errorf("update budget: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return core.ErrNotFound
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM budget_rules WHERE budget_id = ?`, b.ID); err != nil {
			return fmt.Errorf("clear budget rules: %w", err)
		}
		return insertRules(ctx, tx, b.ID, b.Rules)
	})
}

func (r *Repository) DeleteBudget(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func insertRules(ctx context.Context, tx *sql.Tx, budgetID int64, rules []core.BudgetRule) error {
	for _, rule := range rules {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO budget_rules (budget_id, frequency, interval, anchor_date, end_date)
			 VALUES (?, ?, ?, ?, ?)`,
			budgetID, rule.Frequency, rule.Interval, rule.AnchorDate.String(),
			nullString(rule.EndDate.String()))
		if err != nil {
			return fmt.Errorf("insert budget rule: %w", err)
		}
	}
	return nil
}

func (r *Repository) listRules(ctx context.Context, budgetID int64) ([]core.BudgetRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, frequency, interval, anchor_date, end_date
		 FROM budget_rules WHERE budget_id = ? ORDER BY id`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("select budget rules: %w", err)
	}
	defer rows.Close()

	var rules []core.BudgetRule
	for rows.Next() {
		var rule core.BudgetRule
		var anchor string
		var end sql.NullString
		if err := rows.Scan(&rule.ID, &rule.Frequency, &rule.Interval, &anchor, &end); err != nil {
			return nil, fmt.Errorf("scan budget rule: %w", err)
		}
		if rule.AnchorDate, err = core.ParseDate(anchor); err != nil {
			return nil, fmt.Errorf("parse anchor date %q: %w", anchor, err)
		}
		if end.Valid {
			if rule.EndDate, err = core.ParseDate(end.String); err != nil {
				return nil, fmt.Errorf("parse rule end date %q: %w", end.String, err)
			}
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}
