package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"finbook/internal/core"
)

// Accounts ------------------------------------------------------------------

func (r *Repository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (user_id, name, iban, kind, note, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.Name, a.IBAN, a.Kind, a.Note, a.Active, a.CreatedAt)
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return core.Account{}, fmt.Errorf("last insert id: %w", err)
	}
	return a, nil
}

func (r *Repository) GetAccount(ctx context.Context, userID, id int64) (core.Account, error) {
	var a core.Account
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, iban, kind, note, active, created_at
		 FROM accounts WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&a.ID, &a.UserID, &a.Name, &a.IBAN, &a.Kind, &a.Note, &a.Active, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("select account: %w", err)
	}
	return a, nil
}

func (r *Repository) ListAccounts(ctx context.Context, userID int64, activeOnly bool) ([]core.Account, error) {
	query := `SELECT id, user_id, name, iban, kind, note, active, created_at
		 FROM accounts WHERE user_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.IBAN, &a.Kind, &a.Note, &a.Active, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *Repository) UpdateAccount(ctx context.Context, a core.Account) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET name = ?, iban = ?, kind = ?, note = ?, active = ?
		 WHERE id = ? AND user_id = ?`,
		a.Name, a.IBAN, a.Kind, a.Note, a.Active, a.ID, a.UserID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteAccount(ctx context.Context, userID, id int64) error {
	return r.deleteIfUnused(ctx, "accounts", userID, id,
		`SELECT COUNT(*) FROM postings WHERE account_id = ?`,
		`SELECT COUNT(*) FROM savings_plans WHERE account_id = ?`)
}

// Contacts ------------------------------------------------------------------

func (r *Repository) CreateContact(ctx context.Context, c core.Contact) (core.Contact, error) {
	c.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO contacts (user_id, name, iban, note, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.UserID, c.Name, c.IBAN, c.Note, c.Active, c.CreatedAt)
	if err != nil {
		return core.Contact{}, fmt.Errorf("insert contact: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return core.Contact{}, fmt.Errorf("last insert id: %w", err)
	}
	return c, nil
}

func (r *Repository) GetContact(ctx context.Context, userID, id int64) (core.Contact, error) {
	var c core.Contact
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, iban, note, active, created_at
		 FROM contacts WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&c.ID, &c.UserID, &c.Name, &c.IBAN, &c.Note, &c.Active, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Contact{}, core.ErrNotFound
	}
	if err != nil {
		return core.Contact{}, fmt.Errorf("select contact: %w", err)
	}
	return c, nil
}

func (r *Repository) ListContacts(ctx context.Context, userID int64, activeOnly bool) ([]core.Contact, error) {
	query := `SELECT id, user_id, name, iban, note, active, created_at
		 FROM contacts WHERE user_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("select contacts: %w", err)
	}
	defer rows.Close()

	var contacts []core.Contact
	for rows.Next() {
		var c core.Contact
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.IBAN, &c.Note, &c.Active, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (r *Repository) UpdateContact(ctx context.Context, c core.Contact) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE contacts SET name = ?, iban = ?, note = ?, active = ?
		 WHERE id = ? AND user_id = ?`,
		c.Name, c.IBAN, c.Note, c.Active, c.ID, c.UserID)
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteContact(ctx context.Context, userID, id int64) error {
	return r.deleteIfUnused(ctx, "contacts", userID, id,
		`SELECT COUNT(*) FROM postings WHERE contact_id = ?`,
		`SELECT COUNT(*) FROM savings_plans WHERE contact_id = ?`)
}

// Securities ----------------------------------------------------------------

func (r *Repository) CreateSecurity(ctx context.Context, s core.Security) (core.Security, error) {
	s.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO securities (user_id, name, isin, symbol, note, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.UserID, s.Name, s.ISIN, s.Symbol, s.Note, s.Active, s.CreatedAt)
	if err != nil {
		return core.Security{}, fmt.Errorf("insert security: %w", err)
	}
	s.ID, err = res.LastInsertId()
	if err != nil {
		return core.Security{}, fmt.Errorf("last insert id: %w", err)
	}
	return s, nil
}

func (r *Repository) GetSecurity(ctx context.Context, userID, id int64) (core.Security, error) {
	var s core.Security
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, isin, symbol, note, active, created_at
		 FROM securities WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&s.ID, &s.UserID, &s.Name, &s.ISIN, &s.Symbol, &s.Note, &s.Active, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Security{}, core.ErrNotFound
	}
	if err != nil {
		return core.Security{}, fmt.Errorf("select security: %w", err)
	}
	return s, nil
}

func (r *Repository) ListSecurities(ctx context.Context, userID int64, activeOnly bool) ([]core.Security, error) {
	query := `SELECT id, user_id, name, isin, symbol, note, active, created_at
		 FROM securities WHERE user_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("select securities: %w", err)
	}
	defer rows.Close()

	var securities []core.Security
	for rows.Next() {
		var s core.Security
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.ISIN, &s.Symbol, &s.Note, &s.Active, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan security: %w", err)
		}
		securities = append(securities, s)
	}
	return securities, rows.Err()
}

func (r *Repository) UpdateSecurity(ctx context.Context, s core.Security) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE securities SET name = ?, isin = ?, symbol = ?, note = ?, active = ?
		 WHERE id = ? AND user_id = ?`,
		s.Name, s.ISIN, s.Symbol, s.Note, s.Active, s.ID, s.UserID)
	if err != nil {
		return fmt.Errorf("update security: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteSecurity(ctx context.Context, userID, id int64) error {
	return r.deleteIfUnused(ctx, "securities", userID, id,
		`SELECT COUNT(*) FROM postings WHERE security_id = ?`)
}

// Categories ----------------------------------------------------------------

func (r *Repository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, name, note, active, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		c.UserID, c.Name, c.Note, c.Active, c.CreatedAt)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("last insert id: %w", err)
	}
	return c, nil
}

func (r *Repository) GetCategory(ctx context.Context, userID, id int64) (core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, note, active, created_at
		 FROM categories WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Note, &c.Active, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("select category: %w", err)
	}
	return c, nil
}

func (r *Repository) ListCategories(ctx context.Context, userID int64, activeOnly bool) ([]core.Category, error) {
	query := `SELECT id, user_id, name, note, active, created_at
		 FROM categories WHERE user_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Note, &c.Active, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *Repository) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, note = ?, active = ?
		 WHERE id = ? AND user_id = ?`,
		c.Name, c.Note, c.Active, c.ID, c.UserID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteCategory(ctx context.Context, userID, id int64) error {
	return r.deleteIfUnused(ctx, "categories", userID, id,
		`SELECT COUNT(*) FROM postings WHERE category_id = ?`,
		`SELECT COUNT(*) FROM budgets WHERE category_id = ?`,
		`SELECT COUNT(*) FROM savings_plans WHERE category_id = ?`)
}

// deleteIfUnused deletes one row owned by the user unless any of the usage
// queries reports references to it, in which case ErrInUse is returned.
func (r *Repository) deleteIfUnused(ctx context.Context, table string, userID, id int64, usageQueries ...string) error {
	for _, q := range usageQueries {
		var count int64
		if err := r.db.QueryRowContext(ctx, q, id).Scan(&count); err != nil {
			return fmt.Errorf("check %s usage: %w", table, err)
		}
		if count > 0 {
			return core.ErrInUse
		}
	}
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND user_id = ?`, table), id, userID)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}
