package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"finbook/internal/core"
)

// CreateUser inserts a user and returns it with the assigned ID.
func (r *Repository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	u.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, display_name, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.Email, u.DisplayName, u.PasswordHash, u.CreatedAt)
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("last insert id: %w", err)
	}
	u.ID = id
	return u, nil
}

// GetUserByEmail looks a user up by email for login.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, password_hash, created_at FROM users WHERE email = ?`,
		email).Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("select user by email: %w", err)
	}
	return u, nil
}

// GetUser fetches a user by ID.
func (r *Repository) GetUser(ctx context.Context, id int64) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, password_hash, created_at FROM users WHERE id = ?`,
		id).Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

// CreateAPIToken stores a token row. The raw token never reaches storage.
func (r *Repository) CreateAPIToken(ctx context.Context, t core.APIToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO api_tokens (id, user_id, name, token_hash, token_prefix, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Name, t.TokenHash, t.TokenPrefix, t.CreatedAt, nullTime(t.ExpiresAt))
	if err != nil {
		return fmt.Errorf("insert api token: %w", err)
	}
	return nil
}

// GetAPITokenByHash resolves a token by its SHA-256 hash.
func (r *Repository) GetAPITokenByHash(ctx context.Context, hash string) (core.APIToken, error) {
	var (
		t        core.APIToken
		lastUsed sql.NullTime
		expires  sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, token_hash, token_prefix, created_at, last_used_at, expires_at
		 FROM api_tokens WHERE token_hash = ?`,
		hash).Scan(&t.ID, &t.UserID, &t.Name, &t.TokenHash, &t.TokenPrefix, &t.CreatedAt, &lastUsed, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return core.APIToken{}, core.ErrNotFound
	}
	if err != nil {
		return core.APIToken{}, fmt.Errorf("select api token by hash: %w", err)
	}
	t.LastUsedAt = timePtr(lastUsed)
	t.ExpiresAt = timePtr(expires)
	return t, nil
}

// ListAPITokens returns a user's tokens, newest first.
func (r *Repository) ListAPITokens(ctx context.Context, userID int64) ([]core.APIToken, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, token_hash, token_prefix, created_at, last_used_at, expires_at
		 FROM api_tokens WHERE user_id = ? ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("select api tokens: %w", err)
	}
	defer rows.Close()

	var tokens []core.APIToken
	for rows.Next() {
		var (
			t        core.APIToken
			lastUsed sql.NullTime
			expires  sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.TokenHash, &t.TokenPrefix, &t.CreatedAt, &lastUsed, &expires); err != nil {
			return nil, fmt.Errorf("scan api token: %w", err)
		}
		t.LastUsedAt = timePtr(lastUsed)
		t.ExpiresAt = timePtr(expires)
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// DeleteAPIToken removes a token owned by the user.
func (r *Repository) DeleteAPIToken(ctx context.Context, userID int64, tokenID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM api_tokens WHERE id = ? AND user_id = ?`, tokenID, userID)
	if err != nil {
		return fmt.Errorf("delete api token: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// UpdateAPITokenLastUsed records token use; called fire-and-forget by the
// auth middleware.
func (r *Repository) UpdateAPITokenLastUsed(ctx context.Context, tokenID string, lastUsed time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE api_tokens SET last_used_at = ? WHERE id = ?`, lastUsed, tokenID)
	if err != nil {
		return fmt.Errorf("update api token last used: %w", err)
	}
	return nil
}
