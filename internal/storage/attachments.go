package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"finbook/internal/core"
)

const attachmentColumns = `id, user_id, owner_kind, owner_id, file_name, content_type, size_bytes, created_at`

func (r *Repository) CreateAttachment(ctx context.Context, a core.Attachment) (core.Attachment, error) {
	a.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO attachments (`+attachmentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, string(a.OwnerKind), a.OwnerID, a.FileName, a.ContentType,
		a.SizeBytes, a.CreatedAt)
	if err != nil {
		return core.Attachment{}, fmt.Errorf("insert attachment: %w", err)
	}
	return a, nil
}

func (r *Repository) GetAttachment(ctx context.Context, userID int64, id string) (core.Attachment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+attachmentColumns+` FROM attachments WHERE id = ? AND user_id = ?`, id, userID)
	a, err := scanAttachment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Attachment{}, core.ErrNotFound
	}
	if err != nil {
		return core.Attachment{}, fmt.Errorf("select attachment: %w", err)
	}
	return a, nil
}

func (r *Repository) ListAttachments(ctx context.Context, userID int64, owner core.AttachmentOwner, ownerID int64) ([]core.Attachment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+attachmentColumns+` FROM attachments
		 WHERE user_id = ? AND owner_kind = ? AND owner_id = ?
		 ORDER BY created_at, id`, userID, string(owner), ownerID)
	if err != nil {
		return nil, fmt.Errorf("select attachments: %w", err)
	}
	defer rows.Close()

	var attachments []core.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

func (r *Repository) DeleteAttachment(ctx context.Context, userID int64, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM attachments WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func scanAttachment(row rowScanner) (core.Attachment, error) {
	var a core.Attachment
	err := row.Scan(&a.ID, &a.UserID, &a.OwnerKind, &a.OwnerID, &a.FileName,
		&a.ContentType, &a.SizeBytes, &a.CreatedAt)
	return a, err
}
