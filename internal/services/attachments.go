package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"finbook/internal/core"
	"finbook/internal/log"
	"finbook/internal/storage"
)

// AttachmentService stores file payloads on disk and their metadata in the
// database. Payloads are named by the attachment's UUID so client-supplied
// file names never touch the filesystem.
type AttachmentService struct {
	repo     *storage.Repository
	dir      string
	maxBytes int64
	logger   *log.Logger
}

func NewAttachmentService(repo *storage.Repository, dir string, maxBytes int64, logger *log.Logger) (*AttachmentService, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create attachments directory: %w", err)
	}
	return &AttachmentService{
		repo:     repo,
		dir:      dir,
		maxBytes: maxBytes,
		logger:   logger.WithComponent(log.ComponentAttachments),
	}, nil
}

// Save streams an upload to disk and records its metadata. The content type
// is sniffed from the payload, not trusted from the client.
func (s *AttachmentService) Save(ctx context.Context, userID int64, owner core.AttachmentOwner, ownerID int64, fileName string, body io.Reader) (core.Attachment, error) {
	if err := s.checkOwner(ctx, userID, owner, ownerID); err != nil {
		return core.Attachment{}, err
	}
	fileName = filepath.Base(fileName)
	if fileName == "" || fileName == "." || fileName == string(filepath.Separator) {
		fileName = "attachment"
	}

	id := uuid.NewString()
	path := s.payloadPath(id)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return core.Attachment{}, fmt.Errorf("create payload file: %w", err)
	}

	written, err := io.Copy(f, io.LimitReader(body, s.maxBytes+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && written > s.maxBytes {
		err = fmt.Errorf("attachment exceeds %d bytes", s.maxBytes)
	}
	if err != nil {
		os.Remove(path)
		return core.Attachment{}, err
	}

	contentType, sniffErr := sniffContentType(path)
	if sniffErr != nil {
		os.Remove(path)
		return core.Attachment{}, sniffErr
	}

	attachment, err := s.repo.CreateAttachment(ctx, core.Attachment{
		ID:          id,
		UserID:      userID,
		OwnerKind:   owner,
		OwnerID:     ownerID,
		FileName:    fileName,
		ContentType: contentType,
		SizeBytes:   written,
	})
	if err != nil {
		os.Remove(path)
		return core.Attachment{}, err
	}
	s.logger.InfoContext(ctx, "attachment saved",
		log.FieldUserID, userID, "attachment_id", id, "size_bytes", written)
	return attachment, nil
}

// Open returns the metadata and an open payload reader. The caller closes it.
func (s *AttachmentService) Open(ctx context.Context, userID int64, id string) (core.Attachment, io.ReadCloser, error) {
	attachment, err := s.repo.GetAttachment(ctx, userID, id)
	if err != nil {
		return core.Attachment{}, nil, err
	}
	f, err := os.Open(s.payloadPath(attachment.ID))
	if err != nil {
		return core.Attachment{}, nil, fmt.Errorf("open payload: %w", err)
	}
	return attachment, f, nil
}

func (s *AttachmentService) List(ctx context.Context, userID int64, owner core.AttachmentOwner, ownerID int64) ([]core.Attachment, error) {
	if err := s.checkOwner(ctx, userID, owner, ownerID); err != nil {
		return nil, err
	}
	return s.repo.ListAttachments(ctx, userID, owner, ownerID)
}

func (s *AttachmentService) Delete(ctx context.Context, userID int64, id string) error {
	if err := s.repo.DeleteAttachment(ctx, userID, id); err != nil {
		return err
	}
	s.RemovePayloads(ctx, []string{id})
	return nil
}

// RemovePayloads deletes payload files by attachment ID, e.g. after their
// owning posting was removed. Missing files are ignored.
func (s *AttachmentService) RemovePayloads(ctx context.Context, ids []string) {
	for _, id := range ids {
		if err := os.Remove(s.payloadPath(id)); err != nil && !os.IsNotExist(err) {
			s.logger.WarnContext(ctx, "remove attachment payload",
				"attachment_id", id, "error", err)
		}
	}
}

func (s *AttachmentService) payloadPath(id string) string {
	// IDs are generated UUIDs; Base guards against anything else sneaking in.
	return filepath.Join(s.dir, filepath.Base(id))
}

func (s *AttachmentService) checkOwner(ctx context.Context, userID int64, owner core.AttachmentOwner, ownerID int64) error {
	var err error
	switch owner {
	case core.OwnerPosting:
		_, err = s.repo.GetPosting(ctx, userID, ownerID)
	case core.OwnerAccount:
		_, err = s.repo.GetAccount(ctx, userID, ownerID)
	case core.OwnerContact:
		_, err = s.repo.GetContact(ctx, userID, ownerID)
	default:
		return core.ErrInvalidOwnerKind
	}
	return err
}

func sniffContentType(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open payload for sniffing: %w", err)
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read payload head: %w", err)
	}
	return http.DetectContentType(buf[:n]), nil
}
