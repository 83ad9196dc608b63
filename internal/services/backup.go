package services

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"finbook/internal/log"
	"finbook/internal/storage"
)

// Uploader pushes a finished backup archive to remote storage. Implemented by
// the Drive client; nil disables uploads.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
}

// BackupResult describes one completed backup run.
type BackupResult struct {
	ArchivePath  string `json:"archive_path"`
	SizeBytes    int64  `json:"size_bytes"`
	RemoteFileID string `json:"remote_file_id,omitempty"`
}

// BackupService snapshots the SQLite database and the attachment payloads
// into a zip archive under the backup directory and optionally uploads it.
type BackupService struct {
	repo           *storage.Repository
	dir            string
	attachmentsDir string
	uploader       Uploader
	logger         *log.Logger
}

func NewBackupService(repo *storage.Repository, dir, attachmentsDir string, uploader Uploader, logger *log.Logger) (*BackupService, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	return &BackupService{
		repo:           repo,
		dir:            dir,
		attachmentsDir: attachmentsDir,
		uploader:       uploader,
		logger:         logger.WithComponent(log.ComponentBackup),
	}, nil
}

// Run produces one backup archive. The database snapshot comes from VACUUM
// INTO, so readers and writers keep working during the backup.
func (s *BackupService) Run(ctx context.Context) (BackupResult, error) {
	stamp := time.Now().UTC().Format("20060102-150405")
	snapshotPath := filepath.Join(s.dir, fmt.Sprintf("snapshot-%s.db", stamp))
	archivePath := filepath.Join(s.dir, fmt.Sprintf("finbook-backup-%s.zip", stamp))

	if err := s.repo.SnapshotTo(ctx, snapshotPath); err != nil {
		return BackupResult{}, err
	}
	defer os.Remove(snapshotPath)

	if err := s.writeArchive(snapshotPath, archivePath); err != nil {
		os.Remove(archivePath)
		return BackupResult{}, err
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return BackupResult{}, fmt.Errorf("stat archive: %w", err)
	}
	result := BackupResult{ArchivePath: archivePath, SizeBytes: info.Size()}

	if s.uploader != nil {
		f, err := os.Open(archivePath)
		if err != nil {
			return BackupResult{}, fmt.Errorf("open archive for upload: %w", err)
		}
		remoteID, uploadErr := s.uploader.Upload(ctx, filepath.Base(archivePath), f)
		f.Close()
		if uploadErr != nil {
			return BackupResult{}, fmt.Errorf("upload backup: %w", uploadErr)
		}
		result.RemoteFileID = remoteID
	}

	s.logger.InfoContext(ctx, "backup finished",
		"archive", result.ArchivePath,
		"size_bytes", result.SizeBytes,
		"uploaded", result.RemoteFileID != "")
	return result, nil
}

// writeArchive zips the database snapshot plus the attachment payload files.
func (s *BackupService) writeArchive(snapshotPath, zipPath string) error {
	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	if err := addFileToZip(zw, snapshotPath, "finbook.db"); err != nil {
		return err
	}
	if err := s.addAttachments(zw); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return out.Close()
}

func (s *BackupService) addAttachments(zw *zip.Writer) error {
	if s.attachmentsDir == "" {
		return nil
	}
	return filepath.WalkDir(s.attachmentsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("walk attachments: %w", err)
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.attachmentsDir, path)
		if err != nil {
			return fmt.Errorf("attachment path: %w", err)
		}
		return addFileToZip(zw, path, filepath.ToSlash(filepath.Join("attachments", rel)))
	})
}

func addFileToZip(zw *zip.Writer, srcPath, nameInZip string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", srcPath, err)
	}
	defer src.Close()

	entry, err := zw.Create(nameInZip)
	if err != nil {
		return fmt.Errorf("create archive entry: %w", err)
	}
	if _, err := io.Copy(entry, src); err != nil {
		return fmt.Errorf("write archive entry: %w", err)
	}
	return nil
}
