// Package drive uploads backup archives to Google Drive.
//
// Authentication uses an OAuth client (installed-application flow): the
// client secret JSON and a previously obtained token file are loaded from
// disk. Run the drive-init command once to perform the interactive consent
// flow and write the token file.
package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gdrive "google.golang.org/api/drive/v3"
	goption "google.golang.org/api/option"
)

type Client struct {
	svc      *gdrive.Service
	folderID string
}

// NewClient builds a Drive client from the OAuth client secret file and a
// saved token file. folderID may be empty, in which case uploads land in the
// Drive root.
func NewClient(ctx context.Context, clientFile, tokenFile, folderID string) (*Client, error) {
	cfg, err := loadOAuthConfig(clientFile)
	if err != nil {
		return nil, err
	}
	token, err := LoadToken(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}

	svc, err := gdrive.NewService(ctx, goption.WithHTTPClient(cfg.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return &Client{svc: svc, folderID: folderID}, nil
}

// Upload streams r to Drive under the given name and returns the created
// file's ID.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	meta := &gdrive.File{Name: name}
	if c.folderID != "" {
		meta.Parents = []string{c.folderID}
	}

	f, err := c.svc.Files.Create(meta).
		Media(r).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("create drive file: %w", err)
	}
	return f.Id, nil
}

// OAuthConfig loads the OAuth client configuration for the interactive
// token bootstrap (drive-init).
func OAuthConfig(clientFile string) (*oauth2.Config, error) {
	return loadOAuthConfig(clientFile)
}

func loadOAuthConfig(clientFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(clientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client file: %w", err)
	}
	cfg, err := google.ConfigFromJSON(b, gdrive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client file: %w", err)
	}
	return cfg, nil
}

// LoadToken reads a saved OAuth token from path.
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var token oauth2.Token
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	return &token, nil
}

// SaveToken writes token to path with owner-only permissions.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	return nil
}
