package files

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/common"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
)

// AttachmentStore keeps uploaded observable files on the local
// filesystem, one file per attachment keyed by attachment ID.
type AttachmentStore struct {
	dir    string
	logger arbor.ILogger
}

// NewAttachmentStore creates the attachments directory if needed
func NewAttachmentStore(dir string, logger arbor.ILogger) (interfaces.AttachmentStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("attachments directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create attachments directory: %w", err)
	}

	logger.Debug().Str("dir", dir).Msg("Attachment store initialized")

	return &AttachmentStore{
		dir:    dir,
		logger: logger,
	}, nil
}

// Save streams the content to disk and records its SHA-256 hash
func (s *AttachmentStore) Save(ctx context.Context, name, contentType string, content io.Reader) (*models.Attachment, error) {
	id := common.NewAttachmentID()
	path := filepath.Join(s.dir, id)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create attachment file: %w", err)
	}

	hasher := sha256.New()
	size, err := io.Copy(file, io.TeeReader(content, hasher))
	if closeErr := file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write attachment content: %w", err)
	}

	attachment := &models.Attachment{
		ID:          id,
		Name:        name,
		ContentType: contentType,
		Size:        size,
		Hash:        hex.EncodeToString(hasher.Sum(nil)),
	}

	s.logger.Debug().
		Str("attachment_id", id).
		Str("name", name).
		Int64("size", size).
		Msg("Attachment stored")

	return attachment, nil
}

// Source opens the stored content for reading
func (s *AttachmentStore) Source(ctx context.Context, id string) (io.ReadCloser, error) {
	if id == "" {
		return nil, fmt.Errorf("attachment id is required")
	}

	file, err := os.Open(filepath.Join(s.dir, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("attachment %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	return file, nil
}
