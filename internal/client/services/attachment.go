// Package services implements the offline-first core: attachment
// lifecycle, the offline queue, direct submission with queue fallback,
// the visible story feed, and the sync reconciler.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yorgalore/storysync/internal/client/models"
	"github.com/yorgalore/storysync/internal/client/repositories/attachments"
)

// ErrAttachmentNotFound is returned by Fetch for an unknown blob id.
var ErrAttachmentNotFound = errors.New("attachment not found")

// AttachmentManager owns the lifecycle of photo blobs. A blob id is
// valid for referencing only after Store has returned.
type AttachmentManager interface {
	// Store durably saves a blob and returns its fresh id.
	Store(ctx context.Context, data []byte, mimeType string) (int64, error)

	// Fetch returns the blob under id, or ErrAttachmentNotFound.
	Fetch(ctx context.Context, id int64) (*models.AttachmentBlob, error)

	// Remove deletes the blob under id.
	Remove(ctx context.Context, id int64) error
}

type attachmentManager struct {
	repo attachments.Repository
}

// NewAttachmentManager returns an AttachmentManager backed by repo.
func NewAttachmentManager(repo attachments.Repository) AttachmentManager {
	return &attachmentManager{repo: repo}
}

func (m *attachmentManager) Store(ctx context.Context, data []byte, mimeType string) (int64, error) {
	if len(data) == 0 {
		return 0, errors.New("empty attachment")
	}
	id, err := m.repo.Insert(ctx, data, mimeType)
	if err != nil {
		return 0, fmt.Errorf("failed to store attachment: %w", err)
	}
	return id, nil
}

func (m *attachmentManager) Fetch(ctx context.Context, id int64) (*models.AttachmentBlob, error) {
	blob, err := m.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, attachments.ErrNotFound) {
			return nil, ErrAttachmentNotFound
		}
		return nil, fmt.Errorf("failed to fetch attachment: %w", err)
	}
	return blob, nil
}

func (m *attachmentManager) Remove(ctx context.Context, id int64) error {
	if err := m.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to remove attachment: %w", err)
	}
	return nil
}
