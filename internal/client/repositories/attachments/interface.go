package attachments

import (
	"context"
	"errors"

	"github.com/yorgalore/storysync/internal/client/models"
)

// ErrNotFound is returned by Get when no blob exists under the given id.
var ErrNotFound = errors.New("attachment not found")

// Repository is the arena of photo blobs. Blobs are keyed by a
// store-assigned auto-incrementing id; queued stories reference them by
// that id and never embed the bytes.
type Repository interface {
	// Insert stores a blob and returns its assigned id. The id is valid
	// only after Insert returns.
	Insert(ctx context.Context, data []byte, mimeType string) (int64, error)

	// Get returns the blob under id, or ErrNotFound.
	Get(ctx context.Context, id int64) (*models.AttachmentBlob, error)

	// Delete removes the blob under id. Deleting an absent id is not an
	// error.
	Delete(ctx context.Context, id int64) error
}
