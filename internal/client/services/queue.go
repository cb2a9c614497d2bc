package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yorgalore/storysync/internal/client/models"
	"github.com/yorgalore/storysync/internal/client/repositories/queue"
	"github.com/yorgalore/storysync/internal/logging"
)

// MaxPhotoSize is the largest photo accepted for a story, matching the
// server's upload limit.
const MaxPhotoSize = 1 << 20

var (
	// ErrPhotoTooLarge rejects photos over MaxPhotoSize before anything
	// is written to the store.
	ErrPhotoTooLarge = errors.New("photo exceeds maximum size")

	// ErrEmptyDraft rejects drafts missing a description or photo.
	ErrEmptyDraft = errors.New("description and photo are required")
)

// OfflineQueue persists stories created while the server is
// unreachable, for later reconciliation.
type OfflineQueue interface {
	// Enqueue stores the draft's photo, then the queued record
	// referencing it. The token is captured now because the session may
	// be gone by sync time.
	Enqueue(ctx context.Context, draft models.StoryDraft, token string) (*models.QueuedStory, error)

	// ListPending returns queued stories in insertion order.
	ListPending(ctx context.Context) ([]models.QueuedStory, error)

	// Remove deletes the record first and its attachment second. An
	// interruption in between leaves an orphaned blob, never a record
	// pointing at a missing blob. This ordering is deliberate.
	Remove(ctx context.Context, id string, blobID int64) error
}

type offlineQueue struct {
	repo        queue.Repository
	attachments AttachmentManager
	log         logging.Logger

	// now is a test seam; ids embed the clock reading.
	now func() time.Time

	mu         sync.Mutex
	lastMillis int64
}

// NewOfflineQueue returns an OfflineQueue over the given repository and
// attachment manager.
func NewOfflineQueue(repo queue.Repository, am AttachmentManager, log logging.Logger) OfflineQueue {
	return &offlineQueue{repo: repo, attachments: am, log: log, now: time.Now}
}

// ValidateDraft applies the submission rules shared by direct submits
// and offline enqueues.
func ValidateDraft(draft models.StoryDraft) error {
	if draft.Description == "" || len(draft.Photo) == 0 {
		return ErrEmptyDraft
	}
	if len(draft.Photo) > MaxPhotoSize {
		return ErrPhotoTooLarge
	}
	return nil
}

func (q *offlineQueue) Enqueue(ctx context.Context, draft models.StoryDraft, token string) (*models.QueuedStory, error) {
	if err := ValidateDraft(draft); err != nil {
		return nil, err
	}

	blobID, err := q.attachments.Store(ctx, draft.Photo, draft.PhotoMime)
	if err != nil {
		return nil, fmt.Errorf("failed to store photo: %w", err)
	}

	createdAt := q.next()
	story := &models.QueuedStory{
		ID:          models.NewOfflineID(createdAt),
		Token:       token,
		Description: draft.Description,
		Lat:         draft.Lat,
		Lon:         draft.Lon,
		PhotoBlobID: blobID,
		CreatedAt:   createdAt.UTC().Format(time.RFC3339),
		Name:        models.OfflineAuthorName,
	}

	if err := q.repo.Add(ctx, story); err != nil {
		// the blob just written is now orphaned garbage; harmless, a
		// retry stores a new one
		q.log.Warn(ctx, "queued story not persisted, photo blob orphaned",
			"blobId", blobID, "err", err)
		return nil, fmt.Errorf("failed to queue story: %w", err)
	}

	q.log.Info(ctx, "story queued for sync", "id", story.ID, "blobId", blobID)
	return story, nil
}

// next returns a strictly increasing clock reading at millisecond
// granularity, so two enqueues in the same millisecond still get
// distinct ids.
func (q *offlineQueue) next() time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()

	t := q.now()
	if ms := t.UnixMilli(); ms <= q.lastMillis {
		t = time.UnixMilli(q.lastMillis + 1)
	}
	q.lastMillis = t.UnixMilli()
	return t
}

func (q *offlineQueue) ListPending(ctx context.Context) ([]models.QueuedStory, error) {
	pending, err := q.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending stories: %w", err)
	}
	return pending, nil
}

func (q *offlineQueue) Remove(ctx context.Context, id string, blobID int64) error {
	if err := q.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to remove queued story: %w", err)
	}
	if err := q.attachments.Remove(ctx, blobID); err != nil {
		return fmt.Errorf("failed to remove attachment: %w", err)
	}
	return nil
}
