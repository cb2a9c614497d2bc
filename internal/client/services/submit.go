package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yorgalore/storysync/internal/client/models"
	"github.com/yorgalore/storysync/internal/client/transport"
	"github.com/yorgalore/storysync/internal/logging"
)

// SubmitOutcome reports how a submission was handled: sent to the
// server directly, or parked in the offline queue.
type SubmitOutcome struct {
	// StoryID is the server-assigned id when the submit went through.
	StoryID string

	// Queued is the locally stored record when the server was
	// unreachable and the story was queued instead.
	Queued *models.QueuedStory
}

// Submitter tries the server first and falls back to the offline queue
// on network failure. Server rejections are surfaced to the caller;
// pure connectivity problems are not.
type Submitter interface {
	Submit(ctx context.Context, draft models.StoryDraft, token string) (*SubmitOutcome, error)
}

type submitter struct {
	client transport.Client
	queue  OfflineQueue
	log    logging.Logger
}

// NewSubmitter returns a Submitter over the transport and queue.
func NewSubmitter(client transport.Client, queue OfflineQueue, log logging.Logger) Submitter {
	return &submitter{client: client, queue: queue, log: log}
}

func (s *submitter) Submit(ctx context.Context, draft models.StoryDraft, token string) (*SubmitOutcome, error) {
	if err := ValidateDraft(draft); err != nil {
		return nil, err
	}

	id, err := s.client.SubmitStory(ctx, transport.Submission{
		Description: draft.Description,
		Lat:         draft.Lat,
		Lon:         draft.Lon,
		Photo:       draft.Photo,
		PhotoMime:   draft.PhotoMime,
		Token:       token,
	})
	if err == nil {
		s.log.Info(ctx, "story submitted", "storyId", id)
		return &SubmitOutcome{StoryID: id}, nil
	}

	if !errors.Is(err, transport.ErrUnavailable) {
		// rejected or malformed: the user has to act, queueing cannot help
		return nil, fmt.Errorf("submit failed: %w", err)
	}

	s.log.Info(ctx, "server unreachable, queueing story for sync", "err", err)
	queued, qerr := s.queue.Enqueue(ctx, draft, token)
	if qerr != nil {
		return nil, fmt.Errorf("offline fallback failed: %w", qerr)
	}
	return &SubmitOutcome{Queued: queued}, nil
}
