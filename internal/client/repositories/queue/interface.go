package queue

import (
	"context"

	"github.com/yorgalore/storysync/internal/client/models"
)

// Repository holds stories created offline, awaiting synchronization.
// Records are inserted once and only ever removed; nothing updates them
// in place.
type Repository interface {
	// Add persists a queued story.
	Add(ctx context.Context, story *models.QueuedStory) error

	// GetAll returns every queued story in insertion order.
	GetAll(ctx context.Context) ([]models.QueuedStory, error)

	// Delete removes the queued story with the given id. Deleting an
	// absent id is not an error; a concurrent sweep may have removed it
	// already.
	Delete(ctx context.Context, id string) error
}
