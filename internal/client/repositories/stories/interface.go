package stories

import (
	"context"

	"github.com/yorgalore/storysync/internal/client/models"
)

// Repository holds the locally cached copy of the server's story list.
// The collection mirrors one server snapshot at a time: refreshes
// replace it wholesale, never merge into it.
type Repository interface {
	// GetAll returns every cached story.
	GetAll(ctx context.Context) ([]models.CachedStory, error)

	// ReplaceAll atomically clears the collection and inserts the given
	// stories. A concurrent reader sees either the old snapshot or the
	// new one, never a partially cleared collection.
	ReplaceAll(ctx context.Context, stories []models.CachedStory) error
}
