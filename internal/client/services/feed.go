package services

import (
	"context"
	"strings"

	"github.com/yorgalore/storysync/internal/client/models"
	"github.com/yorgalore/storysync/internal/client/repositories/stories"
	"github.com/yorgalore/storysync/internal/logging"
)

// StoryFeed assembles the story set the user actually sees: cached
// server stories joined at read time with locally queued ones. The two
// collections are never persisted together.
type StoryFeed interface {
	VisibleStories(ctx context.Context) ([]models.CachedStory, error)
}

type storyFeed struct {
	stories stories.Repository
	queue   OfflineQueue
	log     logging.Logger
}

// NewStoryFeed returns a StoryFeed over the cached collection and the
// offline queue.
func NewStoryFeed(repo stories.Repository, q OfflineQueue, log logging.Logger) StoryFeed {
	return &storyFeed{stories: repo, queue: q, log: log}
}

// VisibleStories returns cached stories whose id is not device-local,
// followed by every queued story projected into feed shape. Storage
// failures degrade to an empty contribution rather than an error.
func (f *storyFeed) VisibleStories(ctx context.Context) ([]models.CachedStory, error) {
	cached, err := f.stories.GetAll(ctx)
	if err != nil {
		f.log.Warn(ctx, "cached stories unavailable, showing queued only", "err", err)
		cached = nil
	}

	result := make([]models.CachedStory, 0, len(cached))
	for _, s := range cached {
		if models.IsOfflineID(s.ID) {
			continue
		}
		result = append(result, s)
	}

	pending, err := f.queue.ListPending(ctx)
	if err != nil {
		f.log.Warn(ctx, "queued stories unavailable", "err", err)
		return result, nil
	}
	for i := range pending {
		result = append(result, pending[i].AsCached())
	}
	return result, nil
}

// FilterStories returns the stories whose name or description contains
// query, case-insensitively. An empty query keeps everything.
func FilterStories(list []models.CachedStory, query string) []models.CachedStory {
	if query == "" {
		return list
	}
	q := strings.ToLower(query)
	filtered := make([]models.CachedStory, 0, len(list))
	for _, s := range list {
		if strings.Contains(strings.ToLower(s.Name), q) ||
			strings.Contains(strings.ToLower(s.Description), q) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
