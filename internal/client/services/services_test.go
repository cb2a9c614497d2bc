package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yorgalore/storysync/internal/client/models"
	"github.com/yorgalore/storysync/internal/client/repositories/attachments"
	"github.com/yorgalore/storysync/internal/client/repositories/queue"
	"github.com/yorgalore/storysync/internal/client/repositories/stories"
	"github.com/yorgalore/storysync/internal/client/transport"
	"github.com/yorgalore/storysync/internal/logging"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE stories (
  id TEXT PRIMARY KEY,
  description TEXT NOT NULL,
  lat REAL,
  lon REAL,
  created_at TEXT NOT NULL,
  name TEXT NOT NULL,
  photo_url TEXT NOT NULL DEFAULT ''
);
CREATE TABLE queued_stories (
  id TEXT PRIMARY KEY,
  token TEXT NOT NULL,
  description TEXT NOT NULL,
  lat REAL,
  lon REAL,
  photo_blob_id INTEGER NOT NULL,
  created_at TEXT NOT NULL,
  name TEXT NOT NULL
);
CREATE TABLE attachments (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  data BLOB NOT NULL,
  mime_type TEXT NOT NULL DEFAULT ''
);
`)
	require.NoError(t, err)

	return db
}

func testLogger() logging.Logger {
	return logging.NewTextLogger(io.Discard, slog.LevelError)
}

type fixture struct {
	db          *sql.DB
	stories     stories.Repository
	attachments AttachmentManager
	queue       OfflineQueue
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupDB(t)
	am := NewAttachmentManager(attachments.NewSQLiteRepository(db))
	q := NewOfflineQueue(queue.NewSQLiteRepository(db), am, testLogger())
	return &fixture{
		db:          db,
		stories:     stories.NewSQLiteRepository(db),
		attachments: am,
		queue:       q,
	}
}

// fakeTransport scripts SubmitStory responses per description.
type fakeTransport struct {
	mu        sync.Mutex
	submits   []transport.Submission
	errFor    map[string]error // keyed by submission description
	submitErr error            // applied when errFor has no entry
	stories   []models.CachedStory
	fetchErr  error
	pingErr   error
}

func (f *fakeTransport) SubmitStory(_ context.Context, sub transport.Submission) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, sub)
	if err, ok := f.errFor[sub.Description]; ok {
		return "", err
	}
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "srv-" + sub.Description, nil
}

func (f *fakeTransport) FetchStories(context.Context, string) ([]models.CachedStory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.stories, nil
}

func (f *fakeTransport) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeTransport) submitted() []transport.Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]transport.Submission, len(f.submits))
	copy(out, f.submits)
	return out
}
