package queue

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/yorgalore/storysync/internal/client/models"
)

// SQLiteRepository implements Repository on a local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository returns a new SQLiteRepository bound to db.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Add(ctx context.Context, story *models.QueuedStory) error {
	query := `insert into queued_stories (id, token, description, lat, lon, photo_blob_id, created_at, name)
			values (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		story.ID, story.Token, story.Description, story.Lat, story.Lon,
		story.PhotoBlobID, story.CreatedAt, story.Name)
	if err != nil {
		return fmt.Errorf("failed to insert queued story: %w", err)
	}
	return nil
}

// GetAll lists queued stories ordered by creation time. Ids embed a
// monotonic timestamp, so this is insertion order.
func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.QueuedStory, error) {
	query := `select id, token, description, lat, lon, photo_blob_id, created_at, name
			from queued_stories order by created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select queued stories: %w", err)
	}
	defer rows.Close()

	var result []models.QueuedStory
	for rows.Next() {
		var item models.QueuedStory
		if err := rows.Scan(&item.ID, &item.Token, &item.Description, &item.Lat, &item.Lon,
			&item.PhotoBlobID, &item.CreatedAt, &item.Name); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	query := `delete from queued_stories where id=?`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete queued story: %w", err)
	}
	return nil
}
