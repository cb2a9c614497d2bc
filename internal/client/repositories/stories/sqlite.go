package stories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/yorgalore/storysync/internal/client/models"
	"github.com/yorgalore/storysync/internal/dbx"
)

// SQLiteRepository implements Repository on a local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository returns a new SQLiteRepository bound to db.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetAll lists all cached stories.
func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.CachedStory, error) {
	query := `select id, description, lat, lon, created_at, name, photo_url from stories`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select stories: %w", err)
	}
	defer rows.Close()

	var result []models.CachedStory
	for rows.Next() {
		var item models.CachedStory
		if err := rows.Scan(&item.ID, &item.Description, &item.Lat, &item.Lon,
			&item.CreatedAt, &item.Name, &item.PhotoURL); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ReplaceAll swaps the whole collection for the given snapshot in one
// transaction.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, stories []models.CachedStory) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `delete from stories`); err != nil {
			return fmt.Errorf("failed to clear stories: %w", err)
		}
		query := `insert into stories (id, description, lat, lon, created_at, name, photo_url)
			values (?, ?, ?, ?, ?, ?, ?)`
		for _, s := range stories {
			if _, err := tx.ExecContext(ctx, query,
				s.ID, s.Description, s.Lat, s.Lon, s.CreatedAt, s.Name, s.PhotoURL); err != nil {
				return fmt.Errorf("failed to insert story %s: %w", s.ID, err)
			}
		}
		return nil
	})
}
