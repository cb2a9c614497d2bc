package attachments

import (
	"context"
	"database/sql"
	"errors"
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

func (r *SQLiteRepository) Insert(ctx context.Context, data []byte, mimeType string) (int64, error) {
	query := `insert into attachments (data, mime_type) values (?, ?)`
	res, err := r.db.ExecContext(ctx, query, data, mimeType)
	if err != nil {
		return 0, fmt.Errorf("failed to insert attachment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get attachment id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*models.AttachmentBlob, error) {
	query := `select id, data, mime_type from attachments where id=?`
	row := r.db.QueryRowContext(ctx, query, id)

	b := &models.AttachmentBlob{}
	if err := row.Scan(&b.ID, &b.Data, &b.MimeType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select attachment: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	query := `delete from attachments where id=?`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	return nil
}
