package snapshots

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sketchhub/internal/common"
	"github.com/dmitrijs2005/sketchhub/internal/dbx"
)

// now is a seam for tests.
var now = func() time.Time { return time.Now().UTC() }

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Save(ctx context.Context, kind string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s snapshot: %w", kind, err)
	}

	query := ` INSERT INTO snapshots (kind, payload, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(kind) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at
	`
	if _, err := r.db.ExecContext(ctx, query, kind, payload, now()); err != nil {
		return fmt.Errorf("failed to save %s snapshot: %w", kind, err)
	}
	return nil
}

func (r *SQLiteRepository) Load(ctx context.Context, kind string, out any) (time.Time, error) {
	var (
		payload []byte
		savedAt time.Time
	)
	err := r.db.QueryRowContext(ctx, `SELECT payload, saved_at FROM snapshots WHERE kind = ?`, kind).Scan(&payload, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("%s snapshot: %w", kind, common.ErrorNotFound)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load %s snapshot: %w", kind, err)
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return time.Time{}, fmt.Errorf("failed to decode %s snapshot: %w", kind, err)
	}
	return savedAt, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("failed to clear snapshots: %w", err)
	}
	return nil
}
