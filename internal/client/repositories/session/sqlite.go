package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sketchhub/internal/client/models"
	"github.com/dmitrijs2005/sketchhub/internal/dbx"
)

const (
	keyUser         = "user"
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Load(ctx context.Context) (*models.Session, error) {
	rawUser, err := r.get(ctx, keyUser)
	if err != nil || rawUser == nil {
		return nil, err
	}
	access, err := r.get(ctx, keyAccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := r.get(ctx, keyRefreshToken)
	if err != nil {
		return nil, err
	}

	s := &models.Session{AccessToken: string(access), RefreshToken: string(refresh)}
	if err := json.Unmarshal(rawUser, &s.User); err != nil {
		return nil, fmt.Errorf("failed to decode cached user: %w", err)
	}
	return s, nil
}

// Save writes the user and both tokens. Run it inside dbx.WithTx to make
// the three rows atomic.
func (r *SQLiteRepository) Save(ctx context.Context, s *models.Session) error {
	rawUser, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	if err := r.set(ctx, keyUser, rawUser); err != nil {
		return err
	}
	return r.SaveTokens(ctx, s.AccessToken, s.RefreshToken)
}

func (r *SQLiteRepository) SaveTokens(ctx context.Context, access, refresh string) error {
	if err := r.set(ctx, keyAccessToken, []byte(access)); err != nil {
		return err
	}
	return r.set(ctx, keyRefreshToken, []byte(refresh))
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM metadata WHERE key IN (?, ?, ?)`, keyUser, keyAccessToken, keyRefreshToken)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
