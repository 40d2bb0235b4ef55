package favorites

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/sketchhub/internal/common"
	"github.com/dmitrijs2005/sketchhub/internal/dbx"
	"github.com/dmitrijs2005/sketchhub/internal/server/models"
)

// PairConstraint is the unique constraint over (user_id, model_id).
const PairConstraint = "favorites_user_model_key"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, f *models.Favorite) (*models.Favorite, error) {
	query := `
		INSERT INTO favorites (id, user_id, model_id)
		VALUES (COALESCE(NULLIF($1::bigint, 0), nextval(pg_get_serial_sequence('favorites', 'id'))), $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, f.ID, f.UserID, f.ModelID).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err, PairConstraint) {
			return nil, common.ErrorAlreadyFavorited
		}
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: favorite id %d is taken", common.ErrorConflict, f.ID)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, userID, modelID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM favorites WHERE user_id = $1 AND model_id = $2)`
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, userID, modelID).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, modelID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = $1 AND model_id = $2`, userID, modelID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]models.Favorite, error) {
	query := `
		SELECT f.id, f.user_id, f.model_id, f.created_at,
		       m.id, m.title, m.preview_image_url, m.favorite_count
		FROM favorites f
		JOIN sketch_models m ON m.id = f.model_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC, f.id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.Favorite{}
	for rows.Next() {
		f := models.Favorite{Model: &models.ModelSummary{}}
		if err := rows.Scan(&f.ID, &f.UserID, &f.ModelID, &f.CreatedAt,
			&f.Model.ID, &f.Model.Title, &f.Model.PreviewImageURL, &f.Model.FavoriteCount); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) ModelIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	return dbx.SelectIDs(ctx, r.db, `SELECT model_id FROM favorites WHERE user_id = $1 ORDER BY model_id`, userID)
}

func (r *PostgresRepository) IDs(ctx context.Context) ([]int64, error) {
	return dbx.SelectIDs(ctx, r.db, `SELECT id FROM favorites`)
}
