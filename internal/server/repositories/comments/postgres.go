package comments

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/sketchhub/internal/common"
	"github.com/dmitrijs2005/sketchhub/internal/dbx"
	"github.com/dmitrijs2005/sketchhub/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListByModel(ctx context.Context, modelID, cursor int64, limit int) ([]models.Comment, error) {
	query := `
		SELECT c.id, c.model_id, c.user_id, c.comment, c.created_at,
		       u.id, u.name, u.username, u.profile_image
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.model_id = $1 AND ($2::bigint = 0 OR c.id < $2)
		ORDER BY c.id DESC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, modelID, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.Comment{}
	for rows.Next() {
		c := models.Comment{User: &models.Author{}}
		if err := rows.Scan(&c.ID, &c.ModelID, &c.UserID, &c.Comment, &c.CreatedAt,
			&c.User.ID, &c.User.Name, &c.User.Username, &c.User.ProfileImage); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	query := `
		INSERT INTO comments (id, model_id, user_id, comment)
		VALUES (COALESCE(NULLIF($1::bigint, 0), nextval(pg_get_serial_sequence('comments', 'id'))), $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, c.ID, c.ModelID, c.UserID, c.Comment).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: comment id %d is taken", common.ErrorConflict, c.ID)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) IDs(ctx context.Context) ([]int64, error) {
	return dbx.SelectIDs(ctx, r.db, `SELECT id FROM comments`)
}
