package categories

import (
	"context"
	"database/sql"
	"errors"
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

func (r *PostgresRepository) List(ctx context.Context) ([]models.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title, code FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Title, &c.Code); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) get(ctx context.Context, query string, arg any) (*models.Category, error) {
	c := &models.Category{}
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&c.ID, &c.Title, &c.Code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	return r.get(ctx, `SELECT id, title, code FROM categories WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*models.Category, error) {
	return r.get(ctx, `SELECT id, title, code FROM categories WHERE code = $1`, code)
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	query := `
		INSERT INTO categories (id, title, code)
		VALUES (COALESCE(NULLIF($1::bigint, 0), nextval(pg_get_serial_sequence('categories', 'id'))), $2, $3)
		RETURNING id
	`
	if err := r.db.QueryRowContext(ctx, query, c.ID, c.Title, c.Code).Scan(&c.ID); err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: category code %q is taken", common.ErrorConflict, c.Code)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Update(ctx context.Context, c *models.Category) (*models.Category, error) {
	query := `
		UPDATE categories SET title = $2, code = $3
		WHERE id = $1
		RETURNING id, title, code
	`
	out := &models.Category{}
	err := r.db.QueryRowContext(ctx, query, c.ID, c.Title, c.Code).Scan(&out.ID, &out.Title, &out.Code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: category code %q is taken", common.ErrorConflict, c.Code)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) IDs(ctx context.Context) ([]int64, error) {
	return dbx.SelectIDs(ctx, r.db, `SELECT id FROM categories`)
}
