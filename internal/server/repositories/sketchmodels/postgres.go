package sketchmodels

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

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

const selectModel = `
	SELECT m.id, m.author_id, m.category_id, m.title, m.description, m.favorite_count,
	       m.preview_image_url, m.env_map_url, m.model_glb_url, m.file_url, m.created_at, m.updated_at,
	       u.id, u.name, u.username, u.profile_image,
	       c.id, c.title, c.code
	FROM sketch_models m
	JOIN users u ON u.id = m.author_id
	LEFT JOIN categories c ON c.id = m.category_id
`

type scanner interface {
	Scan(dest ...any) error
}

func scanModel(row scanner) (*models.Model, error) {
	m := &models.Model{Author: &models.Author{}}
	var (
		catID    sql.NullInt64
		catTitle sql.NullString
		catCode  sql.NullString
	)
	err := row.Scan(
		&m.ID, &m.AuthorID, &m.CategoryID, &m.Title, &m.Description, &m.FavoriteCount,
		&m.PreviewImageURL, &m.EnvMapURL, &m.ModelGLBURL, &m.FileURL, &m.CreatedAt, &m.UpdatedAt,
		&m.Author.ID, &m.Author.Name, &m.Author.Username, &m.Author.ProfileImage,
		&catID, &catTitle, &catCode,
	)
	if err != nil {
		return nil, err
	}
	if catID.Valid {
		m.Category = &models.Category{ID: catID.Int64, Title: catTitle.String, Code: catCode.String}
	}
	return m, nil
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]models.Model, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.Model{}
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) List(ctx context.Context, q ListQuery) ([]models.Model, error) {
	return r.query(ctx, selectModel+`
		WHERE ($1::bigint = 0 OR m.id < $1)
		  AND ($2::bigint IS NULL OR m.category_id = $2)
		ORDER BY m.id DESC
		LIMIT $3`, q.Cursor, q.CategoryID, q.Limit)
}

func (r *PostgresRepository) Popular(ctx context.Context) ([]models.Model, error) {
	return r.query(ctx, selectModel+`ORDER BY m.favorite_count DESC, m.id DESC`)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *PostgresRepository) Search(ctx context.Context, query string) ([]models.Model, error) {
	pattern := "%" + likeEscaper.Replace(query) + "%"
	return r.query(ctx, selectModel+`
		WHERE m.title ILIKE $1 OR m.description ILIKE $1
		ORDER BY m.id DESC`, pattern)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Model, error) {
	m, err := scanModel(r.db.QueryRowContext(ctx, selectModel+`WHERE m.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM sketch_models WHERE id = $1)`, id).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) Create(ctx context.Context, m *models.Model) (*models.Model, error) {
	query := `
		INSERT INTO sketch_models (id, author_id, category_id, title, description,
		                           preview_image_url, env_map_url, model_glb_url, file_url)
		VALUES (COALESCE(NULLIF($1::bigint, 0), nextval(pg_get_serial_sequence('sketch_models', 'id'))),
		        $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, favorite_count, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		m.ID, m.AuthorID, m.CategoryID, m.Title, m.Description,
		m.PreviewImageURL, m.EnvMapURL, m.ModelGLBURL, m.FileURL,
	).Scan(&m.ID, &m.FavoriteCount, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: model %q already exists", common.ErrorConflict, m.Title)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sketch_models WHERE id = $1`, id)
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
	return dbx.SelectIDs(ctx, r.db, `SELECT id FROM sketch_models`)
}

func (r *PostgresRepository) IDsByAuthor(ctx context.Context, authorID int64) ([]int64, error) {
	return dbx.SelectIDs(ctx, r.db, `SELECT id FROM sketch_models WHERE author_id = $1 ORDER BY id`, authorID)
}

func (r *PostgresRepository) updateCounter(ctx context.Context, query string, id int64) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) IncrementFavoriteCount(ctx context.Context, id int64) (int64, error) {
	return r.updateCounter(ctx, `
		UPDATE sketch_models SET favorite_count = favorite_count + 1
		WHERE id = $1
		RETURNING favorite_count`, id)
}

func (r *PostgresRepository) DecrementFavoriteCount(ctx context.Context, id int64) (int64, error) {
	return r.updateCounter(ctx, `
		UPDATE sketch_models SET favorite_count = GREATEST(favorite_count - 1, 0)
		WHERE id = $1
		RETURNING favorite_count`, id)
}
