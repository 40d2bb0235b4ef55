package users

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

const selectUser = `
	SELECT u.id, u.name, u.username, u.email, u.password_hash, u.profile_image, u.role_id, r.title, u.created_at
	FROM users u
	JOIN roles r ON r.id = u.role_id
`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.PasswordHash, &u.ProfileImage, &u.RoleID, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (id, name, username, email, password_hash, role_id)
		VALUES (COALESCE(NULLIF($1::bigint, 0), nextval(pg_get_serial_sequence('users', 'id'))), $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Name, user.Username, user.Email, user.PasswordHash, user.RoleID).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: user already exists", common.ErrorConflict)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) get(ctx context.Context, where string, arg any) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, selectUser+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.get(ctx, `WHERE u.email = $1`, email)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.get(ctx, `WHERE u.id = $1`, id)
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, selectUser+`ORDER BY u.id`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
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

func (r *PostgresRepository) UpdateRole(ctx context.Context, id int64, roleID int64) error {
	return r.exec(ctx, `UPDATE users SET role_id = $2 WHERE id = $1`, id, roleID)
}

func (r *PostgresRepository) UpdateProfileImage(ctx context.Context, id int64, key string) error {
	return r.exec(ctx, `UPDATE users SET profile_image = $2 WHERE id = $1`, id, key)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	return r.exec(ctx, `DELETE FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) IDs(ctx context.Context) ([]int64, error) {
	return dbx.SelectIDs(ctx, r.db, `SELECT id FROM users`)
}

func (r *PostgresRepository) ListRoles(ctx context.Context) ([]models.Role, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		var role models.Role
		if err := rows.Scan(&role.ID, &role.Title); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return roles, nil
}

func (r *PostgresRepository) RoleByTitle(ctx context.Context, title string) (*models.Role, error) {
	role := &models.Role{}
	err := r.db.QueryRowContext(ctx, `SELECT id, title FROM roles WHERE title = $1`, title).Scan(&role.ID, &role.Title)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return role, nil
}
