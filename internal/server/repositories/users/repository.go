// Package users declares the repository contract for accounts and roles.
package users

import (
	"context"

	"github.com/dmitrijs2005/sketchhub/internal/server/models"
)

type Repository interface {
	// Create inserts the user. A non-zero ID is used as is; zero lets the
	// database assign one. Duplicate email or username is common.ErrorConflict.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	UpdateRole(ctx context.Context, id int64, roleID int64) error
	UpdateProfileImage(ctx context.Context, id int64, key string) error
	Delete(ctx context.Context, id int64) error
	IDs(ctx context.Context) ([]int64, error)

	ListRoles(ctx context.Context) ([]models.Role, error)
	RoleByTitle(ctx context.Context, title string) (*models.Role, error)
}
