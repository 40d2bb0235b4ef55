// Package categories declares the repository contract for model categories.
package categories

import (
	"context"

	"github.com/dmitrijs2005/sketchhub/internal/server/models"
)

type Repository interface {
	List(ctx context.Context) ([]models.Category, error)
	GetByID(ctx context.Context, id int64) (*models.Category, error)
	GetByCode(ctx context.Context, code string) (*models.Category, error)
	// Create honours a non-zero ID. Duplicate code is common.ErrorConflict.
	Create(ctx context.Context, c *models.Category) (*models.Category, error)
	Update(ctx context.Context, c *models.Category) (*models.Category, error)
	Delete(ctx context.Context, id int64) error
	IDs(ctx context.Context) ([]int64, error)
}
