// Package comments declares the repository contract for model comments.
package comments

import (
	"context"

	"github.com/dmitrijs2005/sketchhub/internal/server/models"
)

type Repository interface {
	// ListByModel returns up to limit comments older than cursor (0 = newest),
	// newest first, with their authors.
	ListByModel(ctx context.Context, modelID, cursor int64, limit int) ([]models.Comment, error)
	Create(ctx context.Context, c *models.Comment) (*models.Comment, error)
	IDs(ctx context.Context) ([]int64, error)
}
