// Package favorites declares the repository contract for the user/model
// favorite relation. The pair (user_id, model_id) is unique.
package favorites

import (
	"context"

	"github.com/dmitrijs2005/sketchhub/internal/server/models"
)

type Repository interface {
	// Create inserts the favorite. A duplicate pair is
	// common.ErrorAlreadyFavorited; a duplicate explicit ID is
	// common.ErrorConflict.
	Create(ctx context.Context, f *models.Favorite) (*models.Favorite, error)
	Exists(ctx context.Context, userID, modelID int64) (bool, error)
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, userID, modelID int64) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Favorite, error)
	// ModelIDsByUser returns the models the user has favorited.
	ModelIDsByUser(ctx context.Context, userID int64) ([]int64, error)
	IDs(ctx context.Context) ([]int64, error)
}
