// Package sketchmodels declares the repository contract for published 3D
// models, including the denormalized favorite counter.
package sketchmodels

import (
	"context"

	"github.com/dmitrijs2005/sketchhub/internal/server/models"
)

// ListQuery selects one keyset page, newest first. Cursor 0 starts from the
// newest row; CategoryID nil means every category.
type ListQuery struct {
	CategoryID *int64
	Cursor     int64
	Limit      int
}

type Repository interface {
	List(ctx context.Context, q ListQuery) ([]models.Model, error)
	Popular(ctx context.Context) ([]models.Model, error)
	Search(ctx context.Context, query string) ([]models.Model, error)
	GetByID(ctx context.Context, id int64) (*models.Model, error)
	Exists(ctx context.Context, id int64) (bool, error)
	// Create honours a non-zero ID. Duplicate title is common.ErrorConflict.
	Create(ctx context.Context, m *models.Model) (*models.Model, error)
	Delete(ctx context.Context, id int64) error
	IDs(ctx context.Context) ([]int64, error)
	// IDsByAuthor returns the models published by the user.
	IDsByAuthor(ctx context.Context, authorID int64) ([]int64, error)

	// IncrementFavoriteCount adds one and returns the new value.
	IncrementFavoriteCount(ctx context.Context, id int64) (int64, error)
	// DecrementFavoriteCount subtracts one, never going below zero.
	DecrementFavoriteCount(ctx context.Context, id int64) (int64, error)
}
