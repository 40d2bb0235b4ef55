package client

import (
	"context"

	"github.com/dmitrijs2005/sketchhub/internal/client/models"
	"github.com/dmitrijs2005/sketchhub/internal/dto"
)

// CreatedModel is the create response: the stored model plus one presigned
// upload URL per requested asset kind.
type CreatedModel struct {
	Model   models.Model      `json:"model"`
	Uploads map[string]string `json:"uploads"`
}

type Client interface {
	Ping(ctx context.Context) error
	SetTokens(access, refresh string)

	Register(ctx context.Context, req dto.RegisterRequest) error
	Login(ctx context.Context, email, password string) (*models.Session, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)

	Models(ctx context.Context, cursor int64) (models.Page[models.Model], error)
	Popular(ctx context.Context) ([]models.Model, error)
	Search(ctx context.Context, query string) ([]models.Model, error)
	Model(ctx context.Context, id int64) (*models.Model, error)
	CreateModel(ctx context.Context, req dto.CreateModelRequest) (*CreatedModel, error)
	DeleteModel(ctx context.Context, id int64) error

	Categories(ctx context.Context) ([]models.Category, error)
	Users(ctx context.Context) ([]models.User, error)

	AddFavorite(ctx context.Context, modelID int64) error
	RemoveFavorite(ctx context.Context, modelID int64) error
	FavoriteStatus(ctx context.Context, modelID int64) (bool, error)
	Favorites(ctx context.Context) ([]models.Favorite, error)

	Comments(ctx context.Context, modelID, cursor int64) (models.Page[models.Comment], error)
	AddComment(ctx context.Context, modelID int64, text string) (*models.Comment, error)
}
