package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/sketchhub/internal/common"
	"github.com/dmitrijs2005/sketchhub/internal/server/auth"
	"github.com/dmitrijs2005/sketchhub/internal/server/broadcast"
	"github.com/dmitrijs2005/sketchhub/internal/server/models"
	"github.com/dmitrijs2005/sketchhub/internal/server/repositories/sketchmodels"
	"github.com/dmitrijs2005/sketchhub/internal/server/storage"
)

const (
	ModelsPageSize = 20

	// AllCategories selects every category in ByCategory.
	AllCategories = "all"
)

// Model asset kinds accepted by Create.
const (
	AssetFile     = "file"
	AssetPreview  = "preview"
	AssetEnvMap   = "env_map"
	AssetModelGLB = "model_glb"
)

var assetObjectNames = map[string]string{
	AssetFile:     "archive",
	AssetPreview:  "preview",
	AssetEnvMap:   "env_map.hdr",
	AssetModelGLB: "model.glb",
}

type CreateModelInput struct {
	Title       string
	Description *string
	CategoryID  *int64
	Assets      []string
}

// CreatedModel is the stored model plus one presigned PUT URL per asset.
type CreatedModel struct {
	Model   *models.Model     `json:"model"`
	Uploads map[string]string `json:"uploads"`
}

type ModelService struct {
	base
}

func NewModelService(d Deps) *ModelService {
	return &ModelService{base: newBase(d, "models")}
}

// List returns one page of models, newest first.
func (s *ModelService) List(ctx context.Context, cursor int64) (models.Page[models.Model], error) {
	return s.list(ctx, sketchmodels.ListQuery{Cursor: cursor})
}

// ByCategory pages models of the category with the given code. An unknown
// code yields an empty page.
func (s *ModelService) ByCategory(ctx context.Context, code string, cursor int64) (models.Page[models.Model], error) {
	if code == "" || code == AllCategories {
		return s.list(ctx, sketchmodels.ListQuery{Cursor: cursor})
	}

	category, err := s.repomanager.Categories(s.db).GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return models.Page[models.Model]{Data: []models.Model{}}, nil
		}
		return models.Page[models.Model]{}, fmt.Errorf("error loading category: %w", err)
	}
	return s.list(ctx, sketchmodels.ListQuery{CategoryID: &category.ID, Cursor: cursor})
}

func (s *ModelService) list(ctx context.Context, q sketchmodels.ListQuery) (models.Page[models.Model], error) {
	q.Limit = ModelsPageSize + 1
	items, err := s.repomanager.Models(s.db).List(ctx, q)
	if err != nil {
		return models.Page[models.Model]{}, fmt.Errorf("error listing models: %w", err)
	}
	s.resolveAll(items)
	return page(items, ModelsPageSize, func(m models.Model) int64 { return m.ID }), nil
}

// Popular returns every model ordered by favorite_count, highest first.
func (s *ModelService) Popular(ctx context.Context) ([]models.Model, error) {
	items, err := s.repomanager.Models(s.db).Popular(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing popular models: %w", err)
	}
	s.resolveAll(items)
	return nonNil(items), nil
}

// Search matches the query against title and description.
func (s *ModelService) Search(ctx context.Context, query string) ([]models.Model, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", common.ErrorBadRequest)
	}
	items, err := s.repomanager.Models(s.db).Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error searching models: %w", err)
	}
	s.resolveAll(items)
	return nonNil(items), nil
}

func (s *ModelService) Get(ctx context.Context, id int64) (*models.Model, error) {
	m, err := s.repomanager.Models(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error loading model %d: %w", id, err)
	}
	s.resolveModel(m)
	return m, nil
}

// Create stores the model row and presigns one upload URL per requested
// asset. The archive is mandatory. Clients PUT the bytes straight to
// object storage.
func (s *ModelService) Create(ctx context.Context, authorID int64, in CreateModelInput) (*CreatedModel, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" || utf8.RuneCountInString(in.Title) > 255 {
		return nil, validationError("title is required and must be at most 255 characters")
	}

	assets := map[string]bool{}
	for _, a := range in.Assets {
		if _, ok := assetObjectNames[a]; !ok {
			return nil, validationError("unknown asset %q", a)
		}
		assets[a] = true
	}
	if !assets[AssetFile] {
		return nil, validationError("model archive is required")
	}

	if in.CategoryID != nil {
		if _, err := s.repomanager.Categories(s.db).GetByID(ctx, *in.CategoryID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, validationError("category %d does not exist", *in.CategoryID)
			}
			return nil, fmt.Errorf("error loading category: %w", err)
		}
	}

	prefix := storage.ModelPrefix(authorID, storage.NewUploadID())
	keys := map[string]string{}
	uploads := map[string]string{}
	for a := range assets {
		key := prefix + assetObjectNames[a]
		url, err := s.storage.PresignPut(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("error presigning %s upload: %w", a, err)
		}
		keys[a] = key
		uploads[a] = url
	}

	repo := s.repomanager.Models(s.db)

	id, err := s.ids.Next(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("error allocating model id: %w", err)
	}

	created, err := repo.Create(ctx, &models.Model{
		ID:              id,
		AuthorID:        authorID,
		CategoryID:      in.CategoryID,
		Title:           in.Title,
		Description:     in.Description,
		FileURL:         keys[AssetFile],
		PreviewImageURL: optional(keys, AssetPreview),
		EnvMapURL:       optional(keys, AssetEnvMap),
		ModelGLBURL:     optional(keys, AssetModelGLB),
	})
	if err != nil {
		return nil, fmt.Errorf("error creating model: %w", err)
	}

	full, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		return nil, fmt.Errorf("error loading model %d: %w", created.ID, err)
	}
	s.resolveModel(full)

	s.logger.Info(ctx, "model created", "model_id", full.ID, "author_id", authorID)
	s.publish(ctx, broadcast.ModelCreated{Model: *full})

	return &CreatedModel{Model: full, Uploads: uploads}, nil
}

// Delete removes the model and its stored assets. Only the author or an
// admin may do it.
func (s *ModelService) Delete(ctx context.Context, caller auth.Identity, id int64) error {
	repo := s.repomanager.Models(s.db)

	m, err := repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("error loading model %d: %w", id, err)
	}
	if !caller.IsAdmin() && m.AuthorID != caller.UserID {
		return fmt.Errorf("%w: only the author or an admin can delete a model", common.ErrorForbidden)
	}

	if err := repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("error deleting model %d: %w", id, err)
	}

	if prefix := assetPrefix(m.FileURL); prefix != "" && s.storage != nil {
		if err := s.storage.DeletePrefix(ctx, prefix); err != nil {
			s.logger.Error(ctx, "delete model assets", "model_id", id, "prefix", prefix, "error", err)
		}
	}

	s.logger.Info(ctx, "model deleted", "model_id", id, "user_id", caller.UserID)
	s.publish(ctx, broadcast.ModelDeleted{ID: id})

	return nil
}

func (s *ModelService) resolveAll(items []models.Model) {
	for i := range items {
		s.resolveModel(&items[i])
	}
}

// assetPrefix is the upload folder of a stored archive key.
func assetPrefix(fileKey string) string {
	if fileKey == "" || strings.Contains(fileKey, "://") {
		return ""
	}
	dir := path.Dir(fileKey)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir + "/"
}

func optional(keys map[string]string, asset string) *string {
	if k, ok := keys[asset]; ok {
		return &k
	}
	return nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
