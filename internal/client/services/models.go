package services

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/dmitrijs2005/sketchhub/internal/client/client"
	"github.com/dmitrijs2005/sketchhub/internal/client/models"
	"github.com/dmitrijs2005/sketchhub/internal/common"
	"github.com/dmitrijs2005/sketchhub/internal/dto"
	"github.com/dmitrijs2005/sketchhub/internal/filex"
	"github.com/dmitrijs2005/sketchhub/internal/netx"
)

// Asset kinds understood by the API.
const (
	AssetFile     = "file"
	AssetPreview  = "preview"
	AssetEnvMap   = "env_map"
	AssetModelGLB = "model_glb"
)

var uploadFile = netx.UploadFile

// NewModel is what the CLI collects before publishing. Assets maps an asset
// kind to a local file path; the archive (AssetFile) is required.
type NewModel struct {
	Title       string
	Description string
	CategoryID  *int64
	Assets      map[string]string
}

// ModelService publishes, reads and discusses models.
type ModelService struct {
	client client.Client
}

func NewModelService(c client.Client) *ModelService {
	return &ModelService{client: c}
}

// Publish creates the model record and then uploads every asset to its
// presigned URL. The record is deleted again if an upload fails.
func (s *ModelService) Publish(ctx context.Context, in NewModel) (*models.Model, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", common.ErrorValidation)
	}
	if in.Assets[AssetFile] == "" {
		return nil, fmt.Errorf("%w: model archive is required", common.ErrorValidation)
	}
	for kind, path := range in.Assets {
		if err := filex.RequireFile(path); err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
	}

	req := dto.CreateModelRequest{
		Title:      in.Title,
		CategoryID: in.CategoryID,
		Assets:     slices.Sorted(maps.Keys(in.Assets)),
	}
	if in.Description != "" {
		req.Description = &in.Description
	}

	created, err := s.client.CreateModel(ctx, req)
	if err != nil {
		return nil, err
	}

	for _, kind := range req.Assets {
		url, ok := created.Uploads[kind]
		if !ok {
			continue
		}
		if err := uploadFile(ctx, url, in.Assets[kind]); err != nil {
			_ = s.client.DeleteModel(ctx, created.Model.ID)
			return nil, fmt.Errorf("upload %s: %w", kind, err)
		}
	}
	return &created.Model, nil
}

func (s *ModelService) Show(ctx context.Context, id int64) (*models.Model, error) {
	return s.client.Model(ctx, id)
}

func (s *ModelService) Search(ctx context.Context, q string) ([]models.Model, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, fmt.Errorf("%w: search query is required", common.ErrorBadRequest)
	}
	return s.client.Search(ctx, q)
}

func (s *ModelService) Popular(ctx context.Context) ([]models.Model, error) {
	return s.client.Popular(ctx)
}

func (s *ModelService) Delete(ctx context.Context, id int64) error {
	return s.client.DeleteModel(ctx, id)
}

func (s *ModelService) Favorites(ctx context.Context) ([]models.Favorite, error) {
	return s.client.Favorites(ctx)
}

// Comments returns every comment of a model, following the cursor up to
// limit entries (0 means all).
func (s *ModelService) Comments(ctx context.Context, modelID int64, limit int) ([]models.Comment, error) {
	var (
		out    []models.Comment
		cursor int64
	)
	for {
		page, err := s.client.Comments(ctx, modelID, cursor)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Data...)
		if page.NextCursor == nil || (limit > 0 && len(out) >= limit) {
			break
		}
		cursor = *page.NextCursor
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *ModelService) Comment(ctx context.Context, modelID int64, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: comment is empty", common.ErrorValidation)
	}
	return s.client.AddComment(ctx, modelID, text)
}
