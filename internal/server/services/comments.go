package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/sketchhub/internal/common"
	"github.com/dmitrijs2005/sketchhub/internal/server/models"
)

const (
	CommentsPageSize = 15
	minCommentLength = 2
	maxCommentLength = 2000
)

type CommentService struct {
	base
}

func NewCommentService(d Deps) *CommentService {
	return &CommentService{base: newBase(d, "comments")}
}

// List pages the comments of a model, newest first.
func (s *CommentService) List(ctx context.Context, modelID, cursor int64) (models.Page[models.Comment], error) {
	if modelID <= 0 {
		return models.Page[models.Comment]{}, validationError("model_id is required")
	}
	items, err := s.repomanager.Comments(s.db).ListByModel(ctx, modelID, cursor, CommentsPageSize+1)
	if err != nil {
		return models.Page[models.Comment]{}, fmt.Errorf("error listing comments: %w", err)
	}
	for i := range items {
		s.resolveAuthor(items[i].User)
	}
	return page(items, CommentsPageSize, func(c models.Comment) int64 { return c.ID }), nil
}

// Create adds a comment by userID to an existing model.
func (s *CommentService) Create(ctx context.Context, userID, modelID int64, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < minCommentLength || n > maxCommentLength {
		return nil, validationError("comment must be %d to %d characters", minCommentLength, maxCommentLength)
	}
	if modelID <= 0 {
		return nil, validationError("model_id is required")
	}

	ok, err := s.repomanager.Models(s.db).Exists(ctx, modelID)
	if err != nil {
		return nil, fmt.Errorf("error checking model: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("model %d: %w", modelID, common.ErrorNotFound)
	}

	repo := s.repomanager.Comments(s.db)

	id, err := s.ids.Next(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("error allocating comment id: %w", err)
	}

	c, err := repo.Create(ctx, &models.Comment{ID: id, ModelID: modelID, UserID: userID, Comment: text})
	if err != nil {
		return nil, fmt.Errorf("error creating comment: %w", err)
	}

	u, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading comment author: %w", err)
	}
	c.User = &models.Author{ID: u.ID, Name: u.Name, Username: u.Username, ProfileImage: u.ProfileImage}
	s.resolveAuthor(c.User)

	return c, nil
}
