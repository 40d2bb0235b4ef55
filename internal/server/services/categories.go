package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/sketchhub/internal/common"
	"github.com/dmitrijs2005/sketchhub/internal/server/broadcast"
	"github.com/dmitrijs2005/sketchhub/internal/server/models"
)

type CategoryService struct {
	base
}

func NewCategoryService(d Deps) *CategoryService {
	return &CategoryService{base: newBase(d, "categories")}
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	items, err := s.repomanager.Categories(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing categories: %w", err)
	}
	return nonNil(items), nil
}

func (s *CategoryService) Create(ctx context.Context, title, code string) (*models.Category, error) {
	title, code = strings.TrimSpace(title), strings.TrimSpace(code)
	if err := validateCategory(title, code); err != nil {
		return nil, err
	}

	repo := s.repomanager.Categories(s.db)

	id, err := s.ids.Next(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("error allocating category id: %w", err)
	}

	c, err := repo.Create(ctx, &models.Category{ID: id, Title: title, Code: code})
	if err != nil {
		return nil, fmt.Errorf("error creating category: %w", err)
	}

	s.publish(ctx, broadcast.CategoryChanged{Category: *c, Action: common.ActionCreated})
	return c, nil
}

// Update changes the fields that are not nil.
func (s *CategoryService) Update(ctx context.Context, id int64, title, code *string) (*models.Category, error) {
	repo := s.repomanager.Categories(s.db)

	c, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error loading category %d: %w", id, err)
	}
	if title != nil {
		c.Title = strings.TrimSpace(*title)
	}
	if code != nil {
		c.Code = strings.TrimSpace(*code)
	}
	if err := validateCategory(c.Title, c.Code); err != nil {
		return nil, err
	}

	updated, err := repo.Update(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("error updating category %d: %w", id, err)
	}

	s.publish(ctx, broadcast.CategoryChanged{Category: *updated, Action: common.ActionUpdated})
	return updated, nil
}

// Delete removes the category. Its models stay, with no category.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	repo := s.repomanager.Categories(s.db)

	c, err := repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("error loading category %d: %w", id, err)
	}
	if err := repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("error deleting category %d: %w", id, err)
	}

	s.publish(ctx, broadcast.CategoryChanged{Category: *c, Action: common.ActionDeleted})
	return nil
}

func validateCategory(title, code string) error {
	if title == "" || utf8.RuneCountInString(title) > 255 {
		return validationError("title is required and must be at most 255 characters")
	}
	if code == "" || utf8.RuneCountInString(code) > 255 {
		return validationError("code is required and must be at most 255 characters")
	}
	return nil
}
