package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sketchhub/internal/common"
	"github.com/dmitrijs2005/sketchhub/internal/dbx"
	"github.com/dmitrijs2005/sketchhub/internal/server/broadcast"
	"github.com/dmitrijs2005/sketchhub/internal/server/models"
)

const (
	opAdd    = "add"
	opRemove = "remove"
)

// FavoriteService keeps the favorite relation and the denormalized
// favorite_count of each model in step, and announces every change of the
// counter on the models channel.
type FavoriteService struct {
	base
}

func NewFavoriteService(d Deps) *FavoriteService {
	return &FavoriteService{base: newBase(d, "favorites")}
}

// Add favorites the model for the user and bumps its counter. The model must
// exist; a second add of the same pair is common.ErrorAlreadyFavorited.
func (s *FavoriteService) Add(ctx context.Context, userID, modelID int64) (fav *models.Favorite, err error) {
	defer func() { s.count(opAdd, err) }()

	if err := s.requireModel(ctx, modelID); err != nil {
		return nil, err
	}

	favs := s.repomanager.Favorites(s.db)

	exists, err := favs.Exists(ctx, userID, modelID)
	if err != nil {
		return nil, fmt.Errorf("error checking favorite: %w", err)
	}
	if exists {
		return nil, common.ErrorAlreadyFavorited
	}

	id, err := s.ids.Next(ctx, favs)
	if err != nil {
		return nil, fmt.Errorf("error allocating favorite id: %w", err)
	}

	var count int64
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		// the unique (user_id, model_id) key catches a concurrent add of the same pair
		created, err := s.repomanager.Favorites(tx).Create(ctx, &models.Favorite{ID: id, UserID: userID, ModelID: modelID})
		if err != nil {
			return err
		}
		count, err = s.repomanager.Models(tx).IncrementFavoriteCount(ctx, modelID)
		if err != nil {
			return err
		}
		fav = created
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error adding favorite: %w", err)
	}

	s.logger.Info(ctx, "favorite added", "user_id", userID, "model_id", modelID, "favorite_count", count)
	s.publish(ctx, broadcast.FavoriteCountChanged{ModelID: modelID, Count: count})

	return fav, nil
}

// Remove drops the favorite and decrements the counter, never below zero.
// A missing pair is common.ErrorNotFavorited and leaves the counter alone.
func (s *FavoriteService) Remove(ctx context.Context, userID, modelID int64) (err error) {
	defer func() { s.count(opRemove, err) }()

	if err := s.requireModel(ctx, modelID); err != nil {
		return err
	}

	var count int64
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		removed, err := s.repomanager.Favorites(tx).Delete(ctx, userID, modelID)
		if err != nil {
			return err
		}
		if !removed {
			return common.ErrorNotFavorited
		}
		count, err = s.repomanager.Models(tx).DecrementFavoriteCount(ctx, modelID)
		return err
	})
	if err != nil {
		return fmt.Errorf("error removing favorite: %w", err)
	}

	s.logger.Info(ctx, "favorite removed", "user_id", userID, "model_id", modelID, "favorite_count", count)
	s.publish(ctx, broadcast.FavoriteCountChanged{ModelID: modelID, Count: count})

	return nil
}

// Status reports whether the user has favorited the model.
func (s *FavoriteService) Status(ctx context.Context, userID, modelID int64) (bool, error) {
	if err := s.requireModel(ctx, modelID); err != nil {
		return false, err
	}
	ok, err := s.repomanager.Favorites(s.db).Exists(ctx, userID, modelID)
	if err != nil {
		return false, fmt.Errorf("error checking favorite: %w", err)
	}
	return ok, nil
}

// List returns the user's favorites with model summaries, newest first.
func (s *FavoriteService) List(ctx context.Context, userID int64) ([]models.Favorite, error) {
	favs, err := s.repomanager.Favorites(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing favorites: %w", err)
	}
	if favs == nil {
		favs = []models.Favorite{}
	}
	for i := range favs {
		if favs[i].Model != nil {
			favs[i].Model.PreviewImageURL = s.resolve(favs[i].Model.PreviewImageURL)
		}
	}
	return favs, nil
}

func (s *FavoriteService) requireModel(ctx context.Context, modelID int64) error {
	if modelID <= 0 {
		return validationError("model_id is required")
	}
	ok, err := s.repomanager.Models(s.db).Exists(ctx, modelID)
	if err != nil {
		return fmt.Errorf("error checking model: %w", err)
	}
	if !ok {
		return fmt.Errorf("model %d: %w", modelID, common.ErrorNotFound)
	}
	return nil
}

func (s *FavoriteService) count(op string, err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, common.ErrorNotFound):
		result = "not_found"
	case errors.Is(err, common.ErrorConflict):
		result = "conflict"
	case errors.Is(err, common.ErrorValidation):
		result = "invalid"
	default:
		result = "error"
	}
	s.metrics.FavoriteTogglesTotal.WithLabelValues(op, result).Inc()
}
