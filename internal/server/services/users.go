package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/sketchhub/internal/common"
	"github.com/dmitrijs2005/sketchhub/internal/dbx"
	"github.com/dmitrijs2005/sketchhub/internal/server/broadcast"
	"github.com/dmitrijs2005/sketchhub/internal/server/models"
	"github.com/dmitrijs2005/sketchhub/internal/server/storage"
)

// ProfileUpload tells the client where to PUT the new profile image and
// where it will be served from.
type ProfileUpload struct {
	UploadURL string `json:"upload_url"`
	Image     string `json:"image"`
}

type UserService struct {
	base
}

func NewUserService(d Deps) *UserService {
	return &UserService{base: newBase(d, "users")}
}

func (s *UserService) Me(ctx context.Context, userID int64) (*models.User, error) {
	u, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading user %d: %w", userID, err)
	}
	s.resolveUser(u)
	return u, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	items, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	for i := range items {
		s.resolveUser(&items[i])
	}
	return nonNil(items), nil
}

func (s *UserService) Roles(ctx context.Context) ([]models.Role, error) {
	items, err := s.repomanager.Users(s.db).ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing roles: %w", err)
	}
	return nonNil(items), nil
}

// ChangeRole assigns the role with the given title.
func (s *UserService) ChangeRole(ctx context.Context, userID int64, roleTitle string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	role, err := repo.RoleByTitle(ctx, roleTitle)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, validationError("unknown role %q", roleTitle)
		}
		return nil, fmt.Errorf("error loading role: %w", err)
	}

	if err := repo.UpdateRole(ctx, userID, role.ID); err != nil {
		return nil, fmt.Errorf("error updating role of user %d: %w", userID, err)
	}

	u, err := repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading user %d: %w", userID, err)
	}
	s.resolveUser(u)

	s.logger.Info(ctx, "role changed", "user_id", userID, "role", role.Title)
	s.publish(ctx, broadcast.UserChanged{User: *u, Action: common.ActionUpdated})
	return u, nil
}

// Delete removes another user's account and stored files. Admins cannot
// delete themselves. The user's favorites and published models go with the
// account; counters of the surviving favorited models are decremented in the
// same transaction.
func (s *UserService) Delete(ctx context.Context, callerID, userID int64) error {
	if callerID == userID {
		return fmt.Errorf("%w: you cannot delete yourself", common.ErrorBadRequest)
	}

	u, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("error loading user %d: %w", userID, err)
	}

	var (
		authored []int64
		counts   []broadcast.FavoriteCountChanged
	)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		modelsRepo := s.repomanager.Models(tx)

		ids, err := modelsRepo.IDsByAuthor(ctx, userID)
		if err != nil {
			return err
		}
		authored = ids
		liked, err := s.repomanager.Favorites(tx).ModelIDsByUser(ctx, userID)
		if err != nil {
			return err
		}
		for _, modelID := range liked {
			if slices.Contains(authored, modelID) {
				continue
			}
			n, err := modelsRepo.DecrementFavoriteCount(ctx, modelID)
			if errors.Is(err, common.ErrorNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			counts = append(counts, broadcast.FavoriteCountChanged{ModelID: modelID, Count: n})
		}

		// favorites and authored models cascade
		return s.repomanager.Users(tx).Delete(ctx, userID)
	})
	if err != nil {
		return fmt.Errorf("error deleting user %d: %w", userID, err)
	}

	if s.storage != nil {
		if err := s.storage.DeletePrefix(ctx, storage.UserPrefix(userID)); err != nil {
			s.logger.Error(ctx, "delete user files", "user_id", userID, "error", err)
		}
	}

	s.logger.Info(ctx, "user deleted", "user_id", userID, "by", callerID, "models", len(authored), "favorites", len(counts))
	for _, ev := range counts {
		s.publish(ctx, ev)
	}
	for _, modelID := range authored {
		s.publish(ctx, broadcast.ModelDeleted{ID: modelID})
	}
	s.publish(ctx, broadcast.UserChanged{User: *u, Action: common.ActionDeleted})
	return nil
}

// UpdateProfileImage points the user's profile image at a fresh key and
// presigns the upload.
func (s *UserService) UpdateProfileImage(ctx context.Context, userID int64) (*ProfileUpload, error) {
	key := storage.ProfileImageKey(userID)

	url, err := s.storage.PresignPut(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("error presigning profile image: %w", err)
	}

	if err := s.repomanager.Users(s.db).UpdateProfileImage(ctx, userID, key); err != nil {
		return nil, fmt.Errorf("error updating profile image: %w", err)
	}

	return &ProfileUpload{UploadURL: url, Image: s.storage.PublicURL(key)}, nil
}
