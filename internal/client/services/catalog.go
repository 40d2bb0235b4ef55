package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/sketchhub/internal/client/client"
	"github.com/dmitrijs2005/sketchhub/internal/client/models"
	"github.com/dmitrijs2005/sketchhub/internal/client/repositories/snapshots"
	"github.com/dmitrijs2005/sketchhub/internal/client/subscriber"
	"github.com/dmitrijs2005/sketchhub/internal/common"
)

// CatalogService owns the client's live view of models, categories and
// users. Broadcast events are folded in with subscriber.Apply; favorites
// toggled by this user are applied optimistically and rolled back when the
// server rejects them.
type CatalogService struct {
	client    client.Client
	snapshots snapshots.Repository
	store     *subscriber.Store

	mu    sync.Mutex
	liked map[int64]bool
}

func NewCatalogService(c client.Client, snaps snapshots.Repository) *CatalogService {
	return &CatalogService{
		client:    c,
		snapshots: snaps,
		store:     subscriber.NewStore(subscriber.State{}),
		liked:     make(map[int64]bool),
	}
}

func (s *CatalogService) State() subscriber.State { return s.store.Snapshot() }

// Apply folds one broadcast event into the live view.
func (s *CatalogService) Apply(ev subscriber.Event) {
	s.store.Apply(ev)
}

// Refresh replaces the live view with the first page of models, the
// categories and, for admins, the users, then snapshots it.
func (s *CatalogService) Refresh(ctx context.Context, withUsers bool) error {
	page, err := s.client.Models(ctx, 0)
	if err != nil {
		return fmt.Errorf("fetch models: %w", err)
	}
	cats, err := s.client.Categories(ctx)
	if err != nil {
		return fmt.Errorf("fetch categories: %w", err)
	}
	var users []models.User
	if withUsers {
		if users, err = s.client.Users(ctx); err != nil {
			return fmt.Errorf("fetch users: %w", err)
		}
	}

	s.store.Replace(subscriber.State{Models: page.Data, Categories: cats, Users: users})
	return s.Persist(ctx)
}

// LoadLikes fetches which models the current user has favorited.
func (s *CatalogService) LoadLikes(ctx context.Context) error {
	favs, err := s.client.Favorites(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liked = make(map[int64]bool, len(favs))
	for _, f := range favs {
		s.liked[f.ModelID] = true
	}
	return nil
}

// ForgetLikes drops the cached favorites, e.g. after logout.
func (s *CatalogService) ForgetLikes() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liked = make(map[int64]bool)
}

func (s *CatalogService) IsLiked(modelID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liked[modelID]
}

// Persist writes the live view to the snapshot cache.
func (s *CatalogService) Persist(ctx context.Context) error {
	st := s.store.Snapshot()
	if err := s.snapshots.Save(ctx, snapshots.KindModels, st.Models); err != nil {
		return err
	}
	if err := s.snapshots.Save(ctx, snapshots.KindCategories, st.Categories); err != nil {
		return err
	}
	return s.snapshots.Save(ctx, snapshots.KindUsers, st.Users)
}

// LoadOffline fills the live view from the snapshot cache and returns when
// the models snapshot was taken.
func (s *CatalogService) LoadOffline(ctx context.Context) (time.Time, error) {
	var st subscriber.State
	savedAt, err := s.snapshots.Load(ctx, snapshots.KindModels, &st.Models)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return time.Time{}, client.ErrLocalDataNotAvailable
		}
		return time.Time{}, err
	}
	if _, err := s.snapshots.Load(ctx, snapshots.KindCategories, &st.Categories); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return time.Time{}, err
	}
	if _, err := s.snapshots.Load(ctx, snapshots.KindUsers, &st.Users); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return time.Time{}, err
	}
	s.store.Replace(st)
	return savedAt, nil
}

func (s *CatalogService) Like(ctx context.Context, modelID int64) error {
	return s.toggle(ctx, modelID, true)
}

func (s *CatalogService) Unlike(ctx context.Context, modelID int64) error {
	return s.toggle(ctx, modelID, false)
}

// toggle flips the heart and the cached counter before calling the API.
// On a Conflict-class answer the server already holds the wanted state, so
// only the counter bump is undone; any other failure restores both.
func (s *CatalogService) toggle(ctx context.Context, modelID int64, like bool) error {
	s.mu.Lock()
	was := s.liked[modelID]
	if was == like {
		s.mu.Unlock()
		if like {
			return common.ErrorAlreadyFavorited
		}
		return common.ErrorNotFavorited
	}
	s.liked[modelID] = like
	s.mu.Unlock()

	delta := int64(1)
	if !like {
		delta = -1
	}
	applied := s.bump(modelID, delta)

	var err error
	if like {
		err = s.client.AddFavorite(ctx, modelID)
	} else {
		err = s.client.RemoveFavorite(ctx, modelID)
	}
	if err == nil {
		return nil
	}

	s.bump(modelID, -applied)
	if !errors.Is(err, common.ErrorConflict) {
		s.mu.Lock()
		s.liked[modelID] = was
		s.mu.Unlock()
	}
	return err
}

// bump shifts the cached counter by delta, clamped at zero, and returns the
// change actually made.
func (s *CatalogService) bump(modelID, delta int64) int64 {
	var applied int64
	s.store.Update(func(st subscriber.State) subscriber.State {
		out := make([]models.Model, len(st.Models))
		copy(out, st.Models)
		for i := range out {
			if out[i].ID == modelID {
				next := max(out[i].FavoriteCount+delta, 0)
				applied = next - out[i].FavoriteCount
				out[i].FavoriteCount = next
			}
		}
		st.Models = out
		return st
	})
	return applied
}
