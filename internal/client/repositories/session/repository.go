// Package session persists the logged-in user and token pair in the local
// SQLite cache, one metadata row per key.
package session

import (
	"context"

	"github.com/dmitrijs2005/sketchhub/internal/client/models"
)

type Repository interface {
	// Load returns nil, nil when no session is stored.
	Load(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	SaveTokens(ctx context.Context, access, refresh string) error
	Clear(ctx context.Context) error
}
