// Package refreshtokens declares the repository contract for refresh tokens
// issued at login and rotated by /auth/refresh.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/sketchhub/internal/server/models"
)

type Repository interface {
	// Create stores a new refresh token for userID expiring at now+validity.
	Create(ctx context.Context, userID int64, token string, validity time.Duration) error

	// Find returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes one token. Deleting a missing token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteByUser revokes every token of the user (logout).
	DeleteByUser(ctx context.Context, userID int64) error
}
