// Package services contains application services for the SketchHub CLI.
// This file defines the authentication service: login, register, logout,
// session restore from the local cache, and the liveness probe.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sketchhub/internal/client/client"
	"github.com/dmitrijs2005/sketchhub/internal/client/models"
	"github.com/dmitrijs2005/sketchhub/internal/client/repositories/session"
	"github.com/dmitrijs2005/sketchhub/internal/dbx"
	"github.com/dmitrijs2005/sketchhub/internal/dto"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: authenticate against the server and cache the session.
//   - Restore: reuse the cached session, if any, without a round trip.
//   - Register: create a new user on the server.
//   - Logout: end the server session and wipe the cached one.
//   - Ping: check server liveness.
type AuthService interface {
	Login(ctx context.Context, email string, password []byte) (*models.Session, error)
	Restore(ctx context.Context) (*models.Session, error)
	Register(ctx context.Context, req dto.RegisterRequest) error
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
}

// NewAuthService constructs an AuthService bound to the given API client and DB.
func NewAuthService(c client.Client, db *sql.DB) AuthService {
	return &authService{client: c, db: db}
}

func (a *authService) Login(ctx context.Context, email string, password []byte) (*models.Session, error) {
	s, err := a.client.Login(ctx, email, string(password))
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	err = dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return session.NewSQLiteRepository(tx).Save(ctx, s)
	})
	if err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}
	return s, nil
}

// Restore returns the cached session and arms the client with its tokens.
// No cached session is client.ErrLocalDataNotAvailable.
func (a *authService) Restore(ctx context.Context) (*models.Session, error) {
	s, err := session.NewSQLiteRepository(a.db).Load(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil || s.AccessToken == "" {
		return nil, client.ErrLocalDataNotAvailable
	}
	a.client.SetTokens(s.AccessToken, s.RefreshToken)
	return s, nil
}

func (a *authService) Register(ctx context.Context, req dto.RegisterRequest) error {
	return a.client.Register(ctx, req)
}

// Logout always wipes the cached session; a server that cannot be reached
// is not an error.
func (a *authService) Logout(ctx context.Context) error {
	err := a.client.Logout(ctx)
	if cerr := session.NewSQLiteRepository(a.db).Clear(ctx); cerr != nil {
		return cerr
	}
	if err != nil && !errors.Is(err, client.ErrUnavailable) {
		return err
	}
	return nil
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// TokenSaver returns a callback for client.NewHTTPClient that keeps the
// cached tokens in step with refreshes.
func TokenSaver(db *sql.DB, onError func(error)) func(access, refresh string) {
	repo := session.NewSQLiteRepository(db)
	return func(access, refresh string) {
		if access == "" {
			return
		}
		if err := repo.SaveTokens(context.Background(), access, refresh); err != nil && onError != nil {
			onError(err)
		}
	}
}
