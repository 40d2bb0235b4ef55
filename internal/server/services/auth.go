package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/sketchhub/internal/common"
	"github.com/dmitrijs2005/sketchhub/internal/dbx"
	"github.com/dmitrijs2005/sketchhub/internal/server/auth"
	"github.com/dmitrijs2005/sketchhub/internal/server/broadcast"
	"github.com/dmitrijs2005/sketchhub/internal/server/config"
	"github.com/dmitrijs2005/sketchhub/internal/server/models"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

var (
	hashPassword = func(password string) (string, error) {
		b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		return string(b), err
	}
	comparePassword = func(hash, password string) error {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	}
	now = time.Now
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type RegisterInput struct {
	Name                 string
	Username             string
	Email                string
	Password             string
	PasswordConfirmation string
}

func (in RegisterInput) validate() error {
	var errs []string
	if strings.TrimSpace(in.Name) == "" || utf8.RuneCountInString(in.Name) > 255 {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(in.Username) == "" || utf8.RuneCountInString(in.Username) > 255 {
		errs = append(errs, "username is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		errs = append(errs, "email is invalid")
	}
	if len(in.Password) < minPasswordLength {
		errs = append(errs, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if in.Password != in.PasswordConfirmation {
		errs = append(errs, "password confirmation does not match")
	}
	if len(errs) > 0 {
		return validationError("%s", strings.Join(errs, "; "))
	}
	return nil
}

// AuthService registers users, checks passwords and issues JWT access
// tokens plus server-stored refresh tokens.
type AuthService struct {
	base
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

func NewAuthService(d Deps, cfg *config.Config) *AuthService {
	return &AuthService{
		base:                         newBase(d, "auth"),
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Register creates an account with the default role. Duplicate email or
// username is common.ErrorConflict.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	role, err := repo.RoleByTitle(ctx, common.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("error loading default role: %w", err)
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	id, err := s.ids.Next(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("error allocating user id: %w", err)
	}

	user, err := repo.Create(ctx, &models.User{
		ID:           id,
		Name:         strings.TrimSpace(in.Name),
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		RoleID:       role.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	user.Role = role.Title

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	s.publish(ctx, broadcast.UserChanged{User: *user, Action: common.ActionCreated})

	return user, nil
}

// Login verifies the password and returns the user with a fresh token pair.
// Unknown email and wrong password are both common.ErrorUnauthorized.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	user, err := s.CheckCredentials(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.generateTokenPair(ctx, user, s.db)
	if err != nil {
		return nil, nil, err
	}
	s.resolveUser(user)
	return user, pair, nil
}

// CheckCredentials verifies email and password without issuing tokens.
func (s *AuthService) CheckCredentials(ctx context.Context, email, password string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, common.ErrorUnauthorized
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	if err := comparePassword(user.PasswordHash, password); err != nil {
		return nil, common.ErrorUnauthorized
	}
	return user, nil
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			return fmt.Errorf("error loading user: %w", err)
		}
		pair, err = s.generateTokenPair(ctx, user, tx)
		return err
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes every refresh token of the user.
func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	if err := s.repomanager.RefreshTokens(s.db).DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("error revoking refresh tokens: %w", err)
	}
	return nil
}

func (s *AuthService) generateTokenPair(ctx context.Context, user *models.User, tx dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(auth.Identity{UserID: user.ID, Role: user.Role}, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("%w: sign access token: %v", common.ErrorInternal, err)
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, fmt.Errorf("%w: refresh token: %v", common.ErrorInternal, err)
	}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, user.ID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, fmt.Errorf("%w: store refresh token: %v", common.ErrorInternal, err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
