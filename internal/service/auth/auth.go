package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/mbertoldo/finbook/internal/apperrors"
	"github.com/mbertoldo/finbook/internal/logger"
	"github.com/mbertoldo/finbook/internal/models"
	"github.com/mbertoldo/finbook/internal/repository"
	"github.com/mbertoldo/finbook/internal/service/auth/tokenmanager"
)

const refreshCookieName = "refresh_token"

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

// Ledger bootstrap: every new account starts with a zero snapshot
type LedgerInitializer interface {
	CreateInitial(ctx context.Context, userID uuid.UUID) error
}

type Config struct {
	// Hasher to use during registration and login
	// Defaults to BcryptHasher
	Hasher PasswordHasher
}

type AuthService struct {
	token  *tokenmanager.TokenManager
	hasher PasswordHasher
	users  repository.UserRepo
	ledger LedgerInitializer
	logger logger.Logger
}

func NewService(cfg Config, token *tokenmanager.TokenManager, users repository.UserRepo, ledger LedgerInitializer, l logger.Logger) (*AuthService, error) {
	if token == nil || users == nil || ledger == nil {
		return nil, errors.New("token manager, user repo and ledger must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &AuthService{
		token:  token,
		hasher: hasher,
		users:  users,
		ledger: ledger,
		logger: l,
	}, nil
}

func (s *AuthService) Register(ctx context.Context, username string, password string) (models.TokenPair, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("can't use this as password, error=%w", err)
	}

	user, err := s.users.CreateUser(ctx, username, hash)
	if err != nil {
		return models.TokenPair{}, err
	}

	// An empty ledger already reads as balance zero, so a failed
	// bootstrap snapshot costs only a history entry. Don't fail the
	// registration over it, the user record is committed already.
	if err := s.ledger.CreateInitial(ctx, user.ID); err != nil {
		s.logger.Error("initial balance snapshot not created", "user_id", user.ID, "error", err)
	}

	pair, err := s.token.GeneratePair(ctx, user)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not be generated, sorry. %w", err)
	}

	return pair, nil
}

func (s *AuthService) Login(ctx context.Context, username string, password string) (models.TokenPair, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return models.TokenPair{}, apperrors.ErrUserNotFound
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return models.TokenPair{}, apperrors.ErrUserNotFound
	}

	pair, err := s.token.GeneratePair(ctx, user)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not be generated, sorry. %w", err)
	}

	return pair, nil
}

func (s *AuthService) RefreshPair(ctx context.Context, refresh string) (models.TokenPair, error) {
	token, err := s.token.UseRefresh(ctx, refresh)
	if err != nil {
		return models.TokenPair{}, err
	}

	user, err := s.users.GetUserByID(ctx, token.UserID)
	if err != nil {
		return models.TokenPair{}, err
	}

	pair, err := s.token.GeneratePair(ctx, user)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not be generated, sorry. %w", err)
	}

	return pair, nil
}

// SetTokenPairToResponse writes the access token to the Authorization
// header and the refresh token to an http-only cookie
func (s *AuthService) SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair) {
	w.Header().Set("Authorization", "Bearer "+pair.Access.Value)

	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    pair.Refresh.Value,
		Expires:  pair.Refresh.ExpiresAt,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// GetRefreshString reads the refresh token from the request cookie
func (s *AuthService) GetRefreshString(r *http.Request) (string, error) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil {
		return "", apperrors.ErrRefreshTokenNotFound
	}

	return cookie.Value, nil
}

// GetUserFromRequest authenticates the request by its bearer token
func (s *AuthService) GetUserFromRequest(ctx context.Context, r *http.Request) (models.User, error) {
	header := r.Header.Get("Authorization")
	access, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || access == "" {
		return models.User{}, errors.New("no bearer token in request")
	}

	userID, err := s.token.ParseAccess(ctx, access)
	if err != nil {
		return models.User{}, err
	}

	return s.users.GetUserByID(ctx, userID)
}
