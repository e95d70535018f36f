package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gadget-hub/internal/auth"
	"gadget-hub/internal/models"
	"gadget-hub/internal/store"
	"gadget-hub/internal/util"

	"go.uber.org/zap"
)

// ErrInvalidCredentials is returned when sign-in fails.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrEmailTaken is returned when registering an already-used email.
var ErrEmailTaken = errors.New("email already registered")

// AuthService issues hub sessions for password and federated sign-in.
type AuthService struct {
	store       *store.Store
	jwtSecret   string
	tokenExpiry time.Duration
	logger      *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(store *store.Store, jwtSecret string, tokenExpiry time.Duration) *AuthService {
	return &AuthService{
		store:       store,
		jwtSecret:   jwtSecret,
		tokenExpiry: tokenExpiry,
		logger:      util.GetLogger(),
	}
}

// Register creates a password account and signs it in.
func (s *AuthService) Register(ctx context.Context, email, password, displayName, photoURL string) (*models.Session, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Register")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}

	if existing, err := s.store.GetUserByEmail(ctx, email); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrEmailTaken, email)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		DisplayName:  displayName,
		PhotoURL:     photoURL,
		PasswordHash: hash,
		Provider:     models.ProviderPassword,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID))
	return s.issueSession(user)
}

// Login signs in a password account.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.Session, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	util.SignInsTotal.WithLabelValues(models.ProviderPassword).Inc()
	return s.issueSession(user)
}

// FederatedSignIn signs in an account asserted by an external identity
// provider, creating it on first sight. The provider assertion is verified
// upstream; here the profile fields are trusted input from that exchange.
func (s *AuthService) FederatedSignIn(ctx context.Context, provider, email, displayName, photoURL string) (*models.Session, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.FederatedSignIn")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: provider did not supply an email", ErrValidation)
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		user = &models.User{
			Email:       email,
			DisplayName: displayName,
			PhotoURL:    photoURL,
			Provider:    provider,
		}
		if err := s.store.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create federated user: %w", err)
		}
		s.logger.Info("Federated user created",
			zap.String("user_id", user.ID),
			zap.String("provider", provider))
	} else if err != nil {
		return nil, err
	}

	util.SignInsTotal.WithLabelValues(provider).Inc()
	return s.issueSession(user)
}

// UpdateProfile rewrites the display name and avatar of an account and
// issues a fresh session carrying the updated record. Email is immutable.
func (s *AuthService) UpdateProfile(ctx context.Context, userID, displayName, photoURL string) (*models.Session, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.UpdateProfile")
	defer span.End()

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.DisplayName = displayName
	user.PhotoURL = photoURL

	if err := s.store.UpdateUserProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	s.logger.Info("Profile updated", zap.String("user_id", userID))
	return s.issueSession(user)
}

// ValidateToken resolves a bearer token to its claims.
func (s *AuthService) ValidateToken(tokenStr string) (*auth.Claims, error) {
	return auth.ValidateToken(s.jwtSecret, tokenStr)
}

func (s *AuthService) issueSession(user *models.User) (*models.Session, error) {
	token, err := auth.GenerateToken(s.jwtSecret, user.ID, user.Email, user.Provider, s.tokenExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &models.Session{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		PhotoURL:    user.PhotoURL,
		Token:       token,
	}, nil
}
