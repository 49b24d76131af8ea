// Package auth is the storefront's identity provider: account creation,
// password sign-in and revocable bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/logger"
	tokenrepo "storefront/internal/repository/token"
	userrepo "storefront/internal/repository/user"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned when email/password do not match.
	ErrInvalidCredentials = errors.New("Invalid login credentials")
	// ErrInvalidToken indicates the provided token could not be validated.
	ErrInvalidToken = errors.New("invalid token")
	ErrEmailTaken   = errors.New("User already registered")
	ErrInvalidEmail = errors.New("Invalid email address")
)

// ValidationError carries a user-facing reason a sign-up was rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

type Options struct {
	Secret      string
	AccessTTL   time.Duration
	PasswordMin int
}

// Service handles sign-up, sign-in and token lookups.
type Service struct {
	repo        userrepo.Repository
	tokens      *tokenManager
	accessTTL   time.Duration
	passwordMin int
	logger      *zap.Logger
}

// New creates a Service; zero options fall back to a 48h token lifetime and
// an 8 character password minimum.
func New(repo userrepo.Repository, tokens tokenrepo.Repository, opts Options, log *zap.Logger) *Service {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 48 * time.Hour
	}
	if opts.PasswordMin <= 0 {
		opts.PasswordMin = 8
	}
	return &Service{
		repo:        repo,
		tokens:      newTokenManager(tokens, opts.Secret),
		accessTTL:   opts.AccessTTL,
		passwordMin: opts.PasswordMin,
		logger:      logger.OrNop(log),
	}
}

// Session is the result of a successful sign-in.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// SignUp registers a new account. It does not sign the user in.
func (s *Service) SignUp(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); email == "" || err != nil {
		return nil, ErrInvalidEmail
	}
	if err := validatePassword(password, s.passwordMin); err != nil {
		return nil, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.Create(ctx, domain.User{Email: email, PasswordHash: string(hashed)})
	if errors.Is(err, domain.ErrAlreadyExists) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user_signed_up", zap.String("user_id", u.ID))
	return u, nil
}

// SignIn validates credentials and issues an access token.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(ctx, u, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	s.logger.Info("user_signed_in", zap.String("user_id", u.ID))
	return &Session{User: u, Token: token, ExpiresAt: expiresAt}, nil
}

// SignOut revokes the token.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return s.tokens.Revoke(ctx, token)
}

// Authenticate returns the user bound to a valid, unrevoked access token.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, ok := s.tokens.Validate(ctx, token)
	if !ok {
		return nil, ErrInvalidToken
	}
	u, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return u, nil
}

// AccessTTLSeconds exposes the access token lifetime in seconds.
func (s *Service) AccessTTLSeconds() int {
	return int(s.accessTTL.Seconds())
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func validatePassword(p string, min int) error {
	if len(p) < min {
		return &ValidationError{Reason: fmt.Sprintf("Password must be at least %d characters", min)}
	}
	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return &ValidationError{Reason: "Password must contain at least 1 uppercase letter, 1 lowercase letter, and 1 number"}
	}
	return nil
}
