package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"
	tokenrepo "storefront/internal/repository/token"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the access token payload. The registered ID (jti) is the key of
// the persisted token row, so deleting the row revokes the token.
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type tokenManager struct {
	repo   tokenrepo.Repository
	secret []byte
	now    func() time.Time
}

func newTokenManager(repo tokenrepo.Repository, secret string) *tokenManager {
	return &tokenManager{
		repo:   repo,
		secret: []byte(secret),
		now:    time.Now,
	}
}

func (m *tokenManager) Issue(ctx context.Context, u *domain.User, ttl time.Duration) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(ttl)
	for i := 0; i < 5; i++ {
		jti := uuid.NewString()
		err := m.repo.Create(ctx, tokenrepo.Token{
			ID:        jti,
			UserID:    u.ID,
			ExpiresAt: expiresAt,
		})
		if errors.Is(err, domain.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return "", time.Time{}, err
		}

		claims := Claims{
			UserID: u.ID,
			Email:  u.Email,
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        jti,
				Subject:   u.ID,
				ExpiresAt: jwt.NewNumericDate(expiresAt),
				IssuedAt:  jwt.NewNumericDate(now),
				NotBefore: jwt.NewNumericDate(now),
			},
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
		if err != nil {
			_ = m.repo.Delete(ctx, jti)
			return "", time.Time{}, fmt.Errorf("sign token: %w", err)
		}
		return signed, expiresAt, nil
	}
	return "", time.Time{}, errors.New("token collision")
}

// Validate checks the signature and expiry and that the token has not been
// revoked. Expired rows are deleted on sight.
func (m *tokenManager) Validate(ctx context.Context, raw string) (*Claims, bool) {
	claims, err := m.parse(raw)
	if err != nil {
		return nil, false
	}
	row, err := m.repo.Get(ctx, claims.ID)
	if err != nil || row.UserID != claims.UserID {
		return nil, false
	}
	if m.now().After(row.ExpiresAt) {
		_ = m.repo.Delete(ctx, row.ID)
		return nil, false
	}
	return claims, true
}

// Revoke deletes the token's row. Unknown or already revoked tokens are not
// an error.
func (m *tokenManager) Revoke(ctx context.Context, raw string) error {
	claims, err := m.parse(raw)
	if err != nil {
		return nil
	}
	if err := m.repo.Delete(ctx, claims.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

func (m *tokenManager) parse(raw string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	claims := &Claims{}
	tok, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid || claims.ID == "" || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
