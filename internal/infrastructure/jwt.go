package infrastructure

import (
	"errors"
	"fmt"
	"time"

	"github.com/architeacher/natours/internal/config"
	"github.com/architeacher/natours/internal/domain/model"
	"github.com/golang-jwt/jwt/v5"
)

var errNoSecret = errors.New("no jwt secret configured")

// TokenManager signs and verifies HS256 access tokens.
type TokenManager struct {
	secret    []byte
	issuer    string
	expiresIn time.Duration
	now       func() time.Time
}

func NewTokenManager(cfg config.Auth) *TokenManager {
	return &TokenManager{
		secret:    []byte(cfg.JWTSecret),
		issuer:    cfg.Issuer,
		expiresIn: cfg.ExpiresIn,
		now:       time.Now,
	}
}

// Issue mints a token for subject. The API never hands tokens out itself;
// this serves operators and tests.
func (m *TokenManager) Issue(subject model.ID) (string, error) {
	if len(m.secret) == 0 {
		return "", errNoSecret
	}

	now := m.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   subject.String(),
		Issuer:    m.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.expiresIn)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify returns model.ErrTokenExpired or model.ErrInvalidToken on failure.
func (m *TokenManager) Verify(raw string) (model.Claims, error) {
	if len(m.secret) == 0 {
		return model.Claims{}, errNoSecret
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Claims{}, fmt.Errorf("%w: %w", model.ErrTokenExpired, err)
		}

		return model.Claims{}, fmt.Errorf("%w: %w", model.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" || claims.IssuedAt == nil {
		return model.Claims{}, model.ErrInvalidToken
	}

	result := model.Claims{
		Subject:  model.ID(claims.Subject),
		Issuer:   claims.Issuer,
		IssuedAt: claims.IssuedAt.Time,
	}

	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}

	return result, nil
}
