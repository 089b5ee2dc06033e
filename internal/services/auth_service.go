package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/architeacher/natours/internal/domain/model"
	"github.com/architeacher/natours/internal/ports"
)

// AuthService resolves access tokens into users. Tokens are minted elsewhere.
type AuthService struct {
	verifier ports.TokenVerifier
	users    ports.Fetcher[*model.User]
}

var _ ports.Authenticator = (*AuthService)(nil)

func NewAuthService(verifier ports.TokenVerifier, users ports.Fetcher[*model.User]) *AuthService {
	return &AuthService{verifier: verifier, users: users}
}

func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, model.WrapAppError(model.ErrNotAuthenticated, http.StatusUnauthorized,
			"You are not logged in! Please log in to get access.")
	}

	claims, err := s.verifier.Verify(token)
	if err != nil {
		return nil, err
	}

	// Inactive users are outside the users scope and read as gone.
	user, err := s.users.FetchByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.WrapAppError(fmt.Errorf("%w: %w", model.ErrUserGone, err), http.StatusUnauthorized,
				"The user belonging to this token does no longer exist.")
		}

		return nil, err
	}

	if user.ChangedPasswordAfter(claims.IssuedAt) {
		return nil, model.WrapAppError(model.ErrPasswordChanged, http.StatusUnauthorized,
			"User recently changed password! Please log in again.")
	}

	return user, nil
}

// Authorize fails with 403 unless user holds one of roles.
func Authorize(user *model.User, roles ...model.Role) error {
	if user != nil && user.HasRole(roles...) {
		return nil
	}

	role := model.Role("anonymous")
	if user != nil {
		role = user.Role
	}

	return model.WrapAppError(model.ErrForbidden, http.StatusForbidden,
		fmt.Sprintf("User role %s is not authorized to perform this action", role))
}
