package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/architeacher/natours/internal/adapters/inbound/http/handlers/shared"
	"github.com/architeacher/natours/internal/domain/model"
	"github.com/architeacher/natours/internal/ports"
	"github.com/architeacher/natours/internal/services"
	"github.com/architeacher/natours/pkg/logger"
)

const currentUserKey contextKey = "currentUser"

// Protect resolves the auth cookie, or the bearer token when no cookie is sent,
// into the active user and stores it on the request context.
func Protect(authenticator ports.Authenticator, cookieName string, errorWriter shared.ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authenticator.Authenticate(r.Context(), BearerToken(r, cookieName))
			if err != nil {
				errorWriter.Write(w, r, err)

				return
			}

			ctx := context.WithValue(r.Context(), currentUserKey, user)
			ctx = context.WithValue(ctx, logger.ContextKeyUserID, user.ID.String())

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RestrictTo must run after Protect.
func RestrictTo(errorWriter shared.ErrorWriter, roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := services.Authorize(CurrentUser(r.Context()), roles...); err != nil {
				errorWriter.Write(w, r, err)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func CurrentUser(ctx context.Context) *model.User {
	user, _ := ctx.Value(currentUserKey).(*model.User)

	return user
}

// WithCurrentUser is used by handler tests that bypass Protect.
func WithCurrentUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, currentUserKey, user)
}

// BearerToken reads the access token from the auth cookie, then from the Authorization header.
// The "loggedout" placeholder cookie counts as no token.
func BearerToken(r *http.Request, cookieName string) string {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" && cookie.Value != "loggedout" {
		return cookie.Value
	}

	if scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}

	return ""
}
