// Package auth authenticates portal users and resolves their roles.
package auth

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/alnahda/portal/internal/model"
)

var authLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	authLogger = l
}

type Provider interface {
	// WithHeaderAuthorization wraps a handler so downstream code can read
	// session claims off the request context.
	WithHeaderAuthorization() func(http.Handler) http.Handler

	// UserFromSession resolves the authenticated portal user, or an
	// error when the request carries no valid session.
	UserFromSession(r *http.Request) (model.UserID, model.Role, error)

	// HandleWebhookUser keeps the local users table in sync with the
	// identity provider.
	HandleWebhookUser(w http.ResponseWriter, r *http.Request)
}

// RequireEditor wraps a handler and rejects requests from users who
// may not edit content. Draft and publish endpoints sit behind this.
func RequireEditor(provider Provider, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, role, err := provider.UserFromSession(r)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if !role.CanEdit() {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}
