package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"
	clerkuser "github.com/clerk/clerk-sdk-go/v2/user"

	"github.com/alnahda/portal/internal/db"
	"github.com/alnahda/portal/internal/model"
)

type ClerkProvider struct { // implements Provider
	db db.DB

	cookieExtractor clerkhttp.AuthorizationOption
}

func NewClerkProvider(clerkKey string, database db.DB) *ClerkProvider {
	clerk.SetKey(clerkKey)

	return &ClerkProvider{
		db: database,
		cookieExtractor: clerkhttp.AuthorizationJWTExtractor(func(r *http.Request) string {
			cookie, err := r.Cookie("__session")
			if err != nil || cookie == nil {
				authLogger.Debug().Err(err).Msg("Authorization cookie not found")
				return ""
			}
			return cookie.Value
		}),
	}
}

func (c *ClerkProvider) WithHeaderAuthorization() func(http.Handler) http.Handler {
	return clerkhttp.WithHeaderAuthorization(c.cookieExtractor)
}

func (c *ClerkProvider) UserFromSession(r *http.Request) (model.UserID, model.Role, error) {
	claims, ok := clerk.SessionClaimsFromContext(r.Context())
	if !ok {
		return "", "", errors.New("failed to get session claims from context")
	}

	usr, err := clerkuser.Get(r.Context(), claims.Subject)
	if err != nil {
		return "", "", err
	}

	role, err := c.roleOf(model.UserID(usr.ID))
	if err != nil {
		return "", "", err
	}

	return model.UserID(usr.ID), role, nil
}

// roleOf reads the role from the local users table. Users the webhook
// has not synced yet default to student.
func (c *ClerkProvider) roleOf(userID model.UserID) (model.Role, error) {
	row := c.db.Get().QueryRow(`SELECT role FROM users WHERE id = ?`, string(userID))

	var role string
	if err := row.Scan(&role); err != nil {
		authLogger.Debug().Str("user_id", string(userID)).Msg("User not in local table, defaulting to student")
		return model.RoleStudent, nil
	}
	return model.Role(role), nil
}

func (c *ClerkProvider) HandleWebhookUser(w http.ResponseWriter, r *http.Request) {
	type EventPayload struct {
		Data struct {
			clerk.User
		} `json:"data"`

		Type string `json:"type"`
	}

	var payload EventPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		authLogger.Error().Err(err).Msg("Error decoding user webhook payload")
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	usr := payload.Data.User

	switch payload.Type {
	case "user.created":
		var email string
		if len(usr.EmailAddresses) > 0 {
			email = usr.EmailAddresses[0].EmailAddress
		}

		var username string
		if usr.Username != nil {
			username = *usr.Username
		}

		// New accounts start as students; an admin promotes editors.
		_, err := c.db.Exec(
			`INSERT INTO users (id, username, email, role) VALUES (?, ?, ?, ?)`,
			usr.ID, username, email, string(model.RoleStudent),
		)
		if err != nil {
			authLogger.Error().Err(err).Str("user_id", usr.ID).Msg("Error inserting user")
			http.Error(w, "Error saving user", http.StatusInternalServerError)
			return
		}

		authLogger.Info().Str("user_id", usr.ID).Msg("User created")
		w.WriteHeader(http.StatusCreated)

	case "user.updated":
		w.WriteHeader(http.StatusNoContent)

	case "user.deleted":
		_, err := c.db.Exec(`DELETE FROM users WHERE id = ?`, usr.ID)
		if err != nil {
			authLogger.Error().Err(err).Str("user_id", usr.ID).Msg("Error deleting user")
			http.Error(w, "Error deleting user", http.StatusInternalServerError)
			return
		}

		authLogger.Info().Str("user_id", usr.ID).Msg("User deleted")
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Invalid event type", http.StatusBadRequest)
	}
}
