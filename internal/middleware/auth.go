package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ayush/skillpath/backend/internal/auth"
	"github.com/ayush/skillpath/backend/internal/models"
)

// UserLookup loads the user a session points at.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// RequireAuth is middleware that validates the signed session cookie,
// loads the session's user and injects it into the request context.
// A session whose user no longer exists is treated as unauthenticated.
func RequireAuth(sessions auth.SessionStore, cookies *auth.CookieCodec, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid, err := cookies.Read(r)
			if err != nil {
				unauthorized(w, "not authenticated")
				return
			}

			userID, err := sessions.Get(r.Context(), sid)
			if err != nil || userID == 0 {
				unauthorized(w, "session expired")
				return
			}

			user, err := users.GetUser(r.Context(), userID)
			if err != nil || user == nil {
				unauthorized(w, "not authenticated")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}
