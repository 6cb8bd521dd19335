package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sakif/resumatch/internal/session"
)

// LoadSession restores the caller's session.State from the session cookie
// and stores it in the request context. It never blocks a request: an
// absent or invalid cookie simply yields the anonymous state.
//
// The state is bound to this request's ResponseWriter, so handlers that call
// state.Set or state.Clear emit the matching Set-Cookie header.
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func LoadSession(tokens *TokenService, cookie session.CookieConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := session.Load(session.NewCookieMirror(w, r, tokens, cookie))
			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), state)))
		})
	}
}

// RequireAuth rejects requests whose session is not logged in with 401.
// It must run after LoadSession.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{
				"error":   "unauthorized",
				"message": "Please log in to continue",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserIDFromContext returns the logged-in user's id, or (0, false) for an
// anonymous request.
//
// Usage in handlers:
//
//	userID, ok := auth.UserIDFromContext(r.Context())
//	if !ok {
//	    // anonymous user
//	}
func UserIDFromContext(ctx context.Context) (int64, bool) {
	state, ok := session.FromContext(ctx)
	if !ok || !state.LoggedIn {
		return 0, false
	}
	return state.UserID, true
}
