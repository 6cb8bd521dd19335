package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/resumatch/internal/apperror"
	"github.com/sakif/resumatch/internal/model"
	"github.com/sakif/resumatch/internal/session"
)

// maxCredentialsBody bounds signup/login request bodies.
const maxCredentialsBody = 16 << 10

// Accounts is the part of service.AuthService the handlers need.
type Accounts interface {
	Signup(ctx context.Context, email, password string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// AuthHandler manages signup, login and logout.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSignup → create an account (does not log in)
//   - HandleLogin  → check credentials, set the session
//   - HandleLogout → clear the session and the loaded résumé
//   - HandleMe     → return the logged-in user
//
// The session itself is loaded by auth.LoadSession; handlers only call
// state.Set and state.Clear on it.
type AuthHandler struct {
	accounts Accounts
	cookie   session.CookieConfig
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected here.
func NewAuthHandler(accounts Accounts, cookie session.CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		cookie:   cookie,
		logger:   logger,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// HandleSignup registers a new account.
//
// HTTP: POST /api/signup
// REQUEST BODY: {"email": "a@x.com", "password": "pw1"}
// RESPONSE: 201 {"id": 1, "email": "a@x.com"} or 409 "User already exists"
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, maxCredentialsBody, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.accounts.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{ID: user.ID, Email: user.Email})
}

// HandleLogin checks credentials and, on success, logs the client in.
//
// HTTP: POST /api/login
// REQUEST BODY: {"email": "a@x.com", "password": "pw1"}
// RESPONSE: 200 {"id": 1, "email": "a@x.com"} plus the session cookie
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state, ok := session.FromContext(r.Context())
	if !ok {
		h.logger.Error("HandleLogin: no session in context")
		writeError(w, h.logger, errNoSession)
		return
	}

	var req credentialsRequest
	if err := decodeJSON(w, r, maxCredentialsBody, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	// A résumé selected before this login (anonymously or by another user of
	// this browser) must not carry over. Only a re-login as the same user
	// keeps it.
	if !state.LoggedIn || state.UserID != user.ID {
		session.ClearSelection(w, h.cookie)
	}

	if err := state.Set(user.ID, user.Email); err != nil {
		h.logger.Error("failed to set session", slog.String("error", err.Error()))
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("user logged in", slog.Int64("userID", user.ID))
	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Email: user.Email})
}

// HandleLogout clears the session cookie and the loaded résumé.
//
// HTTP: POST /api/logout
// Logging out an anonymous client is a no-op that still succeeds.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if state, ok := session.FromContext(r.Context()); ok {
		if err := state.Clear(); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}
	session.ClearSelection(w, h.cookie)

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

type meResponse struct {
	LoggedIn       bool   `json:"logged_in"`
	UserID         int64  `json:"user_id"`
	Email          string `json:"email"`
	SelectedResume *int64 `json:"selected_resume,omitempty"`
}

// HandleMe returns the loaded session of the current user.
//
// HTTP: GET /api/me
// Auth: Required
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	state, ok := session.FromContext(r.Context())
	if !ok || !state.LoggedIn {
		writeError(w, h.logger, apperror.Unauthenticated())
		return
	}

	user, err := h.accounts.GetUserByID(r.Context(), state.UserID)
	if err != nil {
		h.logger.Warn("HandleMe: session user not found", slog.Int64("userID", state.UserID))
		writeError(w, h.logger, err)
		return
	}

	resp := meResponse{LoggedIn: true, UserID: user.ID, Email: user.Email}
	if id, ok := session.SelectedResume(r); ok {
		resp.SelectedResume = &id
	}
	writeJSON(w, http.StatusOK, resp)
}
