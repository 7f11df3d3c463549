// Package handler contains the HTTP handlers of the API.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the request (path params, query string, JSON body)
//  2. Validate field formats (internal/validation)
//  3. Call the service
//  4. Write the envelope (response.go)
//
// Business rules live in internal/service; handlers only translate.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/sakif/job-tracker/internal/auth"
	"github.com/sakif/job-tracker/internal/model"
	"github.com/sakif/job-tracker/internal/validation"
)

const msgLoggedOut = "Logged out successfully. Please remove the token from client storage."

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Accounts is the part of service.AuthService the auth handlers use.
type Accounts interface {
	Register(ctx context.Context, username, email, password string) (*model.User, error)
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	IssueToken(userID int64) (string, error)
}

// StatsSource counts a user's jobs per status.
type StatsSource interface {
	Stats(ctx context.Context, userID int64) (model.Stats, error)
}

// AuthHandler serves /api/auth.
//
//	POST /register  → 201 {user, token}
//	POST /login     → 200 {user, token}
//	POST /logout    → 200 message (auth required)
//	GET  /me        → 200 {user, stats} (auth required)
type AuthHandler struct {
	accounts Accounts
	stats    StatsSource
	logger   *slog.Logger
}

func NewAuthHandler(accounts Accounts, stats StatsSource, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, stats: stats, logger: logger}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type session struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

type profile struct {
	User  *model.User `json:"user"`
	Stats model.Stats `json:"stats"`
}

func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	v := validation.New()
	validation.Length(v, "username", req.Username, 3, 30, "Username must be between 3 and 30 characters")
	validation.Matches(v, "username", req.Username, usernamePattern, "Username can only contain letters, numbers, and underscores")
	validation.Email(v, "email", req.Email, "Please provide a valid email")
	validation.Length(v, "password", req.Password, 6, 0, "Password must be at least 6 characters")
	if err := v.Err(); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.accounts.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.respondWithSession(w, http.StatusCreated, user)
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)

	v := validation.New()
	validation.Email(v, "email", req.Email, "Please provide a valid email")
	validation.Required(v, "password", req.Password, "Password is required")
	if err := v.Err(); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.respondWithSession(w, http.StatusOK, user)
}

func (h *AuthHandler) respondWithSession(w http.ResponseWriter, status int, user *model.User) {
	token, err := h.accounts.IssueToken(user.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, status, session{User: user, Token: token})
}

// HandleLogout only acknowledges the request. Tokens are stateless; the
// client ends the session by discarding its copy.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, msgLoggedOut)
}

func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		// RequireAuth guards this route, so this is a wiring bug
		h.logger.Error("HandleMe: no user in context")
		writeJSON(w, http.StatusInternalServerError, Envelope{Error: msgInternal})
		return
	}

	stats, err := h.stats.Stats(r.Context(), user.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, http.StatusOK, profile{User: user, Stats: stats})
}
