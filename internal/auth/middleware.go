package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/job-tracker/internal/apperror"
	"github.com/sakif/job-tracker/internal/model"
)

// contextKey is unexported so no other package can read or shadow the
// values stored under it.
type contextKey string

const userKey contextKey = "user"

const msgAuthRequired = "Authentication required. Please log in."

// Resolver turns a bearer token into the user it was issued for. It must
// return one of the apperror authentication errors when it cannot.
type Resolver interface {
	ResolveToken(ctx context.Context, token string) (*model.User, error)
}

// RequireAuth rejects requests without a valid "Authorization: Bearer"
// header with 401 before any handler runs. On success the resolved user is
// stored in the request context.
//
// Expired tokens, bad signatures and deleted users are all 401 to the
// client; the reason is only logged.
func RequireAuth(resolver Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, msgAuthRequired)
				return
			}

			user, err := resolver.ResolveToken(r.Context(), token)
			if err != nil {
				var appErr *apperror.AppError
				if !apperror.IsUnauthorized(err) || !errors.As(err, &appErr) {
					logger.Error("resolving token failed",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
					writeError(w, http.StatusInternalServerError, "An internal error occurred")
					return
				}
				logger.Info("request rejected",
					slog.String("path", r.URL.Path),
					slog.String("reason", err.Error()),
				)
				unauthorized(w, appErr.Message)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a copy of ctx carrying user. Handler tests use it to
// skip the token round trip.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the user set by RequireAuth.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// UserIDFromContext is a shorthand for handlers that only need the id.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	u, ok := UserFromContext(ctx)
	if !ok {
		return 0, false
	}
	return u.ID, true
}

// bearerToken extracts the token from "Authorization: Bearer <token>". The
// scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="job-tracker"`)
	writeError(w, http.StatusUnauthorized, message)
}

// writeError emits the same envelope as the handler package. It is repeated
// here because handler imports auth.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}{false, message})
}
