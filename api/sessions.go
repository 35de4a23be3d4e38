package api

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/warp/inventory-ledger/access"
	"github.com/warp/inventory-ledger/logger"
)

// =============================================================================
// SESSION MIDDLEWARE
// =============================================================================

// Authenticate resolves the session token, if any, and installs the actor
// in the request context. Requests without a valid session continue
// anonymously; the services reject them where a role is required.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.sessionToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		actor, err := h.Sessions.Resolve(r.Context(), token)
		if errors.Is(err, access.ErrUnauthenticated) {
			logger.FromContext(r.Context()).Debug("session rejected", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx := access.WithActor(r.Context(), actor)
		ctx = logger.WithContext(ctx, logger.FromContext(ctx).With(
			zap.Int64("user_id", actor.UserID),
			zap.String("role", string(actor.Role)),
		))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireLevel rejects a request whose actor lacks level before the handler
// reads the body. The services repeat the check on every operation.
func RequireLevel(level access.Level) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := access.Require(r.Context(), level); err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// sessionToken reads a bearer token, falling back to the session cookie.
func (h *Handler) sessionToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(h.cookie.Name); err == nil {
		return c.Value
	}
	return ""
}

// =============================================================================
// SESSION ENDPOINTS
// =============================================================================

// Login checks credentials and starts a session.
// POST /api/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.Users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		logger.FromContext(r.Context()).Info("login failed", zap.String("username", req.Username))
		writeError(w, r, err)
		return
	}

	token, err := h.Sessions.Issue(user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token.Value,
		Path:     "/",
		Expires:  token.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	logger.FromContext(r.Context()).Info("user logged in",
		zap.Int64("user_id", int64(user.ID)),
		zap.String("session_id", token.ID))

	writeJSON(w, http.StatusOK, LoginResponse{
		Message:   "Logged in.",
		Token:     token.Value,
		ExpiresAt: formatTime(token.ExpiresAt),
		User:      toUserDTO(user),
	})
}

// Logout revokes the current token and clears the cookie. It succeeds
// without a session.
// POST /api/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := h.sessionToken(r); token != "" {
		if err := h.Sessions.Revoke(r.Context(), token); err != nil {
			writeError(w, r, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeMessage(w, http.StatusOK, "Logged out.", 0)
}

// Me returns the current actor.
// GET /api/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor, err := access.Require(r.Context(), access.LevelRead)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MeDTO{ID: actor.UserID, Username: actor.Username, Role: string(actor.Role)})
}
