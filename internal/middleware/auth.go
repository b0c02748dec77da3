package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"sectorwars-server/internal/auth"
	"sectorwars-server/internal/shared/cookies"
	"sectorwars-server/internal/shared/errors"
	"sectorwars-server/internal/shared/response"

	"github.com/google/uuid"
)

type contextKey string

const UserContextKey contextKey = "user"

type JWTMiddleware struct {
	tokens *auth.TokenManager
}

func NewJWT(tokens *auth.TokenManager) *JWTMiddleware {
	return &JWTMiddleware{tokens: tokens}
}

// Require accepts the token from the auth cookie or a Bearer header.
func (m *JWTMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.With(
			"middleware", "jwt",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		token := bearerToken(r)
		if token == "" {
			if cookie, err := r.Cookie(cookies.AuthCookieName); err == nil {
				token = cookie.Value
			}
		}
		if token == "" {
			response.Error(w, r, logger, errors.Unauthorized("authentication required"))
			return
		}

		claims, err := m.tokens.Validate(token)
		if err != nil {
			response.Error(w, r, logger, errors.Unauthorized("invalid token"))
			return
		}

		logger.Debug("JWT authentication successful", "player_id", claims.PlayerID)
		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func GetUserFromContext(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(UserContextKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}

// PlayerID returns the authenticated player's id.
func PlayerID(r *http.Request) (uuid.UUID, error) {
	claims := GetUserFromContext(r)
	if claims == nil {
		return uuid.Nil, errors.Unauthorized("authentication required")
	}
	return claims.PlayerID, nil
}

// WithClaims attaches claims to a context, for handler tests.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, UserContextKey, claims)
}
