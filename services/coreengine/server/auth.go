package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"whirlpool/services/coreengine/config"
)

type authContextKey struct{}

func markAuthenticated(ctx context.Context) context.Context {
	return context.WithValue(ctx, authContextKey{}, true)
}

func isAuthenticated(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	value, ok := ctx.Value(authContextKey{}).(bool)
	return ok && value
}

// authenticator accepts either a configured API token or a JWT bearer token
// signed with the configured HMAC key.
type authenticator struct {
	tokens       map[string]struct{}
	jwt          config.JWTConfig
	allowByToken bool
	allowByJWT   bool
}

func newAuthenticator(cfg config.AuthConfig) *authenticator {
	tokens := make(map[string]struct{})
	for _, token := range cfg.APITokens {
		trimmed := strings.TrimSpace(token)
		if trimmed == "" {
			continue
		}
		tokens[trimmed] = struct{}{}
	}
	return &authenticator{
		tokens:       tokens,
		jwt:          cfg.JWT,
		allowByToken: len(tokens) > 0,
		allowByJWT:   cfg.JWT.SigningKey != "",
	}
}

// Middleware enforces authentication on every request it wraps. Handlers
// that should remain public (health checks) must not be mounted under it.
func (a *authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.allowByToken && !a.allowByJWT {
			writeError(w, http.StatusServiceUnavailable, "authentication is not configured")
			return
		}
		header := r.Header.Get("Authorization")
		token := parseBearerToken(header)
		if token == "" {
			if apiToken := r.Header.Get("X-API-Token"); apiToken != "" {
				token = strings.TrimSpace(apiToken)
			}
		}
		if token == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if a.allowByToken && a.authenticateByToken(token) {
			next.ServeHTTP(w, r.WithContext(markAuthenticated(r.Context())))
			return
		}
		if a.allowByJWT && a.authenticateByJWT(token) {
			next.ServeHTTP(w, r.WithContext(markAuthenticated(r.Context())))
			return
		}
		writeError(w, http.StatusUnauthorized, "authentication required")
	})
}

func (a *authenticator) authenticateByToken(token string) bool {
	if len(a.tokens) == 0 {
		return false
	}
	_, ok := a.tokens[token]
	return ok
}

func (a *authenticator) authenticateByJWT(token string) bool {
	if a.jwt.SigningKey == "" {
		return false
	}
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(a.jwt.SigningKey), nil
	})
	if err != nil || parsed == nil || !parsed.Valid {
		return false
	}
	if a.jwt.Issuer != "" && claims.Issuer != a.jwt.Issuer {
		return false
	}
	return true
}

func parseBearerToken(header string) string {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return ""
	}
	parts := strings.SplitN(trimmed, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(strings.TrimSpace(parts[0]), "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
