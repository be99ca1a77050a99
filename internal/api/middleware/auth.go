package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"loan-engine/internal/config"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleClient  = "client"
	RoleOfficer = "officer"
)

// Claims is the bearer token payload. Subject holds the client id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller.
type Principal struct {
	ClientID int64
	Role     string
}

func (p Principal) IsOfficer() bool {
	return p.Role == RoleOfficer
}

// CanAccess reports whether the caller may read or pay loans of clientID.
func (p Principal) CanAccess(clientID int64) bool {
	return p.IsOfficer() || p.ClientID == clientID
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// AuthMiddleware resolves the caller from the bearer token. With auth disabled
// every request runs as an officer.
func AuthMiddleware(cfg config.AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), Principal{Role: RoleOfficer})))
			})
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := authenticate(r, cfg.JWTSecret)
			if err != nil {
				logger.WarnContext(r.Context(), "AuthMiddleware: rejected request", "path", r.URL.Path, "error", err)
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			logger.DebugContext(r.Context(), "AuthMiddleware: authenticated request",
				"client_id", principal.ClientID, "role", principal.Role)
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireRole rejects callers whose principal does not carry role.
func RequireRole(role string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok || p.Role != role {
				logger.WarnContext(r.Context(), "Forbidden: missing role", "required", role, "path", r.URL.Path)
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authenticate(r *http.Request, secret string) (Principal, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return Principal{}, errors.New("missing Authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return Principal{}, errors.New("invalid Authorization header format")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return Principal{}, fmt.Errorf("invalid token: %w", err)
	}

	return principalFromClaims(claims)
}

func principalFromClaims(claims *Claims) (Principal, error) {
	switch claims.Role {
	case RoleOfficer:
		var clientID int64
		if claims.Subject != "" {
			id, err := strconv.ParseInt(claims.Subject, 10, 64)
			if err != nil {
				return Principal{}, fmt.Errorf("invalid subject %q", claims.Subject)
			}
			clientID = id
		}
		return Principal{ClientID: clientID, Role: RoleOfficer}, nil
	case RoleClient:
		id, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil || id <= 0 {
			return Principal{}, fmt.Errorf("invalid subject %q", claims.Subject)
		}
		return Principal{ClientID: id, Role: RoleClient}, nil
	default:
		return Principal{}, fmt.Errorf("unknown role %q", claims.Role)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"message": message,
		},
	})
}
