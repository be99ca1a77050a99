package middleware

import (
	"bytes"
	"loan-engine/internal/config"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "testsecret"

var logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func clientClaims(subject string, expiresIn time.Duration) Claims {
	return Claims{
		Role: RoleClient,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
}

func capturePrincipal(got *Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if ok {
			*got = p
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	cfg := config.AuthConfig{Enabled: true, JWTSecret: testSecret}

	t.Run("disabled auth runs as officer", func(t *testing.T) {
		var got Principal
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		AuthMiddleware(config.AuthConfig{Enabled: false}, logger)(capturePrincipal(&got)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, got.IsOfficer())
	})

	t.Run("valid client token", func(t *testing.T) {
		var got Principal
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, clientClaims("42", time.Hour)))
		rec := httptest.NewRecorder()

		AuthMiddleware(cfg, logger)(capturePrincipal(&got)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, Principal{ClientID: 42, Role: RoleClient}, got)
	})

	rejected := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"garbage token", "Bearer invalidtoken"},
		{"wrong secret", "Bearer " + signToken(t, "other", clientClaims("42", time.Hour))},
		{"expired", "Bearer " + signToken(t, testSecret, clientClaims("42", -time.Minute))},
		{"non numeric subject", "Bearer " + signToken(t, testSecret, clientClaims("alice", time.Hour))},
		{"unknown role", "Bearer " + signToken(t, testSecret, Claims{
			Role:             "admin",
			RegisteredClaims: jwt.RegisteredClaims{Subject: "1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		})},
		{"no expiry", "Bearer " + signToken(t, testSecret, Claims{
			Role:             RoleClient,
			RegisteredClaims: jwt.RegisteredClaims{Subject: "1"},
		})},
	}
	for _, tc := range rejected {
		t.Run("rejects "+tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			var got Principal
			AuthMiddleware(cfg, logger)(capturePrincipal(&got)).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":{"message":"Unauthorized"}}`, rec.Body.String())
		})
	}

	t.Run("rejects none algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, clientClaims("42", time.Hour)).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		var got Principal
		AuthMiddleware(cfg, logger)(capturePrincipal(&got)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	guarded := RequireRole(RoleOfficer, logger)(next)

	cases := []struct {
		name      string
		principal *Principal
		want      int
	}{
		{"officer", &Principal{Role: RoleOfficer}, http.StatusNoContent},
		{"client", &Principal{ClientID: 3, Role: RoleClient}, http.StatusForbidden},
		{"anonymous", nil, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/loans/1/approve", nil)
			if tc.principal != nil {
				req = req.WithContext(WithPrincipal(req.Context(), *tc.principal))
			}
			rec := httptest.NewRecorder()

			guarded.ServeHTTP(rec, req)

			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestPrincipalCanAccess(t *testing.T) {
	client := Principal{ClientID: 5, Role: RoleClient}
	officer := Principal{Role: RoleOfficer}

	assert.True(t, client.CanAccess(5))
	assert.False(t, client.CanAccess(6))
	assert.True(t, officer.CanAccess(6))
}
