package handler

import (
	"bytes"
	"encoding/json"
	"loan-engine/internal/api/handler/dto"
	mw "loan-engine/internal/api/middleware"
	"loan-engine/internal/config"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret-key"

func postToken(t *testing.T, h *AuthHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/token", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.GenerateBearerToken(rec, req)
	return rec
}

func parseClaims(t *testing.T, bearer string) *mw.Claims {
	t.Helper()
	claims := &mw.Claims{}
	_, err := jwt.ParseWithClaims(strings.TrimPrefix(bearer, "Bearer "), claims, func(*jwt.Token) (any, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	return claims
}

func TestGenerateBearerToken(t *testing.T) {
	issuedAt := time.Date(2026, time.October, 1, 8, 0, 0, 0, time.UTC)
	h := NewAuthHandler(config.AuthConfig{JWTSecret: testJWTSecret, TokenTTL: 2 * time.Hour}, logger)

	t.Run("client token", func(t *testing.T) {
		rec := postToken(t, h, `{"clientId": 42}`)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp dto.TokenResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.True(t, strings.HasPrefix(resp.Token, "Bearer "))

		claims := parseClaims(t, resp.Token)
		assert.Equal(t, mw.RoleClient, claims.Role)
		assert.Equal(t, "42", claims.Subject)
		assert.WithinDuration(t, time.Now().Add(2*time.Hour), claims.ExpiresAt.Time, time.Minute)
	})

	t.Run("officer token without client id", func(t *testing.T) {
		rec := postToken(t, h, `{"role": "OFFICER"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp dto.TokenResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		claims := parseClaims(t, resp.Token)
		assert.Equal(t, mw.RoleOfficer, claims.Role)
		assert.Empty(t, claims.Subject)
	})

	t.Run("default ttl", func(t *testing.T) {
		fixed := NewAuthHandler(config.AuthConfig{JWTSecret: testJWTSecret}, logger)
		fixed.now = func() time.Time { return issuedAt }

		rec := postToken(t, fixed, `{"clientId": 1}`)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp dto.TokenResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, issuedAt.Add(defaultTokenTTL), resp.ExpiresAt)
	})

	bad := []struct {
		name string
		body string
	}{
		{"client without id", `{"role": "client"}`},
		{"unknown role", `{"clientId": 1, "role": "admin"}`},
		{"malformed body", `{"clientId": "x"`},
		{"unknown field", `{"username": "alice"}`},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			rec := postToken(t, h, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
