package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"loan-engine/internal/api/handler/dto"
	"loan-engine/internal/config"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/event"
	"loan-engine/internal/infrastructure/database/memory"
	"loan-engine/internal/infrastructure/lock"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestServer(t *testing.T, authEnabled bool) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{
			Auth: config.AuthConfig{Enabled: authEnabled, JWTSecret: "router-test-secret", TokenTTL: time.Hour},
		},
		Metrics: config.MetricsConfig{Path: "/metrics"},
	}

	repo := memory.NewLoanRepository(logger)
	svc := loan.NewLoanService(repo, lock.NewMemoryLocker(), event.NewLogPublisher(logger), logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv := httptest.NewServer(SetupRouter(ctx, svc, cfg, logger))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func issueToken(t *testing.T, srv *httptest.Server, clientID int64, role string) string {
	t.Helper()
	var resp dto.TokenResponse
	status := call(t, srv, http.MethodPost, "/auth/token", "", dto.TokenRequest{ClientID: clientID, Role: role}, &resp)
	require.Equal(t, http.StatusOK, status)
	return resp.Token
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, true)

	var body map[string]string
	status := call(t, srv, http.MethodGet, "/health", "", nil, &body)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestLoansRequireToken(t *testing.T) {
	srv := newTestServer(t, true)

	status := call(t, srv, http.MethodGet, "/loans", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status = call(t, srv, http.MethodGet, "/loans", "Bearer not-a-jwt", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, true)

	call(t, srv, http.MethodGet, "/health", "", nil, nil)

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "loan_engine_http_requests_total")
}

func TestLoanLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t, true)
	clientToken := issueToken(t, srv, 7, "client")
	otherToken := issueToken(t, srv, 8, "client")
	officerToken := issueToken(t, srv, 0, "officer")

	var created dto.LoanResponse
	status := call(t, srv, http.MethodPost, "/loans", clientToken, dto.LoanRequest{
		Type:       "auto",
		Principal:  "1200",
		AnnualRate: "0",
		TermMonths: 3,
		StartDate:  "2026-01-31",
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "REQUESTED", created.Status)
	assert.Equal(t, "AUTO", created.Type)
	assert.Equal(t, "400.00", created.PeriodicInstallment)

	loanPath := "/loans/" + created.ID

	status = call(t, srv, http.MethodPost, loanPath+"/approve", clientToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status = call(t, srv, http.MethodGet, loanPath, otherToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)

	var approved dto.LoanResponse
	status = call(t, srv, http.MethodPost, loanPath+"/approve", officerToken, nil, &approved)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, approved.Installments, 3)
	assert.Equal(t, "2026-02-28", approved.Installments[0].DueDate)

	var errResp dto.ErrorResponse
	status = call(t, srv, http.MethodPost, loanPath+"/payments", clientToken, nil, &errResp)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "LOAN_NOT_ACTIVE", errResp.Error.Code)

	status = call(t, srv, http.MethodPost, loanPath+"/disburse", officerToken, nil, nil)
	require.Equal(t, http.StatusOK, status)

	status = call(t, srv, http.MethodPost, loanPath+"/payments", clientToken, map[string]int{"sequence": 2}, &errResp)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INSTALLMENT_OUT_OF_ORDER", errResp.Error.Code)

	var paid dto.LoanResponse
	for i := 0; i < 3; i++ {
		status = call(t, srv, http.MethodPost, loanPath+"/payments", clientToken, nil, &paid)
		require.Equal(t, http.StatusOK, status)
	}
	assert.Equal(t, "PAID_OFF", paid.Status)
	assert.Equal(t, "0.00", paid.OutstandingPrincipal)

	var outstanding dto.OutstandingResponse
	status = call(t, srv, http.MethodGet, "/loans/portfolio/outstanding", officerToken, nil, &outstanding)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "0.00", outstanding.TotalOutstanding)

	var mine []dto.LoanResponse
	status = call(t, srv, http.MethodGet, "/loans", clientToken, nil, &mine)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, mine, 1)
	assert.Equal(t, created.Number, mine[0].Number)
}

func TestAuthDisabledRunsAsOfficer(t *testing.T) {
	srv := newTestServer(t, false)

	var created dto.LoanResponse
	status := call(t, srv, http.MethodPost, "/loans", "", dto.LoanRequest{
		ClientID:   3,
		Principal:  "500",
		AnnualRate: "5",
		TermMonths: 6,
	}, &created)
	require.Equal(t, http.StatusCreated, status)

	status = call(t, srv, http.MethodPost, "/loans/"+created.ID+"/approve", "", nil, nil)
	assert.Equal(t, http.StatusOK, status)
}
