package handler

import (
	"errors"
	"fmt"
	"loan-engine/internal/api/handler/dto"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/pkg/apperrors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

type LoanHandler struct {
	service loan.LoanService
	logger  *slog.Logger
}

func NewLoanHandler(s loan.LoanService, l *slog.Logger) *LoanHandler {
	if s == nil {
		panic("loan service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &LoanHandler{
		service: s,
		logger:  l.With("component", "LoanHandler"),
	}
}

// QuoteLoan handles POST /loans/quote
// @Summary Preview a loan
// @Description Computes the periodic installment and the full amortization schedule without persisting anything.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.LoanRequest true "Loan terms"
// @Success 200 {object} dto.QuoteResponse "Quote computed"
// @Failure 400 {object} dto.ErrorResponse "Invalid terms"
// @Router /loans/quote [post]
// @Security BearerAuth
func (h *LoanHandler) QuoteLoan(w http.ResponseWriter, r *http.Request) {
	var req dto.LoanRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	terms, err := req.ToDomain(0)
	if err != nil {
		respondError(w, err)
		return
	}

	quote, err := h.service.QuoteLoan(terms)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Quote rejected", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewQuoteResponse(quote))
}

// RequestLoan handles POST /loans
// @Summary Request a loan
// @Description Creates a loan in REQUESTED state for the authenticated client. Officers must pass clientId.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.LoanRequest true "Loan terms"
// @Success 201 {object} dto.LoanResponse "Loan requested"
// @Failure 400 {object} dto.ErrorResponse "Invalid terms"
// @Failure 401 {object} dto.ErrorResponse "Missing or invalid token"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans [post]
// @Security BearerAuth
func (h *LoanHandler) RequestLoan(w http.ResponseWriter, r *http.Request) {
	p, err := principalFrom(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.LoanRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	clientID := p.ClientID
	if p.IsOfficer() {
		clientID = req.ClientID
	} else if req.ClientID != 0 && req.ClientID != p.ClientID {
		respondError(w, fmt.Errorf("%w: clients can only request loans for themselves", apperrors.ErrForbidden))
		return
	}

	terms, err := req.ToDomain(clientID)
	if err != nil {
		respondError(w, err)
		return
	}

	created, err := h.service.RequestLoan(r.Context(), terms)
	if err != nil {
		h.logger.Log(r.Context(), levelFor(err), "Service failed to request loan", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Loan requested", slog.Int64("loanID", created.ID), slog.String("number", created.Number))
	respondJSON(w, http.StatusCreated, dto.NewLoanResponse(created, false))
}

// ListLoans handles GET /loans
// @Summary List loans
// @Description Clients get their own loans, newest start date first. Officers filter by clientId or status.
// @Tags Loans
// @Produce json
// @Param clientId query int false "Client ID (officers only)"
// @Param status query string false "Loan status (officers only)" Enums(REQUESTED, APPROVED, ACTIVE, PAID_OFF, CANCELLED)
// @Success 200 {array} dto.LoanResponse "Loans"
// @Failure 400 {object} dto.ErrorResponse "Invalid filter"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans [get]
// @Security BearerAuth
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	p, err := principalFrom(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var loans []*loan.Loan
	query := r.URL.Query()

	switch {
	case !p.IsOfficer():
		loans, err = h.service.ListClientLoans(r.Context(), p.ClientID)
	case query.Get("clientId") != "":
		clientID, parseErr := strconv.ParseInt(query.Get("clientId"), 10, 64)
		if parseErr != nil || clientID <= 0 {
			respondError(w, apperrors.NewValidationError("clientId", "must be a positive number"))
			return
		}
		loans, err = h.service.ListClientLoans(r.Context(), clientID)
	case query.Get("status") != "":
		status := loan.Status(strings.ToUpper(query.Get("status")))
		if !status.IsValid() {
			respondError(w, apperrors.NewValidationError("status", "unknown loan status"))
			return
		}
		loans, err = h.service.ListLoansByStatus(r.Context(), status)
	default:
		respondError(w, fmt.Errorf("%w: clientId or status filter is required", apperrors.ErrInvalidArgument))
		return
	}

	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to list loans", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Loans listed", slog.Int("count", len(loans)))
	respondJSON(w, http.StatusOK, dto.NewLoanResponses(loans))
}

// GetLoan handles GET /loans/{loanID}
// @Summary Retrieve loan details
// @Description Add include=schedule to embed the installments.
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID" Minimum(1)
// @Param include query string false "Use 'schedule' to include installments"
// @Success 200 {object} dto.LoanResponse "Loan details"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 403 {object} dto.ErrorResponse "Loan belongs to another client"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Router /loans/{loanID} [get]
// @Security BearerAuth
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	l, ok := h.loadOwnedLoan(w, r)
	if !ok {
		return
	}

	includeSchedule := r.URL.Query().Get("include") == "schedule"
	respondJSON(w, http.StatusOK, dto.NewLoanResponse(l, includeSchedule))
}

// GetLoanByNumber handles GET /loans/by-number/{number}
// @Summary Retrieve a loan by its number
// @Tags Loans
// @Produce json
// @Param number path string true "Loan number" example(PER-2026-004211)
// @Success 200 {object} dto.LoanResponse "Loan details"
// @Failure 403 {object} dto.ErrorResponse "Loan belongs to another client"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Router /loans/by-number/{number} [get]
// @Security BearerAuth
func (h *LoanHandler) GetLoanByNumber(w http.ResponseWriter, r *http.Request) {
	p, err := principalFrom(r)
	if err != nil {
		respondError(w, err)
		return
	}

	number := strings.ToUpper(chi.URLParam(r, "number"))
	l, err := h.service.GetLoanByNumber(r.Context(), number)
	if err != nil {
		h.logger.Log(r.Context(), levelFor(err), "Service failed to find loan by number", slog.String("number", number), slog.Any("error", err))
		respondError(w, err)
		return
	}
	if !p.CanAccess(l.ClientID) {
		respondError(w, fmt.Errorf("%w: loan %s", apperrors.ErrForbidden, number))
		return
	}

	respondJSON(w, http.StatusOK, dto.NewLoanResponse(l, r.URL.Query().Get("include") == "schedule"))
}

// GetInstallments handles GET /loans/{loanID}/installments
// @Summary List installments
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID" Minimum(1)
// @Param pending query bool false "Only unpaid installments"
// @Success 200 {array} dto.InstallmentResponse "Installments in sequence order"
// @Failure 403 {object} dto.ErrorResponse "Loan belongs to another client"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Router /loans/{loanID}/installments [get]
// @Security BearerAuth
func (h *LoanHandler) GetInstallments(w http.ResponseWriter, r *http.Request) {
	l, ok := h.loadOwnedLoan(w, r)
	if !ok {
		return
	}

	pendingOnly, _ := strconv.ParseBool(r.URL.Query().Get("pending"))
	installments, err := h.service.GetInstallments(r.Context(), l.ID, pendingOnly)
	if err != nil {
		h.logger.Log(r.Context(), levelFor(err), "Service failed to get installments", slog.Int64("loanID", l.ID), slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewInstallmentResponses(installments))
}

// ApplyPayment handles POST /loans/{loanID}/payments
// @Summary Pay an installment
// @Description Pays the given installment, or the next unpaid one when sequence is omitted. Installments are paid in order.
// @Tags Loans
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID" Minimum(1)
// @Param request body dto.PaymentRequest false "Installment to pay"
// @Success 200 {object} dto.LoanResponse "Updated loan with its schedule"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 403 {object} dto.ErrorResponse "Loan belongs to another client"
// @Failure 404 {object} dto.ErrorResponse "Loan or installment not found"
// @Failure 409 {object} dto.ErrorResponse "Loan not active, installment already paid or out of order"
// @Router /loans/{loanID}/payments [post]
// @Security BearerAuth
func (h *LoanHandler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	l, ok := h.loadOwnedLoan(w, r)
	if !ok {
		return
	}

	var req dto.PaymentRequest
	if r.Body != nil && r.Body != http.NoBody && r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
			respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
			return
		}
	}

	sequence, err := req.Target()
	if err != nil {
		respondError(w, err)
		return
	}

	updated, err := h.service.ApplyPayment(r.Context(), l.ID, sequence)
	if err != nil {
		h.logger.Log(r.Context(), levelFor(err), "Payment rejected",
			slog.Int64("loanID", l.ID), slog.Int("sequence", sequence), slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Payment applied", slog.Int64("loanID", updated.ID),
		slog.String("outstanding", updated.OutstandingPrincipal.StringFixed(loan.CurrencyScale)),
		slog.String("status", string(updated.Status)))
	respondJSON(w, http.StatusOK, dto.NewLoanResponse(updated, true))
}

// ApproveLoan handles POST /loans/{loanID}/approve
// @Summary Approve a requested loan
// @Description Generates the amortization schedule. Officers only.
// @Tags Officer
// @Produce json
// @Param loanID path int true "Loan ID" Minimum(1)
// @Success 200 {object} dto.LoanResponse "Approved loan with its schedule"
// @Failure 403 {object} dto.ErrorResponse "Officer role required"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Illegal transition"
// @Router /loans/{loanID}/approve [post]
// @Security BearerAuth
func (h *LoanHandler) ApproveLoan(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "approve", func(loanID int64) (*loan.Loan, error) {
		return h.service.ApproveLoan(r.Context(), loanID)
	})
}

// DisburseLoan handles POST /loans/{loanID}/disburse
// @Summary Disburse an approved loan
// @Description Activates the loan so it accepts payments. Officers only.
// @Tags Officer
// @Produce json
// @Param loanID path int true "Loan ID" Minimum(1)
// @Success 200 {object} dto.LoanResponse "Active loan"
// @Failure 403 {object} dto.ErrorResponse "Officer role required"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Illegal transition"
// @Router /loans/{loanID}/disburse [post]
// @Security BearerAuth
func (h *LoanHandler) DisburseLoan(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "disburse", func(loanID int64) (*loan.Loan, error) {
		return h.service.DisburseLoan(r.Context(), loanID)
	})
}

// CancelLoan handles POST /loans/{loanID}/cancel
// @Summary Cancel a loan
// @Description Officers only. Terminal loans cannot be cancelled.
// @Tags Officer
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID" Minimum(1)
// @Param request body dto.CancelRequest true "Cancellation reason"
// @Success 200 {object} dto.LoanResponse "Cancelled loan"
// @Failure 400 {object} dto.ErrorResponse "Missing reason"
// @Failure 403 {object} dto.ErrorResponse "Officer role required"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Illegal transition"
// @Router /loans/{loanID}/cancel [post]
// @Security BearerAuth
func (h *LoanHandler) CancelLoan(w http.ResponseWriter, r *http.Request) {
	var req dto.CancelRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	h.transition(w, r, "cancel", func(loanID int64) (*loan.Loan, error) {
		return h.service.CancelLoan(r.Context(), loanID, strings.TrimSpace(req.Reason))
	})
}

// GetPortfolioOutstanding handles GET /loans/portfolio/outstanding
// @Summary Total outstanding principal
// @Description Sum of outstanding principal across ACTIVE loans. Officers only.
// @Tags Officer
// @Produce json
// @Success 200 {object} dto.OutstandingResponse "Portfolio outstanding"
// @Failure 403 {object} dto.ErrorResponse "Officer role required"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/portfolio/outstanding [get]
// @Security BearerAuth
func (h *LoanHandler) GetPortfolioOutstanding(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.TotalOutstanding(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to sum outstanding principal", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.OutstandingResponse{
		Status:           string(loan.StatusActive),
		TotalOutstanding: total.StringFixed(loan.CurrencyScale),
	})
}

func (h *LoanHandler) transition(w http.ResponseWriter, r *http.Request, op string, fn func(loanID int64) (*loan.Loan, error)) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	updated, err := fn(loanID)
	if err != nil {
		h.logger.Log(r.Context(), levelFor(err), "Loan transition rejected",
			slog.String("op", op), slog.Int64("loanID", loanID), slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Loan transitioned", slog.String("op", op),
		slog.Int64("loanID", loanID), slog.String("status", string(updated.Status)))
	respondJSON(w, http.StatusOK, dto.NewLoanResponse(updated, op == "approve"))
}

// loadOwnedLoan writes the error response itself and reports false when the
// caller may not see the loan.
func (h *LoanHandler) loadOwnedLoan(w http.ResponseWriter, r *http.Request) (*loan.Loan, bool) {
	p, err := principalFrom(r)
	if err != nil {
		respondError(w, err)
		return nil, false
	}

	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to get loan ID from URL", slog.Any("error", err))
		respondError(w, err)
		return nil, false
	}

	l, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		h.logger.Log(r.Context(), levelFor(err), "Service failed to get loan", slog.Int64("loanID", loanID), slog.Any("error", err))
		respondError(w, err)
		return nil, false
	}

	if !p.CanAccess(l.ClientID) {
		h.logger.WarnContext(r.Context(), "Client tried to access another client's loan",
			slog.Int64("loanID", loanID), slog.Int64("clientID", p.ClientID))
		respondError(w, fmt.Errorf("%w: loan %d", apperrors.ErrForbidden, loanID))
		return nil, false
	}

	return l, true
}

func levelFor(err error) slog.Level {
	status, _ := statusFor(err)
	if status >= http.StatusInternalServerError || errors.Is(err, apperrors.ErrRepositoryFailure) {
		return slog.LevelError
	}
	return slog.LevelWarn
}
