package dto

import (
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/pkg/apperrors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = time.DateOnly

// LoanRequest is shared by POST /loans and POST /loans/quote. Money and rates
// travel as decimal strings.
type LoanRequest struct {
	ClientID   int64  `json:"clientId,omitempty" example:"7"`
	Type       string `json:"type,omitempty" example:"MORTGAGE"`
	Principal  string `json:"principal" example:"10000.00"`
	AnnualRate string `json:"annualRate" example:"12"`
	TermMonths int    `json:"termMonths" example:"12"`
	StartDate  string `json:"startDate,omitempty" example:"2026-01-15"`
}

// ToDomain validates the payload shape. Business rules on the values are
// enforced by the loan package.
func (r *LoanRequest) ToDomain(clientID int64) (loan.LoanRequest, error) {
	principal, err := decimal.NewFromString(strings.TrimSpace(r.Principal))
	if err != nil {
		return loan.LoanRequest{}, apperrors.NewValidationError("principal", "must be a decimal number")
	}

	rate, err := decimal.NewFromString(strings.TrimSpace(r.AnnualRate))
	if err != nil {
		return loan.LoanRequest{}, apperrors.NewValidationError("annualRate", "must be a decimal number")
	}

	var start time.Time
	if r.StartDate != "" {
		start, err = time.Parse(dateLayout, r.StartDate)
		if err != nil {
			return loan.LoanRequest{}, apperrors.NewValidationError("startDate", "use YYYY-MM-DD")
		}
	}

	return loan.LoanRequest{
		ClientID:   clientID,
		Type:       r.Type,
		Principal:  principal,
		AnnualRate: rate,
		TermMonths: r.TermMonths,
		StartDate:  start,
	}, nil
}

type PaymentRequest struct {
	Sequence *int `json:"sequence,omitempty" example:"1"`
}

// Target returns the installment to pay, loan.NextInstallment when omitted.
func (r *PaymentRequest) Target() (int, error) {
	if r.Sequence == nil {
		return loan.NextInstallment, nil
	}
	if *r.Sequence <= 0 {
		return 0, apperrors.NewValidationError("sequence", "must be a positive number")
	}
	return *r.Sequence, nil
}

type CancelRequest struct {
	Reason string `json:"reason" example:"client withdrew the application"`
}

func (r *CancelRequest) Validate() error {
	if strings.TrimSpace(r.Reason) == "" {
		return apperrors.NewValidationError("reason", "cannot be empty")
	}
	return nil
}

type LoanResponse struct {
	ID                   string                `json:"id"`
	Number               string                `json:"number"`
	ClientID             string                `json:"clientId"`
	Type                 string                `json:"type"`
	Principal            string                `json:"principal"`
	AnnualRate           string                `json:"annualRate"`
	TermMonths           int                   `json:"termMonths"`
	PeriodicInstallment  string                `json:"periodicInstallment"`
	OutstandingPrincipal string                `json:"outstandingPrincipal"`
	Status               string                `json:"status"`
	StartDate            string                `json:"startDate"`
	DisbursementDate     *time.Time            `json:"disbursementDate,omitempty"`
	CancellationReason   string                `json:"cancellationReason,omitempty"`
	Version              int64                 `json:"version"`
	CreatedAt            time.Time             `json:"createdAt"`
	UpdatedAt            time.Time             `json:"updatedAt"`
	Installments         []InstallmentResponse `json:"installments,omitempty"`
}

type InstallmentResponse struct {
	Sequence  int        `json:"sequence"`
	DueDate   string     `json:"dueDate"`
	Interest  string     `json:"interest"`
	Principal string     `json:"principal"`
	Amount    string     `json:"amount"`
	Paid      bool       `json:"paid"`
	PaidDate  *time.Time `json:"paidDate,omitempty"`
}

type QuoteResponse struct {
	PeriodicRate  string                `json:"periodicRate"`
	Installment   string                `json:"installment"`
	TotalInterest string                `json:"totalInterest"`
	TotalPayment  string                `json:"totalPayment"`
	Schedule      []InstallmentResponse `json:"schedule"`
}

type OutstandingResponse struct {
	Status           string `json:"status"`
	TotalOutstanding string `json:"totalOutstanding"`
}

type TokenRequest struct {
	ClientID int64  `json:"clientId" example:"7"`
	Role     string `json:"role" example:"client"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(loan.CurrencyScale)
}

func NewLoanResponse(l *loan.Loan, includeSchedule bool) LoanResponse {
	resp := LoanResponse{
		ID:                   strconv.FormatInt(l.ID, 10),
		Number:               l.Number,
		ClientID:             strconv.FormatInt(l.ClientID, 10),
		Type:                 l.Type,
		Principal:            money(l.Principal),
		AnnualRate:           l.AnnualRate.String(),
		TermMonths:           l.TermMonths,
		PeriodicInstallment:  money(l.PeriodicInstallment),
		OutstandingPrincipal: money(l.OutstandingPrincipal),
		Status:               string(l.Status),
		StartDate:            l.StartDate.Format(dateLayout),
		DisbursementDate:     l.DisbursementDate,
		CancellationReason:   l.CancellationReason,
		Version:              l.Version,
		CreatedAt:            l.CreatedAt,
		UpdatedAt:            l.UpdatedAt,
	}

	if includeSchedule && len(l.Installments) > 0 {
		resp.Installments = NewInstallmentResponses(l.Installments)
	}

	return resp
}

func NewLoanResponses(loans []*loan.Loan) []LoanResponse {
	resp := make([]LoanResponse, len(loans))
	for i, l := range loans {
		resp[i] = NewLoanResponse(l, false)
	}
	return resp
}

func NewInstallmentResponses(installments []loan.Installment) []InstallmentResponse {
	resp := make([]InstallmentResponse, len(installments))
	for i, inst := range installments {
		resp[i] = InstallmentResponse{
			Sequence:  inst.SequenceNumber,
			DueDate:   inst.DueDate.Format(dateLayout),
			Interest:  money(inst.InterestPortion),
			Principal: money(inst.PrincipalPortion),
			Amount:    money(inst.Amount()),
			Paid:      inst.Paid,
			PaidDate:  inst.PaidDate,
		}
	}
	return resp
}

func NewQuoteResponse(q *loan.Quote) QuoteResponse {
	return QuoteResponse{
		PeriodicRate:  q.PeriodicRate.StringFixed(loan.PeriodicRateScale),
		Installment:   money(q.Installment),
		TotalInterest: money(q.TotalInterest),
		TotalPayment:  money(q.TotalPayment),
		Schedule:      NewInstallmentResponses(q.Schedule),
	}
}
