package loan

import (
	"context"
	"errors"
	"fmt"
	"loan-engine/internal/event"
	"loan-engine/internal/infrastructure/monitoring"
	"loan-engine/internal/pkg/apperrors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

type LoanRequest struct {
	ClientID   int64
	Type       string
	Principal  decimal.Decimal
	AnnualRate decimal.Decimal
	TermMonths int
	StartDate  time.Time
}

type LoanService interface {
	QuoteLoan(req LoanRequest) (*Quote, error)

	RequestLoan(ctx context.Context, req LoanRequest) (*Loan, error)

	ApproveLoan(ctx context.Context, loanID int64) (*Loan, error)

	DisburseLoan(ctx context.Context, loanID int64) (*Loan, error)

	CancelLoan(ctx context.Context, loanID int64, reason string) (*Loan, error)

	ApplyPayment(ctx context.Context, loanID int64, sequence int) (*Loan, error)

	GetLoan(ctx context.Context, loanID int64) (*Loan, error)

	GetLoanByNumber(ctx context.Context, number string) (*Loan, error)

	GetInstallments(ctx context.Context, loanID int64, pendingOnly bool) ([]Installment, error)

	ListClientLoans(ctx context.Context, clientID int64) ([]*Loan, error)

	ListLoansByStatus(ctx context.Context, status Status) ([]*Loan, error)

	TotalOutstanding(ctx context.Context) (decimal.Decimal, error)
}

type loanServiceImpl struct {
	repo      Repository
	locker    Locker
	publisher event.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewLoanService(r Repository, locker Locker, publisher event.EventPublisher, logger *slog.Logger) LoanService {
	return &loanServiceImpl{
		repo:      r,
		locker:    locker,
		publisher: publisher,
		logger:    logger.With("component", "LoanService"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *loanServiceImpl) QuoteLoan(req LoanRequest) (*Quote, error) {
	quote, err := NewQuote(req.Principal, req.AnnualRate, req.TermMonths, req.StartDate)
	if err != nil {
		s.logger.Warn("Rejected loan quote", "principal", req.Principal.String(), "termMonths", req.TermMonths, "error", err)
		return nil, err
	}
	return quote, nil
}

func (s *loanServiceImpl) RequestLoan(ctx context.Context, req LoanRequest) (*Loan, error) {
	s.logger.InfoContext(ctx, "Requesting new loan", "clientID", req.ClientID, "type", req.Type, "termMonths", req.TermMonths)

	loan, err := NewLoan(req.ClientID, req.Type, req.Principal, req.AnnualRate, req.TermMonths, req.StartDate)
	if err != nil {
		s.logger.WarnContext(ctx, "Rejected loan request", "clientID", req.ClientID, "error", err)
		return nil, err
	}

	created, err := s.repo.Create(ctx, loan)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to save loan", "clientID", req.ClientID, "error", err)
		return nil, fmt.Errorf("failed to save loan for client %d: %w", req.ClientID, err)
	}

	s.logger.InfoContext(ctx, "Loan requested successfully", "loanID", created.ID, "number", created.Number,
		"installment", created.PeriodicInstallment.StringFixed(CurrencyScale))
	return created, nil
}

func (s *loanServiceImpl) ApproveLoan(ctx context.Context, loanID int64) (*Loan, error) {
	s.logger.InfoContext(ctx, "Approving loan", "loanID", loanID)
	return s.transition(ctx, "approve", loanID, event.ReasonApproved, func(l *Loan, now time.Time) error {
		return l.Approve(now)
	})
}

func (s *loanServiceImpl) DisburseLoan(ctx context.Context, loanID int64) (*Loan, error) {
	s.logger.InfoContext(ctx, "Disbursing loan", "loanID", loanID)
	return s.transition(ctx, "disburse", loanID, event.ReasonDisbursed, func(l *Loan, now time.Time) error {
		return l.Disburse(now)
	})
}

func (s *loanServiceImpl) CancelLoan(ctx context.Context, loanID int64, reason string) (*Loan, error) {
	s.logger.InfoContext(ctx, "Cancelling loan", "loanID", loanID, "reason", reason)
	return s.transition(ctx, "cancel", loanID, event.ReasonCancelled, func(l *Loan, now time.Time) error {
		return l.Cancel(reason, now)
	})
}

func (s *loanServiceImpl) transition(ctx context.Context, op string, loanID int64, reason string, fn func(*Loan, time.Time) error) (*Loan, error) {
	loan, previous, err := s.mutate(ctx, loanID, fn)
	if err != nil {
		s.logger.WarnContext(ctx, "Loan transition failed", "op", op, "loanID", loanID, "error", err)
		return nil, err
	}

	s.publishStatusChanged(ctx, loan, previous, reason)
	s.logger.InfoContext(ctx, "Loan transition applied", "op", op, "loanID", loanID,
		"from", string(previous), "to", string(loan.Status))
	return loan, nil
}

func (s *loanServiceImpl) ApplyPayment(ctx context.Context, loanID int64, sequence int) (loan *Loan, err error) {
	s.logger.InfoContext(ctx, "Applying payment", "loanID", loanID, "sequence", sequence)
	defer func() {
		monitoring.RecordPayment(paymentOutcome(err))
	}()

	var payment *Payment
	loan, previous, err := s.mutate(ctx, loanID, func(l *Loan, now time.Time) error {
		p, applyErr := l.ApplyPayment(sequence, now)
		payment = p
		return applyErr
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Payment not applied", "loanID", loanID, "sequence", sequence, "error", err)
		return nil, err
	}

	s.publishPayment(ctx, loan, payment)
	if payment.PaidOff {
		s.publishStatusChanged(ctx, loan, previous, event.ReasonRepaid)
	}

	s.logger.InfoContext(ctx, "Payment processed successfully", "loanID", loanID,
		"sequence", payment.Installment.SequenceNumber,
		"outstanding", payment.Outstanding.StringFixed(CurrencyScale),
		"status", string(loan.Status))
	return loan, nil
}

// mutate runs fn on a freshly loaded copy of the loan while holding the loan's
// lock, then saves it. The copy is discarded if fn or the save fails.
func (s *loanServiceImpl) mutate(ctx context.Context, loanID int64, fn func(*Loan, time.Time) error) (*Loan, Status, error) {
	release, err := s.locker.Lock(ctx, loanID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to acquire loan lock", "loanID", loanID, "error", err)
		return nil, "", fmt.Errorf("%w: could not lock loan %d: %w", apperrors.ErrConflict, loanID, err)
	}
	defer release()

	loan, err := s.load(ctx, loanID)
	if err != nil {
		return nil, "", err
	}

	previous := loan.Status
	if err := fn(loan, s.now()); err != nil {
		return nil, previous, err
	}

	if err := s.repo.Save(ctx, loan); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			s.logger.WarnContext(ctx, "Concurrent modification detected", "loanID", loanID, "version", loan.Version)
			return nil, previous, err
		}
		s.logger.ErrorContext(ctx, "Failed to save loan", "loanID", loanID, "error", err)
		return nil, previous, fmt.Errorf("failed to save loan %d: %w", loanID, err)
	}

	if previous != loan.Status {
		monitoring.RecordLoanTransition(string(previous), string(loan.Status))
	}
	return loan, previous, nil
}

func (s *loanServiceImpl) GetLoan(ctx context.Context, loanID int64) (*Loan, error) {
	s.logger.DebugContext(ctx, "Getting loan details", "loanID", loanID)
	return s.load(ctx, loanID)
}

func (s *loanServiceImpl) GetLoanByNumber(ctx context.Context, number string) (*Loan, error) {
	s.logger.DebugContext(ctx, "Getting loan by number", "number", number)
	loan, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Loan not found", "number", number)
			return nil, fmt.Errorf("%w: loan with number %s not found", apperrors.ErrNotFound, number)
		}
		s.logger.ErrorContext(ctx, "Failed to get loan", "number", number, "error", err)
		return nil, fmt.Errorf("failed to get loan %s: %w", number, err)
	}
	return loan, nil
}

func (s *loanServiceImpl) GetInstallments(ctx context.Context, loanID int64, pendingOnly bool) ([]Installment, error) {
	loan, err := s.load(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if pendingOnly {
		return loan.PendingInstallments(), nil
	}
	return loan.Installments, nil
}

func (s *loanServiceImpl) ListClientLoans(ctx context.Context, clientID int64) ([]*Loan, error) {
	if clientID <= 0 {
		return nil, apperrors.NewValidationError("clientId", "must be a positive identifier")
	}
	loans, err := s.repo.ListByClient(ctx, clientID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list client loans", "clientID", clientID, "error", err)
		return nil, fmt.Errorf("failed to list loans for client %d: %w", clientID, err)
	}
	return loans, nil
}

func (s *loanServiceImpl) ListLoansByStatus(ctx context.Context, status Status) ([]*Loan, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown loan status %q", apperrors.ErrInvalidArgument, status)
	}
	loans, err := s.repo.ListByStatus(ctx, status)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list loans by status", "status", string(status), "error", err)
		return nil, fmt.Errorf("failed to list %s loans: %w", status, err)
	}
	return loans, nil
}

func (s *loanServiceImpl) TotalOutstanding(ctx context.Context) (decimal.Decimal, error) {
	total, err := s.repo.SumOutstandingByStatus(ctx, StatusActive)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to sum outstanding principal", "error", err)
		return decimal.Zero, fmt.Errorf("failed to sum outstanding principal: %w", err)
	}
	monitoring.SetOutstandingPortfolio(total.InexactFloat64())
	return total, nil
}

func (s *loanServiceImpl) load(ctx context.Context, loanID int64) (*Loan, error) {
	loan, err := s.repo.Load(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Loan not found", "loanID", loanID)
			return nil, fmt.Errorf("%w: loan with ID %d not found", apperrors.ErrNotFound, loanID)
		}
		s.logger.ErrorContext(ctx, "Failed to load loan", "loanID", loanID, "error", err)
		return nil, fmt.Errorf("failed to load loan %d: %w", loanID, err)
	}
	return loan, nil
}

func (s *loanServiceImpl) publishPayment(ctx context.Context, loan *Loan, payment *Payment) {
	now := s.now()
	paid := payment.Installment

	ledger := event.InstallmentPaidEvent{
		EventID:             event.NewEventID(),
		LoanID:              loan.ID,
		LoanNumber:          loan.Number,
		ClientID:            loan.ClientID,
		InstallmentSequence: paid.SequenceNumber,
		PrincipalPortion:    paid.PrincipalPortion,
		InterestPortion:     paid.InterestPortion,
		PaidDate:            *paid.PaidDate,
		Timestamp:           now,
	}
	if err := s.publisher.PublishInstallmentPaid(ctx, ledger); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish installment paid event", "loanID", loan.ID, "error", err)
	}

	balance := event.BalanceChangedEvent{
		EventID:             event.NewEventID(),
		LoanID:              loan.ID,
		ClientID:            loan.ClientID,
		PreviousOutstanding: payment.PreviousOutstanding,
		NewOutstanding:      payment.Outstanding,
		Timestamp:           now,
	}
	if err := s.publisher.PublishBalanceChanged(ctx, balance); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish balance changed event", "loanID", loan.ID, "error", err)
	}
}

func (s *loanServiceImpl) publishStatusChanged(ctx context.Context, loan *Loan, previous Status, reason string) {
	evt := event.LoanStatusChangedEvent{
		EventID:    event.NewEventID(),
		LoanID:     loan.ID,
		LoanNumber: loan.Number,
		ClientID:   loan.ClientID,
		OldStatus:  string(previous),
		NewStatus:  string(loan.Status),
		Reason:     reason,
		Timestamp:  s.now(),
	}
	if err := s.publisher.PublishLoanStatusChanged(ctx, evt); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish status changed event", "loanID", loan.ID, "error", err)
	}
}

func paymentOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperrors.ErrLoanNotActive):
		return "failure_not_active"
	case errors.Is(err, apperrors.ErrInstallmentAlreadyPaid):
		return "failure_already_paid"
	case errors.Is(err, apperrors.ErrInstallmentOutOfOrder):
		return "failure_out_of_order"
	case errors.Is(err, apperrors.ErrNotFound):
		return "failure_not_found"
	case errors.Is(err, apperrors.ErrConflict):
		return "failure_conflict"
	default:
		return "failure_internal"
	}
}
