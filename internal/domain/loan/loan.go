package loan

import (
	"fmt"
	"loan-engine/internal/pkg/apperrors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultLoanType = "PERSONAL"
	MaxTermMonths   = 360
)

type Status string

const (
	StatusRequested Status = "REQUESTED"
	StatusApproved  Status = "APPROVED"
	StatusActive    Status = "ACTIVE"
	StatusPaidOff   Status = "PAID_OFF"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) IsTerminal() bool {
	return s == StatusPaidOff || s == StatusCancelled
}

func (s Status) IsValid() bool {
	switch s {
	case StatusRequested, StatusApproved, StatusActive, StatusPaidOff, StatusCancelled:
		return true
	}
	return false
}

type Loan struct {
	ID                   int64
	Number               string
	ClientID             int64
	Type                 string
	Principal            decimal.Decimal
	AnnualRate           decimal.Decimal
	TermMonths           int
	PeriodicInstallment  decimal.Decimal
	OutstandingPrincipal decimal.Decimal
	Status               Status
	StartDate            time.Time
	DisbursementDate     *time.Time
	CancellationReason   string
	Version              int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Installments         []Installment
}

type Installment struct {
	LoanID           int64
	SequenceNumber   int
	DueDate          time.Time
	InterestPortion  decimal.Decimal
	PrincipalPortion decimal.Decimal
	Paid             bool
	PaidDate         *time.Time
}

func (i Installment) Amount() decimal.Decimal {
	return i.InterestPortion.Add(i.PrincipalPortion)
}

func (i Installment) IsOverdue(now time.Time) bool {
	return !i.Paid && i.DueDate.Before(now)
}

// NewLoan validates the requested terms and returns a REQUESTED loan with its
// installment quoted. The schedule is generated on approval.
func NewLoan(clientID int64, loanType string, principal, annualRate decimal.Decimal, termMonths int, startDate time.Time) (*Loan, error) {
	if clientID <= 0 {
		return nil, apperrors.NewValidationError("clientId", "must be a positive identifier")
	}

	periodicRate, err := ToPeriodicRate(annualRate)
	if err != nil {
		return nil, err
	}

	installment, err := ComputeInstallment(principal, periodicRate, termMonths)
	if err != nil {
		return nil, err
	}

	loanType = strings.ToUpper(strings.TrimSpace(loanType))
	if loanType == "" {
		loanType = DefaultLoanType
	}

	now := time.Now().UTC()
	if startDate.IsZero() {
		startDate = now
	}
	startDate = truncateToDay(startDate)

	return &Loan{
		Number:               GenerateLoanNumber(loanType, startDate),
		ClientID:             clientID,
		Type:                 loanType,
		Principal:            principal,
		AnnualRate:           annualRate,
		TermMonths:           termMonths,
		PeriodicInstallment:  installment,
		OutstandingPrincipal: principal,
		Status:               StatusRequested,
		StartDate:            startDate,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// GenerateLoanNumber builds numbers such as MOR-2026-004211.
func GenerateLoanNumber(loanType string, at time.Time) string {
	prefix := strings.ToUpper(loanType)
	if len(prefix) < 3 {
		prefix = "LON"
	} else {
		prefix = prefix[:3]
	}

	id := uuid.New()
	var n uint64
	for _, b := range id[:8] {
		n = n<<8 | uint64(b)
	}

	return fmt.Sprintf("%s-%d-%06d", prefix, at.Year(), n%1_000_000)
}

func (l *Loan) Installment(sequence int) (*Installment, bool) {
	for i := range l.Installments {
		if l.Installments[i].SequenceNumber == sequence {
			return &l.Installments[i], true
		}
	}
	return nil, false
}

// NextUnpaid returns the lowest-sequence unpaid installment.
func (l *Loan) NextUnpaid() (*Installment, bool) {
	for i := range l.Installments {
		if !l.Installments[i].Paid {
			return &l.Installments[i], true
		}
	}
	return nil, false
}

func (l *Loan) PendingInstallments() []Installment {
	pending := make([]Installment, 0, len(l.Installments))
	for _, inst := range l.Installments {
		if !inst.Paid {
			pending = append(pending, inst)
		}
	}
	return pending
}

func (l *Loan) OverdueInstallments(now time.Time) []Installment {
	var overdue []Installment
	for _, inst := range l.Installments {
		if inst.IsOverdue(now) {
			overdue = append(overdue, inst)
		}
	}
	return overdue
}

func (l *Loan) TotalInterest() decimal.Decimal {
	total := decimal.Zero
	for _, inst := range l.Installments {
		total = total.Add(inst.InterestPortion)
	}
	return total
}

// Clone returns a deep copy so callers can mutate it without touching stored state.
func (l *Loan) Clone() *Loan {
	if l == nil {
		return nil
	}
	c := *l
	c.DisbursementDate = cloneTime(l.DisbursementDate)
	if l.Installments != nil {
		c.Installments = make([]Installment, len(l.Installments))
		for i, inst := range l.Installments {
			inst.PaidDate = cloneTime(inst.PaidDate)
			c.Installments[i] = inst
		}
	}
	return &c
}

func (l *Loan) fail(op string, sequence int, err error) error {
	return &apperrors.LoanError{
		Op:       op,
		LoanID:   l.ID,
		Sequence: sequence,
		Status:   string(l.Status),
		Err:      err,
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
