package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RoutingKeyInstallmentPaid    = "loan.installment.paid"
	RoutingKeyBalanceChanged     = "loan.balance.changed"
	RoutingKeyLoanStatusChanged  = "loan.status.changed"
	RoutingKeyInstallmentOverdue = "loan.installment.overdue"
)

// Status change reasons. PAID_OFF and CANCELLED are both terminal, the reason
// lets consumers tell a repaid loan from one an officer closed.
const (
	ReasonApproved  = "APPROVED_BY_OFFICER"
	ReasonDisbursed = "DISBURSED"
	ReasonRepaid    = "REPAID"
	ReasonCancelled = "CANCELLED_BY_OFFICER"
)

// InstallmentPaidEvent is the ledger entry recorded for every applied payment.
type InstallmentPaidEvent struct {
	EventID             string          `json:"eventId"`
	LoanID              int64           `json:"loanId"`
	LoanNumber          string          `json:"loanNumber"`
	ClientID            int64           `json:"clientId"`
	InstallmentSequence int             `json:"installmentSequence"`
	PrincipalPortion    decimal.Decimal `json:"principalPortion"`
	InterestPortion     decimal.Decimal `json:"interestPortion"`
	PaidDate            time.Time       `json:"paidDate"`
	Timestamp           time.Time       `json:"timestamp"`
}

type BalanceChangedEvent struct {
	EventID             string          `json:"eventId"`
	LoanID              int64           `json:"loanId"`
	ClientID            int64           `json:"clientId"`
	PreviousOutstanding decimal.Decimal `json:"previousOutstanding"`
	NewOutstanding      decimal.Decimal `json:"newOutstanding"`
	Timestamp           time.Time       `json:"timestamp"`
}

type LoanStatusChangedEvent struct {
	EventID    string    `json:"eventId"`
	LoanID     int64     `json:"loanId"`
	LoanNumber string    `json:"loanNumber"`
	ClientID   int64     `json:"clientId"`
	OldStatus  string    `json:"oldStatus"`
	NewStatus  string    `json:"newStatus"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type InstallmentOverdueEvent struct {
	EventID             string          `json:"eventId"`
	LoanID              int64           `json:"loanId"`
	LoanNumber          string          `json:"loanNumber"`
	ClientID            int64           `json:"clientId"`
	InstallmentSequence int             `json:"installmentSequence"`
	DueDate             time.Time       `json:"dueDate"`
	AmountDue           decimal.Decimal `json:"amountDue"`
	DaysOverdue         int             `json:"daysOverdue"`
	Timestamp           time.Time       `json:"timestamp"`
}

func NewEventID() string {
	return uuid.NewString()
}
