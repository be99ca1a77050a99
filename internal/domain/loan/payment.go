package loan

import (
	"fmt"
	"loan-engine/internal/pkg/apperrors"
	"time"

	"github.com/shopspring/decimal"
)

// NextInstallment asks ApplyPayment to target the lowest unpaid installment.
const NextInstallment = 0

// Payment describes a successfully applied installment payment.
type Payment struct {
	Installment         Installment
	PreviousOutstanding decimal.Decimal
	Outstanding         decimal.Decimal
	PaidOff             bool
}

// ApplyPayment settles one installment. Installments are paid strictly in
// sequence; pass NextInstallment to pay whichever one is due next.
func (l *Loan) ApplyPayment(sequence int, now time.Time) (*Payment, error) {
	const op = "apply payment"

	if l.Status != StatusActive {
		return nil, l.fail(op, sequence, apperrors.ErrLoanNotActive)
	}

	next, hasNext := l.NextUnpaid()

	var target *Installment
	if sequence == NextInstallment {
		if !hasNext {
			return nil, l.fail(op, sequence, fmt.Errorf("%w: active loan has no unpaid installments", apperrors.ErrInvalidLoanState))
		}
		target = next
	} else {
		inst, ok := l.Installment(sequence)
		if !ok {
			return nil, l.fail(op, sequence, fmt.Errorf("%w: installment %d does not exist", apperrors.ErrNotFound, sequence))
		}
		target = inst
	}

	if target.Paid {
		return nil, l.fail(op, target.SequenceNumber, apperrors.ErrInstallmentAlreadyPaid)
	}
	if target.SequenceNumber != next.SequenceNumber {
		return nil, l.fail(op, target.SequenceNumber, fmt.Errorf("%w: installment %d is due first",
			apperrors.ErrInstallmentOutOfOrder, next.SequenceNumber))
	}

	previous := l.OutstandingPrincipal
	outstanding := previous.Sub(target.PrincipalPortion)
	if outstanding.IsNegative() {
		return nil, l.fail(op, target.SequenceNumber, fmt.Errorf("%w: outstanding principal would become %s",
			apperrors.ErrInvalidLoanState, outstanding))
	}

	paidAt := now
	target.Paid = true
	target.PaidDate = &paidAt
	l.OutstandingPrincipal = outstanding
	l.UpdatedAt = now

	if outstanding.IsZero() {
		l.Status = StatusPaidOff
	}

	return &Payment{
		Installment:         *target,
		PreviousOutstanding: previous,
		Outstanding:         outstanding,
		PaidOff:             l.Status == StatusPaidOff,
	}, nil
}
