package loan

import (
	"fmt"
	"loan-engine/internal/pkg/apperrors"
	"time"
)

var transitions = map[Status][]Status{
	StatusRequested: {StatusApproved, StatusCancelled},
	StatusApproved:  {StatusActive, StatusCancelled},
	StatusActive:    {StatusPaidOff, StatusCancelled},
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Approve generates the amortization schedule and moves the loan to APPROVED.
func (l *Loan) Approve(now time.Time) error {
	const op = "approve"
	if err := l.checkTransition(op, StatusApproved); err != nil {
		return err
	}

	schedule, err := GenerateSchedule(l)
	if err != nil {
		return l.fail(op, 0, err)
	}

	l.Installments = schedule
	l.Status = StatusApproved
	l.UpdatedAt = now
	return nil
}

// Disburse activates an approved loan. Only ACTIVE loans accept payments.
func (l *Loan) Disburse(now time.Time) error {
	const op = "disburse"
	if err := l.checkTransition(op, StatusActive); err != nil {
		return err
	}
	if len(l.Installments) != l.TermMonths {
		return l.fail(op, 0, fmt.Errorf("%w: schedule has %d installments, expected %d",
			apperrors.ErrInvalidLoanState, len(l.Installments), l.TermMonths))
	}

	disbursed := now
	l.DisbursementDate = &disbursed
	l.Status = StatusActive
	l.UpdatedAt = now
	return nil
}

func (l *Loan) Cancel(reason string, now time.Time) error {
	const op = "cancel"
	if err := l.checkTransition(op, StatusCancelled); err != nil {
		return err
	}

	l.Status = StatusCancelled
	l.CancellationReason = reason
	l.UpdatedAt = now
	return nil
}

func (l *Loan) checkTransition(op string, next Status) error {
	if !l.Status.CanTransitionTo(next) {
		return l.fail(op, 0, fmt.Errorf("%w: cannot move from %s to %s", apperrors.ErrInvalidLoanState, l.Status, next))
	}
	return nil
}
