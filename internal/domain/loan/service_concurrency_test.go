package loan_test

import (
	"context"
	"errors"
	"io"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/event"
	"loan-engine/internal/infrastructure/database/memory"
	"loan-engine/internal/infrastructure/lock"
	"loan-engine/internal/pkg/apperrors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newActiveLoanService(t *testing.T, term int) (loan.LoanService, int64) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	svc := loan.NewLoanService(memory.NewLoanRepository(logger), lock.NewMemoryLocker(), event.NewLogPublisher(logger), logger)

	requested, err := svc.RequestLoan(ctx, loan.LoanRequest{
		ClientID:   3,
		Principal:  decimal.NewFromInt(50000),
		AnnualRate: decimal.RequireFromString("9.75"),
		TermMonths: term,
		StartDate:  time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_, err = svc.ApproveLoan(ctx, requested.ID)
	require.NoError(t, err)
	_, err = svc.DisburseLoan(ctx, requested.ID)
	require.NoError(t, err)

	return svc, requested.ID
}

func TestConcurrentPaymentsOnSameInstallment(t *testing.T) {
	svc, loanID := newActiveLoanService(t, 24)

	const workers = 16
	var successes, alreadyPaid int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.ApplyPayment(context.Background(), loanID, 1)
			switch {
			case err == nil:
				atomic.AddInt32(&successes, 1)
			case errors.Is(err, apperrors.ErrInstallmentAlreadyPaid):
				atomic.AddInt32(&alreadyPaid, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), successes)
	assert.Equal(t, int32(workers-1), alreadyPaid)

	installments, err := svc.GetInstallments(context.Background(), loanID, true)
	require.NoError(t, err)
	assert.Len(t, installments, 23)
}

func TestConcurrentNextPaymentsSettleLoan(t *testing.T) {
	svc, loanID := newActiveLoanService(t, 12)

	var wg sync.WaitGroup
	var successes int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.ApplyPayment(context.Background(), loanID, loan.NextInstallment); err == nil {
				atomic.AddInt32(&successes, 1)
			} else {
				assert.ErrorIs(t, err, apperrors.ErrLoanNotActive)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(12), successes)

	settled, err := svc.GetLoan(context.Background(), loanID)
	require.NoError(t, err)
	assert.Equal(t, loan.StatusPaidOff, settled.Status)
	assert.True(t, settled.OutstandingPrincipal.IsZero())

	_, err = svc.ApplyPayment(context.Background(), loanID, loan.NextInstallment)
	assert.ErrorIs(t, err, apperrors.ErrLoanNotActive)
}
