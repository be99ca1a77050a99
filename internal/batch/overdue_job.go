package batch

import (
	"context"
	"errors"
	"fmt"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/event"
	"loan-engine/internal/pkg/apperrors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 16

type OverdueReminderJob struct {
	loanRepo    loan.Repository
	loanService loan.LoanService
	publisher   event.EventPublisher
	logger      *slog.Logger
	concurrency int
	now         func() time.Time
}

func NewOverdueReminderJob(
	loanRepo loan.Repository,
	loanSvc loan.LoanService,
	publisher event.EventPublisher,
	logger *slog.Logger,
) *OverdueReminderJob {
	if loanRepo == nil || loanSvc == nil || publisher == nil || logger == nil {
		panic("OverdueReminderJob dependencies cannot be nil")
	}
	return &OverdueReminderJob{
		loanRepo:    loanRepo,
		loanService: loanSvc,
		publisher:   publisher,
		logger:      logger.With("job", "OverdueReminder"),
		concurrency: defaultConcurrency,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Run publishes one reminder per unpaid installment past its due date on every
// ACTIVE loan, then refreshes the outstanding portfolio gauge.
func (j *OverdueReminderJob) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.InfoContext(ctx, "Starting overdue installment reminder job.")

	activeLoanIDs, err := j.loanRepo.ListActiveIDs(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to get active loan IDs, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to get active loans: %w", err)
	}
	j.logger.InfoContext(ctx, "Fetched active loan IDs.", slog.Int("count", len(activeLoanIDs)))

	var processedCount, overdueLoans, remindersSent, errorCount atomic.Int32
	now := j.now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)

	for _, loanID := range activeLoanIDs {
		loanID := loanID
		g.Go(func() error {
			logCtx := j.logger.With(slog.Int64("loanID", loanID))

			l, loadErr := j.loanRepo.Load(gctx, loanID)
			if loadErr != nil {
				if errors.Is(loadErr, apperrors.ErrNotFound) {
					logCtx.WarnContext(gctx, "Loan disappeared before the overdue check", slog.Any("error", loadErr))
				} else {
					logCtx.ErrorContext(gctx, "Failed to load loan", slog.Any("error", loadErr))
					errorCount.Add(1)
				}
				return nil
			}
			if l.Status != loan.StatusActive {
				logCtx.DebugContext(gctx, "Loan no longer active, skipping.", slog.String("status", string(l.Status)))
				return nil
			}

			overdue := l.OverdueInstallments(now)
			if len(overdue) > 0 {
				overdueLoans.Add(1)
			}
			for _, inst := range overdue {
				if pubErr := j.publisher.PublishInstallmentOverdue(gctx, overdueEvent(l, inst, now)); pubErr != nil {
					logCtx.ErrorContext(gctx, "Failed to publish overdue reminder",
						slog.Int("sequence", inst.SequenceNumber), slog.Any("error", pubErr))
					errorCount.Add(1)
					continue
				}
				remindersSent.Add(1)
			}
			processedCount.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	total, sumErr := j.loanService.TotalOutstanding(ctx)
	if sumErr != nil {
		j.logger.ErrorContext(ctx, "Failed to refresh outstanding portfolio", slog.Any("error", sumErr))
		errorCount.Add(1)
	}

	summaryLog := j.logger.With(
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("total_active_loans", len(activeLoanIDs)),
		slog.Int("loans_processed", int(processedCount.Load())),
		slog.Int("loans_with_overdue_installments", int(overdueLoans.Load())),
		slog.Int("reminders_sent", int(remindersSent.Load())),
		slog.String("outstanding_portfolio", total.StringFixed(loan.CurrencyScale)),
		slog.Int("errors_encountered", int(errorCount.Load())),
	)

	if n := errorCount.Load(); n > 0 {
		summaryLog.WarnContext(ctx, "Overdue installment reminder job finished with errors.")
		return fmt.Errorf("job completed with %d errors", n)
	}
	summaryLog.InfoContext(ctx, "Overdue installment reminder job finished successfully.")
	return nil
}

func overdueEvent(l *loan.Loan, inst loan.Installment, now time.Time) event.InstallmentOverdueEvent {
	return event.InstallmentOverdueEvent{
		EventID:             event.NewEventID(),
		LoanID:              l.ID,
		LoanNumber:          l.Number,
		ClientID:            l.ClientID,
		InstallmentSequence: inst.SequenceNumber,
		DueDate:             inst.DueDate,
		AmountDue:           inst.Amount(),
		DaysOverdue:         int(now.Sub(inst.DueDate).Hours() / 24),
		Timestamp:           now,
	}
}
