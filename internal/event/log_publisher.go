package event

import (
	"context"
	"loan-engine/internal/infrastructure/monitoring"
	"log/slog"
)

// LogPublisher writes events to the logger. It stands in for RabbitMQ when
// messaging is disabled.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With("component", "LogPublisher")}
}

func (p *LogPublisher) PublishInstallmentPaid(ctx context.Context, event InstallmentPaidEvent) error {
	p.log(ctx, RoutingKeyInstallmentPaid, event.LoanID, slog.Int("sequence", event.InstallmentSequence),
		slog.String("principal", event.PrincipalPortion.StringFixed(2)),
		slog.String("interest", event.InterestPortion.StringFixed(2)))
	return nil
}

func (p *LogPublisher) PublishBalanceChanged(ctx context.Context, event BalanceChangedEvent) error {
	p.log(ctx, RoutingKeyBalanceChanged, event.LoanID,
		slog.String("previous", event.PreviousOutstanding.StringFixed(2)),
		slog.String("new", event.NewOutstanding.StringFixed(2)))
	return nil
}

func (p *LogPublisher) PublishLoanStatusChanged(ctx context.Context, event LoanStatusChangedEvent) error {
	p.log(ctx, RoutingKeyLoanStatusChanged, event.LoanID,
		slog.String("oldStatus", event.OldStatus),
		slog.String("newStatus", event.NewStatus),
		slog.String("reason", event.Reason))
	return nil
}

func (p *LogPublisher) PublishInstallmentOverdue(ctx context.Context, event InstallmentOverdueEvent) error {
	p.log(ctx, RoutingKeyInstallmentOverdue, event.LoanID,
		slog.Int("sequence", event.InstallmentSequence),
		slog.Int("daysOverdue", event.DaysOverdue))
	return nil
}

func (p *LogPublisher) log(ctx context.Context, routingKey string, loanID int64, attrs ...slog.Attr) {
	args := []any{slog.String("routingKey", routingKey), slog.Int64("loanId", loanID)}
	for _, a := range attrs {
		args = append(args, a)
	}
	p.logger.InfoContext(ctx, "Event emitted", args...)
	monitoring.RecordEventPublished(routingKey, "logged")
}
