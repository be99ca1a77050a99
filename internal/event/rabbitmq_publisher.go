package event

import (
	"context"
	"encoding/json"
	"fmt"
	"loan-engine/internal/infrastructure/monitoring"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publisherAppID = "loan-engine"

type EventPublisher interface {
	PublishInstallmentPaid(ctx context.Context, event InstallmentPaidEvent) error
	PublishBalanceChanged(ctx context.Context, event BalanceChangedEvent) error
	PublishLoanStatusChanged(ctx context.Context, event LoanStatusChangedEvent) error
	PublishInstallmentOverdue(ctx context.Context, event InstallmentOverdueEvent) error
}

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type ChannelFactory func() (Channel, error)

type RabbitMQEventPublisher struct {
	openChannel  ChannelFactory
	exchangeName string
	logger       *slog.Logger
}

func NewRabbitMQEventPublisher(conn *amqp.Connection, exchangeName string, logger *slog.Logger) (EventPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("RabbitMQ connection cannot be nil")
	}
	return newRabbitMQEventPublisher(func() (Channel, error) {
		ch, err := conn.Channel()
		if err != nil {
			return nil, err
		}
		return ch, nil
	}, exchangeName, logger)
}

func newRabbitMQEventPublisher(openChannel ChannelFactory, exchangeName string, logger *slog.Logger) (*RabbitMQEventPublisher, error) {
	if exchangeName == "" {
		return nil, fmt.Errorf("RabbitMQ exchange name cannot be empty")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	tempCh, err := openChannel()
	if err != nil {
		return nil, fmt.Errorf("failed to open temporary channel for exchange declaration: %w", err)
	}
	defer tempCh.Close()

	err = tempCh.ExchangeDeclare(
		exchangeName,
		amqp.ExchangeTopic,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", exchangeName, err)
	}
	logger.Info("Ensured RabbitMQ exchange exists", "exchange", exchangeName, "type", amqp.ExchangeTopic)

	return &RabbitMQEventPublisher{
		openChannel:  openChannel,
		exchangeName: exchangeName,
		logger:       logger.With("component", "RabbitMQEventPublisher", "exchange", exchangeName),
	}, nil
}

func (p *RabbitMQEventPublisher) PublishInstallmentPaid(ctx context.Context, event InstallmentPaidEvent) error {
	return p.publish(ctx, RoutingKeyInstallmentPaid, event.LoanID, event)
}

func (p *RabbitMQEventPublisher) PublishBalanceChanged(ctx context.Context, event BalanceChangedEvent) error {
	return p.publish(ctx, RoutingKeyBalanceChanged, event.LoanID, event)
}

func (p *RabbitMQEventPublisher) PublishLoanStatusChanged(ctx context.Context, event LoanStatusChangedEvent) error {
	return p.publish(ctx, RoutingKeyLoanStatusChanged, event.LoanID, event)
}

func (p *RabbitMQEventPublisher) PublishInstallmentOverdue(ctx context.Context, event InstallmentOverdueEvent) error {
	return p.publish(ctx, RoutingKeyInstallmentOverdue, event.LoanID, event)
}

func (p *RabbitMQEventPublisher) publish(ctx context.Context, routingKey string, loanID int64, payload any) (err error) {
	logCtx := p.logger.With(slog.String("routingKey", routingKey), slog.Int64("loanId", loanID))

	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
		}
		monitoring.RecordEventPublished(routingKey, status)
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to marshal event payload to JSON", slog.Any("error", err))
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channel, err := p.openChannel()
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to open RabbitMQ channel", slog.Any("error", err))
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer channel.Close()

	logCtx.DebugContext(ctx, "Publishing message", "bodySize", len(body))

	err = channel.PublishWithContext(
		ctx,
		p.exchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
			AppId:        publisherAppID,
		},
	)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to publish message to RabbitMQ", slog.Any("error", err))
		return fmt.Errorf("failed to publish message: %w", err)
	}

	logCtx.InfoContext(ctx, "Successfully published message")
	return nil
}
