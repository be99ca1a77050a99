package event

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return m.Called(name, kind, durable, autoDelete, internal, noWait, args).Error(0)
}

func (m *MockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(ctx, exchange, key, mandatory, immediate, msg).Error(0)
}

func (m *MockChannel) Close() error {
	return m.Called().Error(0)
}

func factoryFor(ch Channel) ChannelFactory {
	return func() (Channel, error) { return ch, nil }
}

func newTestPublisher(t *testing.T, ch *MockChannel) *RabbitMQEventPublisher {
	t.Helper()
	ch.On("ExchangeDeclare", "loan.events", amqp.ExchangeTopic, true, false, false, false, amqp.Table(nil)).Return(nil).Once()
	ch.On("Close").Return(nil)

	p, err := newRabbitMQEventPublisher(factoryFor(ch), "loan.events", logger)
	require.NoError(t, err)
	return p
}

func TestNewRabbitMQEventPublisher(t *testing.T) {
	t.Run("nil connection", func(t *testing.T) {
		_, err := NewRabbitMQEventPublisher(nil, "loan.events", logger)
		assert.Error(t, err)
	})

	t.Run("empty exchange", func(t *testing.T) {
		_, err := newRabbitMQEventPublisher(factoryFor(new(MockChannel)), "", logger)
		assert.Error(t, err)
	})

	t.Run("channel cannot be opened", func(t *testing.T) {
		_, err := newRabbitMQEventPublisher(func() (Channel, error) {
			return nil, errors.New("connection closed")
		}, "loan.events", logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open temporary channel")
	})

	t.Run("exchange declaration fails", func(t *testing.T) {
		ch := new(MockChannel)
		ch.On("ExchangeDeclare", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("access refused"))
		ch.On("Close").Return(nil)

		_, err := newRabbitMQEventPublisher(factoryFor(ch), "loan.events", logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to declare exchange 'loan.events'")
		ch.AssertCalled(t, "Close")
	})
}

func TestPublishInstallmentPaid(t *testing.T) {
	ch := new(MockChannel)
	p := newTestPublisher(t, ch)

	paidAt := time.Date(2026, time.May, 2, 10, 0, 0, 0, time.UTC)
	evt := InstallmentPaidEvent{
		EventID:             "evt-1",
		LoanID:              12,
		LoanNumber:          "PER-2026-000123",
		ClientID:            4,
		InstallmentSequence: 3,
		PrincipalPortion:    decimal.RequireFromString("796.37"),
		InterestPortion:     decimal.RequireFromString("92.12"),
		PaidDate:            paidAt,
		Timestamp:           paidAt,
	}

	var published amqp.Publishing
	ch.On("PublishWithContext", mock.Anything, "loan.events", RoutingKeyInstallmentPaid, false, false, mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(5).(amqp.Publishing) }).
		Return(nil).Once()

	err := p.PublishInstallmentPaid(context.Background(), evt)

	require.NoError(t, err)
	assert.Equal(t, "application/json", published.ContentType)
	assert.Equal(t, amqp.Persistent, published.DeliveryMode)
	assert.Equal(t, publisherAppID, published.AppId)

	var body map[string]any
	require.NoError(t, json.Unmarshal(published.Body, &body))
	assert.Equal(t, "PER-2026-000123", body["loanNumber"])
	assert.Equal(t, float64(3), body["installmentSequence"])
	assert.Equal(t, "796.37", body["principalPortion"])
	ch.AssertExpectations(t)
}

func TestPublishRoutesByEventType(t *testing.T) {
	ch := new(MockChannel)
	p := newTestPublisher(t, ch)
	ctx := context.Background()

	for _, key := range []string{RoutingKeyBalanceChanged, RoutingKeyLoanStatusChanged, RoutingKeyInstallmentOverdue} {
		ch.On("PublishWithContext", mock.Anything, "loan.events", key, false, false, mock.Anything).Return(nil).Once()
	}

	require.NoError(t, p.PublishBalanceChanged(ctx, BalanceChangedEvent{LoanID: 1}))
	require.NoError(t, p.PublishLoanStatusChanged(ctx, LoanStatusChangedEvent{LoanID: 1, OldStatus: "ACTIVE", NewStatus: "PAID_OFF", Reason: ReasonRepaid}))
	require.NoError(t, p.PublishInstallmentOverdue(ctx, InstallmentOverdueEvent{LoanID: 1, DaysOverdue: 5}))
	ch.AssertExpectations(t)
}

func TestPublishFailures(t *testing.T) {
	t.Run("broker rejects message", func(t *testing.T) {
		ch := new(MockChannel)
		p := newTestPublisher(t, ch)
		ch.On("PublishWithContext", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("channel closed"))

		err := p.PublishBalanceChanged(context.Background(), BalanceChangedEvent{LoanID: 9})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to publish message")
	})

	t.Run("channel cannot be opened", func(t *testing.T) {
		ch := new(MockChannel)
		p := newTestPublisher(t, ch)
		p.openChannel = func() (Channel, error) { return nil, errors.New("connection closed") }

		err := p.PublishLoanStatusChanged(context.Background(), LoanStatusChangedEvent{LoanID: 9})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open channel")
	})
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher(logger)
	ctx := context.Background()

	assert.NoError(t, p.PublishInstallmentPaid(ctx, InstallmentPaidEvent{LoanID: 1}))
	assert.NoError(t, p.PublishBalanceChanged(ctx, BalanceChangedEvent{LoanID: 1}))
	assert.NoError(t, p.PublishLoanStatusChanged(ctx, LoanStatusChangedEvent{LoanID: 1}))
	assert.NoError(t, p.PublishInstallmentOverdue(ctx, InstallmentOverdueEvent{LoanID: 1}))
}

func TestNewEventID(t *testing.T) {
	a, b := NewEventID(), NewEventID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
