// Package events publishes transaction lifecycle events to Kafka, or to the
// log when no broker is configured.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/kevin07696/paygo-service/internal/domain/ports"
	"github.com/kevin07696/paygo-service/pkg/resilience"
	"github.com/segmentio/kafka-go"
)

const defaultAttempts = 3

// Config holds the broker list and topic
type Config struct {
	Brokers  []string
	Topic    string
	Attempts int
}

// messageWriter is the subset of *kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher implements ports.EventPublisher. Each event is keyed by
// transaction id so one payment's events stay ordered on a partition.
type Publisher struct {
	writer   messageWriter
	logger   ports.Logger
	timeouts *resilience.TimeoutConfig
	backoff  resilience.BackoffStrategy
	attempts int
}

var _ ports.EventPublisher = (*Publisher)(nil)

// NewPublisher creates a publisher writing to cfg.Topic
func NewPublisher(cfg Config, logger ports.Logger, timeouts *resilience.TimeoutConfig) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	return newPublisher(writer, cfg.Attempts, logger, timeouts)
}

func newPublisher(w messageWriter, attempts int, logger ports.Logger, timeouts *resilience.TimeoutConfig) *Publisher {
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	if timeouts == nil {
		timeouts = resilience.DefaultTimeoutConfig()
	}
	return &Publisher{
		writer:   w,
		logger:   logger,
		timeouts: timeouts,
		backoff:  resilience.PublishBackoff(),
		attempts: attempts,
	}
}

// Publish writes the event, retrying transient broker errors with backoff
func (p *Publisher) Publish(ctx context.Context, event domain.TransactionEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.TransactionID),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}

	err = resilience.Retry(ctx, p.attempts, p.backoff, func(ctx context.Context) error {
		pctx, cancel := p.timeouts.PublishContext(ctx)
		defer cancel()
		return p.writer.WriteMessages(pctx, msg)
	})
	if err != nil {
		p.logger.Error("Failed to publish transaction event",
			ports.String("event_type", string(event.Type)),
			ports.String("transaction_id", event.TransactionID),
			ports.Err(err),
		)
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	p.logger.Debug("Transaction event published",
		ports.String("event_type", string(event.Type)),
		ports.String("transaction_id", event.TransactionID),
	)
	return nil
}

// Close flushes pending writes and closes broker connections
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// LogPublisher writes events to the log when no broker is configured
type LogPublisher struct {
	logger ports.Logger
}

var _ ports.EventPublisher = (*LogPublisher)(nil)

// NewLogPublisher creates a log-only publisher
func NewLogPublisher(logger ports.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event
func (p *LogPublisher) Publish(ctx context.Context, event domain.TransactionEvent) error {
	p.logger.Info("Transaction event",
		ports.String("event_type", string(event.Type)),
		ports.String("transaction_id", event.TransactionID),
		ports.String("terminal_id", event.TerminalID),
		ports.String("status", string(event.Status)),
		ports.Amount("amount", event.Amount),
	)
	return nil
}
