package mq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher forwards classified stream points to downstream consumers
// (alerting, dashboards, archival).
type Publisher struct {
	conn     *Connection
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewPublisher creates a publisher bound to a durable topic exchange.
func NewPublisher(conn *Connection, exchange string, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// ClassifiedEvent is the event published for every classified stream point.
type ClassifiedEvent struct {
	RunID            string  `json:"run_id"`
	ReadingTimestamp string  `json:"reading_timestamp"`
	Value            float64 `json:"value"`
	IsAnomaly        bool    `json:"is_anomaly"`
	Score            float64 `json:"score"`
	WindowMean       float64 `json:"window_mean"`
	WindowStdDev     float64 `json:"window_std_dev"`
}

// PublishClassifiedEvent publishes one classified reading.
func (p *Publisher) PublishClassifiedEvent(ctx context.Context, event ClassifiedEvent, routingKey string) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)

	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("published classified event",
		zap.String("routing_key", routingKey),
		zap.String("reading_timestamp", event.ReadingTimestamp),
		zap.Bool("is_anomaly", event.IsAnomaly),
	)

	return nil
}

// Close closes the publisher channel.
func (p *Publisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
