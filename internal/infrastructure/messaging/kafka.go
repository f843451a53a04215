package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/pkg/circuitbreaker"
	"github.com/fitcrew/trainer-hub/pkg/logger"
	"github.com/fitcrew/trainer-hub/pkg/retry"
)

// KafkaConfig configures KafkaPublisher.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher forwards domain events to a topic as JSON envelopes keyed
// by member id, so one member's events stay ordered within a partition.
type KafkaPublisher struct {
	writer  MessageWriter
	timeout time.Duration
	retrier *retry.Retrier
	breaker *circuitbreaker.Breaker
	log     *logger.Logger
}

// NewKafkaPublisher builds a publisher over a kafka.Writer.
func NewKafkaPublisher(cfg KafkaConfig, log *logger.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka: topic is required")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              10,
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return NewKafkaPublisherWithWriter(writer, cfg.WriteTimeout, log), nil
}

// NewKafkaPublisherWithWriter wraps an existing writer.
func NewKafkaPublisherWithWriter(w MessageWriter, timeout time.Duration, log *logger.Logger) *KafkaPublisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	log = logger.OrNop(log).Named("kafka")
	return &KafkaPublisher{
		writer:  w,
		timeout: timeout,
		retrier: retry.PublishRetrier(),
		breaker: circuitbreaker.KafkaBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit state changed", "breaker", name, "from", from.String(), "to", to.String())
		}),
		log: log,
	}
}

// Publish writes one event. It has the shared.EventHandler shape so it can
// be subscribed to the in-memory bus with SubscribeAll.
func (p *KafkaPublisher) Publish(event shared.Event) error {
	msg, err := MessageOf(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	// Events dropped while the circuit is open are still in the audit log.
	err = p.breaker.Execute(ctx, func(ctx context.Context) error {
		return p.retrier.Do(ctx, func(ctx context.Context) error {
			return p.writer.WriteMessages(ctx, msg)
		})
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.EventType(), err)
	}
	p.log.Debug("event published", "event_type", event.EventType(), logger.MemberID(event.AggregateID()))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// MessageOf encodes an event as a Kafka message.
func MessageOf(event shared.Event) (kafka.Message, error) {
	env, err := shared.ToEnvelope(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode event: %w", err)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.AggregateID()),
		Value: data,
		Time:  event.OccurredAt(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType())},
		},
	}, nil
}
