package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/yigit/coursehub/internal/pkg/logger"
)

// Routing keys of the published domain events.
const (
	SubmissionCreated = "submission.created"
	SubmissionGraded  = "submission.graded"
	EnrollmentUpdated = "enrollment.updated"
)

// Envelope is the JSON body of every published message.
type Envelope struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}

// Publisher emits domain events after the state change has been committed.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
	Close() error
}

// NoopPublisher discards every event. It is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (NoopPublisher) Close() error                                      { return nil }

// amqpChannel is the subset of *amqp.Channel the publisher uses.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes persistent JSON messages to a durable topic exchange.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
	now      func() time.Time
}

// NewAMQPPublisher dials url and declares exchange.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial failed: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: channel open failed: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // autoDelete
		false,    // internal
		false,    // noWait
		nil,      // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: exchange declare failed: %w", err)
	}

	logger.Info().Str("exchange", exchange).Msg("Event publisher connected")
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange, now: time.Now}, nil
}

// Publish sends payload under routing key eventType.
func (p *AMQPPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	body, err := json.Marshal(Envelope{Type: eventType, OccurredAt: p.now().UTC(), Payload: payload})
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal event failed: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Body:         body,
	}

	// channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(ctx, p.exchange, eventType, false, false, msg); err != nil {
		return fmt.Errorf("rabbitmq: publish failed: %w", err)
	}
	return nil
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Notify publishes without failing the caller: errors are logged only. It
// waits for p, so request paths hand it a Dispatcher.
func Notify(ctx context.Context, p Publisher, eventType string, payload interface{}) {
	if p == nil {
		return
	}
	if err := p.Publish(context.WithoutCancel(ctx), eventType, payload); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("event", eventType).Msg("Failed to publish event")
	}
}

// DefaultPublishTimeout bounds a background publish when none is configured.
const DefaultPublishTimeout = 5 * time.Second

// Dispatcher publishes through an underlying Publisher on a background
// goroutine, so a stalled broker never holds up the caller. Each publish is
// bounded by timeout.
type Dispatcher struct {
	next    Publisher
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher wraps next. A non-positive timeout uses DefaultPublishTimeout.
func NewDispatcher(next Publisher, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &Dispatcher{next: next, timeout: timeout}
}

// Publish schedules the event and returns immediately. Failures are logged
// from the background goroutine; the returned error is always nil.
func (d *Dispatcher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		logger.FromContext(ctx).Warn().Str("event", eventType).Msg("Event dropped, publisher closed")
		return nil
	}
	d.wg.Add(1)
	d.mu.Unlock()

	// keeps the request logger, drops the request deadline
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer d.wg.Done()
		pctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		if err := d.next.Publish(pctx, eventType, payload); err != nil {
			logger.FromContext(ctx).Warn().Err(err).Str("event", eventType).Msg("Failed to publish event")
		}
	}()
	return nil
}

// Wait blocks until every scheduled publish has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close stops accepting events, drains the in-flight ones and closes the
// underlying publisher.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
	return d.next.Close()
}
