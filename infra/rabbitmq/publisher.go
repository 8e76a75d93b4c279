package rabbitmq

import (
	"comments/pkg/events"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	dialAttempts   = 5
	dialBackoff    = time.Second
	publishTimeout = 5 * time.Second
)

var (
	ErrNotAcknowledged = errors.New("message was not acknowledged by broker")
	ErrPublisherClosed = errors.New("publisher is closed")
)

// connection is the part of *amqp.Connection the publisher relies on.
type connection interface {
	Channel() (*amqp.Channel, error)
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	IsClosed() bool
	Close() error
}

type dialFunc func(url string) (connection, error)

// Publisher implements events.Publisher on a topic exchange. A connection
// dropped by the broker is redialled in the background.
type Publisher struct {
	url     string
	service string
	dial    dialFunc
	backoff time.Duration

	mu       sync.Mutex
	conn     connection
	declared map[string]struct{}
	closed   bool
	done     chan struct{}
}

var _ events.Publisher = (*Publisher)(nil)

func NewPublisher(url, service string) (*Publisher, error) {
	dial := func(url string) (connection, error) {
		return amqp.Dial(url)
	}
	return newPublisher(url, service, dial, dialBackoff)
}

func newPublisher(url, service string, dial dialFunc, backoff time.Duration) (*Publisher, error) {
	p := &Publisher{
		url:      url,
		service:  service,
		dial:     dial,
		backoff:  backoff,
		declared: make(map[string]struct{}),
		done:     make(chan struct{}),
	}

	conn, err := p.dialWithRetry()
	if err != nil {
		return nil, err
	}

	p.conn = conn
	go p.watch(conn)

	zap.L().Info("RabbitMQ publisher connected", zap.String("service", service))
	return p, nil
}

func (p *Publisher) dialWithRetry() (connection, error) {
	var err error
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		var conn connection
		conn, err = p.dial(p.url)
		if err == nil {
			return conn, nil
		}
		zap.L().Warn("Failed to connect to RabbitMQ, retrying...",
			zap.Int("attempt", attempt),
			zap.Error(err))

		select {
		case <-p.done:
			return nil, ErrPublisherClosed
		case <-time.After(p.backoff * time.Duration(attempt)):
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after retries: %w", err)
}

// watch waits for conn to drop and swaps in a fresh connection.
func (p *Publisher) watch(conn connection) {
	closeCh := conn.NotifyClose(make(chan *amqp.Error, 1))

	select {
	case <-p.done:
		return
	case amqpErr := <-closeCh:
		if amqpErr != nil {
			zap.L().Warn("RabbitMQ connection lost, reconnecting", zap.String("reason", amqpErr.Reason))
		}
	}

	for {
		select {
		case <-p.done:
			return
		default:
		}

		next, err := p.dialWithRetry()
		if errors.Is(err, ErrPublisherClosed) {
			return
		}
		if err != nil {
			zap.L().Error("RabbitMQ reconnect failed", zap.Error(err))
			continue
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			_ = next.Close()
			return
		}
		p.conn = next
		p.declared = make(map[string]struct{})
		p.mu.Unlock()

		zap.L().Info("RabbitMQ publisher reconnected")
		go p.watch(next)
		return
	}
}

func (p *Publisher) current() (connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPublisherClosed
	}
	return p.conn, nil
}

func (p *Publisher) declareExchange(ch *amqp.Channel, exchange string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.declared[exchange]; ok {
		return nil
	}

	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		return err
	}

	p.declared[exchange] = struct{}{}
	return nil
}

// Publish sends the event and waits for the broker confirm.
func (p *Publisher) Publish(ctx context.Context, exchange string, event *events.Event, headers events.Headers) error {
	msg, err := newPublishing(event, headers, p.service)
	if err != nil {
		return err
	}

	conn, err := p.current()
	if err != nil {
		return err
	}

	// One channel per publish keeps confirms from different requests apart.
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open publish channel: %w", err)
	}
	defer ch.Close()

	if err := p.declareExchange(ch, exchange); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("failed to enable confirms: %w", err)
	}
	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	routingKey := event.RoutingKey()
	if err := ch.PublishWithContext(publishCtx, exchange, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	select {
	case confirm := <-confirms:
		if !confirm.Ack {
			return ErrNotAcknowledged
		}
	case <-publishCtx.Done():
		return fmt.Errorf("publish confirmation: %w", publishCtx.Err())
	}

	zap.L().Info("Event published",
		zap.String("exchange", exchange),
		zap.String("routingKey", routingKey),
		zap.String("eventId", event.ID),
		zap.String("traceId", headers.TraceID),
	)

	return nil
}

func newPublishing(event *events.Event, headers events.Headers, service string) (amqp.Publishing, error) {
	body, err := event.Body()
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to serialize event: %w", err)
	}

	if headers.Service != "" {
		service = headers.Service
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    event.ID,
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Headers: amqp.Table{
			"x-trace-id":       headers.TraceID,
			"x-correlation-id": headers.CorrelationID,
			"x-service":        service,
		},
	}, nil
}

// IsHealthy reports whether the publisher holds an open connection.
func (p *Publisher) IsHealthy() bool {
	if p == nil {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed && p.conn != nil && !p.conn.IsClosed()
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.done)
	conn := p.conn
	p.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil {
		zap.L().Error("Failed to close RabbitMQ connection", zap.Error(err))
		return err
	}
	zap.L().Info("RabbitMQ publisher closed")
	return nil
}
