// Package amqp moves push notifications between the backend and clients
// over RabbitMQ. Messages are published on a topic exchange with a per-user
// routing key. Each consumer reads from its own exclusive queue bound to the
// keys it wants, so acknowledging a message never takes it from another
// consumer. Publishing goes through a circuit breaker; consuming reconnects
// with exponential backoff.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	applog "gestorebinder/internal/log"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

// ErrCircuitOpen is returned while publishing is suspended.
var ErrCircuitOpen = errors.New("amqp: circuit breaker is open")

// Handler processes one push message. A returned error requeues the message
// once; a second failure drops it.
type Handler func(context.Context, *PushMessage) error

type Client struct {
	url          string
	exchangeName string
	topic        string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	failureCount int64
	state        int32
	lastFailure  time.Time

	logger *applog.Logger
}

// NewClient dials url and declares the exchange. topic prefixes every
// routing key.
func NewClient(url, exchangeName, topic string, logger *applog.Logger) (*Client, error) {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		topic:        topic,
		logger:       logger,
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) log() *applog.Logger {
	if c.logger == nil {
		return applog.Discard()
	}
	return c.logger.WithComponent(applog.ComponentAMQP)
}

func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := declareExchange(channel, c.exchangeName); err != nil {
		channel.Close()
		conn.Close()
		return err
	}
	c.conn, c.channel = conn, channel
	return nil
}

func declareExchange(ch *amqp091.Channel, exchange string) error {
	err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	return nil
}

// routingKey is the key messages for userID are published with.
func routingKey(topic string, userID int64) string {
	return fmt.Sprintf("%s.%d", topic, userID)
}

// bindingKey is the pattern a consumer for userID binds with. Zero matches
// every user.
func bindingKey(topic string, userID int64) string {
	if userID == 0 {
		return topic + ".*"
	}
	return routingKey(topic, userID)
}

func (c *Client) currentChannel() *amqp091.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel == nil || c.channel.IsClosed() {
		return nil
	}
	return c.channel
}

func (c *Client) dropConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Publish sends a push message. It fails fast with ErrCircuitOpen after
// repeated failures until openTimeout has passed.
func (c *Client) Publish(ctx context.Context, msg *PushMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return ErrCircuitOpen
	}

	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch := c.currentChannel()
	if ch == nil {
		if err := c.connect(); err != nil {
			c.recordFailure()
			return err
		}
		ch = c.currentChannel()
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	key := routingKey(c.topic, msg.UserID)
	err = ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		key,            // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    msg.ID,
			Timestamp:    msg.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.dropConnection()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	c.log().DebugContext(ctx, "Published push message",
		"message_id", msg.ID,
		applog.FieldUserID, msg.UserID,
		"event", msg.Event,
		"exchange", c.exchangeName,
		"routing_key", key)
	return nil
}

// Consume delivers the push messages for userID (every user when zero) to
// handler until ctx is done, reconnecting with exponential backoff when the
// connection drops.
func (c *Client) Consume(ctx context.Context, userID int64, handler Handler) error {
	attempt := 0
	for {
		err := c.consumeOnce(ctx, userID, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil || !isConnectionError(err) {
			return err
		}

		wait := exponentialBackoff(attempt)
		attempt++
		c.log().Warn("Consumer disconnected, retrying", applog.FieldError, err, "retry_in", wait.String())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		c.dropConnection()
		if err := c.connect(); err != nil {
			c.log().Warn("Reconnect failed", applog.FieldError, err)
			continue
		}
		attempt = 0
	}
}

// consumeOnce declares a private queue, binds it for userID and drains it
// until the channel closes or ctx is done.
func (c *Client) consumeOnce(ctx context.Context, userID int64, handler Handler) error {
	ch := c.currentChannel()
	if ch == nil {
		return errors.New("connection closed")
	}
	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	key := bindingKey(c.topic, userID)
	if err := ch.QueueBind(q.Name, key, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	msgs, err := ch.Consume(
		q.Name, // queue
		"",     // consumer
		false,  // auto-ack
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	c.log().InfoContext(ctx, "Started consuming push messages", "queue", q.Name, "binding", key)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			c.handleDelivery(ctx, delivery, userID, handler)
		}
	}
}

// handleDelivery settles one delivery. Undecodable messages and messages for
// another user are rejected; a handler failure requeues the message unless it
// was already redelivered.
func (c *Client) handleDelivery(ctx context.Context, d amqp091.Delivery, userID int64, handler Handler) {
	msg, err := PushMessageFromJSON(d.Body)
	if err != nil {
		c.log().ErrorContext(ctx, "Failed to unmarshal message", applog.FieldError, err)
		_ = d.Reject(false)
		return
	}
	if userID != 0 && msg.UserID != userID {
		c.log().DebugContext(ctx, "Rejected message for another user", "message_id", msg.ID, applog.FieldUserID, msg.UserID)
		_ = d.Reject(false)
		return
	}
	if err := handler(ctx, msg); err != nil {
		requeue := !d.Redelivered
		c.log().ErrorContext(ctx, "Failed to handle message",
			applog.FieldError, err, "message_id", msg.ID, "requeue", requeue)
		_ = d.Nack(false, requeue)
		return
	}
	_ = d.Ack(false)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) isCircuitOpen() bool {
	switch atomic.LoadInt32(&c.state) {
	case StateOpen:
		c.mu.Lock()
		last := c.lastFailure
		c.mu.Unlock()
		if time.Since(last) > openTimeout {
			atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
			return false
		}
		return true
	default:
		return false
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if n := atomic.AddInt64(&c.failureCount, 1); n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// exponentialBackoff returns 1s, 2s, 4s, ... capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection", "eof", "broken pipe", "closed network", "channel closed"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
