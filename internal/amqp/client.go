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

	"expensetracker/internal/log"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

var (
	ErrCircuitOpen   = errors.New("circuit breaker is open")
	errChannelClosed = errors.New("message channel closed")
)

// Publisher is what services need to announce events. A nil Publisher is
// allowed wherever one is accepted.
type Publisher interface {
	PublishGoalOutcome(ctx context.Context, msg GoalOutcomeMessage) error
	PublishDealVote(ctx context.Context, msg DealVoteMessage) error
}

// Handlers receive decoded events. A nil handler rejects its event type.
type Handlers struct {
	GoalOutcome func(ctx context.Context, env *Envelope, msg GoalOutcomeMessage) error
	DealVote    func(ctx context.Context, env *Envelope, msg DealVoteMessage) error
}

type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       *log.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  time.Time
}

var _ Publisher = (*Client)(nil)

func NewClient(url, exchangeName, queueName string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Discard()
	}
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger.WithComponent(log.ComponentAMQP),
	}

	if _, err := client.ensureChannel(); err != nil {
		return nil, err
	}
	return client, nil
}

// ensureChannel returns the open channel, dialing again if the connection dropped.
func (c *Client) ensureChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil && !c.channel.IsClosed() && c.conn != nil && !c.conn.IsClosed() {
		return c.channel, nil
	}
	c.closeLocked()

	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.conn = conn
	c.channel = channel
	return channel, nil
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name.
	if err := ch.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// PublishGoalOutcome announces a finished goal.
func (c *Client) PublishGoalOutcome(ctx context.Context, msg GoalOutcomeMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.publish(ctx, EventGoalOutcome, msg)
}

// PublishDealVote announces an applied vote.
func (c *Client) PublishDealVote(ctx context.Context, msg DealVoteMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.publish(ctx, EventDealVote, msg)
}

func (c *Client) publish(ctx context.Context, eventType EventType, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("publish %s: %w", eventType, ErrCircuitOpen)
	}

	env, err := NewEnvelope(eventType, payload)
	if err != nil {
		return err
	}
	body, err := env.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch, err := c.ensureChannel()
	if err != nil {
		c.recordFailure()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    env.ID,
			Type:         string(env.Type),
			Timestamp:    env.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.resetConnection()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	c.logger.DebugContext(ctx, "Published event",
		log.FieldOperation, log.OpPublish,
		log.FieldEventType, env.Type,
		log.FieldMessageID, env.ID,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// Consume delivers events to handlers until ctx ends. Lost connections are
// re-established with exponential backoff; the backoff starts over once a
// reconnect gets as far as consuming again.
func (c *Client) Consume(ctx context.Context, handlers Handlers) error {
	return c.consumeLoop(ctx, func(ctx context.Context, started func()) error {
		return c.consumeOnce(ctx, handlers, started)
	}, exponentialBackoff)
}

func (c *Client) consumeLoop(ctx context.Context, run func(context.Context, func()) error, backoff func(int) time.Duration) error {
	attempt := 0
	for {
		err := run(ctx, func() { attempt = 0 })
		if ctx.Err() != nil {
			c.logger.InfoContext(ctx, "Stopping message consumption",
				log.FieldOperation, log.OpShutdown,
				"reason", ctx.Err())
			return ctx.Err()
		}
		if !errors.Is(err, errChannelClosed) && !isConnectionError(err) {
			return err
		}

		wait := backoff(attempt)
		attempt++
		c.logger.WarnContext(ctx, "Consumer lost connection, retrying",
			log.FieldError, err,
			log.FieldAttempt, attempt,
			"wait", wait)
		c.resetConnection()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, handlers Handlers, started func()) error {
	ch, err := c.ensureChannel()
	if err != nil {
		return err
	}

	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	started()
	c.logger.InfoContext(ctx, "Started consuming events",
		log.FieldOperation, log.OpConsume,
		"queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errChannelClosed
			}
			switch dispatch(ctx, c.logger, handlers, delivery.Body) {
			case outcomeAck:
				delivery.Ack(false)
			case outcomeRequeue:
				delivery.Nack(false, true)
			default:
				delivery.Nack(false, false)
			}
		}
	}
}

type outcome int

const (
	outcomeAck outcome = iota
	outcomeReject
	outcomeRequeue
)

// dispatch decodes body and runs the matching handler. Malformed or unknown
// events are rejected; handler errors requeue.
func dispatch(ctx context.Context, logger *log.Logger, handlers Handlers, body []byte) outcome {
	env, err := EnvelopeFromJSON(body)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to unmarshal message", log.FieldError, err)
		return outcomeReject
	}
	logger = logger.With(log.FieldEventType, env.Type, log.FieldMessageID, env.ID)

	var handle func() error
	switch env.Type {
	case EventGoalOutcome:
		msg, err := decodeValid[GoalOutcomeMessage](env)
		if err != nil {
			logger.ErrorContext(ctx, "Rejecting goal outcome", log.FieldError, err)
			return outcomeReject
		}
		if handlers.GoalOutcome != nil {
			handle = func() error { return handlers.GoalOutcome(ctx, env, msg) }
		}
	case EventDealVote:
		msg, err := decodeValid[DealVoteMessage](env)
		if err != nil {
			logger.ErrorContext(ctx, "Rejecting deal vote", log.FieldError, err)
			return outcomeReject
		}
		if handlers.DealVote != nil {
			handle = func() error { return handlers.DealVote(ctx, env, msg) }
		}
	}
	if handle == nil {
		logger.ErrorContext(ctx, "No handler for event type")
		return outcomeReject
	}

	if err := handle(); err != nil {
		logger.ErrorContext(ctx, "Failed to handle message", log.FieldError, err)
		return outcomeRequeue
	}
	logger.DebugContext(ctx, "Processed event")
	return outcomeAck
}

type validator interface {
	Validate() error
}

func decodeValid[T validator](env *Envelope) (T, error) {
	var v T
	if err := env.Decode(&v); err != nil {
		return v, err
	}
	return v, v.Validate()
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()

	failures := atomic.AddInt64(&c.failureCount, 1)
	if failures >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		if atomic.SwapInt32(&c.state, StateOpen) != StateOpen && c.logger != nil {
			c.logger.Warn("Circuit breaker opened", "failures", failures)
		}
	}
}

func (c *Client) resetConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func exponentialBackoff(attempt int) time.Duration {
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
	for _, s := range []string{"connection", "eof", "broken pipe", "closed"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
