package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler обрабатывает одно сообщение.
//
// nil подтверждает сообщение. Ошибка, помеченная Permanent, отправляет его
// в DLQ. Прочие ошибки возвращают сообщение в очередь один раз, повторная
// неудача тоже уходит в DLQ.
type Handler func(ctx context.Context, msg *Delivery) error

// Delivery — разобранное сообщение вместе с исходной доставкой.
type Delivery struct {
	Message Message
	Raw     amqp.Delivery
}

// settlement — чем закончилась обработка доставки.
type settlement int

const (
	settleAck settlement = iota
	settleRequeue
	settleDeadLetter
)

func (s settlement) String() string {
	switch s {
	case settleAck:
		return "ack"
	case settleRequeue:
		return "requeue"
	default:
		return "dead-letter"
	}
}

// settle выбирает исход по ошибке обработчика и флагу redelivered.
func settle(err error, redelivered bool) settlement {
	switch {
	case err == nil:
		return settleAck
	case IsPermanent(err), redelivered:
		return settleDeadLetter
	default:
		return settleRequeue
	}
}

func (s settlement) apply(raw amqp.Delivery) error {
	switch s {
	case settleAck:
		return raw.Ack(false)
	case settleRequeue:
		return raw.Nack(false, true)
	default:
		return raw.Nack(false, false)
	}
}

// ConsumerConfig — параметры Consumer.
type ConsumerConfig struct {
	Queue   string
	Handler Handler

	// Prefetch — сколько сообщений брокер выдаёт без подтверждения.
	// Столько же обрабатывается параллельно. По умолчанию 1.
	Prefetch int
}

// Consumer читает очередь и передаёт сообщения Handler.
type Consumer struct {
	conn   *Connection
	logger *slog.Logger
	cfg    ConsumerConfig
}

// NewConsumer создаёт Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}

	return &Consumer{
		conn:   conn,
		logger: logger.With("queue", cfg.Queue),
		cfg:    cfg,
	}
}

// Run читает очередь до отмены ctx, переподписываясь после разрыва
// соединения. Перед возвратом дожидается обработчиков в работе.
func (c *Consumer) Run(ctx context.Context) error {
	var inflight sync.WaitGroup
	defer inflight.Wait()

	sem := make(chan struct{}, c.cfg.Prefetch)

	for {
		if err := c.conn.WaitReady(ctx); err != nil {
			return err
		}

		deliveries, err := c.subscribe(ctx)
		if err != nil {
			c.logger.Error("subscribe failed", "error", err)
			if err := pause(ctx, minReconnectDelay); err != nil {
				return err
			}
			continue
		}

		c.logger.Info("consumer started", "prefetch", c.cfg.Prefetch)

		for raw := range deliveries {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				_ = raw.Nack(false, true)
				return ctx.Err()
			}

			inflight.Add(1)
			go func() {
				defer func() { <-sem; inflight.Done() }()
				c.deliver(ctx, raw)
			}()
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		c.logger.Warn("delivery channel closed, resubscribing")
	}
}

// pause ждёт перед повторной подпиской.
func pause(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (c *Consumer) subscribe(ctx context.Context) (<-chan amqp.Delivery, error) {
	var deliveries <-chan amqp.Delivery

	err := c.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
			return fmt.Errorf("set qos: %w", err)
		}

		// Тег генерирует брокер, ack ручной.
		d, err := ch.ConsumeWithContext(ctx, c.cfg.Queue, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("consume %s: %w", c.cfg.Queue, err)
		}
		deliveries = d
		return nil
	})
	return deliveries, err
}

// deliver разбирает сообщение, вызывает Handler и подтверждает доставку.
func (c *Consumer) deliver(ctx context.Context, raw amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("malformed message", "error", err, "body", string(raw.Body))
		_ = settleDeadLetter.apply(raw)
		return
	}

	logger := c.logger.With("message_id", msg.ID, "type", msg.Type)
	logger.Debug("received message", "redelivered", raw.Redelivered)

	err := c.cfg.Handler(ctx, &Delivery{Message: msg, Raw: raw})
	outcome := settle(err, raw.Redelivered)

	if outcome != settleAck {
		logger.Error("handler failed", "outcome", outcome.String(), "error", err)
	}
	if ackErr := outcome.apply(raw); ackErr != nil && !errors.Is(ackErr, amqp.ErrClosed) {
		logger.Warn("settle delivery", "outcome", outcome.String(), "error", ackErr)
	}
}

// ParsePayload декодирует payload сообщения в T.
// Ошибка помечена Permanent: такое сообщение не станет валидным при повторе.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	raw, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, Permanent(fmt.Errorf("marshal payload: %w", err))
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, Permanent(fmt.Errorf("unmarshal payload: %w", err))
	}
	return result, nil
}
