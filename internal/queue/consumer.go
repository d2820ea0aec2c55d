package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Handler processes one delivery. Returning an error rejects the
// message without requeue; delay-queue redelivery semantics make a
// tight retry loop worse than dropping, and every step is idempotent.
type Handler func(ctx context.Context, body []byte) error

// Consume connects to the broker, declares the queue via declare, and
// consumes messages with the given handler until the context is
// cancelled. It runs a reconnect loop with exponential backoff so a
// broker restart does not take the consumer down.
func Consume(ctx context.Context, url, queueName string, declare func(*amqp.Channel) error, h Handler, log *zap.Logger) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("consumer dial failed, retrying",
				zap.String("queue", queueName), zap.Duration("backoff", backoff), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(ctx, conn, queueName, declare, h, log); err != nil {
			log.Warn("consume loop ended, reconnecting",
				zap.String("queue", queueName), zap.Error(err))
		}
		_ = conn.Close()
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queueName string, declare func(*amqp.Channel) error, h Handler, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("set QoS failed", zap.Error(err))
	}
	if err := declare(ch); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := h(ctx, d.Body); err != nil {
				log.Error("handle message failed",
					zap.String("queue", queueName), zap.Error(err))
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}
