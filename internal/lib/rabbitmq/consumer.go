package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/affirmation-service/internal/lib/sl"
	"github.com/streadway/amqp"
)

const maxInFlight = 10

// Handler обрабатывает тело сообщения. Ошибка возвращает сообщение в очередь.
type Handler func(context.Context, []byte) error

// Consumer читает очереди канала и учитывает запущенные обработчики,
// чтобы канал можно было закрыть только после их завершения.
type Consumer struct {
	ch           *amqp.Channel
	log          *slog.Logger
	requeueDelay time.Duration
	wg           sync.WaitGroup
}

// NewConsumer создаёт потребителя. requeueDelay задаёт паузу перед Nack
// после ошибки обработчика, чтобы недоступный получатель не крутил сообщение
// в очереди без остановки.
func NewConsumer(ch *amqp.Channel, log *slog.Logger, requeueDelay time.Duration) *Consumer {
	return &Consumer{ch: ch, log: log, requeueDelay: requeueDelay}
}

// Consume запускает чтение очереди queueName до отмены ctx. Каждое сообщение
// обрабатывается в отдельной горутине, не более maxInFlight одновременно.
// Все вызовы Consume должны предшествовать Wait.
func (c *Consumer) Consume(ctx context.Context, queueName string, handler Handler) error {
	const op = "rabbitmq.Consume"
	deliveries, err := c.ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	c.start(ctx, c.log.With(slog.String("op", op), slog.String("queue", queueName)), deliveries, handler)
	return nil
}

// Wait блокируется, пока не завершатся чтение очередей и все обработчики.
func (c *Consumer) Wait() {
	c.wg.Wait()
}

func (c *Consumer) start(ctx context.Context, log *slog.Logger, deliveries <-chan amqp.Delivery, handler Handler) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.dispatch(ctx, log, deliveries, handler)
	}()
}

func (c *Consumer) dispatch(ctx context.Context, log *slog.Logger, deliveries <-chan amqp.Delivery, handler Handler) {
	sem := make(chan struct{}, maxInFlight)
	for {
		select {
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				requeue(log, d)
				return
			}
			c.wg.Add(1)
			go func(d amqp.Delivery) {
				defer c.wg.Done()
				defer func() { <-sem }()
				c.process(ctx, log, d, handler)
			}(d)
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) process(ctx context.Context, log *slog.Logger, d amqp.Delivery, handler Handler) {
	if err := handler(ctx, d.Body); err != nil {
		log.Error("handler failed, requeueing message",
			slog.Duration("delay", c.requeueDelay), sl.Err(err))
		// При остановке сообщение возвращается сразу.
		timer := time.NewTimer(c.requeueDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
		requeue(log, d)
		return
	}
	if ackErr := d.Ack(false); ackErr != nil {
		log.Error("failed to ack message", sl.Err(ackErr))
	}
}

func requeue(log *slog.Logger, d amqp.Delivery) {
	if nackErr := d.Nack(false, true); nackErr != nil {
		log.Error("failed to nack message", sl.Err(nackErr))
	}
}
