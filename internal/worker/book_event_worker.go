package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"books-api/internal/metrics"
	"books-api/internal/model"
	"books-api/internal/platform/rabbitmq"
)

type BookEventStore interface {
	Create(ctx context.Context, event *model.BookEvent) error
}

// BookEventWorker drains the book event queue into the audit table.
type BookEventWorker struct {
	conn      *amqp.Connection
	store     BookEventStore
	queueName string
	log       logrus.FieldLogger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewBookEventWorker(conn *amqp.Connection, store BookEventStore, queueName string, log logrus.FieldLogger) *BookEventWorker {
	return &BookEventWorker{
		conn:      conn,
		store:     store,
		queueName: queueName,
		log:       log,
	}
}

func (w *BookEventWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if _, err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}

	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()

	return nil
}

func (w *BookEventWorker) handle(ctx context.Context, d amqp.Delivery) {
	if err := w.persist(ctx, d.Body); err != nil {
		metrics.BookEventsPersistedTotal.WithLabelValues("failed").Inc()
		w.log.WithError(err).Warn("worker drop book event")
		_ = d.Nack(false, false)
		return
	}
	metrics.BookEventsPersistedTotal.WithLabelValues("ok").Inc()
	_ = d.Ack(false)
}

func (w *BookEventWorker) persist(ctx context.Context, body []byte) error {
	var event model.BookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode book event failed: %w", err)
	}
	event.ID = 0
	if event.BookID == 0 || event.Type == "" {
		return fmt.Errorf("book event missing book id or type")
	}
	if err := w.store.Create(ctx, &event); err != nil {
		return fmt.Errorf("persist book event failed: %w", err)
	}
	return nil
}

func (w *BookEventWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
