package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"offerdesk/internal/model"
	"offerdesk/internal/platform/logger"
	"offerdesk/internal/platform/rabbitmq"
)

// JobHandler runs one document job. Returning ErrPermanent (wrapped) drops
// the message; any other error requeues it once.
type JobHandler interface {
	HandleJob(ctx context.Context, job model.DocumentJob) error
}

var ErrPermanent = errors.New("permanent job failure")

type HandlerFunc func(ctx context.Context, job model.DocumentJob) error

func (f HandlerFunc) HandleJob(ctx context.Context, job model.DocumentJob) error {
	return f(ctx, job)
}

// JobWorker consumes document jobs. Up to prefetch deliveries are handled at
// the same time, each in its own goroutine.
type JobWorker struct {
	conn      *amqp.Connection
	handler   JobHandler
	queueName string
	prefetch  int
	timeout   time.Duration
	log       *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewJobWorker(conn *amqp.Connection, handler JobHandler, queueName string, prefetch int, timeout time.Duration, log *logger.Logger) *JobWorker {
	if prefetch <= 0 {
		prefetch = 1
	}
	return &JobWorker{
		conn:      conn,
		handler:   handler,
		queueName: queueName,
		prefetch:  prefetch,
		timeout:   timeout,
		log:       log.With("component", "JobWorker", "queue", queueName),
	}
}

func (w *JobWorker) Start(ctx context.Context) error {
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

	if err := rabbitmq.DeclareJobQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(w.prefetch, 0, false); err != nil {
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

	sem := make(chan struct{}, w.prefetch)
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
					w.log.Warn("delivery channel closed")
					return
				}
				sem <- struct{}{}
				w.wg.Add(1)
				go func(d amqp.Delivery) {
					defer w.wg.Done()
					defer func() { <-sem }()
					w.handle(workerCtx, d)
				}(d)
			}
		}
	}()

	w.log.Info("job worker started", "prefetch", w.prefetch)
	return nil
}

func (w *JobWorker) handle(ctx context.Context, d amqp.Delivery) {
	var job model.DocumentJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		w.log.Error("decode job failed", "error", err)
		_ = d.Nack(false, false)
		return
	}

	jobCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	started := time.Now()
	err := w.handler.HandleJob(jobCtx, job)
	switch {
	case err == nil:
		w.log.Info("job done", "kind", job.Kind, "document_id", job.DocumentID, "elapsed_ms", time.Since(started).Milliseconds())
		_ = d.Ack(false)
	case errors.Is(err, ErrPermanent) || d.Redelivered:
		w.log.Error("job dropped", "kind", job.Kind, "document_id", job.DocumentID, "error", err)
		_ = d.Nack(false, false)
	default:
		w.log.Warn("job failed, requeueing", "kind", job.Kind, "document_id", job.DocumentID, "error", err)
		_ = d.Nack(false, true)
	}
}

func (w *JobWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
