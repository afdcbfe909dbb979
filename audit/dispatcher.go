package audit

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Sink receives lifecycle transition events for downstream delivery (emails,
// timeline feeds). Delivery is fire-and-forget from the core's perspective:
// the lifecycle never blocks on it, and failures stay inside the dispatcher.
type Sink interface {
	Deliver(ctx context.Context, msg OutboxMessage) error
}

// Queue is the outbox storage the dispatcher drains.
type Queue interface {
	Due(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkProcessed(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, dead bool) error
}

// Dispatcher drains the transactional outbox and hands messages to the sink,
// retrying each delivery with exponential backoff before giving up.
type Dispatcher struct {
	queue         Queue
	sink          Sink
	log           *zap.Logger
	interval      time.Duration
	batchSize     int
	maxAttempts   int
	retryInterval time.Duration
	maxElapsed    time.Duration
}

func NewDispatcher(queue Queue, sink Sink, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		queue:         queue,
		sink:          sink,
		log:           log,
		interval:      2 * time.Second,
		batchSize:     32,
		maxAttempts:   5,
		retryInterval: 200 * time.Millisecond,
		maxElapsed:    10 * time.Second,
	}
}

// Run polls the outbox until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := d.Drain(ctx); err != nil {
				d.log.Warn("outbox drain failed", zap.Error(err))
			}
		}
	}
}

// Drain delivers one batch of pending messages.
func (d *Dispatcher) Drain(ctx context.Context) error {
	msgs, err := d.queue.Due(ctx, d.batchSize)
	if err != nil {
		return err
	}

	for _, msg := range msgs {
		if err := d.deliver(ctx, msg); err != nil {
			dead := msg.Attempts+1 >= d.maxAttempts
			d.log.Warn("outbox delivery failed",
				zap.Int64("outbox_id", msg.ID),
				zap.String("topic", msg.Topic),
				zap.Int("attempts", msg.Attempts+1),
				zap.Bool("dead", dead),
				zap.Error(err))
			if err := d.queue.MarkFailed(ctx, msg.ID, dead); err != nil {
				return err
			}
			continue
		}
		if err := d.queue.MarkProcessed(ctx, msg.ID); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, msg OutboxMessage) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = d.retryInterval
	policy.MaxElapsedTime = d.maxElapsed

	return backoff.Retry(func() error {
		return d.sink.Deliver(ctx, msg)
	}, backoff.WithContext(policy, ctx))
}

// LogSink is the default sink: it logs every transition event. Real
// deployments swap in email or webhook delivery behind the same interface.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Deliver(ctx context.Context, msg OutboxMessage) error {
	s.log.Info("lifecycle event",
		zap.String("topic", msg.Topic),
		zap.ByteString("payload", msg.Payload))
	return nil
}
