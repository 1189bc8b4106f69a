package causal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"discuss_go/internal/metrics"
	"discuss_go/models"
	"discuss_go/pkg/storage"
)

// Options — настройки доставки.
type Options struct {
	QueueSize       int
	RetryInitial    time.Duration
	RetryMaxElapsed time.Duration
	SweepBatch      int
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.RetryInitial <= 0 {
		o.RetryInitial = 200 * time.Millisecond
	}
	if o.RetryMaxElapsed <= 0 {
		o.RetryMaxElapsed = 30 * time.Second
	}
	if o.SweepBatch <= 0 {
		o.SweepBatch = 100
	}
	return o
}

// Dispatcher доставляет события голосов в движок после коммита транзакции.
// Submit не блокирует вызывающего: при переполненной очереди событие
// остаётся в vote_event без Score и будет подобрано Sweep.
type Dispatcher struct {
	engine   Engine
	consumer *Consumer
	db       *storage.DB
	metrics  *metrics.Causal
	log      *slog.Logger
	opts     Options
	queue    chan models.VoteEvent
}

func NewDispatcher(db *storage.DB, engine Engine, consumer *Consumer, m *metrics.Causal, log *slog.Logger, opts Options) *Dispatcher {
	opts = opts.withDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		engine:   engine,
		consumer: consumer,
		db:       db,
		metrics:  m,
		log:      log,
		opts:     opts,
		queue:    make(chan models.VoteEvent, opts.QueueSize),
	}
}

// Submit ставит событие в очередь. false — очередь заполнена.
func (d *Dispatcher) Submit(v models.VoteEvent) bool {
	select {
	case d.queue <- v:
		return true
	default:
		d.log.Warn("[CAUSAL WARN] queue full, event left for sweeper", "vote_event_id", v.VoteEventID)
		if d.metrics != nil {
			d.metrics.Dropped()
		}
		return false
	}
}

// Run обрабатывает очередь до отмены ctx.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case v := <-d.queue:
			if err := d.Deliver(ctx, v); err != nil && !errors.Is(err, context.Canceled) {
				d.log.Error("[CAUSAL ERROR] delivery failed", "vote_event_id", v.VoteEventID, "err", err)
			}
		}
	}
}

// Deliver отправляет одно событие и сохраняет ответ. Сбои движка и базы
// повторяются с экспоненциальной задержкой; некорректный ответ не повторяется.
func (d *Dispatcher) Deliver(ctx context.Context, v models.VoteEvent) error {
	ev := NewEvent(v)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.opts.RetryInitial
	b.MaxElapsedTime = d.opts.RetryMaxElapsed

	op := func() error {
		raw, err := d.engine.Process(ctx, ev)
		if err != nil {
			if errors.Is(err, ErrEngineUnavailable) {
				return backoff.Permanent(err)
			}
			return err
		}
		if _, err := d.consumer.Apply(ctx, v, raw); err != nil {
			if errors.Is(err, ErrMalformedOutput) {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		d.log.Warn("[CAUSAL WARN] engine call failed, retrying",
			"vote_event_id", v.VoteEventID, "wait", wait, "err", err)
		if d.metrics != nil {
			d.metrics.RetriesTotal.Inc()
		}
	}

	err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
	if d.metrics != nil {
		switch {
		case err == nil:
			d.metrics.Delivered()
		case errors.Is(err, ErrMalformedOutput):
			d.metrics.Malformed()
		default:
			d.metrics.Failed()
		}
	}
	if err != nil {
		return fmt.Errorf("deliver vote event %d: %w", v.VoteEventID, err)
	}
	return nil
}

// Sweep синхронно доставляет события, по которым ещё нет ни одного Score.
// Возвращает число успешно доставленных.
func (d *Dispatcher) Sweep(ctx context.Context) (int, error) {
	pending, err := d.db.PendingVoteEvents(ctx, d.opts.SweepBatch)
	if err != nil {
		return 0, fmt.Errorf("list pending vote events: %w", err)
	}
	delivered := 0
	for _, v := range pending {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		if err := d.Deliver(ctx, v); err != nil {
			d.log.Error("[CAUSAL ERROR] sweep delivery failed", "vote_event_id", v.VoteEventID, "err", err)
			continue
		}
		delivered++
		if d.metrics != nil {
			d.metrics.SweptTotal.Inc()
		}
	}
	if len(pending) > 0 {
		d.log.Info("[CAUSAL] backlog swept", "pending", len(pending), "delivered", delivered)
	}
	return delivered, nil
}

// RunSweeper вызывает Sweep сразу и затем с периодом interval до отмены ctx.
func (d *Dispatcher) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := d.Sweep(ctx); err != nil && ctx.Err() == nil {
			d.log.Error("[CAUSAL ERROR] sweep failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
