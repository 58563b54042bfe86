package notify

import (
	"context"
	"sync"
	"time"

	"equiptrack-backend/internal/domain"
	"equiptrack-backend/internal/logger"
	"equiptrack-backend/internal/metrics"
)

// Dispatcher delivers notifications on background workers with retries.
// Dispatch never blocks the caller: a full queue drops the notification.
type Dispatcher struct {
	sink       Sink
	jobs       chan domain.Notification
	workers    int
	maxRetries int
	timeout    time.Duration
	backoff    func(attempt int) time.Duration

	wg       sync.WaitGroup
	stopOnce sync.Once
	cancel   context.CancelFunc
}

type DispatcherConfig struct {
	Workers    int
	QueueSize  int
	MaxRetries int
	Timeout    time.Duration
}

func NewDispatcher(sink Sink, cfg DispatcherConfig) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Dispatcher{
		sink:       sink,
		jobs:       make(chan domain.Notification, cfg.QueueSize),
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		timeout:    cfg.Timeout,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * time.Second
		},
	}
}

// Start launches the workers. They keep delivering after ctx is cancelled
// until Stop drains the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(context.WithoutCancel(ctx))
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
	logger.Info("Notification dispatcher started", "sink", d.sink.Name(), "workers", d.workers)
}

// Stop drains the queue and waits for the workers.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.jobs)
		d.wg.Wait()
		if d.cancel != nil {
			d.cancel()
		}
		logger.Info("Notification dispatcher stopped")
	})
}

func (d *Dispatcher) Dispatch(n domain.Notification) {
	defer func() {
		// Dispatch after Stop
		if r := recover(); r != nil {
			logger.Warn("Notification dropped, dispatcher stopped", "type", n.Type)
		}
	}()
	select {
	case d.jobs <- n:
	default:
		metrics.NotificationsTotal.WithLabelValues(d.sink.Name(), "dropped").Inc()
		logger.Warn("Notification queue is full, dropping", "type", n.Type)
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	for n := range d.jobs {
		d.deliver(ctx, n)
	}
	logger.Debug("Notification worker stopping", "worker", id)
}

func (d *Dispatcher) deliver(ctx context.Context, n domain.Notification) {
	for attempt := 0; ; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := d.sink.Notify(sendCtx, n)
		cancel()
		if err == nil {
			metrics.NotificationsTotal.WithLabelValues(d.sink.Name(), "sent").Inc()
			return
		}
		if attempt >= d.maxRetries {
			metrics.NotificationsTotal.WithLabelValues(d.sink.Name(), "failed").Inc()
			logger.Error("Notification failed", "type", n.Type, "attempts", attempt+1, "error", err)
			return
		}
		logger.Warn("Retrying notification", "type", n.Type, "attempt", attempt+1, "error", err)
		select {
		case <-time.After(d.backoff(attempt + 1)):
		case <-ctx.Done():
			return
		}
	}
}
