// Package notify runs notification writes off the request path.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

var ErrQueueClosed = errors.New("notification queue closed")

// Task is one unit of notification work. Run must be safe to call more than
// once because failed attempts are retried.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Notifier accepts tasks without blocking the caller.
type Notifier interface {
	Submit(task Task)
}

// Options sizes a Dispatcher. Zero values fall back to defaults.
type Options struct {
	Workers    int
	QueueSize  int
	MaxRetries uint64
	Backoff    time.Duration
	// AttemptTimeout bounds a single Run call. Zero means no limit.
	AttemptTimeout time.Duration
}

// Dispatcher runs tasks on a fixed pool of workers fed by a bounded queue.
// Tasks submitted while the queue is full are dropped and logged.
type Dispatcher struct {
	opts   Options
	logger *slog.Logger
	queue  chan Task

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts the workers. Close stops them.
func NewDispatcher(opts Options, logger *slog.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		opts:   opts,
		logger: logger,
		queue:  make(chan Task, opts.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go d.work()
	}
	return d
}

// Submit queues task without blocking. Tasks are dropped when the queue is full or closed.
func (d *Dispatcher) Submit(task Task) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Error("dropping notification task", "task", task.Name, "error", ErrQueueClosed)
		return
	}

	select {
	case d.queue <- task:
	default:
		d.logger.Error("dropping notification task", "task", task.Name, "error", "queue full")
	}
}

// Close stops accepting tasks and waits for the queued ones to finish. If ctx
// ends first, in-flight tasks are cancelled and ctx.Err() is returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for task := range d.queue {
		d.run(task)
	}
}

func (d *Dispatcher) run(task Task) {
	start := time.Now()
	attempts := 0

	backoff := retry.WithMaxRetries(d.opts.MaxRetries, retry.NewExponential(d.opts.Backoff))
	err := retry.Do(d.ctx, backoff, func(ctx context.Context) error {
		attempts++
		if d.opts.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.opts.AttemptTimeout)
			defer cancel()
		}
		if err := task.Run(ctx); err != nil {
			d.logger.Warn("notification task attempt failed", "task", task.Name, "attempt", attempts, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})

	if err != nil {
		d.logger.Error("notification task failed", "task", task.Name, "attempts", attempts, "error", err)
		return
	}
	d.logger.Debug("notification task done", "task", task.Name, "attempts", attempts, "duration", time.Since(start))
}

// Inline runs each task immediately on the caller's goroutine. Failures are
// logged and not retried.
type Inline struct {
	Logger *slog.Logger
}

// Submit runs task before returning.
func (n Inline) Submit(task Task) {
	if err := task.Run(context.Background()); err != nil {
		logger := n.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("notification task failed", "task", task.Name, "error", err)
	}
}
