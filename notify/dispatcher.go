package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrQueueFull is reported to the observer when an event is dropped.
var ErrQueueFull = errors.New("notification queue is full")

// Sink is one delivery channel.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev Event) error
}

// Observer is told the outcome of every delivery attempt.
type Observer func(sink, key string, err error)

type Option func(*Dispatcher)

func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

func WithObserver(fn Observer) Option {
	return func(d *Dispatcher) { d.observe = fn }
}

func WithDeliveryTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// Dispatcher fans events out to its sinks from a bounded queue. Emit never
// blocks: when the queue is full the event is dropped and logged.
type Dispatcher struct {
	log       *zap.Logger
	sinks     []Sink
	workers   int
	queueSize int
	timeout   time.Duration
	observe   Observer

	queue  chan Event
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(log *zap.Logger, sinks []Sink, opts ...Option) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dispatcher{
		log:       log,
		sinks:     sinks,
		workers:   2,
		queueSize: 256,
		timeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.queue = make(chan Event, d.queueSize)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

func (d *Dispatcher) Emit(ev Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn("notification dropped after shutdown", zap.String("event", ev.Key))
		return
	}
	select {
	case d.queue <- ev:
	default:
		d.log.Warn("notification queue full, dropping event",
			zap.String("event", ev.Key), zap.Int("manuscript_id", ev.ManuscriptID))
		d.report("queue", ev.Key, ErrQueueFull)
	}
}

// Close stops accepting events and waits for queued ones to drain.
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
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for ev := range d.queue {
		for _, sink := range d.sinks {
			d.deliver(sink, ev)
		}
	}
}

func (d *Dispatcher) deliver(sink Sink, ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("sink panicked: %v", r)
			}
		}()
		return sink.Deliver(ctx, ev)
	}()
	if err != nil {
		d.log.Error("notification delivery failed",
			zap.String("sink", sink.Name()),
			zap.String("event", ev.Key),
			zap.Int("manuscript_id", ev.ManuscriptID),
			zap.Error(err))
	}
	d.report(sink.Name(), ev.Key, err)
}

func (d *Dispatcher) report(sink, key string, err error) {
	if d.observe != nil {
		d.observe(sink, key, err)
	}
}
