package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher fans audit events out to one or more sinks from a single
// delivery goroutine, so sinks observe events in emission order. A nil
// Dispatcher is valid and silently discards events.
type Dispatcher struct {
	dropIfFull bool
	queue      chan Event
	quit       chan struct{}
	stopped    chan struct{}
	stopOnce   sync.Once
	dropped    atomic.Uint64
	sinks      []Sink
}

// NewDispatcher starts the delivery goroutine. Disabled config returns nil.
// Nil sinks are skipped; with no sinks the dispatcher consumes and discards.
func NewDispatcher(cfg Config, sinks ...Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}

	d := &Dispatcher{
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan Event, cfg.BufferSize),
		quit:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	for _, s := range sinks {
		if s != nil {
			d.sinks = append(d.sinks, s)
		}
	}

	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer close(d.stopped)

	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		case <-d.quit:
			d.drain()
			return
		}
	}
}

// drain flushes whatever made it into the buffer before shutdown.
func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(event Event) {
	for _, s := range d.sinks {
		s.Emit(context.Background(), event)
	}
}

// Emit enqueues an event. With DropIfFull set, a full buffer increments the
// dropped counter instead of blocking the caller. After Close the event is
// discarded.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	select {
	case <-d.quit:
		return
	default:
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.quit:
	}
}

// Close drains the buffer and waits for the delivery goroutine. Idempotent.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		close(d.quit)
		<-d.stopped
	})
}

// Dropped returns the number of events discarded due to a full buffer.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
