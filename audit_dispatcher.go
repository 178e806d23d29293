package kidsAuth

import (
	"context"
	"sync"
	"sync/atomic"
)

// queuedEvent keeps the request context's values, without its cancellation,
// so sinks can still read request-scoped data after the handler returns.
type queuedEvent struct {
	ctx   context.Context
	event AuditEvent
}

// auditDispatcher hands events to a single worker that owns the sink. With
// DropIfFull a full queue discards the event and counts it; otherwise Emit
// waits for room, the caller's ctx, or Close.
type auditDispatcher struct {
	sink       AuditSink
	dropIfFull bool

	queue   chan queuedEvent
	stop    chan struct{}
	stopped sync.WaitGroup
	once    sync.Once

	closing atomic.Bool
	dropped atomic.Uint64
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled || sink == nil {
		return nil
	}

	d := &auditDispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan queuedEvent, max(cfg.BufferSize, 1)),
		stop:       make(chan struct{}),
	}
	d.stopped.Add(1)
	go d.worker()
	return d
}

func (d *auditDispatcher) worker() {
	defer d.stopped.Done()
	for {
		select {
		case q := <-d.queue:
			d.sink.Emit(q.ctx, q.event)
		case <-d.stop:
			// Flush what was accepted before Close.
			for {
				select {
				case q := <-d.queue:
					d.sink.Emit(q.ctx, q.event)
				default:
					return
				}
			}
		}
	}
}

func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.closing.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	q := queuedEvent{ctx: context.WithoutCancel(ctx), event: event}

	if d.dropIfFull {
		select {
		case d.queue <- q:
		case <-d.stop:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- q:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.stop:
	}
}

// Close refuses new events, flushes the queue and waits for the worker.
// Calling it again is a no-op.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.closing.Store(true)
		close(d.stop)
		d.stopped.Wait()
	})
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
