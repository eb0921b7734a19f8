// Package queue implements the in-memory low-stock alert queue and the worker
// manager that publishes alerts downstream.
package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fairyhunter13/inventory-pos-service/internal/model"
	"github.com/fairyhunter13/inventory-pos-service/internal/obs"
)

// Queue is a buffered alert queue with a background broker.
type Queue struct {
	mu           sync.Mutex
	backlog      []model.LowStockAlert
	notify       chan struct{}
	out          chan model.LowStockAlert
	shuttingDown atomic.Bool

	enqueued  atomic.Uint64
	processed atomic.Uint64
	failed    atomic.Uint64
}

// New creates a Queue with a buffered output channel.
func New(outBuffer int) *Queue {
	if outBuffer <= 0 {
		outBuffer = 64
	}
	return &Queue{
		notify: make(chan struct{}, 1),
		out:    make(chan model.LowStockAlert, outBuffer),
	}
}

// Start runs the broker loop.
func (q *Queue) Start(ctx context.Context, highWatermark int) {
	go q.broker(ctx, highWatermark)
}

// broker moves backlog items to the output channel.
func (q *Queue) broker(ctx context.Context, highWatermark int) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		q.flushOnce()
		if highWatermark > 0 {
			if sz := q.BacklogSize(); sz > highWatermark {
				obs.Logger.Warnw("alert_backlog_high", "backlog_size", sz, "high_watermark", highWatermark)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-q.notify:
		case <-ticker.C:
		}
	}
}

// flushOnce drains backlog into the output buffer.
func (q *Queue) flushOnce() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.backlog) > 0 && len(q.out) < cap(q.out) {
		item := q.backlog[0]
		q.backlog = q.backlog[1:]
		q.out <- item
	}
}

// Enqueue appends an alert into the backlog and notifies the broker.
func (q *Queue) Enqueue(a model.LowStockAlert) bool {
	if q.shuttingDown.Load() {
		return false
	}
	q.enqueued.Add(1)
	q.mu.Lock()
	q.backlog = append(q.backlog, a)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// Out exposes the output channel of alerts.
func (q *Queue) Out() <-chan model.LowStockAlert { return q.out }

// BacklogSize returns the number of enqueued-but-not-yet-output alerts.
func (q *Queue) BacklogSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog)
}

// QueueDepth returns backlog plus buffered output items.
func (q *Queue) QueueDepth() int {
	q.mu.Lock()
	bl := len(q.backlog)
	q.mu.Unlock()
	return bl + len(q.out)
}

// MarkProcessed counts an alert a worker finished with, delivered or not.
func (q *Queue) MarkProcessed() { q.processed.Add(1) }

// MarkFailed counts an alert the publisher could not deliver. Workers call it
// in addition to MarkProcessed, so Failed is a subset of Processed and a
// drained queue has Enqueued == Processed regardless of failures.
func (q *Queue) MarkFailed() { q.failed.Add(1) }

// Metrics returns counters and sizes for observability.
func (q *Queue) Metrics() Metrics {
	return Metrics{
		Enqueued:  q.enqueued.Load(),
		Processed: q.processed.Load(),
		Failed:    q.failed.Load(),
		Backlog:   q.BacklogSize(),
		Depth:     q.QueueDepth(),
	}
}

// Metrics is a snapshot of queue counters. Delivered alerts are
// Processed - Failed.
type Metrics struct {
	Enqueued  uint64 `json:"alerts_enqueued"`
	Processed uint64 `json:"alerts_processed"`
	Failed    uint64 `json:"alerts_failed"`
	Backlog   int    `json:"backlog_size"`
	Depth     int    `json:"queue_depth"`
}

// CloseIntake disallows future enqueues.
func (q *Queue) CloseIntake() { q.shuttingDown.Store(true) }

// IsShuttingDown reports if intake has been closed.
func (q *Queue) IsShuttingDown() bool { return q.shuttingDown.Load() }
