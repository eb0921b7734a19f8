package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fairyhunter13/inventory-pos-service/internal/config"
	"github.com/fairyhunter13/inventory-pos-service/internal/model"
	"github.com/fairyhunter13/inventory-pos-service/internal/obs"
)

// publishTimeout bounds a single publish attempt.
const publishTimeout = 10 * time.Second

// Manager runs the workers that publish queued alerts and scales them on
// backlog.
type Manager struct {
	cfg    config.Config
	q      *Queue
	pub    Publisher
	seq    atomic.Uint64
	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	workerCancels []context.CancelFunc
}

// NewManager constructs a Manager with the given config, queue, and publisher.
func NewManager(cfg config.Config, q *Queue, pub Publisher) *Manager {
	return &Manager{cfg: cfg, q: q, pub: pub}
}

// Start begins processing and autoscaling in the background.
func (m *Manager) Start(parent context.Context) {
	m.ctx, m.cancel = context.WithCancel(parent)
	m.q.Start(m.ctx, m.cfg.QueueHighWatermark)
	m.addWorkers(max(m.cfg.InitialWorkerCount, 1))
	go m.scaler()
}

// Stop cancels background routines and stops workers.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Lock()
	for _, c := range m.workerCancels {
		c()
	}
	m.workerCancels = nil
	m.mu.Unlock()
}

// scaler adjusts worker count based on backlog and configuration.
func (m *Manager) scaler() {
	t := time.NewTicker(m.cfg.ScaleInterval)
	defer t.Stop()
	idleTicks := 0
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-t.C:
			backlog := m.q.BacklogSize()
			wc := m.WorkerCount()
			if backlog > wc*m.cfg.ScaleUpBacklogPerWorker && wc < m.cfg.WorkerMax {
				m.addWorkers(1)
				idleTicks = 0
				continue
			}
			if backlog == 0 {
				idleTicks++
				if idleTicks >= m.cfg.ScaleDownIdleTicks && wc > m.cfg.WorkerMin {
					m.removeWorkers(1)
					idleTicks = 0
				}
			} else {
				idleTicks = 0
			}
		}
	}
}

// addWorkers spawns n workers.
func (m *Manager) addWorkers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		wctx, cancel := context.WithCancel(m.ctx)
		m.workerCancels = append(m.workerCancels, cancel)
		go m.worker(wctx)
	}
	obs.Logger.Infow("alert_workers_scaled", "worker_count", len(m.workerCancels))
}

// removeWorkers stops up to n workers.
func (m *Manager) removeWorkers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > len(m.workerCancels) {
		n = len(m.workerCancels)
	}
	for i := 0; i < n; i++ {
		c := m.workerCancels[len(m.workerCancels)-1]
		m.workerCancels = m.workerCancels[:len(m.workerCancels)-1]
		c()
	}
	obs.Logger.Infow("alert_workers_scaled", "worker_count", len(m.workerCancels))
}

// worker drains alerts from the queue into the publisher. Failed publishes
// are logged and counted, not retried.
func (m *Manager) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-m.q.Out():
			pctx, cancel := context.WithTimeout(ctx, publishTimeout)
			if err := m.pub.Publish(pctx, a); err != nil {
				m.q.MarkFailed()
				obs.Logger.Warnw("alert_publish_failed",
					"sequence", a.Sequence,
					"product_id", a.ProductID,
					"notification_id", a.NotificationID,
					"error", err,
				)
			}
			cancel()
			m.q.MarkProcessed()
		}
	}
}

// Enqueue proxies to the underlying queue.
func (m *Manager) Enqueue(a model.LowStockAlert) bool { return m.q.Enqueue(a) }

// NextSequence returns the next alert sequence number.
func (m *Manager) NextSequence() uint64 { return m.seq.Add(1) }

// BacklogSize returns pending items in the queue.
func (m *Manager) BacklogSize() int { return m.q.BacklogSize() }

// QueueDepth returns backlog plus buffered output items.
func (m *Manager) QueueDepth() int { return m.q.QueueDepth() }

// WorkerCount returns the current number of workers.
func (m *Manager) WorkerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workerCancels)
}

// IsShuttingDown reports whether new enqueues are rejected.
func (m *Manager) IsShuttingDown() bool { return m.q.IsShuttingDown() }

// CloseIntake disallows future enqueues.
func (m *Manager) CloseIntake() { m.q.CloseIntake() }

// QueueMetrics exposes the underlying queue metrics.
func (m *Manager) QueueMetrics() Metrics { return m.q.Metrics() }

// DrainUntil blocks until every enqueued alert has been handed to the
// publisher, failed attempts included, or ctx is done.
func (m *Manager) DrainUntil(ctx context.Context) bool {
	for {
		mt := m.q.Metrics()
		if mt.Backlog == 0 && mt.Depth == 0 && mt.Enqueued == mt.Processed {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(50 * time.Millisecond):
		}
	}
}
