package leads

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// BatchInserter persists leads. It exists to allow testing without a real
// database.
type BatchInserter interface {
	BatchInsert(ctx context.Context, leads []Lead) error
}

// FlushRecorder is an optional interface for recording flush results.
type FlushRecorder interface {
	IncLeadFlush(result string, count int)
	IncLeadsDropped(count int)
}

// retainedBatches bounds how many batches of unarchived leads are kept while
// the store keeps failing.
const retainedBatches = 20

// Collector buffers leads in memory and writes them to the store in batches,
// from the goroutine running Start: when the buffer reaches batchSize or
// every flushInterval. It is safe for concurrent use.
type Collector struct {
	store         BatchInserter
	buffer        []Lead
	mu            sync.Mutex
	batchSize     int
	maxPending    int
	flushInterval time.Duration
	full          chan struct{}
	done          chan struct{}
	stopped       chan struct{}
	running       atomic.Bool
	stopOnce      sync.Once
	metrics       FlushRecorder
}

// NewCollector creates a Collector.
func NewCollector(store BatchInserter, batchSize int, flushInterval time.Duration) *Collector {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Collector{
		store:         store,
		buffer:        make([]Lead, 0, batchSize),
		batchSize:     batchSize,
		maxPending:    batchSize * retainedBatches,
		flushInterval: flushInterval,
		full:          make(chan struct{}, 1),
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}
}

// SetMetrics sets the optional metrics recorder.
func (c *Collector) SetMetrics(m FlushRecorder) {
	c.metrics = m
}

// Start flushes on a timer, and whenever a batch fills up, until Stop is
// called or ctx is cancelled, then flushes once more. Only the first call
// runs; later calls return at once.
func (c *Collector) Start(ctx context.Context) {
	if !c.running.CompareAndSwap(false, true) {
		return
	}
	defer close(c.stopped)

	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-c.full:
			c.flush()
		case <-ctx.Done():
			c.flush()
			return
		case <-c.done:
			c.flush()
			return
		}
	}
}

// Record buffers a lead. It never blocks on the store.
func (c *Collector) Record(l Lead) {
	c.mu.Lock()
	c.buffer = append(c.buffer, l)
	full := len(c.buffer) >= c.batchSize
	dropped := c.trimLocked()
	c.mu.Unlock()

	c.dropped(dropped)
	if full {
		select {
		case c.full <- struct{}{}:
		default:
		}
	}
}

// Pending returns the number of buffered leads.
func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffer)
}

// flush writes the buffer to the store. A failed batch is put back at the
// front of the buffer and retried on the next flush.
func (c *Collector) flush() {
	c.mu.Lock()
	if len(c.buffer) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.buffer
	c.buffer = make([]Lead, 0, c.batchSize)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.store.BatchInsert(ctx, batch); err != nil {
		slog.Error("failed to archive leads", "count", len(batch), "error", err)
		c.mu.Lock()
		c.buffer = append(batch, c.buffer...)
		dropped := c.trimLocked()
		c.mu.Unlock()
		c.record("error", len(batch))
		c.dropped(dropped)
		return
	}
	c.record("ok", len(batch))
}

// trimLocked drops the oldest leads beyond maxPending and returns how many
// were dropped. c.mu must be held.
func (c *Collector) trimLocked() int {
	over := len(c.buffer) - c.maxPending
	if over <= 0 {
		return 0
	}
	c.buffer = append(c.buffer[:0:0], c.buffer[over:]...)
	return over
}

func (c *Collector) dropped(n int) {
	if n == 0 {
		return
	}
	slog.Error("lead archive buffer full, dropping oldest leads", "count", n)
	if c.metrics != nil {
		c.metrics.IncLeadsDropped(n)
	}
}

func (c *Collector) record(result string, n int) {
	if c.metrics != nil {
		c.metrics.IncLeadFlush(result, n)
	}
}

// Stop makes Start exit after a final flush and waits for it. Without a
// running Start it flushes directly. It is safe to call more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
	if c.running.Load() {
		<-c.stopped
		return
	}
	c.flush()
}
