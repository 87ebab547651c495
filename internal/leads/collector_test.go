package leads

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockStore records all batches that were inserted.
type mockStore struct {
	mu      sync.Mutex
	batches [][]Lead
	fail    bool
	delay   time.Duration
	block   chan struct{}
}

func (m *mockStore) BatchInsert(_ context.Context, leads []Lead) error {
	if m.block != nil {
		<-m.block
	}
	time.Sleep(m.delay)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("database unavailable")
	}
	cp := make([]Lead, len(leads))
	copy(cp, leads)
	m.batches = append(m.batches, cp)
	return nil
}

func (m *mockStore) setFail(v bool) {
	m.mu.Lock()
	m.fail = v
	m.mu.Unlock()
}

func (m *mockStore) totalInserted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

type flushCounter struct {
	mu      sync.Mutex
	results map[string]int
}

func (f *flushCounter) IncLeadFlush(result string, count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.results == nil {
		f.results = map[string]int{}
	}
	f.results[result] += count
}

func (f *flushCounter) IncLeadsDropped(count int) {
	f.IncLeadFlush("dropped", count)
}

func sampleLead(name string) Lead {
	return New(SourceContact, name, name+"@example.com", "0501234567", "design", "hello", "en")
}

func TestCollector_RecordBuffers(t *testing.T) {
	ms := &mockStore{}
	c := NewCollector(ms, 100, time.Hour)

	c.Record(sampleLead("a"))
	c.Record(sampleLead("b"))

	assert.Equal(t, 2, c.Pending())
	assert.Zero(t, ms.totalInserted())
}

func TestCollector_FlushesWhenBatchFull(t *testing.T) {
	ms := &mockStore{}
	c := NewCollector(ms, 3, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Start(ctx)

	for _, n := range []string{"a", "b", "c"} {
		c.Record(sampleLead(n))
	}

	require.Eventually(t, func() bool { return ms.totalInserted() == 3 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, c.Pending())
}

func TestCollector_RecordDoesNotWaitForStore(t *testing.T) {
	ms := &mockStore{block: make(chan struct{})}
	c := NewCollector(ms, 1, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Start(ctx)

	recorded := make(chan struct{})
	go func() {
		c.Record(sampleLead("a"))
		c.Record(sampleLead("b"))
		close(recorded)
	}()

	select {
	case <-recorded:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a slow store")
	}
	close(ms.block)
	require.Eventually(t, func() bool { return ms.totalInserted() == 2 }, time.Second, 5*time.Millisecond)
}

func TestCollector_FlushesOnTimer(t *testing.T) {
	ms := &mockStore{}
	c := NewCollector(ms, 100, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Start(ctx)

	c.Record(sampleLead("a"))
	require.Eventually(t, func() bool { return ms.totalInserted() == 1 }, time.Second, 5*time.Millisecond)
}

func TestCollector_StopFlushesRemaining(t *testing.T) {
	ms := &mockStore{}
	c := NewCollector(ms, 100, time.Hour)

	done := make(chan struct{})
	go func() {
		c.Start(context.Background())
		close(done)
	}()

	c.Record(sampleLead("a"))
	c.Record(sampleLead("b"))
	c.Stop()
	c.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
	assert.Equal(t, 2, ms.totalInserted())
}

func TestCollector_StopWaitsForFinalInsert(t *testing.T) {
	ms := &mockStore{delay: 50 * time.Millisecond}
	c := NewCollector(ms, 100, time.Hour)

	go c.Start(context.Background())
	require.Eventually(t, c.running.Load, time.Second, time.Millisecond)

	c.Record(sampleLead("a"))
	c.Stop()

	assert.Equal(t, 1, ms.totalInserted(), "Stop must return after the final insert")
	assert.Zero(t, c.Pending())
}

func TestCollector_StopWithoutStartFlushes(t *testing.T) {
	ms := &mockStore{}
	c := NewCollector(ms, 100, time.Hour)

	c.Record(sampleLead("a"))
	c.Stop()

	assert.Equal(t, 1, ms.totalInserted())
}

func TestCollector_RetriesFailedBatch(t *testing.T) {
	ms := &mockStore{fail: true}
	fc := &flushCounter{}
	c := NewCollector(ms, 2, time.Hour)
	c.SetMetrics(fc)

	first := sampleLead("a")
	c.Record(first)
	c.Record(sampleLead("b"))
	c.flush()
	assert.Equal(t, 2, c.Pending())

	ms.setFail(false)
	c.Record(sampleLead("c"))
	c.flush()

	require.Equal(t, 3, ms.totalInserted())
	assert.Equal(t, first.ID, ms.batches[0][0].ID, "failed leads keep their order")
	assert.Equal(t, map[string]int{"error": 2, "ok": 3}, fc.results)
}

func TestCollector_DropsOldestWhenStoreKeepsFailing(t *testing.T) {
	ms := &mockStore{fail: true}
	fc := &flushCounter{}
	c := NewCollector(ms, 2, time.Hour)
	c.SetMetrics(fc)

	var recorded []Lead
	for i := 0; i < 2*retainedBatches+5; i++ {
		l := sampleLead("lead")
		recorded = append(recorded, l)
		c.Record(l)
	}
	c.flush()

	assert.Equal(t, 2*retainedBatches, c.Pending())
	assert.Equal(t, 5, fc.results["dropped"])

	ms.setFail(false)
	c.flush()
	require.Equal(t, 2*retainedBatches, ms.totalInserted())
	assert.Equal(t, recorded[5].ID, ms.batches[0][0].ID, "the oldest leads are the ones dropped")
}
