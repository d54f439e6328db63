package metrics

import (
	"sync"
	"time"

	"modelctl/internal/core"
)

// historyLog keeps the most recent request records. Writers append to a
// small buffer that is folded into the capped log in batches, so the hot
// path never contends with readers of the full history.
type historyLog struct {
	mu      sync.RWMutex
	records []core.RequestRecord
	max     int

	pendingMu sync.Mutex
	pending   []core.RequestRecord
}

func newHistoryLog(max int) *historyLog {
	return &historyLog{
		max:     max,
		pending: make([]core.RequestRecord, 0, core.HistoryBatchSize),
	}
}

// add buffers rec and reports whether the buffer reached a full batch.
func (h *historyLog) add(rec core.RequestRecord) bool {
	h.pendingMu.Lock()
	defer h.pendingMu.Unlock()
	h.pending = append(h.pending, rec)
	return len(h.pending) >= core.HistoryBatchSize
}

func (h *historyLog) flush() {
	h.pendingMu.Lock()
	if len(h.pending) == 0 {
		h.pendingMu.Unlock()
		return
	}
	batch := h.pending
	h.pending = make([]core.RequestRecord, 0, core.HistoryBatchSize)
	h.pendingMu.Unlock()

	h.mu.Lock()
	h.records = h.capped(append(h.records, batch...))
	h.mu.Unlock()
}

// snapshot flushes pending records and returns a copy of the log.
func (h *historyLog) snapshot() []core.RequestRecord {
	h.flush()
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]core.RequestRecord, len(h.records))
	copy(out, h.records)
	return out
}

// restore replaces the log with persisted records.
func (h *historyLog) restore(records []core.RequestRecord) {
	h.mu.Lock()
	h.records = h.capped(append([]core.RequestRecord(nil), records...))
	h.mu.Unlock()
}

func (h *historyLog) capped(records []core.RequestRecord) []core.RequestRecord {
	if len(records) > h.max {
		return records[len(records)-h.max:]
	}
	return records
}

// flushEvery folds pending records into the log until done is closed.
func (h *historyLog) flushEvery(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.flush()
		case <-done:
			return
		}
	}
}

// rateWindow counts events inside a sliding window.
type rateWindow struct {
	mu     sync.Mutex
	span   time.Duration
	stamps []time.Time
}

func (w *rateWindow) add(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stamps = append(w.stamps, now)
	w.trim(now)
}

// count returns the events that happened within span of now.
func (w *rateWindow) count(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.trim(now)
	return len(w.stamps)
}

func (w *rateWindow) trim(now time.Time) {
	cutoff := now.Add(-w.span)
	drop := 0
	for drop < len(w.stamps) && w.stamps[drop].Before(cutoff) {
		drop++
	}
	if drop > 0 {
		w.stamps = append(w.stamps[:0:0], w.stamps[drop:]...)
	}
}
