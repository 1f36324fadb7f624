// Package history keeps the most recent poll results in memory for the
// display's recent-readings view.
package history

import (
	"fmt"
	"sync"
	"time"

	"github.com/afroash/airquality-monitor/internal/models"
)

// Buffer is a thread-safe bounded FIFO of poll results
type Buffer struct {
	results    []models.PollResult
	capacity   int
	dropOldest bool
	mutex      sync.RWMutex
	stats      Stats
}

// Stats tracks buffer usage statistics
type Stats struct {
	TotalPushed   int64
	TotalDropped  int64
	HighWaterMark int
	LastPushTime  time.Time
	LastDropTime  time.Time
}

// NewBuffer creates a buffer with the given capacity
func NewBuffer(capacity int, dropOldest bool) *Buffer {
	return &Buffer{
		results:    make([]models.PollResult, 0, capacity),
		capacity:   capacity,
		dropOldest: dropOldest,
	}
}

// Push adds a result to the buffer
// Returns false if the result was dropped (when full and dropOldest=false)
func (b *Buffer) Push(result models.PollResult) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if len(b.results) >= b.capacity {
		b.stats.TotalDropped++
		b.stats.LastDropTime = time.Now()
		if !b.dropOldest || b.capacity == 0 {
			return false
		}
		b.results = b.results[1:]
	}
	b.results = append(b.results, result)
	b.stats.TotalPushed++
	b.stats.LastPushTime = time.Now()

	if len(b.results) > b.stats.HighWaterMark {
		b.stats.HighWaterMark = len(b.results)
	}

	return true
}

// Publish implements monitor.Sink
func (b *Buffer) Publish(result models.PollResult) {
	b.Push(result)
}

// Recent returns up to n results, newest first
func (b *Buffer) Recent(n int) []models.PollResult {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	count := min(n, len(b.results))
	if count <= 0 {
		return nil
	}
	out := make([]models.PollResult, count)
	for i := range out {
		out[i] = b.results[len(b.results)-1-i]
	}
	return out
}

// LatestReading returns the newest result that carries a reading
func (b *Buffer) LatestReading() (models.PollResult, bool) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	for i := len(b.results) - 1; i >= 0; i-- {
		if b.results[i].HasReading() {
			return b.results[i], true
		}
	}
	return models.PollResult{}, false
}

// Size returns the current number of results in the buffer
func (b *Buffer) Size() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return len(b.results)
}

// Stats returns a copy of current buffer statistics
func (b *Buffer) Stats() Stats {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.stats
}

// String returns a human-readable representation of buffer state
func (b *Buffer) String() string {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	mode := "drop-newest"
	if b.dropOldest {
		mode = "drop-oldest"
	}

	return fmt.Sprintf("History[%d/%d, dropped: %d, mode: %s]",
		len(b.results),
		b.capacity,
		b.stats.TotalDropped,
		mode,
	)
}
