package extract

import (
	"sync"
	"sync/atomic"
	"time"
)

// Budget is a per-process sliding-window counter of LLM escalations. When
// calls-per-window reaches maxCalls, further escalations are
// refused for the remainder of the window. Bounded memory: it tracks only a
// window start time and a count, never a growing list of timestamps.
type Budget struct {
	maxCalls int64
	window   time.Duration

	mu          sync.Mutex
	windowStart time.Time
	count       int64
}

// NewBudget constructs a Budget allowing maxCalls escalations per window.
func NewBudget(maxCalls int64, window time.Duration) *Budget {
	return &Budget{
		maxCalls:    maxCalls,
		window:      window,
		windowStart: time.Now(),
	}
}

// TryAcquire attempts to reserve one LLM escalation slot. Returns false if
// the current window's quota is exhausted.
func (b *Budget) TryAcquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if time.Since(b.windowStart) >= b.window {
		b.windowStart = time.Now()
		atomic.StoreInt64(&b.count, 0)
	}

	if atomic.LoadInt64(&b.count) >= b.maxCalls {
		return false
	}
	atomic.AddInt64(&b.count, 1)
	return true
}

// Remaining reports how many escalations are left in the current window,
// for diagnostics only.
func (b *Budget) Remaining() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if time.Since(b.windowStart) >= b.window {
		return b.maxCalls
	}
	remaining := b.maxCalls - atomic.LoadInt64(&b.count)
	if remaining < 0 {
		return 0
	}
	return remaining
}
