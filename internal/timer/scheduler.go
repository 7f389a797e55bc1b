package timer

import (
	"sync"
	"time"
)

// Scheduler issues repeating ticks to a callback. Implementations must deliver
// ticks from a single goroutine per handle so callbacks never overlap.
type Scheduler interface {
	// Every invokes fn once per interval until the returned handle is canceled.
	Every(interval time.Duration, fn func()) Handle
}

// Handle cancels a scheduled repeating tick. Cancel is idempotent and no tick
// is delivered after it returns.
type Handle interface {
	Cancel()
}

// TickerScheduler drives ticks off the wall clock via time.Ticker.
type TickerScheduler struct{}

// NewTickerScheduler returns the production scheduler.
func NewTickerScheduler() *TickerScheduler {
	return &TickerScheduler{}
}

func (s *TickerScheduler) Every(interval time.Duration, fn func()) Handle {
	h := &tickerHandle{done: make(chan struct{})}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-h.done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return h
}

type tickerHandle struct {
	once sync.Once
	done chan struct{}
}

func (h *tickerHandle) Cancel() {
	h.once.Do(func() { close(h.done) })
}
