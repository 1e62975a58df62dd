package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSweepInterval is how often idle sessions are looked for.
const DefaultSweepInterval = time.Minute

// Janitor periodically evicts idle sessions from a MemoryStore.
type Janitor struct {
	store    *MemoryStore
	idle     time.Duration
	interval time.Duration
	logger   *slog.Logger
	onSweep  func(removed, remaining int)

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewJanitor creates a janitor evicting sessions idle longer than idle.
func NewJanitor(store *MemoryStore, idle, interval time.Duration, logger *slog.Logger) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Janitor{
		store:    store,
		idle:     idle,
		interval: interval,
		logger:   logger.With("component", "session_janitor"),
	}
}

// OnSweep registers a callback invoked after every sweep.
func (j *Janitor) OnSweep(fn func(removed, remaining int)) {
	j.mu.Lock()
	j.onSweep = fn
	j.mu.Unlock()
}

// Start launches the sweep loop. Calling Start twice is a no-op.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.done = make(chan struct{})
	j.running = true
	go j.run(runCtx, j.done)
}

// Stop halts the loop and waits for it to exit.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	cancel, done := j.cancel, j.done
	j.running = false
	j.mu.Unlock()

	cancel()
	<-done
}

func (j *Janitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *Janitor) sweep() {
	removed := j.store.Sweep(j.idle)
	remaining := j.store.Len()
	if removed > 0 {
		j.logger.Info("evicted idle sessions", "removed", removed, "remaining", remaining)
	}
	j.mu.Lock()
	fn := j.onSweep
	j.mu.Unlock()
	if fn != nil {
		fn(removed, remaining)
	}
}
