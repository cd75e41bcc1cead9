package timer

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is the countdown cadence.
const DefaultInterval = time.Second

// Ticker calls a function on a fixed interval until stopped. A Ticker runs once:
// after Stop, Start does nothing.
type Ticker struct {
	interval time.Duration

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	done    chan struct{}

	stopOnce sync.Once
}

func New(interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Ticker{
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start launches the tick loop on its own goroutine.
func (t *Ticker) Start(tick func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started || t.ctx.Err() != nil {
		return
	}
	t.started = true

	go func() {
		defer close(t.done)
		tk := time.NewTicker(t.interval)
		defer tk.Stop()
		for {
			select {
			case <-t.ctx.Done():
				return
			case <-tk.C:
				// a tick racing with Stop must not run
				if t.ctx.Err() != nil {
					return
				}
				tick()
			}
		}
	}()
}

// Stop cancels the loop. It is safe to call more than once and from inside tick.
func (t *Ticker) Stop() {
	t.stopOnce.Do(t.cancel)
}

// Wait blocks until the loop goroutine exits or ctx is done. It returns
// immediately for a ticker that never started.
func (t *Ticker) Wait(ctx context.Context) error {
	t.mu.Lock()
	started := t.started
	t.mu.Unlock()
	if !started {
		return nil
	}
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stopped reports whether Stop has been called.
func (t *Ticker) Stopped() bool {
	return t.ctx.Err() != nil
}
