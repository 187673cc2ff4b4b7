package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jamx/internal/shared"
)

// Sweeper runs [Ledger.Sweep] on a fixed interval until stopped.
type Sweeper struct {
	ledger   *Ledger
	interval time.Duration
	logger   *log.Logger
	stopCh   chan struct{}
	once     sync.Once
	started  atomic.Bool
	done     chan struct{}
}

// NewSweeper creates a [Sweeper]. A non-positive interval uses [DefaultSweepInterval].
func NewSweeper(l *Ledger, interval time.Duration, logger *log.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Sweeper{
		ledger:   l,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins sweeping in a background goroutine. It returns immediately;
// calls after the first do nothing.
func (s *Sweeper) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	ticker := time.NewTicker(s.interval)
	go func() {
		defer close(s.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := s.ledger.Sweep(); n > 0 {
					s.logger.Debug("swept dedup ledger", "removed", n, "remaining", s.ledger.Len())
				}
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the sweep loop and waits for it to exit. Safe to call more than once.
func (s *Sweeper) Stop() {
	s.once.Do(func() { close(s.stopCh) })
	if s.started.Load() {
		<-s.done
	}
}
