package auth

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Purger drops expired entries. *MemoryRevocationList satisfies it; Redis
// expires keys on its own and needs no sweeper.
type Purger interface {
	Purge() int
}

// Sweeper periodically purges an in-memory revocation list so logged-out
// tokens do not accumulate for the lifetime of the process.
type Sweeper struct {
	target   Purger
	interval time.Duration
	logger   *zap.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSweeper creates a sweeper. A non-positive interval means one hour.
func NewSweeper(target Purger, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{target: target, interval: interval, logger: logger}
}

// Start begins sweeping. Calling Start on a running sweeper is a no-op.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		return
	}
	s.ticker = time.NewTicker(s.interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.ticker, s.stop)

	s.logger.Info("revocation sweeper started", zap.Duration("interval", s.interval))
}

// Stop halts the sweeper and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.logger.Info("revocation sweeper stopped")
}

// RunNow performs one sweep synchronously.
func (s *Sweeper) RunNow() int {
	removed := s.target.Purge()
	if removed > 0 {
		s.logger.Debug("expired revocations purged", zap.Int("removed", removed))
	}
	return removed
}

func (s *Sweeper) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case <-ticker.C:
			s.RunNow()
		case <-stop:
			return
		}
	}
}
