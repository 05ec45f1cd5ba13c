// Package scheduler runs background settlement maintenance. The sweeper finds
// intents whose PROCESSING claim outlived the stale window (a worker crashed
// between claim and commit) and re-drives them through reconciliation.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coopay/backend/internal/domain/settlement"
	"go.uber.org/zap"
)

// StaleFinder lists references whose claim has been held since before cutoff
type StaleFinder interface {
	FindStale(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}

// ReconcileFunc releases a stale claim and settles the reference again
type ReconcileFunc func(ctx context.Context, reference string) error

// SweeperConfig holds sweeper configuration
type SweeperConfig struct {
	// Interval between sweeps; zero disables the sweeper
	Interval   time.Duration
	StaleAfter time.Duration
	BatchSize  int
	Workers    int
	JobTimeout time.Duration
}

// DefaultSweeperConfig returns default sweeper configuration
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:   time.Minute,
		StaleAfter: 10 * time.Minute,
		BatchSize:  50,
		Workers:    2,
		JobTimeout: 30 * time.Second,
	}
}

func (c SweeperConfig) validate() error {
	if c.Interval <= 0 || c.StaleAfter <= 0 || c.BatchSize <= 0 || c.Workers <= 0 || c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Sweeper periodically reconciles stale settlement claims with a small
// worker pool. A reference is queued at most once until its job finishes.
type Sweeper struct {
	config    SweeperConfig
	finder    StaleFinder
	reconcile ReconcileFunc
	logger    *zap.Logger
	now       func() time.Time

	jobs      chan string
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	inFlight  map[string]struct{}
}

// NewSweeper creates a new sweeper
func NewSweeper(config SweeperConfig, finder StaleFinder, reconcile ReconcileFunc, logger *zap.Logger) (*Sweeper, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		config:    config,
		finder:    finder,
		reconcile: reconcile,
		logger:    logger,
		now:       time.Now,
		jobs:      make(chan string, config.BatchSize),
		inFlight:  make(map[string]struct{}),
	}, nil
}

// Start starts the sweep loop and the workers
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}
	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Settlement sweeper started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("stale_after", s.config.StaleAfter),
		zap.Int("workers", s.config.Workers),
	)
	return nil
}

// Stop stops the sweeper and waits for in-flight reconciliations
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Settlement sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Settlement sweeper stop timed out")
		return ctx.Err()
	}
}

func (s *Sweeper) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("Settlement sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce queues the current stale references and returns how many were
// queued. References already queued or running are skipped.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.config.StaleAfter)
	refs, err := s.finder.FindStale(ctx, cutoff, s.config.BatchSize)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, ref := range refs {
		if !s.claim(ref) {
			continue
		}
		select {
		case s.jobs <- ref:
			queued++
		case <-ctx.Done():
			s.release(ref)
			return queued, ctx.Err()
		default:
			s.release(ref)
			s.logger.Warn("Sweeper queue full, deferring to next sweep", zap.String("payment_reference", ref))
		}
	}
	if queued > 0 {
		s.logger.Info("Queued stale settlements", zap.Int("count", queued), zap.Time("cutoff", cutoff))
	}
	return queued, nil
}

func (s *Sweeper) claim(ref string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[ref]; busy {
		return false
	}
	s.inFlight[ref] = struct{}{}
	return true
}

func (s *Sweeper) release(ref string) {
	s.mu.Lock()
	delete(s.inFlight, ref)
	s.mu.Unlock()
}

func (s *Sweeper) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case ref := <-s.jobs:
			s.process(ctx, ref, workerID)
		}
	}
}

// process runs one reconciliation. The job context is detached from the
// sweeper so shutdown does not abort a settlement between claim and commit.
func (s *Sweeper) process(ctx context.Context, ref string, workerID int) {
	defer s.release(ref)

	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.JobTimeout)
	defer cancel()

	log := s.logger.With(zap.Int("worker_id", workerID), zap.String("payment_reference", ref))
	err := s.reconcile(jobCtx, ref)
	switch {
	case err == nil:
		log.Info("Stale settlement reconciled")
	case errors.Is(err, settlement.ErrSettlementInProgress):
		log.Debug("Stale settlement picked up by another worker")
	case settlement.IsUndetermined(err):
		log.Info("Stale settlement still undetermined", zap.Error(err))
	case errors.Is(err, settlement.ErrGatewayVerificationFailed):
		log.Info("Stale settlement failed at the gateway", zap.Error(err))
	default:
		log.Error("Stale settlement reconciliation failed", zap.Error(err))
	}
}
