// Package allocation administers the revenue share table and reports
// per-stakeholder amounts.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/coopay/backend/internal/domain/allocation"
	"github.com/coopay/backend/internal/domain/settlement"
	"github.com/coopay/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Source selects which revenue a report allocates
type Source string

const (
	SourceRegistration Source = "REGISTRATION"
	SourceContribution Source = "CONTRIBUTION"
)

// TransactionType maps a source to the ledger type it sums
func (s Source) TransactionType() (settlement.TransactionType, bool) {
	switch s {
	case SourceRegistration:
		return settlement.TransactionTypeFee, true
	case SourceContribution:
		return settlement.TransactionTypeContribution, true
	}
	return "", false
}

var (
	ErrNoConfig      = shared.NewDomainError("ALLOCATION_NOT_CONFIGURED", "No allocation configuration exists")
	ErrInvalidSource = shared.NewDomainError("INVALID_SOURCE", "Report source must be REGISTRATION or CONTRIBUTION")
	ErrInvalidPeriod = shared.NewDomainError("INVALID_PERIOD", "Report period end must be after its start")
)

const defaultCacheTTL = 30 * time.Second

// ReportQuery selects revenue for a report
type ReportQuery struct {
	Source Source
	From   time.Time
	To     time.Time
	Exact  bool
}

// Report is an allocation of a period's revenue
type Report struct {
	ConfigVersion    int
	Source           Source
	From             time.Time
	To               time.Time
	TransactionCount int64
	Allocation       allocation.Result
	Exact            bool
}

type published struct {
	cfg      *allocation.Config
	loadedAt time.Time
}

// Service reads and updates allocation configuration. The current version is
// published through an atomic pointer; readers get a value copy and never see
// a table mid-update.
type Service struct {
	repo         allocation.Repository
	transactions settlement.TransactionRepository
	current      atomic.Pointer[published]
	cacheTTL     time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// ServiceConfig holds the collaborators of the allocation service
type ServiceConfig struct {
	Repository   allocation.Repository
	Transactions settlement.TransactionRepository
	CacheTTL     time.Duration
	Logger       *zap.Logger
}

// NewService creates a new allocation Service
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Service{
		repo:         cfg.Repository,
		transactions: cfg.Transactions,
		cacheTTL:     ttl,
		logger:       logger,
		now:          time.Now,
	}
}

// Seed stores shares as version 1 when no configuration exists yet
func (s *Service) Seed(ctx context.Context, shares allocation.Shares) error {
	existing, err := s.repo.Current(ctx)
	if err != nil {
		return fmt.Errorf("load allocation config: %w", err)
	}
	if existing != nil {
		s.publish(existing)
		return nil
	}
	cfg, err := allocation.NewConfig(1, shares, "system")
	if err != nil {
		return err
	}
	if err := s.repo.Append(ctx, cfg); err != nil && !errors.Is(err, allocation.ErrVersionConflict) {
		return fmt.Errorf("seed allocation config: %w", err)
	}
	s.logger.Info("Seeded allocation config", zap.Int("version", cfg.Version))
	return s.refresh(ctx)
}

// Current returns a snapshot of the active configuration
func (s *Service) Current(ctx context.Context) (allocation.Config, error) {
	if p := s.current.Load(); p != nil && s.now().Sub(p.loadedAt) < s.cacheTTL {
		return *p.cfg, nil
	}
	if err := s.refresh(ctx); err != nil {
		return allocation.Config{}, err
	}
	return *s.current.Load().cfg, nil
}

// Update validates shares and appends them as the next version. A rejected
// update leaves the previous version active.
func (s *Service) Update(ctx context.Context, shares allocation.Shares, updatedBy string) (allocation.Config, error) {
	if err := shares.Validate(); err != nil {
		return allocation.Config{}, err
	}

	latest, err := s.repo.Current(ctx)
	if err != nil {
		return allocation.Config{}, fmt.Errorf("load allocation config: %w", err)
	}
	var next *allocation.Config
	if latest == nil {
		next, err = allocation.NewConfig(1, shares, updatedBy)
	} else {
		next, err = latest.Next(shares, updatedBy)
	}
	if err != nil {
		return allocation.Config{}, err
	}

	if err := s.repo.Append(ctx, next); err != nil {
		if errors.Is(err, allocation.ErrVersionConflict) {
			return allocation.Config{}, shared.WrapDomainError("CONCURRENT_UPDATE",
				"Allocation configuration was changed concurrently, retry", err)
		}
		return allocation.Config{}, fmt.Errorf("append allocation config: %w", err)
	}

	s.publish(next)
	s.logger.Info("Allocation config updated",
		zap.Int("version", next.Version),
		zap.String("updated_by", updatedBy))
	return *next, nil
}

// History lists recent versions, newest first
func (s *Service) History(ctx context.Context, limit int) ([]allocation.Config, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.History(ctx, limit)
}

// Report allocates the SUCCESSFUL revenue of a period with the current shares
func (s *Service) Report(ctx context.Context, q ReportQuery) (*Report, error) {
	txType, ok := q.Source.TransactionType()
	if !ok {
		return nil, ErrInvalidSource
	}
	if !q.To.After(q.From) {
		return nil, ErrInvalidPeriod
	}

	cfg, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	gross, count, err := s.transactions.SumSuccessful(ctx, txType, q.From, q.To)
	if err != nil {
		return nil, fmt.Errorf("sum revenue: %w", err)
	}

	allocate := allocation.Allocate
	if q.Exact {
		allocate = allocation.AllocateExact
	}
	result, err := allocate(gross, cfg.Shares)
	if err != nil {
		return nil, err
	}

	return &Report{
		ConfigVersion:    cfg.Version,
		Source:           q.Source,
		From:             q.From,
		To:               q.To,
		TransactionCount: count,
		Allocation:       result,
		Exact:            q.Exact,
	}, nil
}

// Gross is a convenience for callers that allocate an arbitrary amount
func (s *Service) Gross(ctx context.Context, gross decimal.Decimal) (allocation.Result, error) {
	cfg, err := s.Current(ctx)
	if err != nil {
		return allocation.Result{}, err
	}
	return cfg.Allocate(gross)
}

func (s *Service) refresh(ctx context.Context) error {
	cfg, err := s.repo.Current(ctx)
	if err != nil {
		return fmt.Errorf("load allocation config: %w", err)
	}
	if cfg == nil {
		return ErrNoConfig
	}
	s.publish(cfg)
	return nil
}

func (s *Service) publish(cfg *allocation.Config) {
	for {
		old := s.current.Load()
		if old != nil && old.cfg.Version > cfg.Version {
			return
		}
		if s.current.CompareAndSwap(old, &published{cfg: cfg, loadedAt: s.now()}) {
			return
		}
	}
}
