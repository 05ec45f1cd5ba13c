package allocation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/coopay/backend/internal/domain/allocation"
	"github.com/coopay/backend/internal/domain/settlement"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type memoryConfigRepo struct {
	mu        sync.Mutex
	versions  []allocation.Config
	appendErr error
}

func (r *memoryConfigRepo) Current(context.Context) (*allocation.Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.versions) == 0 {
		return nil, nil
	}
	cfg := r.versions[len(r.versions)-1]
	return &cfg, nil
}

func (r *memoryConfigRepo) Append(_ context.Context, cfg *allocation.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	for _, v := range r.versions {
		if v.Version == cfg.Version {
			return allocation.ErrVersionConflict
		}
	}
	r.versions = append(r.versions, *cfg)
	return nil
}

func (r *memoryConfigRepo) History(_ context.Context, limit int) ([]allocation.Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]allocation.Config(nil), r.versions...)
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MockTransactions is a mock implementation of settlement.TransactionRepository
type MockTransactions struct {
	mock.Mock
}

func (m *MockTransactions) FindByReference(ctx context.Context, reference string) (*settlement.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Transaction), args.Error(1)
}

func (m *MockTransactions) TransitionStatus(ctx context.Context, reference string, from, to settlement.TransactionStatus) error {
	return m.Called(ctx, reference, from, to).Error(0)
}

func (m *MockTransactions) SumSuccessful(ctx context.Context, txType settlement.TransactionType, from, to time.Time) (decimal.Decimal, int64, error) {
	args := m.Called(ctx, txType, from, to)
	return args.Get(0).(decimal.Decimal), args.Get(1).(int64), args.Error(2)
}

func shares(apex, platform, coop, leader, parent string) allocation.Shares {
	return allocation.Shares{
		ApexFunds:               decimal.RequireFromString(apex),
		PlatformFunds:           decimal.RequireFromString(platform),
		CooperativeShare:        decimal.RequireFromString(coop),
		LeaderShare:             decimal.RequireFromString(leader),
		ParentOrganizationShare: decimal.RequireFromString(parent),
	}
}

func TestSeedAndUpdate(t *testing.T) {
	repo := &memoryConfigRepo{}
	svc := NewService(ServiceConfig{Repository: repo})
	ctx := context.Background()

	_, err := svc.Current(ctx)
	assert.ErrorIs(t, err, ErrNoConfig)

	require.NoError(t, svc.Seed(ctx, shares("40", "20", "20", "15", "5")))
	require.NoError(t, svc.Seed(ctx, shares("10", "10", "10", "10", "60")))

	cfg, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Version)
	assert.True(t, decimal.NewFromInt(40).Equal(cfg.Shares.ApexFunds))

	t.Run("rejected update keeps previous version", func(t *testing.T) {
		_, err := svc.Update(ctx, shares("40", "20", "20", "15", "4.99"), "admin@coopay.ng")
		assert.ErrorIs(t, err, allocation.ErrInvalidAllocationConfig)

		cfg, err := svc.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, cfg.Version)
		assert.Len(t, repo.versions, 1)
	})

	t.Run("valid update publishes next version", func(t *testing.T) {
		updated, err := svc.Update(ctx, shares("35", "25", "20", "15", "5"), "admin@coopay.ng")
		require.NoError(t, err)
		assert.Equal(t, 2, updated.Version)

		cfg, err := svc.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.Version)
		assert.True(t, decimal.NewFromInt(35).Equal(cfg.Shares.ApexFunds))
	})

	t.Run("storage failure keeps previous version", func(t *testing.T) {
		repo.appendErr = errors.New("connection reset")
		defer func() { repo.appendErr = nil }()

		_, err := svc.Update(ctx, shares("50", "20", "10", "15", "5"), "admin@coopay.ng")
		require.Error(t, err)
		cfg, err := svc.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.Version)
	})

	history, err := svc.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[0].Version)
}

func TestCurrent_ReturnsSnapshot(t *testing.T) {
	repo := &memoryConfigRepo{}
	svc := NewService(ServiceConfig{Repository: repo})
	require.NoError(t, svc.Seed(context.Background(), shares("40", "20", "20", "15", "5")))

	cfg, err := svc.Current(context.Background())
	require.NoError(t, err)
	cfg.Shares.ApexFunds = decimal.NewFromInt(99)

	again, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(40).Equal(again.Shares.ApexFunds))
}

func TestReport(t *testing.T) {
	repo := &memoryConfigRepo{}
	txs := new(MockTransactions)
	svc := NewService(ServiceConfig{Repository: repo, Transactions: txs})
	require.NoError(t, svc.Seed(context.Background(), shares("40", "20", "20", "15", "5")))

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	txs.On("SumSuccessful", mock.Anything, settlement.TransactionTypeFee, from, to).
		Return(decimal.NewFromInt(100000), int64(12), nil)

	report, err := svc.Report(context.Background(), ReportQuery{Source: SourceRegistration, From: from, To: to})
	require.NoError(t, err)
	assert.Equal(t, int64(12), report.TransactionCount)
	assert.Equal(t, 1, report.ConfigVersion)
	assert.True(t, decimal.NewFromInt(40000).Equal(report.Allocation.Amount(allocation.ApexFunds)))
	assert.True(t, decimal.NewFromInt(5000).Equal(report.Allocation.Amount(allocation.ParentOrganizationShare)))

	_, err = svc.Report(context.Background(), ReportQuery{Source: "LOANS", From: from, To: to})
	assert.ErrorIs(t, err, ErrInvalidSource)

	_, err = svc.Report(context.Background(), ReportQuery{Source: SourceContribution, From: to, To: from})
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestGross(t *testing.T) {
	svc := NewService(ServiceConfig{Repository: &memoryConfigRepo{}})
	require.NoError(t, svc.Seed(context.Background(), shares("40", "20", "20", "15", "5")))

	result, err := svc.Gross(context.Background(), decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(150).Equal(result.Amount(allocation.LeaderShare)))
}
