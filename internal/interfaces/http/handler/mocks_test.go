package handler

import (
	"context"

	appallocation "github.com/coopay/backend/internal/application/allocation"
	appsettlement "github.com/coopay/backend/internal/application/settlement"
	"github.com/coopay/backend/internal/domain/allocation"
	"github.com/coopay/backend/internal/domain/fee"
	"github.com/coopay/backend/internal/infrastructure/notification"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockSettler struct {
	mock.Mock
}

func (m *mockSettler) Settle(ctx context.Context, reference string) (*appsettlement.Result, error) {
	args := m.Called(ctx, reference)
	res, _ := args.Get(0).(*appsettlement.Result)
	return res, args.Error(1)
}

func (m *mockSettler) Reconcile(ctx context.Context, reference string) (*appsettlement.Result, error) {
	args := m.Called(ctx, reference)
	res, _ := args.Get(0).(*appsettlement.Result)
	return res, args.Error(1)
}

func (m *mockSettler) Status(ctx context.Context, reference string) (*appsettlement.Result, error) {
	args := m.Called(ctx, reference)
	res, _ := args.Get(0).(*appsettlement.Result)
	return res, args.Error(1)
}

type mockInitializer struct {
	mock.Mock
}

func (m *mockInitializer) Quote(amount decimal.Decimal) (fee.Calculation, error) {
	return fee.Compute(amount)
}

func (m *mockInitializer) InitializeCooperativeRegistration(ctx context.Context, req appsettlement.CooperativeRegistration) (*appsettlement.Checkout, error) {
	args := m.Called(ctx, req)
	co, _ := args.Get(0).(*appsettlement.Checkout)
	return co, args.Error(1)
}

func (m *mockInitializer) InitializeMemberRegistration(ctx context.Context, req appsettlement.MemberRegistration) (*appsettlement.Checkout, error) {
	args := m.Called(ctx, req)
	co, _ := args.Get(0).(*appsettlement.Checkout)
	return co, args.Error(1)
}

func (m *mockInitializer) InitializeContribution(ctx context.Context, req appsettlement.ContributionRequest) (*appsettlement.Checkout, error) {
	args := m.Called(ctx, req)
	co, _ := args.Get(0).(*appsettlement.Checkout)
	return co, args.Error(1)
}

type mockAllocationAdmin struct {
	mock.Mock
}

func (m *mockAllocationAdmin) Current(ctx context.Context) (allocation.Config, error) {
	args := m.Called(ctx)
	return args.Get(0).(allocation.Config), args.Error(1)
}

func (m *mockAllocationAdmin) Update(ctx context.Context, shares allocation.Shares, updatedBy string) (allocation.Config, error) {
	args := m.Called(ctx, shares, updatedBy)
	return args.Get(0).(allocation.Config), args.Error(1)
}

func (m *mockAllocationAdmin) History(ctx context.Context, limit int) ([]allocation.Config, error) {
	args := m.Called(ctx, limit)
	cfgs, _ := args.Get(0).([]allocation.Config)
	return cfgs, args.Error(1)
}

func (m *mockAllocationAdmin) Report(ctx context.Context, q appallocation.ReportQuery) (*appallocation.Report, error) {
	args := m.Called(ctx, q)
	r, _ := args.Get(0).(*appallocation.Report)
	return r, args.Error(1)
}

type stubNotificationLog struct {
	entries []notification.LogEntry
	err     error
}

func (s *stubNotificationLog) ListByReference(_ context.Context, reference string) ([]notification.LogEntry, error) {
	var out []notification.LogEntry
	for _, e := range s.entries {
		if e.Reference == reference {
			out = append(out, e)
		}
	}
	return out, s.err
}
