package handlers

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	appExpiry "github.com/turtacn/FreshGuard/internal/application/expiry"
	domainExpiry "github.com/turtacn/FreshGuard/internal/domain/expiry"
)

type mockExpiryService struct {
	mock.Mock
}

var _ appExpiry.Service = (*mockExpiryService)(nil)

func (m *mockExpiryService) CriticalProducts(ctx context.Context) ([]domainExpiry.WorkItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domainExpiry.WorkItem), args.Error(1)
}

func (m *mockExpiryService) WarningProducts(ctx context.Context) ([]domainExpiry.WorkItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domainExpiry.WorkItem), args.Error(1)
}

func (m *mockExpiryService) Worklist(ctx context.Context, q appExpiry.WorklistQuery) (*appExpiry.Worklist, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appExpiry.Worklist), args.Error(1)
}

func (m *mockExpiryService) Status(ctx context.Context, productID string) (*appExpiry.ProductStatus, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appExpiry.ProductStatus), args.Error(1)
}

func (m *mockExpiryService) History(ctx context.Context, q appExpiry.HistoryQuery) ([]appExpiry.HistoryItem, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appExpiry.HistoryItem), args.Error(1)
}

func (m *mockExpiryService) Settings(ctx context.Context) (domainExpiry.Settings, error) {
	args := m.Called(ctx)
	return args.Get(0).(domainExpiry.Settings), args.Error(1)
}

func (m *mockExpiryService) UpdateSettings(ctx context.Context, s domainExpiry.Settings) (domainExpiry.Settings, error) {
	args := m.Called(ctx, s)
	return args.Get(0).(domainExpiry.Settings), args.Error(1)
}

func (m *mockExpiryService) entry(args mock.Arguments) (*domainExpiry.ActionEntry, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainExpiry.ActionEntry), args.Error(1)
}

func (m *mockExpiryService) Label(ctx context.Context, req appExpiry.LabelRequest) (*domainExpiry.ActionEntry, error) {
	return m.entry(m.Called(ctx, req))
}

func (m *mockExpiryService) RemoveCritical(ctx context.Context, req appExpiry.RemoveCriticalRequest) (*domainExpiry.ActionEntry, error) {
	return m.entry(m.Called(ctx, req))
}

func (m *mockExpiryService) Deactivate(ctx context.Context, req appExpiry.DeactivateRequest) (*domainExpiry.ActionEntry, error) {
	return m.entry(m.Called(ctx, req))
}

func (m *mockExpiryService) Remove(ctx context.Context, req appExpiry.RemoveRequest) (*domainExpiry.ActionEntry, error) {
	return m.entry(m.Called(ctx, req))
}

func (m *mockExpiryService) UpdateExpiryDate(ctx context.Context, req appExpiry.UpdateDateRequest) (*domainExpiry.ActionEntry, error) {
	return m.entry(m.Called(ctx, req))
}

func (m *mockExpiryService) Undo(ctx context.Context, req appExpiry.UndoRequest) (*appExpiry.UndoResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appExpiry.UndoResult), args.Error(1)
}

func (m *mockExpiryService) DailyReminder(ctx context.Context) (*appExpiry.NotifyResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appExpiry.NotifyResult), args.Error(1)
}

func (m *mockExpiryService) CheckAndNotify(ctx context.Context) (*appExpiry.NotifyResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appExpiry.NotifyResult), args.Error(1)
}

func (m *mockExpiryService) ArchiveDay(ctx context.Context, day time.Time) (*appExpiry.ArchiveResult, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appExpiry.ArchiveResult), args.Error(1)
}
