package mocks

import (
	"context"
	"time"

	"github.com/ganot/dailylog/internal/domain/account"
	"github.com/ganot/dailylog/internal/domain/activity"
	"github.com/ganot/dailylog/internal/domain/daily"
	"github.com/ganot/dailylog/internal/domain/team"
	"github.com/stretchr/testify/mock"
)

// AccountRepository is a mock for account.Repository.
type AccountRepository struct {
	mock.Mock
}

func (m *AccountRepository) Create(ctx context.Context, acct *account.Account) error {
	args := m.Called(ctx, acct)
	return args.Error(0)
}

func (m *AccountRepository) Update(ctx context.Context, acct *account.Account) error {
	args := m.Called(ctx, acct)
	return args.Error(0)
}

func (m *AccountRepository) GetByChatID(ctx context.Context, chatID int64) (*account.Account, error) {
	args := m.Called(ctx, chatID)
	if acct, ok := args.Get(0).(*account.Account); ok {
		return acct, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AccountRepository) GetByHandle(ctx context.Context, handle string) (*account.Account, error) {
	args := m.Called(ctx, handle)
	if acct, ok := args.Get(0).(*account.Account); ok {
		return acct, args.Error(1)
	}
	return nil, args.Error(1)
}

// TeamRepository is a mock for team.Repository.
type TeamRepository struct {
	mock.Mock
}

func (m *TeamRepository) GetByGroup(ctx context.Context, groupID int64) (*team.Team, error) {
	args := m.Called(ctx, groupID)
	if t, ok := args.Get(0).(*team.Team); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TeamRepository) Replace(ctx context.Context, t *team.Team) (*team.Team, error) {
	args := m.Called(ctx, t)
	if prev, ok := args.Get(0).(*team.Team); ok {
		return prev, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TeamRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *TeamRepository) ListByCreator(ctx context.Context, creatorID int64) ([]team.Team, error) {
	args := m.Called(ctx, creatorID)
	if list, ok := args.Get(0).([]team.Team); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// DailyStore is a mock for daily.Store.
type DailyStore struct {
	mock.Mock
}

func (m *DailyStore) Open(ctx context.Context, d *daily.Daily) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *DailyStore) Close(ctx context.Context, id string, endedAt time.Time) (*daily.Daily, error) {
	args := m.Called(ctx, id, endedAt)
	if d, ok := args.Get(0).(*daily.Daily); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DailyStore) Active(ctx context.Context, groupID int64) (*daily.Daily, error) {
	args := m.Called(ctx, groupID)
	if d, ok := args.Get(0).(*daily.Daily); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DailyStore) LatestUnregisteredClosed(ctx context.Context, groupID int64) (*daily.Daily, error) {
	args := m.Called(ctx, groupID)
	if d, ok := args.Get(0).(*daily.Daily); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DailyStore) MarkRegistered(ctx context.Context, id string) (*daily.Daily, error) {
	args := m.Called(ctx, id)
	if d, ok := args.Get(0).(*daily.Daily); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DailyStore) SetParticipants(ctx context.Context, id string, participants []int64) error {
	args := m.Called(ctx, id, participants)
	return args.Error(0)
}

func (m *DailyStore) Get(ctx context.Context, id string) (*daily.Daily, error) {
	args := m.Called(ctx, id)
	if d, ok := args.Get(0).(*daily.Daily); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DailyStore) ListByGroup(ctx context.Context, groupID int64, limit int) ([]daily.Daily, error) {
	args := m.Called(ctx, groupID, limit)
	if list, ok := args.Get(0).([]daily.Daily); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
