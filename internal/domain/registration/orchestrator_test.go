package registration_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ganot/dailylog/internal/cipher"
	"github.com/ganot/dailylog/internal/clock"
	"github.com/ganot/dailylog/internal/domain/account"
	"github.com/ganot/dailylog/internal/domain/daily"
	"github.com/ganot/dailylog/internal/domain/registration"
	"github.com/ganot/dailylog/internal/domain/team"
	"github.com/ganot/dailylog/internal/grouplock"
	"github.com/ganot/dailylog/internal/repository"
	"github.com/ganot/dailylog/internal/repository/mocks"
	"github.com/ganot/dailylog/internal/tracking"
	trackingmocks "github.com/ganot/dailylog/internal/tracking/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	group       = int64(-100)
	requesterID = int64(10)
)

var (
	start = time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	end   = time.Date(2024, 3, 5, 9, 47, 30, 0, time.UTC)
)

// fakeStore keeps the check-and-set semantics of the sqlite store.
type fakeStore struct {
	mu           sync.Mutex
	dailies      []*daily.Daily
	calls        int
	participants map[string][]int64
}

func (s *fakeStore) LatestUnregisteredClosed(_ context.Context, groupID int64) (*daily.Daily, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	var latest *daily.Daily
	for _, d := range s.dailies {
		if d.GroupID != groupID || d.EndedAt == nil {
			continue
		}
		if latest == nil || d.EndedAt.After(*latest.EndedAt) {
			latest = d
		}
	}
	if latest == nil || latest.Registered {
		return nil, repository.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *fakeStore) MarkRegistered(ctx context.Context, id string) (*daily.Daily, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	for _, d := range s.dailies {
		if d.ID == id {
			if d.Registered {
				return nil, repository.ErrConflict
			}
			d.Registered = true
			cp := *d
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeStore) SetParticipants(ctx context.Context, id string, participants []int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.participants == nil {
		s.participants = map[string][]int64{}
	}
	s.participants[id] = participants
	return nil
}

func (s *fakeStore) registered(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.dailies {
		if d.ID == id {
			return d.Registered
		}
	}
	return false
}

type harness struct {
	orch     *registration.Orchestrator
	accounts *mocks.AccountRepository
	teams    *mocks.TeamRepository
	store    *fakeStore
	client   *trackingmocks.Client
	clock    *clock.Fake
	cipher   *cipher.Cipher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	identity, err := cipher.GenerateIdentity()
	require.NoError(t, err)
	c, err := cipher.New(identity)
	require.NoError(t, err)

	h := &harness{
		accounts: &mocks.AccountRepository{},
		teams:    &mocks.TeamRepository{},
		store:    &fakeStore{},
		client:   &trackingmocks.Client{},
		clock:    clock.NewFake(end.Add(5 * time.Minute)),
		cipher:   c,
	}
	h.orch = registration.NewOrchestrator(registration.Deps{
		Teams:    team.NewService(h.teams, nil, nil, nil, nil),
		Accounts: account.NewService(h.accounts, c, nil),
		Store:    h.store,
		Gateway:  tracking.NewGateway(h.client, tracking.Options{BaseURL: "https://rm.example"}, nil),
		Locks:    grouplock.New(),
		Clock:    h.clock,
	}, registration.Options{Location: time.UTC}, nil)
	return h
}

func (h *harness) seal(t *testing.T, plaintext string) string {
	t.Helper()
	blob, err := h.cipher.Encrypt(plaintext)
	require.NoError(t, err)
	return blob
}

func (h *harness) bound() {
	h.teams.On("GetByGroup", mock.Anything, group).
		Return(&team.Team{ID: "t1", GroupID: group, ProjectID: 12, ProjectCode: "core", Name: "Core"}, nil)
}

func (h *harness) requester(t *testing.T) {
	h.accounts.On("GetByChatID", mock.Anything, requesterID).
		Return(&account.Account{ChatID: requesterID, Handle: "lead", Credential: h.seal(t, "key-req"), Active: true}, nil)
}

func (h *harness) closedDaily(id string, endedAt time.Time) {
	e := endedAt
	h.store.dailies = append(h.store.dailies, &daily.Daily{ID: id, TeamID: "t1", GroupID: group, StartedAt: start, EndedAt: &e})
}

func (h *harness) recordSucceeds(issueID int) {
	h.client.On("CurrentUser", mock.Anything, "key-req").Return(&tracking.User{ID: 1}, nil)
	h.client.On("CreateIssue", mock.Anything, "key-req", mock.Anything).Return(&tracking.Issue{ID: issueID}, nil)
}

func TestRegister_NotBoundTouchesNothing(t *testing.T) {
	h := newHarness(t)
	h.teams.On("GetByGroup", mock.Anything, group).Return(nil, repository.ErrNotFound)

	report, err := h.orch.Register(context.Background(), registration.Request{RequesterID: requesterID, GroupID: group, Handles: []string{"@a"}})
	require.NoError(t, err)
	assert.Equal(t, registration.OutcomeNotBound, report.Outcome)
	assert.ErrorIs(t, report.Err(), registration.ErrNotBound)
	assert.Zero(t, h.store.calls)
	h.accounts.AssertNotCalled(t, "GetByChatID", mock.Anything, mock.Anything)
}

func TestRegister_RequesterWithoutCredential(t *testing.T) {
	h := newHarness(t)
	h.bound()
	h.accounts.On("GetByChatID", mock.Anything, requesterID).Return(&account.Account{ChatID: requesterID, Active: true}, nil)

	report, err := h.orch.Register(context.Background(), registration.Request{RequesterID: requesterID, GroupID: group})
	require.NoError(t, err)
	assert.Equal(t, registration.OutcomeNoCredential, report.Outcome)
	assert.ErrorIs(t, report.Err(), registration.ErrNoCredential)
	assert.Zero(t, h.store.calls)
}

func TestRegister_UnknownRequester(t *testing.T) {
	h := newHarness(t)
	h.bound()
	h.accounts.On("GetByChatID", mock.Anything, requesterID).Return(nil, repository.ErrNotFound)

	report, err := h.orch.Register(context.Background(), registration.Request{RequesterID: requesterID, GroupID: group})
	require.NoError(t, err)
	assert.Equal(t, registration.OutcomeNoCredential, report.Outcome)
}

func TestRegister_NothingToRegister(t *testing.T) {
	h := newHarness(t)
	h.bound()
	h.requester(t)

	report, err := h.orch.Register(context.Background(), registration.Request{RequesterID: requesterID, GroupID: group})
	require.NoError(t, err)
	assert.Equal(t, registration.OutcomeNothingToRegister, report.Outcome)
	assert.ErrorIs(t, report.Err(), registration.ErrNothingToRegister)
}

func TestRegister_WindowBoundary(t *testing.T) {
	t.Run("exactly thirty minutes is allowed", func(t *testing.T) {
		h := newHarness(t)
		h.bound()
		h.requester(t)
		h.closedDaily("d1", end)
		h.recordSucceeds(501)
		h.clock.Set(end.Add(30 * time.Minute))

		report, err := h.orch.Register(context.Background(), registration.Request{RequesterID: requesterID, GroupID: group})
		require.NoError(t, err)
		assert.Equal(t, registration.OutcomeRegistered, report.Outcome)
		assert.True(t, h.store.registered("d1"))
	})

	t.Run("one second later is stale", func(t *testing.T) {
		h := newHarness(t)
		h.bound()
		h.requester(t)
		h.closedDaily("d1", end)
		h.clock.Set(end.Add(30*time.Minute + time.Second))

		report, err := h.orch.Register(context.Background(), registration.Request{RequesterID: requesterID, GroupID: group})
		require.NoError(t, err)
		assert.Equal(t, registration.OutcomeWindowExpired, report.Outcome)
		assert.Equal(t, 30*time.Minute+time.Second, report.Elapsed)

		var stale *registration.StaleWindowError
		require.ErrorAs(t, report.Err(), &stale)
		assert.Equal(t, 30*time.Minute+time.Second, stale.Elapsed)
		assert.False(t, h.store.registered("d1"))
		h.client.AssertNotCalled(t, "CreateIssue", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRegister_StaleLeavesDailyClosedAcrossAttempts(t *testing.T) {
	h := newHarness(t)
	h.bound()
	h.requester(t)
	h.closedDaily("d1", end)
	h.clock.Set(end.Add(31 * time.Minute))

	for range 2 {
		report, err := h.orch.Register(context.Background(), registration.Request{RequesterID: requesterID, GroupID: group})
		require.NoError(t, err)
		assert.Equal(t, registration.OutcomeWindowExpired, report.Outcome)
	}
	assert.False(t, h.store.registered("d1"))
}

func TestRegister_ThreeHandleBuckets(t *testing.T) {
	h := newHarness(t)
	h.bound()
	h.requester(t)
	h.closedDaily("d1", end)
	h.recordSucceeds(501)
	h.clock.Set(end.Add(29 * time.Minute))

	h.accounts.On("GetByHandle", mock.Anything, "ghost").Return(nil, repository.ErrNotFound)
	h.accounts.On("GetByHandle", mock.Anything, "nokey").Return(&account.Account{ChatID: 2, Handle: "nokey", Active: true}, nil)
	h.accounts.On("GetByHandle", mock.Anything, "broken").
		Return(&account.Account{ChatID: 3, Handle: "broken", Credential: h.seal(t, "key-broken"), Active: true}, nil)
	h.client.On("TimeEntryActivities", mock.Anything, "key-broken").Return([]tracking.Activity{{ID: 9, Name: "Meeting"}}, nil)
	h.client.On("CreateTimeEntry", mock.Anything, "key-broken", mock.Anything).Return(nil, errors.New("403 forbidden"))

	report, err := h.orch.Register(context.Background(), registration.Request{
		RequesterID: requesterID,
		GroupID:     group,
		Handles:     []string{"@ghost", "@nokey", "@broken"},
	})
	require.NoError(t, err)
	require.NoError(t, report.Err())
	assert.Equal(t, registration.OutcomeRegistered, report.Outcome)
	assert.Equal(t, 501, report.RecordID)
	assert.Equal(t, "https://rm.example/issues/501", report.RecordURL)

	assert.Equal(t, []string{"ghost"}, report.NotFound())
	assert.Equal(t, []string{"nokey"}, report.NoCredential())
	assert.Equal(t, []string{"broken"}, report.Failed())
	assert.Empty(t, report.Logged())
	assert.True(t, h.store.registered("d1"))
	assert.Equal(t, []int64{2, 3}, h.store.participants["d1"])
}

func TestRegister_LogsHoursFromDuration(t *testing.T) {
	h := newHarness(t)
	h.bound()
	h.requester(t)
	h.closedDaily("d1", end)
	h.recordSucceeds(501)

	h.accounts.On("GetByHandle", mock.Anything, "ann").
		Return(&account.Account{ChatID: 4, Handle: "ann", Credential: h.seal(t, "key-ann"), Active: true}, nil)
	h.client.On("TimeEntryActivities", mock.Anything, "key-ann").
		Return([]tracking.Activity{{ID: 8, Name: "Development"}, {ID: 9, Name: "Meeting"}}, nil)
	h.client.On("CreateTimeEntry", mock.Anything, "key-ann", mock.MatchedBy(func(d tracking.TimeEntryDraft) bool {
		return d.IssueID == 501 && d.ActivityID == 9 && d.Comments == "Daily" && d.Hours > 0.7916 && d.Hours < 0.7918
	})).Return(&tracking.TimeEntry{ID: 1}, nil)

	report, err := h.orch.Register(context.Background(), registration.Request{RequesterID: requesterID, GroupID: group, Handles: []string{"@ann"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ann"}, report.Logged())
	assert.InDelta(t, 0.7917, report.Hours, 0.0001)
	assert.Equal(t, "47m", daily.FormatDuration(report.Duration))
	h.client.AssertExpectations(t)
}

func TestRegister_RecordFailureLeavesDailyUnregistered(t *testing.T) {
	h := newHarness(t)
	h.bound()
	h.requester(t)
	h.closedDaily("d1", end)
	h.client.On("CurrentUser", mock.Anything, "key-req").Return(nil, errors.New("401"))

	report, err := h.orch.Register(context.Background(), registration.Request{RequesterID: requesterID, GroupID: group, Handles: []string{"@a"}})
	require.NoError(t, err)
	assert.Equal(t, registration.OutcomeRecordFailed, report.Outcome)

	var gwErr *tracking.GatewayError
	require.ErrorAs(t, report.Err(), &gwErr)
	assert.False(t, h.store.registered("d1"))
	h.accounts.AssertNotCalled(t, "GetByHandle", mock.Anything, mock.Anything)
}

func TestRegister_CallerCancelAfterRecordStillRegisters(t *testing.T) {
	h := newHarness(t)
	h.bound()
	h.requester(t)
	h.closedDaily("d1", end)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	live := mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil })
	h.client.On("CurrentUser", mock.Anything, "key-req").Return(&tracking.User{ID: 1}, nil)
	h.client.On("CreateIssue", mock.Anything, "key-req", mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(&tracking.Issue{ID: 501}, nil).Once()
	h.accounts.On("GetByHandle", live, "ann").
		Return(&account.Account{ChatID: 4, Handle: "ann", Credential: h.seal(t, "key-ann"), Active: true}, nil)
	h.client.On("TimeEntryActivities", live, "key-ann").Return([]tracking.Activity{{ID: 9, Name: "Meeting"}}, nil)
	h.client.On("CreateTimeEntry", live, "key-ann", mock.Anything).Return(&tracking.TimeEntry{ID: 1}, nil)

	report, err := h.orch.Register(ctx, registration.Request{RequesterID: requesterID, GroupID: group, Handles: []string{"@ann"}})
	require.NoError(t, err)
	assert.Equal(t, registration.OutcomeRegistered, report.Outcome)
	assert.Equal(t, []string{"ann"}, report.Logged())
	assert.True(t, h.store.registered("d1"))
	assert.Equal(t, []int64{4}, h.store.participants["d1"])

	report, err = h.orch.Register(context.Background(), registration.Request{RequesterID: requesterID, GroupID: group, Handles: []string{"@ann"}})
	require.NoError(t, err)
	assert.Equal(t, registration.OutcomeNothingToRegister, report.Outcome)
	h.client.AssertNumberOfCalls(t, "CreateIssue", 1)
}

func TestRegister_ConcurrentRequestsCreateOneRecord(t *testing.T) {
	h := newHarness(t)
	h.bound()
	h.requester(t)
	h.closedDaily("d1", end)
	h.recordSucceeds(501)

	var wg sync.WaitGroup
	outcomes := make([]registration.Outcome, 2)
	for i := range outcomes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report, err := h.orch.Register(context.Background(), registration.Request{RequesterID: requesterID, GroupID: group})
			if assert.NoError(t, err) {
				outcomes[i] = report.Outcome
			}
		}()
	}
	wg.Wait()

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i] < outcomes[j] })
	assert.Equal(t, []registration.Outcome{registration.OutcomeNothingToRegister, registration.OutcomeRegistered}, outcomes)
	h.client.AssertNumberOfCalls(t, "CreateIssue", 1)
}

func TestRegister_BucketsPartitionInput(t *testing.T) {
	h := newHarness(t)
	h.bound()
	h.requester(t)
	h.closedDaily("d1", end)
	h.recordSucceeds(501)

	known := map[string]string{"a": "key-a", "c": "key-c", "e": "key-e"}
	for handle, key := range known {
		h.accounts.On("GetByHandle", mock.Anything, handle).
			Return(&account.Account{ChatID: int64(len(handle) + 100), Handle: handle, Credential: h.seal(t, key), Active: true}, nil)
		h.client.On("TimeEntryActivities", mock.Anything, key).Return([]tracking.Activity{{ID: 1, Name: "Meeting"}}, nil)
	}
	h.client.On("CreateTimeEntry", mock.Anything, "key-a", mock.Anything).Return(&tracking.TimeEntry{ID: 1}, nil)
	h.client.On("CreateTimeEntry", mock.Anything, "key-c", mock.Anything).Return(nil, errors.New("500"))
	h.client.On("CreateTimeEntry", mock.Anything, "key-e", mock.Anything).Return(&tracking.TimeEntry{ID: 2}, nil)
	h.accounts.On("GetByHandle", mock.Anything, "b").Return(nil, repository.ErrNotFound)
	h.accounts.On("GetByHandle", mock.Anything, "d").Return(&account.Account{ChatID: 200, Handle: "d", Active: true}, nil)

	input := []string{"@a", "@b", "@c", "@d", "@e", "@a", "e"}
	report, err := h.orch.Register(context.Background(), registration.Request{RequesterID: requesterID, GroupID: group, Handles: input})
	require.NoError(t, err)

	var order []string
	for _, p := range report.Participants {
		order = append(order, p.Handle)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, order)

	seen := map[string]int{}
	for _, b := range registration.Buckets {
		for _, handle := range report.Handles(b) {
			seen[handle]++
		}
	}
	assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1, "d": 1, "e": 1}, seen)
	assert.Equal(t, []string{"a", "e"}, report.Logged())
	assert.Equal(t, []string{"c"}, report.Failed())
}

func TestNormalizeHandles(t *testing.T) {
	got := registration.NormalizeHandles([]string{"@alice", " bob ", "@", "", "@alice", "Alice"})
	assert.Equal(t, []string{"alice", "bob", "Alice"}, got)
}
