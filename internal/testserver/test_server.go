package testserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ganot/dailylog/internal/chat"
	"github.com/ganot/dailylog/internal/cipher"
	"github.com/ganot/dailylog/internal/clock"
	"github.com/ganot/dailylog/internal/domain/account"
	"github.com/ganot/dailylog/internal/domain/activity"
	"github.com/ganot/dailylog/internal/domain/daily"
	"github.com/ganot/dailylog/internal/domain/registration"
	"github.com/ganot/dailylog/internal/domain/team"
	"github.com/ganot/dailylog/internal/grouplock"
	"github.com/ganot/dailylog/internal/mcp"
	"github.com/ganot/dailylog/internal/metrics"
	"github.com/ganot/dailylog/internal/redmine"
	"github.com/ganot/dailylog/internal/sqlite"
	"github.com/ganot/dailylog/internal/tracking"
	"github.com/ganot/dailylog/internal/transport"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

// Start is the fake clock's initial time.
var Start = time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

// TestServer is the full service stack over an in-memory database, a fake
// Redmine and a fake clock.
type TestServer struct {
	Server  *httptest.Server
	DB      *sqlite.DB
	Token   string
	Clock   *clock.Fake
	Redmine *FakeRedmine
	Metrics *metrics.Metrics

	Accounts     *account.Service
	Teams        *team.Service
	Lifecycle    *daily.Lifecycle
	Orchestrator *registration.Orchestrator
	Activity     *activity.Service
}

// New wires the stack. token guards /webhook and /mcp.
func New(t *testing.T, token string) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	identity, err := cipher.GenerateIdentity()
	require.NoError(t, err)
	sealer, err := cipher.New(identity)
	require.NoError(t, err)

	clk := clock.NewFake(Start)
	m := metrics.New()
	fake := NewFakeRedmine(t)

	client := m.Instrument(redmine.New(fake.URL(), 5*time.Second))
	gateway := tracking.NewGateway(client, tracking.Options{BaseURL: fake.URL(), ActivityHint: "meeting"}, nil)

	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), nil)
	accountSvc := account.NewService(sqlite.NewAccountRepository(db), sealer, nil)
	teamSvc := team.NewService(sqlite.NewTeamRepository(db), accountSvc, gateway, activitySvc, nil)

	locks := grouplock.New()
	store := sqlite.NewDailyStore(db)
	lifecycle := daily.NewLifecycle(store, teamSvc, locks, clk, activitySvc, nil)
	orchestrator := registration.NewOrchestrator(registration.Deps{
		Teams:    teamSvc,
		Accounts: accountSvc,
		Store:    store,
		Gateway:  gateway,
		Locks:    locks,
		Clock:    clk,
		Activity: activitySvc,
	}, registration.Options{Location: time.UTC}, nil)

	dispatcher := chat.NewDispatcher(chat.Deps{
		Accounts:  accountSvc,
		Teams:     teamSvc,
		Lifecycle: lifecycle,
		Registrar: orchestrator,
		Activity:  activitySvc,
		Metrics:   m,
	}, nil)

	tokens := transport.StaticTokens{token: "test-bridge"}
	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Registrar: orchestrator,
			Lifecycle: lifecycle,
			Teams:     teamSvc,
			Activity:  activitySvc,
			Metrics:   m,
		},
		Resolver:      tokens,
		TransportMode: "http",
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server { return mcpServer }, nil)

	server := httptest.NewServer(transport.NewServer(dispatcher, transport.Options{
		Auth:    transport.AuthMiddleware(tokens),
		Metrics: m.Handler(),
		MCP:     mcpHandler,
		Now:     clk.Now,
	}))

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return &TestServer{
		Server:       server,
		DB:           db,
		Token:        token,
		Clock:        clk,
		Redmine:      fake,
		Metrics:      m,
		Accounts:     accountSvc,
		Teams:        teamSvc,
		Lifecycle:    lifecycle,
		Orchestrator: orchestrator,
		Activity:     activitySvc,
	}
}

// RPCResponse is a decoded webhook response.
type RPCResponse struct {
	Result *chat.Reply `json:"result,omitempty"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Call posts one JSON-RPC request to /webhook.
func (ts *TestServer) Call(t *testing.T, method string, params any) RPCResponse {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
		"id":      1,
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/webhook", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ts.Token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out RPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// Command sends a command and returns the reply text.
func (ts *TestServer) Command(t *testing.T, cmd chat.Command) string {
	t.Helper()
	resp := ts.Call(t, "command", cmd)
	require.Nil(t, resp.Error)
	require.NotNil(t, resp.Result)
	return resp.Result.Text
}

// Signal sends a video chat signal at the given time.
func (ts *TestServer) Signal(t *testing.T, kind chat.SignalKind, groupID int64, at time.Time) *chat.Reply {
	t.Helper()
	resp := ts.Call(t, "signal", chat.Signal{Kind: kind, GroupID: groupID, At: at})
	require.Nil(t, resp.Error)
	require.NotNil(t, resp.Result)
	return resp.Result
}
