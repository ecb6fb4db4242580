package functional_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/ganot/dailylog/internal/chat"
	"github.com/ganot/dailylog/internal/testserver"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

type bearerTransport struct {
	token string
	next  http.RoundTripper
}

func (b bearerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+b.token)
	return b.next.RoundTrip(r)
}

func connectMCP(t *testing.T, ts *testserver.TestServer, bearer string) (*sdkmcp.ClientSession, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.Server.URL + "/mcp",
		HTTPClient: &http.Client{Transport: bearerTransport{token: bearer, next: http.DefaultTransport}},
	}, nil)
	if err != nil {
		return nil, err
	}
	t.Cleanup(func() { _ = session.Close() })
	return session, nil
}

func callTool(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any) (json.RawMessage, bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	return json.RawMessage(text.Text), result.IsError
}

func TestMCP_OperatorTools(t *testing.T) {
	ts := testserver.New(t, token)
	ts.Redmine.AddUser("key-alice", 11, "alice")
	saveToken(t, ts, 1, "alice", "key-alice")

	session, err := connectMCP(t, ts, token)
	require.NoError(t, err)

	initResult := session.InitializeResult()
	require.NotNil(t, initResult)
	require.Equal(t, "dailylog", initResult.ServerInfo.Name)

	out, isErr := callTool(t, session, "bind_team", map[string]any{
		"group_id": groupID, "requester_id": 1, "project_id": 7, "name": "Core",
	})
	require.False(t, isErr, string(out))

	out, isErr = callTool(t, session, "start_daily", map[string]any{"group_id": groupID})
	require.False(t, isErr)
	var notice struct {
		Kind string `json:"kind"`
	}
	require.NoError(t, json.Unmarshal(out, &notice))
	require.Equal(t, "started", notice.Kind)

	ts.Clock.Advance(15 * time.Minute)
	out, isErr = callTool(t, session, "end_daily", map[string]any{"group_id": groupID})
	require.False(t, isErr)
	require.NoError(t, json.Unmarshal(out, &notice))
	require.Equal(t, "ended", notice.Kind)

	out, isErr = callTool(t, session, "register_daily", map[string]any{
		"group_id": groupID, "requester_id": 1, "handles": []string{"@alice", "@nobody"},
	})
	require.False(t, isErr)
	var report struct {
		Outcome  string   `json:"outcome"`
		RecordID int      `json:"record_id"`
		Logged   []string `json:"logged"`
		NotFound []string `json:"not_found"`
	}
	require.NoError(t, json.Unmarshal(out, &report))
	require.Equal(t, "registered", report.Outcome)
	require.Equal(t, 501, report.RecordID)
	require.Equal(t, []string{"alice"}, report.Logged)
	require.Equal(t, []string{"nobody"}, report.NotFound)

	out, isErr = callTool(t, session, "list_dailies", map[string]any{"group_id": groupID})
	require.False(t, isErr)
	var list struct {
		Dailies []struct {
			State        string  `json:"state"`
			Duration     string  `json:"duration"`
			Participants []int64 `json:"participants"`
		} `json:"dailies"`
	}
	require.NoError(t, json.Unmarshal(out, &list))
	require.Len(t, list.Dailies, 1)
	require.Equal(t, "REGISTERED", list.Dailies[0].State)
	require.Equal(t, "15m", list.Dailies[0].Duration)
	require.Equal(t, []int64{1}, list.Dailies[0].Participants)

	out, isErr = callTool(t, session, "recent_activity", map[string]any{"group_id": groupID, "type": "daily_registered"})
	require.False(t, isErr)
	var activity struct {
		Entries []struct {
			Type string `json:"type"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(out, &activity))
	require.Len(t, activity.Entries, 1)

	// Registering again is a business outcome, not a tool error.
	out, isErr = callTool(t, session, "register_daily", map[string]any{
		"group_id": groupID, "requester_id": 1, "handles": []string{"alice"},
	})
	require.False(t, isErr)
	require.Contains(t, string(out), "NOTHING_TO_REGISTER")

	out, isErr = callTool(t, session, "bind_team", map[string]any{
		"group_id": groupID, "requester_id": 1, "project_id": 99, "name": "Ghost",
	})
	require.True(t, isErr)
	require.Contains(t, string(out), "PROJECT_NOT_FOUND")

	// The chat side sees the same state.
	reply := ts.Command(t, chat.Command{Name: "/daily_end", RequesterID: 1, GroupID: groupID})
	require.Equal(t, "No meeting is being tracked in this group.", reply)
}

func TestMCP_RequiresToken(t *testing.T) {
	ts := testserver.New(t, token)
	_, err := connectMCP(t, ts, "wrong")
	require.Error(t, err)
}
