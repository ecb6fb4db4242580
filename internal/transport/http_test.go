package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ganot/dailylog/internal/chat"
	"github.com/stretchr/testify/require"
)

type testDispatcher struct {
	cmd *chat.Command
	sig *chat.Signal
	err error
}

func (d *testDispatcher) HandleCommand(_ context.Context, cmd chat.Command) (*chat.Reply, error) {
	d.cmd = &cmd
	if d.err != nil {
		return nil, d.err
	}
	return &chat.Reply{Text: "ok " + cmd.Name}, nil
}

func (d *testDispatcher) HandleSignal(_ context.Context, sig chat.Signal) (*chat.Reply, error) {
	d.sig = &sig
	return &chat.Reply{Silent: true}, nil
}

func post(t *testing.T, url, token, body string) Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/webhook", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestWebhook_Command(t *testing.T) {
	dispatcher := &testDispatcher{}
	server := httptest.NewServer(NewServer(dispatcher, Options{Auth: AuthMiddleware(StaticTokens{"tok": "bridge"})}))
	t.Cleanup(server.Close)

	resp := post(t, server.URL, "tok",
		`{"jsonrpc":"2.0","method":"command","params":{"name":"daily","requester_id":10,"group_id":-100,"args":["@a"]},"id":1}`)
	require.Nil(t, resp.Error)
	require.Equal(t, map[string]any{"text": "ok daily"}, resp.Result)
	require.Equal(t, []string{"@a"}, dispatcher.cmd.Args)
	require.Equal(t, int64(-100), dispatcher.cmd.GroupID)
}

func TestWebhook_RequiresAuth(t *testing.T) {
	server := httptest.NewServer(NewServer(&testDispatcher{}, Options{Auth: AuthMiddleware(StaticTokens{"tok": "bridge"})}))
	t.Cleanup(server.Close)

	resp, err := http.Post(server.URL+"/webhook", "application/json", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebhook_SignalDefaultsTimestamp(t *testing.T) {
	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	dispatcher := &testDispatcher{}
	server := httptest.NewServer(NewServer(dispatcher, Options{Now: func() time.Time { return now }}))
	t.Cleanup(server.Close)

	resp := post(t, server.URL, "", `{"jsonrpc":"2.0","method":"signal","params":{"kind":"start","group_id":-100},"id":"a"}`)
	require.Nil(t, resp.Error)
	require.True(t, dispatcher.sig.At.Equal(now))

	resp = post(t, server.URL, "", `{"jsonrpc":"2.0","method":"signal","params":{"kind":"pause","group_id":-100},"id":"b"}`)
	require.NotNil(t, resp.Error)
	require.Equal(t, ErrInvalidParams, resp.Error.Code)
}

func TestWebhook_Errors(t *testing.T) {
	dispatcher := &testDispatcher{}
	server := httptest.NewServer(NewServer(dispatcher, Options{}))
	t.Cleanup(server.Close)

	resp := post(t, server.URL, "", `{"jsonrpc":"2.0","method":"nope","id":1}`)
	require.Equal(t, ErrMethodNotFound, resp.Error.Code)

	resp = post(t, server.URL, "", `not json`)
	require.Equal(t, ErrParseCode, resp.Error.Code)

	resp = post(t, server.URL, "", `{"jsonrpc":"2.0","method":"command","params":{"bogus":true},"id":1}`)
	require.Equal(t, ErrInvalidParams, resp.Error.Code)

	dispatcher.err = chat.ErrUnknownCommand
	resp = post(t, server.URL, "", `{"jsonrpc":"2.0","method":"command","params":{"name":"dance"},"id":1}`)
	require.Equal(t, ErrMethodNotFound, resp.Error.Code)

	dispatcher.err = errors.New("database is locked")
	resp = post(t, server.URL, "", `{"jsonrpc":"2.0","method":"command","params":{"name":"daily"},"id":1}`)
	require.Equal(t, ErrInternal, resp.Error.Code)
	require.Equal(t, "internal error", resp.Error.Message)
}

func TestHTTPServer_HealthAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("dailylog_up 1\n"))
	})
	server := httptest.NewServer(NewServer(&testDispatcher{}, Options{
		Auth:    AuthMiddleware(StaticTokens{"tok": "bridge"}),
		Metrics: metrics,
	}))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
