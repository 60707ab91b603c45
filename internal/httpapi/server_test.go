package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/antoniostano/clyde/internal/chat"
	"github.com/antoniostano/clyde/internal/config"
	"github.com/antoniostano/clyde/internal/gate"
	"github.com/antoniostano/clyde/internal/history"
	"github.com/antoniostano/clyde/internal/ollama"
	"github.com/antoniostano/clyde/internal/prefs"
	"github.com/antoniostano/clyde/internal/protocol"
	"github.com/antoniostano/clyde/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.FileStore) {
	t.Helper()

	dir := t.TempDir()
	st, err := store.NewFileStore(dir, nil)
	require.NoError(t, err)
	resolver, err := prefs.NewResolver(dir, "llama3.2", nil)
	require.NoError(t, err)

	oracle := ollama.NewMock()
	pipeline := chat.New(
		history.NewCache(10), st, resolver, gate.New(oracle, nil), oracle, nil, nil,
		chat.Options{RetryDelay: time.Millisecond},
	)
	return New(config.Config{}, pipeline, nil), st
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	for _, path := range []string{"/healthz", "/readyz"} {
		res, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, res.StatusCode)
		res.Body.Close()
	}
}

func TestHistoryEndpoint(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, st.Create(ctx, "chan-1", "general"))
	require.NoError(t, st.Write(ctx, "chan-1", []protocol.Turn{
		{Role: protocol.RoleUser, Content: "hello", Username: "alice"},
	}))

	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	res, err := http.Get(srv.URL + "/v1/channels/chan-1/history")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body struct {
		ID       string          `json:"id"`
		Messages []protocol.Turn `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.Equal(t, "chan-1", body.ID)
	require.Len(t, body.Messages, 1)
	require.Equal(t, "hello", body.Messages[0].Content)
}

func TestClearEndpoint(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, st.Create(ctx, "chan-1", "general"))
	require.NoError(t, st.Write(ctx, "chan-1", []protocol.Turn{{Content: "x"}}))

	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	res, err := http.Post(srv.URL+"/v1/channels/chan-1/clear", "application/json", nil)
	require.NoError(t, err)
	defer res.Body.Close()

	var body struct {
		Cleared bool `json:"cleared"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.True(t, body.Cleared)

	// Second clear has nothing left to remove.
	res2, err := http.Post(srv.URL+"/v1/channels/chan-1/clear", "application/json", nil)
	require.NoError(t, err)
	defer res2.Body.Close()
	require.NoError(t, json.NewDecoder(res2.Body).Decode(&body))
	require.False(t, body.Cleared)
}

func TestChatWSRoundTrip(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsInbound{Username: "dev", Content: "hello"}))

	var out wsOutbound
	require.NoError(t, conn.ReadJSON(&out))
	require.Empty(t, out.Error)
	require.Equal(t, "assistant", out.Role)
	require.Contains(t, out.Content, "hello")
}
