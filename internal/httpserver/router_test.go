package httpserver_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rivift-connect/internal/config"
	"rivift-connect/internal/httpserver"
	"rivift-connect/internal/security"
	"rivift-connect/internal/store/sqlite"
	"rivift-connect/internal/ws"
)

const testOrigin = "http://localhost:3000"

type routerEnv struct {
	srv    *httptest.Server
	tokens *security.TokenService
}

func newRouterEnv(t *testing.T) *routerEnv {
	t.Helper()

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(db))

	cfg := &config.Config{
		AppName:            "rivift-connect-test",
		Env:                "test",
		JWTSecret:          "test-secret",
		AccessTokenMinutes: 60,
		CORSOrigins:        []string{testOrigin},
		HistoryPageSize:    50,
	}

	tokens := security.NewTokenService(cfg.JWTSecret, time.Hour)
	hasher := security.NewPasswordHasher(4)
	registry := ws.NewRegistry()

	router := httpserver.NewRouter(cfg, db, registry, tokens, hasher, zap.NewNop())
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &routerEnv{srv: srv, tokens: tokens}
}

func (e *routerEnv) postJSON(t *testing.T, path string, body map[string]any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.srv.URL+path, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *routerEnv) register(t *testing.T, identity string) {
	t.Helper()
	resp := e.postJSON(t, "/api/auth/register", map[string]any{
		"identity": identity,
		"password": "Password1!",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

// dialWS connects to /ws through the full router, logs in as identity
// and consumes the login_ok frame.
func (e *routerEnv) dialWS(t *testing.T, identity string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws"
	header := http.Header{"Origin": []string{testOrigin}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	token, err := e.tokens.CreateForIdentity(identity)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "login", "token": token}))

	frame := readWSFrame(t, conn)
	require.Equal(t, "login_ok", frame["type"])
	return conn
}

func readWSFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestRouterHealth(t *testing.T) {
	e := newRouterEnv(t)

	resp, err := http.Get(e.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// TestRouterRelayRoundTrip drives the relay through the router-mounted
// websocket endpoint rather than the bare handler, so the full
// middleware stack sits in front of the connection.
func TestRouterRelayRoundTrip(t *testing.T) {
	e := newRouterEnv(t)
	const (
		alice = "alice@rivift.net"
		bob   = "bob@rivift.net"
	)
	e.register(t, alice)
	e.register(t, bob)

	aliceConn := e.dialWS(t, alice)
	bobConn := e.dialWS(t, bob)

	require.NoError(t, aliceConn.WriteJSON(map[string]any{
		"type": "send_friend_request",
		"to":   bob,
	}))

	frame := readWSFrame(t, aliceConn)
	require.Equal(t, "state_changed", frame["type"])
	assert.Equal(t, "friend_request", frame["reason"])
	assert.Equal(t, bob, frame["with"])

	frame = readWSFrame(t, bobConn)
	require.Equal(t, "state_changed", frame["type"])
	assert.Equal(t, alice, frame["with"])
}
