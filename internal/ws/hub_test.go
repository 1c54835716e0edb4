package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"coin_ledger/internal/domain"
	"coin_ledger/internal/events"
	"coin_ledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth map[string]*service.Identity

func (f fakeAuth) Authenticate(_ context.Context, token string) (*service.Identity, error) {
	id, ok := f[token]
	if !ok {
		return nil, domain.ErrSessionDisplaced
	}
	return id, nil
}

func identity(accountID, sid string, role domain.Role) *service.Identity {
	return &service.Identity{Account: &domain.Account{ID: accountID, Role: role}, SessionID: sid}
}

func startFeed(t *testing.T) (*events.Bus, *httptest.Server, *Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	bus := events.NewBus(16)
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx, bus.Subscribe())

	auth := fakeAuth{
		"alice":   identity("acc-alice", "sid-a1", domain.RoleUser),
		"alice-2": identity("acc-alice", "sid-a2", domain.RoleUser),
		"bob":     identity("acc-bob", "sid-b", domain.RoleUser),
		"admin":   identity("acc-admin", "sid-x", domain.RoleAdmin),
	}
	r := gin.New()
	r.GET("/ws", HandleWS(hub, auth, nil))
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return bus, srv, hub
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	env := read(t, conn)
	require.Equal(t, MsgReady, env.Type)
	return conn
}

type received struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func read(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var env received
	require.NoError(t, json.Unmarshal(msg, &env))
	return env
}

func TestEventsRouteToOwner(t *testing.T) {
	bus, srv, _ := startFeed(t)
	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")

	bus.Publish(events.Event{
		Type:      events.BalanceChanged,
		AccountID: "acc-alice",
		Data:      events.BalancePayload{AccountID: "acc-alice", NewBalance: 600},
	})
	bus.Publish(events.Event{
		Type:      events.BalanceChanged,
		AccountID: "acc-bob",
		Data:      events.BalancePayload{AccountID: "acc-bob", NewBalance: 10},
	})

	env := read(t, alice)
	assert.Equal(t, string(events.BalanceChanged), env.Type)
	var p events.BalancePayload
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, int64(600), p.NewBalance)

	env = read(t, bob)
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, "acc-bob", p.AccountID)
}

func TestAdminEventsReachAdmins(t *testing.T) {
	bus, srv, _ := startFeed(t)
	admin := dial(t, srv, "admin")
	alice := dial(t, srv, "alice")

	bus.Publish(events.Event{Type: events.PoolBalanceChanged, ForAdmins: true, Data: events.PoolPayload{Balance: 800}})
	bus.Publish(events.Event{
		Type:      events.TopUpStatusChanged,
		AccountID: "acc-alice",
		ForAdmins: true,
		Data:      events.TopUpPayload{RequestID: "r1", AccountID: "acc-alice", Amount: 200, Status: "approved"},
	})

	assert.Equal(t, string(events.PoolBalanceChanged), read(t, admin).Type)
	assert.Equal(t, string(events.TopUpStatusChanged), read(t, admin).Type)
	// alice is not an admin, so the pool event is not hers
	assert.Equal(t, string(events.TopUpStatusChanged), read(t, alice).Type)
}

func TestRevokedSessionIsClosed(t *testing.T) {
	bus, srv, hub := startFeed(t)
	old := dial(t, srv, "alice")
	current := dial(t, srv, "alice-2")
	require.Equal(t, 2, hub.Connections("acc-alice"))

	bus.Publish(events.Event{
		Type:      events.SessionRevoked,
		AccountID: "acc-alice",
		Session:   "sid-a1",
		Data:      events.RevokedPayload{AccountID: "acc-alice", Reason: "displaced"},
	})

	env := read(t, old)
	assert.Equal(t, string(events.SessionRevoked), env.Type)

	require.NoError(t, old.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := old.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))

	require.Eventually(t, func() bool { return hub.Connections("acc-alice") == 1 }, 2*time.Second, 10*time.Millisecond)

	// the live session keeps its feed
	bus.Publish(events.Event{Type: events.AccountBanned, AccountID: "acc-alice", Data: events.BanPayload{AccountID: "acc-alice"}})
	assert.Equal(t, string(events.AccountBanned), read(t, current).Type)
}

func TestPing(t *testing.T) {
	_, srv, _ := startFeed(t)
	conn := dial(t, srv, "bob")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, MsgPong, read(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bet"}`)))
	assert.Equal(t, MsgError, read(t, conn).Type)
}

func TestRejectsInvalidToken(t *testing.T) {
	_, srv, _ := startFeed(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=stale"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}
