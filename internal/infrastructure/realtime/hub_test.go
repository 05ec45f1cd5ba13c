package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/coopay/backend/internal/domain/identity"
	"github.com/coopay/backend/internal/domain/settlement"
)

func startHub(t *testing.T, cfg Config, principal identity.Principal) (*Hub, string) {
	t.Helper()
	hub := NewHub(cfg, zaptest.NewLogger(t))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := hub.Serve(w, r, principal); err == ErrNoChannels {
			http.Error(w, err.Error(), http.StatusForbidden)
		}
	}))
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})
	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestChannelsFor(t *testing.T) {
	coopID := uuid.New()
	assert.Equal(t, []string{AdminChannel}, ChannelsFor(identity.Principal{Role: identity.RoleSuperAdmin}))
	assert.Equal(t, []string{AdminChannel}, ChannelsFor(identity.Principal{Role: identity.RoleApex}))
	assert.Equal(t, []string{CooperativeChannel(coopID.String())},
		ChannelsFor(identity.Principal{Role: identity.RoleLeader, CooperativeID: &coopID}))
	assert.Empty(t, ChannelsFor(identity.Principal{Role: identity.RoleLeader}))
	assert.Empty(t, ChannelsFor(identity.Principal{Role: identity.RoleMember, CooperativeID: &coopID}))
}

func TestHub_BroadcastsCompletedToAdminAndCooperative(t *testing.T) {
	coopID := uuid.New()
	admin, adminURL := startHub(t, Config{}, identity.Principal{AccountID: uuid.New(), Role: identity.RoleSuperAdmin})
	leader, leaderURL := startHub(t, Config{}, identity.Principal{AccountID: uuid.New(), Role: identity.RoleLeader, CooperativeID: &coopID})

	adminConn := dial(t, adminURL)
	leaderConn := dial(t, leaderURL)
	require.Eventually(t, func() bool { return admin.Connections() == 1 }, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return leader.Connections() == 1 }, time.Second, 10*time.Millisecond)

	event := settlement.NewSettlementCompletedEvent("CTB-01", settlement.KindContribution, decimal.NewFromInt(5000), &coopID)
	require.NoError(t, admin.Handle(context.Background(), event))
	require.NoError(t, leader.Handle(context.Background(), event))

	msg := readMessage(t, adminConn)
	assert.Equal(t, settlement.EventTypeSettlementCompleted, msg.Type)
	assert.Equal(t, "CTB-01", msg.Reference)
	assert.Equal(t, "COMPLETED", msg.Status)
	assert.Equal(t, "CONTRIBUTION", msg.Kind)
	require.NotNil(t, msg.Amount)
	assert.True(t, msg.Amount.Equal(decimal.NewFromInt(5000)))

	msg = readMessage(t, leaderConn)
	assert.Equal(t, "CTB-01", msg.Reference)
}

func TestHub_FailedEventsOnlyReachAdmins(t *testing.T) {
	coopID := uuid.New()
	hub, url := startHub(t, Config{}, identity.Principal{AccountID: uuid.New(), Role: identity.RoleCooperative, CooperativeID: &coopID})
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.Connections() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Handle(context.Background(),
		settlement.NewSettlementFailedEvent("MEM-01", settlement.KindMemberRegistration, "declined")))
	other := uuid.New()
	require.NoError(t, hub.Handle(context.Background(),
		settlement.NewSettlementCompletedEvent("MEM-02", settlement.KindMemberRegistration, decimal.NewFromInt(5100), &other)))
	require.NoError(t, hub.Handle(context.Background(),
		settlement.NewSettlementCompletedEvent("MEM-03", settlement.KindMemberRegistration, decimal.NewFromInt(5100), &coopID)))

	msg := readMessage(t, conn)
	assert.Equal(t, "MEM-03", msg.Reference, "only the cooperative's own completion is delivered")
}

func TestHub_RejectsRoleWithoutChannel(t *testing.T) {
	_, url := startHub(t, Config{}, identity.Principal{AccountID: uuid.New(), Role: identity.RoleMember})
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHub_CheckOrigin(t *testing.T) {
	_, url := startHub(t, Config{AllowOrigins: []string{"https://app.coopay.ng"}},
		identity.Principal{AccountID: uuid.New(), Role: identity.RoleSuperAdmin})

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, _, err := websocket.DefaultDialer.Dial(url, header)
	assert.Error(t, err)

	header = http.Header{"Origin": []string{"https://app.coopay.ng"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = conn.Close()
}

func TestHub_PingsAndDropsClosedClients(t *testing.T) {
	hub, url := startHub(t, Config{PingInterval: 50 * time.Millisecond}, identity.Principal{AccountID: uuid.New(), Role: identity.RoleSuperAdmin})
	conn := dial(t, url)

	pinged := make(chan struct{}, 1)
	conn.SetPingHandler(func(string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return nil
	})
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-pinged:
	case <-time.After(2 * time.Second):
		t.Fatal("no ping received")
	}

	_ = conn.Close()
	assert.Eventually(t, func() bool { return hub.Connections() == 0 }, 2*time.Second, 20*time.Millisecond)
}

func TestHub_IgnoresUnrelatedEvents(t *testing.T) {
	hub := NewHub(Config{}, nil)
	assert.ElementsMatch(t, []string{settlement.EventTypeSettlementCompleted, settlement.EventTypeSettlementFailed}, hub.EventTypes())
	assert.NoError(t, hub.Handle(context.Background(), nil))
}
