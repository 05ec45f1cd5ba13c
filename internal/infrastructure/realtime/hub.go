// Package realtime pushes settlement outcomes to connected dashboards over websockets.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/coopay/backend/internal/domain/identity"
	"github.com/coopay/backend/internal/domain/settlement"
	"github.com/coopay/backend/internal/domain/shared"
)

// ErrNoChannels means the principal may not subscribe to any dashboard channel
var ErrNoChannels = errors.New("realtime: no dashboard channel for this role")

const sendBuffer = 32

// Config tunes heartbeats and origin checks
type Config struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
	AllowOrigins []string
}

// Hub tracks dashboard connections by channel and fans settlement events out to them.
// It implements shared.EventHandler.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	config   Config
	logger   *zap.Logger
	closed   bool
}

// NewHub creates a hub
func NewHub(cfg Config, logger *zap.Logger) *Hub {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		channels: make(map[string]map[*client]struct{}),
		config:   cfg,
		logger:   logger.Named("realtime"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// ChannelsFor returns the channels principal may listen on
func ChannelsFor(p identity.Principal) []string {
	switch p.Role {
	case identity.RoleSuperAdmin, identity.RoleApex, identity.RoleParentOrganization:
		return []string{AdminChannel}
	case identity.RoleLeader, identity.RoleCooperative:
		if p.CooperativeID != nil {
			return []string{CooperativeChannel(p.CooperativeID.String())}
		}
	}
	return nil
}

// Serve upgrades the request and registers the connection for principal.
// It returns once the connection is registered; pumps run in the background.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, p identity.Principal) error {
	channels := ChannelsFor(p)
	if len(channels) == 0 {
		return ErrNoChannels
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		return err
	}

	c := &client{
		id:        uuid.NewString(),
		accountID: p.AccountID.String(),
		conn:      conn,
		channels:  channels,
		send:      make(chan []byte, sendBuffer),
		hub:       h,
	}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return nil
	}

	go c.writePump()
	go c.readPump()
	return nil
}

// Handle broadcasts a settlement event
func (h *Hub) Handle(ctx context.Context, event shared.DomainEvent) error {
	msg, channels, ok := messageFor(event)
	if !ok {
		return nil
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.broadcast(channels, data)
	return nil
}

// EventTypes returns the settlement events the hub relays
func (h *Hub) EventTypes() []string {
	return []string{settlement.EventTypeSettlementCompleted, settlement.EventTypeSettlementFailed}
}

// Connections returns the number of open connections
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[*client]struct{})
	for _, clients := range h.channels {
		for c := range clients {
			seen[c] = struct{}{}
		}
	}
	return len(seen)
}

// Close disconnects every client and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	all := make(map[*client]struct{})
	for _, clients := range h.channels {
		for c := range clients {
			all[c] = struct{}{}
		}
	}
	h.channels = make(map[string]map[*client]struct{})
	h.mu.Unlock()

	for c := range all {
		c.close()
	}
	h.logger.Info("realtime hub closed", zap.Int("connections", len(all)))
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	for _, ch := range c.channels {
		if _, ok := h.channels[ch]; !ok {
			h.channels[ch] = make(map[*client]struct{})
		}
		h.channels[ch][c] = struct{}{}
	}
	h.logger.Debug("dashboard connected",
		zap.String("client_id", c.id),
		zap.String("account_id", c.accountID),
		zap.Strings("channels", c.channels),
	)
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	for _, ch := range c.channels {
		if clients, ok := h.channels[ch]; ok {
			delete(clients, c)
			if len(clients) == 0 {
				delete(h.channels, ch)
			}
		}
	}
	h.mu.Unlock()
	c.close()
	h.logger.Debug("dashboard disconnected", zap.String("client_id", c.id))
}

// broadcast queues data for each distinct client on channels. A client whose
// buffer is full is dropped rather than blocking the publisher.
func (h *Hub) broadcast(channels []string, data []byte) {
	targets := make(map[*client]struct{})
	h.mu.RLock()
	for _, ch := range channels {
		for c := range h.channels[ch] {
			targets[c] = struct{}{}
		}
	}
	h.mu.RUnlock()

	for c := range targets {
		if !c.enqueue(data) {
			h.logger.Warn("dashboard send buffer full, dropping connection", zap.String("client_id", c.id))
			go h.unregister(c)
		}
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.config.AllowOrigins) == 0 {
		return true
	}
	for _, allowed := range h.config.AllowOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
