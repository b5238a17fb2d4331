// Package websockets implements the optional GET /api/ws/sync upgrade
// (SPEC_FULL.md §4.D): a connected client watches its own sync run
// progress live, fed by internal/sync's SYNC_PROGRESS/SYNC_COMPLETE/
// SYNC_ERROR events. Grounded on the teacher's internal/websockets
// package (Manager owning an events.EventBus, a per-connection send
// channel, ping/pong keepalive), trimmed from its general-purpose
// multi-channel hub down to the single sync-progress channel this domain
// needs — one client per user-initiated sync watch, not a broadcast hub.
package websockets

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	gfws "github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"discogsography/internal/events"
	"discogsography/internal/jwtauth"
	"discogsography/pkg/logger"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
	sendBuffer   = 16
)

// Manager wires GET /api/ws/sync onto a fiber.App.
type Manager struct {
	eventBus  *events.EventBus
	jwtSecret string
	log       logger.Logger
}

func New(eventBus *events.EventBus, jwtSecret string) *Manager {
	return &Manager{eventBus: eventBus, jwtSecret: jwtSecret, log: logger.New("websockets")}
}

// Register mounts the upgrade route. A nil eventBus (no REDIS_URL
// configured) degrades to a 503 rather than panicking on first connect.
func (m *Manager) Register(app *fiber.App) {
	app.Get("/api/ws/sync", m.authenticateUpgrade, gfws.New(m.handleConnection))
}

// authenticateUpgrade validates the bearer token carried as a query
// parameter (browsers can't set custom headers on the websocket
// handshake) before the protocol switch, storing the caller's userID for
// handleConnection to read back out of c.Locals.
func (m *Manager) authenticateUpgrade(c *fiber.Ctx) error {
	if !gfws.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if m.eventBus == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "sync progress stream not configured")
	}

	claims, err := jwtauth.Verify(c.Query("token"), m.jwtSecret)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	c.Locals("userID", userID)
	return c.Next()
}

func (m *Manager) handleConnection(conn *gfws.Conn) {
	log := m.log.Function("handleConnection")

	userID, ok := conn.Locals("userID").(uuid.UUID)
	if !ok {
		_ = conn.Close()
		return
	}

	send := make(chan events.Event, sendBuffer)
	subID := m.eventBus.Subscribe(events.WebsocketChannel, func(event events.Event) error {
		if event.UserID == nil || *event.UserID != userID {
			return nil
		}
		select {
		case send <- event:
		default:
			log.Warn("dropping sync progress event, slow consumer", "userID", userID)
		}
		return nil
	})
	defer m.eventBus.Unsubscribe(events.WebsocketChannel, subID)

	done := make(chan struct{})
	go m.drainReads(conn, done)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case event := <-send:
			if err := m.writeJSON(conn, event); err != nil {
				log.Er("failed to write sync progress event", err, "userID", userID)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(gfws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// drainReads discards inbound frames (this connection is receive-only
// for the client) and closes done once the client disconnects.
func (m *Manager) drainReads(conn *gfws.Conn, done chan struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (m *Manager) writeJSON(conn *gfws.Conn, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(gfws.TextMessage, body)
}
