// Package websocket streams a console session's toasts to connected browsers.
// Each connection belongs to one session; when a toast is queued for that
// session the connection drains the queue and writes the toasts out.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/clinicconsole/internal/platform/notification"
)

// Message is the frame written to a client.
type Message struct {
	Type          string               `json:"type"`
	Notifications []notification.Toast `json:"notifications"`
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one live connection of a session.
type Client struct {
	ID        string
	SessionID string
	// wake holds at most one pending signal; bursts of toasts coalesce into
	// a single drain.
	wake chan struct{}
}

func newClient(sessionID string) *Client {
	return &Client{ID: uuid.New().String(), SessionID: sessionID, wake: make(chan struct{}, 1)}
}

// Hub tracks live clients by session.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[string]map[*Client]struct{})}
}

// Register adds a client under its session.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[client.SessionID] == nil {
		h.sessions[client.SessionID] = make(map[*Client]struct{})
	}
	h.sessions[client.SessionID][client] = struct{}{}
}

// Unregister removes a client and closes its wake channel. Unknown clients
// are ignored.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.sessions[client.SessionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.sessions, client.SessionID)
	}
	close(client.wake)
}

// ToastQueued wakes every client of the session without blocking.
func (h *Hub) ToastQueued(sessionID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.sessions[sessionID] {
		select {
		case client.wake <- struct{}{}:
		default:
		}
	}
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.sessions {
		n += len(clients)
	}
	return n
}

// SessionCount returns the number of clients of one session.
func (h *Hub) SessionCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// ---------------------------------------------------------------------------
// Handler
// ---------------------------------------------------------------------------

// Drainer hands over a session's pending toasts.
type Drainer interface {
	Drain(ctx context.Context, sessionID string) ([]notification.Toast, error)
}

// Handler upgrades requests to WebSocket streams of toasts.
type Handler struct {
	hub      *Hub
	toasts   Drainer
	session  notification.SessionIDFunc
	upgrader gorillawebsocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler creates a Handler. Browsers whose Origin is not in
// allowedOrigins are refused; "*" allows any origin.
func NewHandler(hub *Hub, toasts Drainer, session notification.SessionIDFunc, allowedOrigins []string, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:     hub,
		toasts:  toasts,
		session: session,
		logger:  logger,
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// RegisterRoutes registers the stream endpoint on g.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/notifications/ws", h.HandleConnect)
}

// HandleConnect resolves the session, upgrades the connection and starts
// the read and write pumps. Toasts queued before the connection opened are
// sent first.
func (h *Handler) HandleConnect(c echo.Context) error {
	sessionID, err := h.session(c)
	if err != nil {
		return err
	}
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := newClient(sessionID)
	h.hub.Register(client)
	h.logger.Debug().Str("session_id", sessionID).Str("client_id", client.ID).Msg("toast stream opened")

	conn := &gorillaConnAdapter{ws}
	go h.writePump(client, conn)
	go h.readPump(client, conn)
	return nil
}

// readPump discards inbound frames and unregisters the client when the
// connection closes.
func (h *Handler) readPump(client *Client, conn Conn) {
	defer func() {
		h.hub.Unregister(client)
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump flushes the session queue on connect and on every wake.
func (h *Handler) writePump(client *Client, conn Conn) {
	defer conn.Close()
	if err := h.flush(client, conn); err != nil {
		return
	}
	for range client.wake {
		if err := h.flush(client, conn); err != nil {
			return
		}
	}
}

func (h *Handler) flush(client *Client, conn Conn) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	toasts, err := h.toasts.Drain(ctx, client.SessionID)
	if err != nil {
		h.logger.Warn().Err(err).Str("session_id", client.SessionID).Msg("toast drain failed")
		return nil
	}
	if len(toasts) == 0 {
		return nil
	}
	data, err := json.Marshal(Message{Type: "toasts", Notifications: toasts})
	if err != nil {
		return err
	}
	return conn.WriteMessage(gorillawebsocket.TextMessage, data)
}

// gorillaConnAdapter wraps a gorilla/websocket.Conn to satisfy the Conn interface.
type gorillaConnAdapter struct {
	conn *gorillawebsocket.Conn
}

func (a *gorillaConnAdapter) ReadMessage() (int, []byte, error) {
	return a.conn.ReadMessage()
}

func (a *gorillaConnAdapter) WriteMessage(messageType int, data []byte) error {
	return a.conn.WriteMessage(messageType, data)
}

func (a *gorillaConnAdapter) Close() error {
	return a.conn.Close()
}
