package hub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"skycast/pkg/envelope"

	"github.com/gofiber/contrib/websocket"
)

// ActionHandler serves one client request received over the socket. Replies
// go back through Reply/ReplyError so they reach the exact originating
// connection.
type ActionHandler func(envelope.Envelope)

type clientConn struct {
	conn     *websocket.Conn
	userID   int
	username string
	mu       sync.Mutex
}

func (cc *clientConn) send(data []byte) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if err := cc.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("[HUB] send error user=%d: %v", cc.userID, err)
	}
}

// Hub fans system events (logins, weather lookups) out to connected
// dashboard sockets and routes request/reply pairs back to their sender.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*websocket.Conn]*clientConn
	handlers map[string]ActionHandler

	// connMap tracks the originating connection for each request ID
	// so replies go to the exact socket that sent the request
	connMu  sync.RWMutex
	connMap map[string]*pendingReply
}

type pendingReply struct {
	cc      *clientConn
	expires time.Time
}

func New() *Hub {
	h := &Hub{
		clients:  make(map[*websocket.Conn]*clientConn),
		handlers: make(map[string]ActionHandler),
		connMap:  make(map[string]*pendingReply),
	}
	go h.cleanupConnMap()
	return h
}

// cleanupConnMap drops reply routes whose handler never answered.
func (h *Hub) cleanupConnMap() {
	for {
		time.Sleep(time.Minute)
		now := time.Now()
		h.connMu.Lock()
		for id, p := range h.connMap {
			if now.After(p.expires) {
				delete(h.connMap, id)
			}
		}
		h.connMu.Unlock()
	}
}

// On registers a handler for a client-initiated action. Call before the
// server starts accepting sockets.
func (h *Hub) On(action string, fn ActionHandler) {
	h.handlers[action] = fn
}

func (h *Hub) HandleClientConn(c *websocket.Conn, userID int, username string) {
	cc := &clientConn{conn: c, userID: userID, username: username}

	h.mu.Lock()
	h.clients[c] = cc
	h.mu.Unlock()

	log.Printf("[HUB] client connected user_id=%d username=%s total=%d", userID, username, h.ClientCount())

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		c.Close()
		log.Printf("[HUB] client disconnected user_id=%d total=%d", userID, h.ClientCount())
	}()

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			return
		}

		var env envelope.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			errResp := envelope.Envelope{
				Action:    "error",
				Error:     &envelope.ErrorPayload{Code: 400, Message: "invalid JSON"},
				Timestamp: time.Now().UnixMilli(),
			}
			data, _ := errResp.Marshal()
			cc.send(data)
			continue
		}

		if env.Action == "ping" {
			pong := envelope.New("pong", "system")
			data, _ := pong.Marshal()
			cc.send(data)
			continue
		}

		env.EnsureID()
		requestID := env.ID
		env.UserID = userID
		env.Username = username
		env.ReplyTo = requestID

		h.connMu.Lock()
		h.connMap[requestID] = &pendingReply{cc: cc, expires: time.Now().Add(time.Minute)}
		h.connMu.Unlock()

		handler, ok := h.handlers[env.Action]
		if !ok {
			errResp := envelope.NewError(env, 404, "unknown action: "+env.Action)
			data, _ := errResp.Marshal()
			cc.send(data)
			h.connMu.Lock()
			delete(h.connMap, requestID)
			h.connMu.Unlock()
			continue
		}

		go handler(env)
	}
}

// Broadcast pushes an event to every connected client.
func (h *Hub) Broadcast(action, service string, data interface{}) {
	env, err := envelope.NewEvent(action, service, data)
	if err != nil {
		log.Printf("[HUB] broadcast marshal error: %v", err)
		return
	}
	raw, err := env.Marshal()
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, cc := range h.clients {
		cc.send(raw)
	}
}

// Reply answers the specific connection that made the request.
func (h *Hub) Reply(original envelope.Envelope, data interface{}) {
	env, err := envelope.NewReply(original, data)
	if err != nil {
		log.Printf("[HUB] reply marshal error: %v", err)
		return
	}
	raw, err := env.Marshal()
	if err != nil {
		return
	}
	h.deliver(original.ReplyTo, raw)
}

// ReplyError sends a typed error frame to the originating connection.
func (h *Hub) ReplyError(original envelope.Envelope, code int, msg string) {
	env := envelope.NewError(original, code, msg)
	raw, err := env.Marshal()
	if err != nil {
		return
	}
	h.deliver(original.ReplyTo, raw)
}

func (h *Hub) deliver(requestID string, raw []byte) {
	h.connMu.RLock()
	p, ok := h.connMap[requestID]
	h.connMu.RUnlock()
	if !ok {
		return
	}
	p.cc.send(raw)
	h.connMu.Lock()
	delete(h.connMap, requestID)
	h.connMu.Unlock()
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// AuthenticatedCount counts sockets that presented a valid session token.
func (h *Hub) AuthenticatedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, cc := range h.clients {
		if cc.userID > 0 {
			n++
		}
	}
	return n
}
