package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nimeshgurung/okrbuilder/internal/logging"
)

// Stream event types pushed to connected UIs.
const (
	EventState        = "state"
	EventNarrative    = "narrative"
	EventCommitPrompt = "commit_prompt"
	EventRefresh      = "refresh"
)

// StreamEvent is one message on the UI websocket.
type StreamEvent struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	writeWait      = 10 * time.Second
	clientSendSize = 32
)

// hub fans stream events out to every connected websocket client. Slow
// clients that cannot keep up are dropped rather than back-pressuring the
// mutation path.
type hub struct {
	mu      sync.RWMutex
	clients map[*hubClient]struct{}
	logger  logging.Logger

	onConnect    func()
	onDisconnect func()
}

type hubClient struct {
	conn *websocket.Conn
	send chan StreamEvent
	once sync.Once
}

func newHub(logger logging.Logger) *hub {
	return &hub{
		clients: make(map[*hubClient]struct{}),
		logger:  logging.OrNop(logger),
	}
}

// Broadcast queues the event for every connected client.
func (h *hub) Broadcast(eventType string, payload any) {
	event := StreamEvent{Type: eventType, Payload: payload, Timestamp: time.Now()}

	h.mu.RLock()
	stale := make([]*hubClient, 0)
	for client := range h.clients {
		select {
		case client.send <- event:
		default:
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stale {
		h.logger.Warn("dropping slow stream client")
		h.remove(client)
	}
}

func (h *hub) add(client *hubClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	if h.onConnect != nil {
		h.onConnect()
	}
}

func (h *hub) remove(client *hubClient) {
	h.mu.Lock()
	_, present := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()
	if !present {
		return
	}
	client.close()
	if h.onDisconnect != nil {
		h.onDisconnect()
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	clients := make([]*hubClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[*hubClient]struct{})
	h.mu.Unlock()

	for _, client := range clients {
		client.close()
		if h.onDisconnect != nil {
			h.onDisconnect()
		}
	}
}

func (h *hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *hubClient) close() {
	c.once.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}

// serve runs the write loop for one client and the read loop that detects
// disconnects. It returns when the client goes away.
func (h *hub) serve(conn *websocket.Conn, initial StreamEvent) {
	client := &hubClient{conn: conn, send: make(chan StreamEvent, clientSendSize)}
	client.send <- initial
	h.add(client)

	go func() {
		for event := range client.send {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			raw, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("marshal stream event: %v", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				h.remove(client)
				return
			}
		}
	}()

	// read loop: the UI never sends data, but reading is how we notice the
	// peer closing the connection
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(client)
			return
		}
	}
}

// checkOrigin mirrors the REST CORS policy: an empty allowlist admits every
// origin, a populated one admits only its members.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		allowedSet[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowedSet) == 0 {
			return true
		}
		_, ok := allowedSet[origin]
		return ok
	}
}
