package notify

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/veriscan/backend/internal/middleware"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS middleware gates the HTTP surface; WS piggybacks on the token check
	},
}

// Subscriber hands out per-user event subscriptions. Implemented by Publisher.
type Subscriber interface {
	Subscribe(userID uuid.UUID, handler func(ev Event)) (cancel func(), err error)
}

type client struct {
	id   string
	send chan Event
}

// Hub maintains user_id -> set of WebSocket connections and bridges the Redis
// subscription to them. One Redis subscription per user with open sockets.
type Hub struct {
	mu     sync.RWMutex
	users  map[uuid.UUID]map[string]*client
	subs   map[uuid.UUID]func()
	source Subscriber
	logger *zap.Logger
}

// NewHub creates a notification hub over an event subscriber.
func NewHub(source Subscriber, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		users:  make(map[uuid.UUID]map[string]*client),
		subs:   make(map[uuid.UUID]func()),
		source: source,
		logger: logger,
	}
}

func (h *Hub) register(userID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[userID] == nil {
		h.users[userID] = make(map[string]*client)
		if h.source != nil {
			cancel, err := h.source.Subscribe(userID, func(ev Event) {
				h.deliver(userID, ev)
			})
			if err != nil {
				h.logger.Warn("analysis event subscription failed", zap.Error(err), zap.String("user_id", userID.String()))
			} else {
				h.subs[userID] = cancel
			}
		}
	}
	h.users[userID][c.id] = c
}

func (h *Hub) unregister(userID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.users[userID]; ok {
		delete(m, c.id)
		if len(m) == 0 {
			delete(h.users, userID)
			if cancel, ok := h.subs[userID]; ok {
				cancel()
				delete(h.subs, userID)
			}
		}
	}
}

func (h *Hub) deliver(userID uuid.UUID, ev Event) {
	h.mu.RLock()
	clients := h.users[userID]
	h.mu.RUnlock()
	for _, c := range clients {
		select {
		case c.send <- ev:
		default:
			// slow consumer, drop
		}
	}
}

// ServeWS handles GET /ws/notifications. Requires the JWT middleware; the
// browser passes the token as a query param on upgrade.
func (h *Hub) ServeWS() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		cl := &client{id: uuid.New().String(), send: make(chan Event, 64)}
		h.register(userID, cl)
		h.logger.Debug("notification socket opened", zap.String("user_id", userID.String()))

		go h.writePump(conn, cl)
		h.readPump(conn, userID, cl)
	}
}

// readPump drains the socket (clients send nothing meaningful) and keeps the
// pong deadline fresh until the connection drops.
func (h *Hub) readPump(conn *websocket.Conn, userID uuid.UUID, cl *client) {
	defer func() {
		h.unregister(userID, cl)
		_ = conn.Close()
	}()
	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

func (h *Hub) writePump(conn *websocket.Conn, cl *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case ev, ok := <-cl.send:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
