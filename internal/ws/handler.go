package ws

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsguard/internal/confirm"
	"github.com/GriffinCanCode/fsguard/internal/infrastructure/monitoring"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessage = 64 << 10
)

// Message types
const (
	TypeSystem   = "system"
	TypeRequest  = "confirmation_request"
	TypeResponse = "confirmation_response"
	TypeResolved = "resolved"
	TypePing     = "ping"
	TypePong     = "pong"
	TypeError    = "error"
)

// Message is a client → server frame.
type Message struct {
	Type    string                 `json:"type"`
	ID      string                 `json:"id,omitempty"`
	Action  confirm.Action         `json:"action,omitempty"`
	Content map[string]interface{} `json:"content,omitempty"`
}

// Handler connects websocket clients to the confirmation hub.
type Handler struct {
	hub      *confirm.Hub
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	origins  []string
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler. metrics may be nil.
//
// Requests without an Origin header (CLI and desktop clients) are accepted. Browser
// requests must carry an origin listed in allowedOrigins. The wildcard "*" admits no
// browser origin.
func NewHandler(hub *confirm.Hub, metrics *monitoring.Metrics, logger *zap.Logger, allowedOrigins []string) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{hub: hub, metrics: metrics, logger: logger}
	for _, o := range allowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" && o != "*" {
			h.origins = append(h.origins, o)
		}
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.origins {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	h.logger.Warn("Rejected confirmation client origin", zap.String("origin", origin))
	return false
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (cl *client) send(data interface{}) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return cl.conn.WriteJSON(data)
}

func (cl *client) ping() error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (cl *client) sendError(msg string) error {
	return cl.send(map[string]interface{}{
		"type":      TypeError,
		"message":   msg,
		"timestamp": time.Now().Unix(),
	})
}

// HandleConnection upgrades the request and serves one confirmation client until it
// disconnects.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	cl := &client{conn: conn}
	requests, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()

	h.logger.Info("Confirmation client connected", zap.String("remote", c.ClientIP()))
	cl.send(map[string]interface{}{
		"type":    TypeSystem,
		"message": "Connected to fsguard confirmation channel",
	})

	done := make(chan struct{})
	defer close(done)
	go h.forward(cl, requests, done)

	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		switch msg.Type {
		case TypeResponse:
			h.handleResponse(cl, msg)
		case TypePing:
			cl.send(map[string]interface{}{"type": TypePong})
		default:
			cl.sendError("unknown message type")
		}
	}
}

// forward pushes hub requests to the client and keeps the connection alive.
func (h *Handler) forward(cl *client, requests <-chan confirm.Request, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case req, ok := <-requests:
			if !ok {
				return
			}
			err := cl.send(map[string]interface{}{
				"type":      TypeRequest,
				"request":   req,
				"message":   req.Message(),
				"schema":    req.Schema(),
				"timestamp": time.Now().Unix(),
			})
			if err != nil {
				h.logger.Debug("WebSocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := cl.ping(); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *Handler) handleResponse(cl *client, msg Message) {
	if msg.ID == "" {
		cl.sendError("confirmation response needs an id")
		return
	}

	ok := h.hub.Resolve(msg.ID, confirm.Response{Action: msg.Action, Content: msg.Content})
	h.logger.Info("Confirmation answered",
		zap.String("id", msg.ID),
		zap.String("action", string(msg.Action)),
		zap.Bool("matched", ok),
	)

	cl.send(map[string]interface{}{
		"type": TypeResolved,
		"id":   msg.ID,
		"ok":   ok,
	})
}
