package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"

	"github.com/clipforge/api/internal/model"
)

// Client represents a WebSocket client subscribed to one render job.
type Client struct {
	RenderID string
	Conn     *websocket.Conn
	Send     chan []byte
}

// Hub maintains active WebSocket connections grouped by render id and fans
// job lifecycle events out to subscribers.
type Hub struct {
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	logger *zap.Logger
	mu     sync.RWMutex
}

// BroadcastMessage represents a message to broadcast
type BroadcastMessage struct {
	RenderID string
	Message  []byte
}

// NewHub creates a new Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.RenderID] == nil {
				h.clients[client.RenderID] = make(map[*Client]bool)
			}
			h.clients[client.RenderID][client] = true
			h.mu.Unlock()
			h.logger.Debug("ws client registered", zap.String("renderId", client.RenderID))

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.RenderID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(h.clients, client.RenderID)
					}
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			if clients, ok := h.clients[msg.RenderID]; ok {
				for client := range clients {
					select {
					case client.Send <- msg.Message:
					default:
						close(client.Send)
						delete(clients, client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a new client
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastStatus pushes a job state transition to all subscribers.
func (h *Hub) BroadcastStatus(renderID string, status model.JobStatus) {
	h.send(renderID, model.WSStatusMessage{
		Type:     model.WSMessageTypeStatus,
		RenderID: renderID,
		Status:   status,
	})
}

// BroadcastComplete pushes the terminal completed job to all subscribers.
func (h *Hub) BroadcastComplete(renderID string, job *model.RenderJob) {
	h.send(renderID, model.WSCompleteMessage{
		Type:     model.WSMessageTypeComplete,
		RenderID: renderID,
		Result:   job,
	})
}

// BroadcastError pushes a terminal failure to all subscribers.
func (h *Hub) BroadcastError(renderID, code, message string) {
	h.send(renderID, model.WSErrorMessage{
		Type:     model.WSMessageTypeError,
		RenderID: renderID,
		Error:    model.WSError{Code: code, Message: message},
	})
}

func (h *Hub) send(renderID string, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn("failed to marshal ws message", zap.Error(err))
		return
	}
	h.broadcast <- &BroadcastMessage{RenderID: renderID, Message: data}
}

// HandleConnection serves one subscriber connection until it closes.
func (h *Hub) HandleConnection(conn *websocket.Conn, renderID string) {
	client := &Client{
		RenderID: renderID,
		Conn:     conn,
		Send:     make(chan []byte, 16),
	}
	h.Register(client)
	defer h.Unregister(client)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			// Reader loop: drain pings, detect close.
			var msg model.WSMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type == model.WSMessageTypePing {
				pong, _ := json.Marshal(model.WSMessage{Type: model.WSMessageTypePong})
				select {
				case client.Send <- pong:
				default:
				}
			}
		}
	}()

	for {
		select {
		case data, ok := <-client.Send:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
