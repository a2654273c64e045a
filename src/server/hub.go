package server

import (
	"context"
	"encoding/json"
	"net/http"

	"live-dashboard/src/interfaces"
	"live-dashboard/src/logger"
	"live-dashboard/src/models"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	broadcastQueueSize = 256
	clientQueueSize    = 256
)

var (
	_ interfaces.IRenderSink = (*Hub)(nil)
	_ interfaces.INotifier   = (*Hub)(nil)
)

// -----------------------------------------------------------------------------
// Hub fans rendered views and notices out to websocket viewers. It is both a
// render sink and a notifier for the dashboard.
// -----------------------------------------------------------------------------

type Hub struct {
	Logger *logger.Logger

	provider   interfaces.IDashboard
	clients    map[*Client]struct{}
	broadcast  chan *models.MHubMessage
	register   chan *Client
	unregister chan *Client
	subscribe  chan subscribeRequest
	count      chan chan int
	done       chan struct{}
}

type subscribeRequest struct {
	client *Client
	views  []string
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		Logger:     log,
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan *models.MHubMessage, broadcastQueueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscribeRequest),
		count:      make(chan chan int),
		done:       make(chan struct{}),
	}
}

// SetProvider sets where initial state for new viewers comes from. Call
// before Run.
func (h *Hub) SetProvider(p interfaces.IDashboard) {
	h.provider = p
}

// -----------------------------------------------------------------------------
// Hub loop
// -----------------------------------------------------------------------------

// Run serves registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			return

		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.Logger.Info("Hub: viewer %s connected (%d total)", client.id, len(h.clients))
			h.deliver(client, h.initial(client))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.Logger.Info("Hub: viewer %s disconnected (%d total)", client.id, len(h.clients))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				if message.View != nil && !client.wants(message.View.View) {
					continue
				}
				h.deliver(client, message)
			}

		case req := <-h.subscribe:
			if _, ok := h.clients[req.client]; ok {
				req.client.setViews(req.views)
				h.deliver(req.client, h.initial(req.client))
			}

		case reply := <-h.count:
			reply <- len(h.clients)
		}
	}
}

// deliver hands message to client, pruning it when its queue is full.
func (h *Hub) deliver(client *Client, message *models.MHubMessage) {
	select {
	case client.send <- message:
	default:
		h.Logger.Warning("Hub: viewer %s too slow, disconnecting", client.id)
		delete(h.clients, client)
		close(client.send)
	}
}

// initial builds the INITIAL message for client from the provider.
func (h *Hub) initial(client *Client) *models.MHubMessage {
	message := &models.MHubMessage{Type: models.HubTypeInitial}
	if h.provider == nil {
		return message
	}

	for _, view := range h.provider.Views() {
		if client.wants(view.View) {
			message.Views = append(message.Views, view)
		}
	}
	stats := h.provider.Statistics()
	status := h.provider.Status()
	message.Statistics = &stats
	message.Status = &status
	return message
}

// Connections returns the number of registered viewers.
func (h *Hub) Connections(ctx context.Context) int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
	case <-ctx.Done():
		return 0
	case <-h.done:
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-ctx.Done():
		return 0
	}
}

// -----------------------------------------------------------------------------
// Sink and notifier
// -----------------------------------------------------------------------------

// publish queues message without ever blocking the caller.
func (h *Hub) publish(message *models.MHubMessage) {
	select {
	case h.broadcast <- message:
	default:
		h.Logger.Warning("Hub: broadcast queue full, dropping %s message", message.Type)
	}
}

func (h *Hub) RenderSeries(series models.MSeries) {
	h.publish(&models.MHubMessage{Type: models.HubTypeView, View: &series})
}

func (h *Hub) RenderStatistics(stats models.MStatistics) {
	h.publish(&models.MHubMessage{Type: models.HubTypeStatistics, Statistics: &stats})
}

func (h *Hub) Notify(level, message string) {
	h.publish(&models.MHubMessage{
		Type:         models.HubTypeNotification,
		Notification: &models.MNotification{Level: level, Message: message},
	})
}

func (h *Hub) PublishStatus(status models.MConnectionStatus) {
	h.publish(&models.MHubMessage{Type: models.HubTypeStatus, Status: &status})
}

func (h *Hub) PublishSystem(body json.RawMessage) {
	h.publish(&models.MHubMessage{Type: models.HubTypeSystem, System: body})
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (h *Hub) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Info("Hub: failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		id:   uuid.New(),
		hub:  h,
		conn: conn,
		send: make(chan *models.MHubMessage, clientQueueSize),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// handleClientMessage applies a subscribe command and answers with a fresh
// INITIAL message narrowed to the requested views.
func (h *Hub) handleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := sonic.Unmarshal(message, &cmd); err != nil {
		h.Logger.Info("Hub: unreadable command from %s: %v, disconnecting", client.id, err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	select {
	case h.subscribe <- subscribeRequest{client: client, views: cmd.Views}:
	case <-h.done:
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
