// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	wstypes "routedesk-service/internal/domain/websocket"
	"routedesk-service/internal/metrics"
	"routedesk-service/internal/ports"

	"go.uber.org/zap"
)

const broadcastBuffer = 256

// Hub tracks connected clients by user and fans messages out to them. It implements
// ports.Notifier, so services can push events without knowing about websockets.
type Hub struct {
	clients map[int64]map[*Client]bool
	mu      sync.RWMutex

	Register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}

	handlerRegistry *HandlerRegistry
	metrics         *metrics.Metrics
	logger          *zap.Logger
}

// BroadcastMessage targets UserIDs, or every client when UserIDs is nil. Only
// clients subscribed to Channel receive it.
type BroadcastMessage struct {
	UserIDs []int64
	Channel wstypes.ChannelType
	Message *wstypes.WSMessage
}

var _ ports.Notifier = (*Hub)(nil)

func NewHub(m *metrics.Metrics, logger *zap.Logger) *Hub {
	return &Hub{
		clients:         make(map[int64]map[*Client]bool),
		Register:        make(chan *Client),
		unregister:      make(chan *Client),
		broadcast:       make(chan *BroadcastMessage, broadcastBuffer),
		done:            make(chan struct{}),
		handlerRegistry: NewHandlerRegistry(),
		metrics:         m,
		logger:          logger,
	}
}

// RegisterHandler must be called before Run.
func (h *Hub) RegisterHandler(handler MessageHandler) {
	h.handlerRegistry.Register(handler)
}

// HandleClientMessage dispatches msg to its registered handler and reports whether
// one existed.
func (h *Hub) HandleClientMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) (bool, error) {
	handler, exists := h.handlerRegistry.GetHandler(msg.Type)
	if !exists {
		return false, nil
	}
	return true, handler.HandleMessage(ctx, client, msg)
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.BroadcastMessage(msg)
		}
	}
}

// leave unregisters c, or gives up once the hub has stopped.
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.userID] == nil {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true
	for _, channel := range wstypes.DefaultChannels {
		client.Subscribe(channel)
	}

	total := h.totalClients()
	h.metrics.SetWebsocketClients(total)
	h.logger.Info("websocket client connected",
		zap.Int64("user_id", client.userID),
		zap.String("session_id", client.sessionID),
		zap.Int("total", total),
	)

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"user_id":    client.userID,
		"username":   client.username,
		"session_id": client.sessionID,
		"roles":      client.roles,
		"device":     client.device,
		"channels":   wstypes.DefaultChannels,
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.userID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	client.Close()
	if len(clients) == 0 {
		delete(h.clients, client.userID)
	}

	total := h.totalClients()
	h.metrics.SetWebsocketClients(total)
	h.logger.Info("websocket client disconnected",
		zap.Int64("user_id", client.userID),
		zap.String("session_id", client.sessionID),
		zap.Int("total", total),
	)
}

func (h *Hub) BroadcastMessage(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	deliver := func(clients map[*Client]bool) {
		for client := range clients {
			if client.IsSubscribed(msg.Channel) {
				client.SendMessage(msg.Message)
			}
		}
	}

	if msg.UserIDs == nil {
		for _, clients := range h.clients {
			deliver(clients)
		}
		return
	}
	for _, userID := range msg.UserIDs {
		deliver(h.clients[userID])
	}
}

// VisitsAssigned pushes a visit:assigned event to the agent. It never blocks: when
// the broadcast queue is full the event is dropped and logged.
func (h *Hub) VisitsAssigned(a ports.VisitAssignment) {
	msg := wstypes.NewMessage(wstypes.EventTypeVisitAssigned, wstypes.VisitAssignedData{
		RouteID:   a.RouteID,
		RouteName: a.RouteName,
		VisitIDs:  a.VisitIDs,
		Count:     len(a.VisitIDs),
		Source:    a.Source,
		At:        a.At,
	})

	select {
	case h.broadcast <- &BroadcastMessage{
		UserIDs: []int64{a.AgentID},
		Channel: wstypes.ChannelRoutes,
		Message: msg,
	}:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping visit assignment",
			zap.Int64("agent_id", a.AgentID),
			zap.Int64("route_id", a.RouteID),
		)
	}
}

func (h *Hub) ConnectedClients(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalClients()
}

// DisconnectUser closes every connection of a user after telling them why.
func (h *Hub) DisconnectUser(userID int64, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[userID]
	if !ok {
		return
	}
	for client := range clients {
		client.SendMessage(wstypes.NewMessage(wstypes.EventTypeForceLogout, wstypes.SessionEventData{
			SessionID: client.sessionID,
			Reason:    reason,
			Message:   "You have been logged out",
		}))
		client.Close()
	}
	delete(h.clients, userID)

	h.metrics.SetWebsocketClients(h.totalClients())
	h.logger.Info("websocket user disconnected",
		zap.Int64("user_id", userID),
		zap.String("reason", reason),
	)
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
	}
	h.clients = make(map[int64]map[*Client]bool)
	h.metrics.SetWebsocketClients(0)
}
