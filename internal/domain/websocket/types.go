// internal/domain/websocket/types.go
package websocket

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType represents different real-time event types
type EventType string

const (
	// Connection events
	EventTypePing         EventType = "ping"
	EventTypePong         EventType = "pong"
	EventTypeConnected    EventType = "connected"
	EventTypeDisconnected EventType = "disconnected"
	EventTypeError        EventType = "error"

	// Route events (server -> client)
	EventTypeVisitAssigned EventType = "visit:assigned"

	// Board events (client -> server, answered with the same type)
	EventTypeBoardSummary EventType = "board:summary"

	// Session events
	EventTypeForceLogout EventType = "session:force_logout"

	// Subscription events
	EventTypeSubscribe   EventType = "subscribe"
	EventTypeUnsubscribe EventType = "unsubscribe"
)

// WSMessage is the universal message format
type WSMessage struct {
	Type      EventType              `json:"type"`
	Data      interface{}            `json:"data,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	ID        string                 `json:"id,omitempty"`
}

// Subscription channels that clients can subscribe to
type ChannelType string

const (
	ChannelRoutes ChannelType = "routes"
	ChannelSystem ChannelType = "system"
)

// DefaultChannels are subscribed on connect.
var DefaultChannels = []ChannelType{ChannelRoutes, ChannelSystem}

// SubscribeRequest sent by client to subscribe to specific channels
type SubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// UnsubscribeRequest sent by client to unsubscribe from channels
type UnsubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// ErrorData for error events
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// VisitAssignedData tells an agent that visits were added to one of their routes.
type VisitAssignedData struct {
	RouteID   int64     `json:"route_id"`
	RouteName string    `json:"route_name"`
	VisitIDs  []int64   `json:"visit_ids"`
	Count     int       `json:"count"`
	Source    string    `json:"source"`
	At        time.Time `json:"at"`
}

// BoardSummaryRequest asks for the caller's board of one day (YYYY-MM-DD, blank
// for today).
type BoardSummaryRequest struct {
	Day string `json:"day"`
}

// SessionEventData for session events
type SessionEventData struct {
	SessionID string `json:"session_id,omitempty"`
	Reason    string `json:"reason"`
	Message   string `json:"message"`
}

// NewMessage stamps a message with the current time and a ulid.
func NewMessage(eventType EventType, data interface{}) *WSMessage {
	return &WSMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
		ID:        ulid.Make().String(),
	}
}

func (m *WSMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ParseMessage(data []byte) (*WSMessage, error) {
	var msg WSMessage
	err := json.Unmarshal(data, &msg)
	return &msg, err
}
