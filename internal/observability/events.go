package observability

import "time"

// EventEnvelope is the broker payload for connection lifecycle events.
type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

// SocketDetails describes one websocket connection event.
type SocketDetails struct {
	Kind           string `json:"kind"`
	ResourceID     string `json:"resource_id,omitempty"`
	Event          string `json:"event"`
	ConnID         string `json:"conn_id"`
	DurationMillis int64  `json:"duration_ms"`
	Reason         string `json:"reason,omitempty"`
}

// Identity carries who and where a lifecycle event came from.
type Identity struct {
	UserID    string `json:"user_id"`
	DeviceID  string `json:"device_id,omitempty"`
	IP        string `json:"ip,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

// NewSocketEvent assembles the envelope for a websocket lifecycle event.
func NewSocketEvent(socket SocketDetails, identity Identity, connectedAt time.Time) EventEnvelope {
	socket.DurationMillis = time.Since(connectedAt).Milliseconds()
	return EventEnvelope{
		EventType: "ws_events",
		EventName: socket.Event,
		Payload: map[string]interface{}{
			"ws":       socket,
			"identity": identity,
		},
	}
}
