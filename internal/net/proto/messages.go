package proto

import (
	"encoding/json"
	"fmt"
	"time"

	"hauntsim/server/logging"
)

const (
	// Version tracks the wire-protocol revision expected by spectators.
	Version = 1

	typeHello     = "hello"
	typeEvent     = "event"
	typeHeartbeat = "heartbeat"
)

// Outbound message type identifiers.
const (
	TypeHello = typeHello
	TypeEvent = typeEvent
)

// Inbound message type identifiers.
const (
	TypeHeartbeat = typeHeartbeat
)

// Room is one node of the house graph as sent to spectators.
type Room struct {
	Name        string   `json:"name"`
	Exit        bool     `json:"exit,omitempty"`
	Connections []string `json:"connections"`
}

// HelloV1 greets a new spectator with the run and the house it plays in.
type HelloV1 struct {
	Ver   int    `json:"ver"`
	Type  string `json:"type"`
	RunID string `json:"runId,omitempty"`
	Rooms []Room `json:"rooms"`
}

// EncodeHello renders the greeting frame.
func EncodeHello(msg HelloV1) ([]byte, error) {
	msg.Ver = Version
	msg.Type = typeHello
	if msg.Rooms == nil {
		msg.Rooms = []Room{}
	}
	return json.Marshal(msg)
}

// EventV1 mirrors one logging event.
type EventV1 struct {
	Ver      int                 `json:"ver"`
	Type     string              `json:"type"`
	Event    logging.EventType   `json:"event"`
	Tick     uint64              `json:"tick,omitempty"`
	Time     int64               `json:"time"`
	Severity string              `json:"severity"`
	Category string              `json:"category,omitempty"`
	Actor    logging.EntityRef   `json:"actor"`
	Targets  []logging.EntityRef `json:"targets,omitempty"`
	Payload  any                 `json:"payload,omitempty"`
	Extra    map[string]any      `json:"extra,omitempty"`
}

// EncodeEvent renders a logging event as a feed frame.
func EncodeEvent(event logging.Event) ([]byte, error) {
	return json.Marshal(EventV1{
		Ver:      Version,
		Type:     typeEvent,
		Event:    event.Type,
		Tick:     event.Tick,
		Time:     event.Time.UnixMilli(),
		Severity: event.Severity.String(),
		Category: event.Category,
		Actor:    event.Actor,
		Targets:  event.Targets,
		Payload:  event.Payload,
		Extra:    event.Extra,
	})
}

// ClientMessage captures an inbound spectator message. Spectators cannot
// influence the run; the only message they send is a heartbeat.
type ClientMessage struct {
	Ver    int    `json:"ver,omitempty"`
	Type   string `json:"type"`
	SentAt int64  `json:"sentAt"`
}

// DecodeClientMessage converts a raw websocket payload into a message.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	return msg, nil
}

// Heartbeat answers a spectator heartbeat.
type Heartbeat struct {
	ServerTime time.Time
	ClientTime int64
}

// EncodeHeartbeat renders a heartbeat acknowledgement.
func EncodeHeartbeat(msg Heartbeat) ([]byte, error) {
	payload := struct {
		Ver        int    `json:"ver"`
		Type       string `json:"type"`
		ServerTime int64  `json:"serverTime"`
		ClientTime int64  `json:"clientTime"`
		RTTMillis  int64  `json:"rtt"`
	}{
		Ver:        Version,
		Type:       typeHeartbeat,
		ServerTime: msg.ServerTime.UnixMilli(),
		ClientTime: msg.ClientTime,
	}
	if msg.ClientTime > 0 {
		if rtt := payload.ServerTime - msg.ClientTime; rtt > 0 {
			payload.RTTMillis = rtt
		}
	}
	return json.Marshal(payload)
}
