package hunters

import (
	"context"

	"hauntsim/server/logging"
)

const (
	// EventJoined is emitted when a hunter is placed in the starting room.
	EventJoined logging.EventType = "hunters.joined"
	// EventMoved is emitted after a hunter moves between rooms.
	EventMoved logging.EventType = "hunters.moved"
	// EventMoveBlocked is emitted when the destination room is full.
	EventMoveBlocked logging.EventType = "hunters.move_blocked"
	// EventEvidenceCollected is emitted when a hunter banks evidence into the case file.
	EventEvidenceCollected logging.EventType = "hunters.evidence_collected"
	// EventReturning is emitted when a hunter decides to head back to base.
	EventReturning logging.EventType = "hunters.returning"
	// EventReachedBase is emitted on every tick a hunter spends in the starting room.
	EventReachedBase logging.EventType = "hunters.reached_base"
	// EventDeviceSwapped is emitted when a hunter trades its detector at base.
	EventDeviceSwapped logging.EventType = "hunters.device_swapped"
	// EventExited is emitted once when a hunter leaves the simulation.
	EventExited logging.EventType = "hunters.exited"
)

// Status carries the mood counters attached to every hunter event.
type Status struct {
	Boredom int    `json:"boredom"`
	Fear    int    `json:"fear"`
	Device  string `json:"device"`
}

// JoinedPayload describes a newly registered hunter.
type JoinedPayload struct {
	Name   string `json:"name"`
	Room   string `json:"room"`
	Device string `json:"device"`
}

// MovedPayload describes a completed move.
type MovedPayload struct {
	Status
	From      string `json:"from"`
	To        string `json:"to"`
	Returning bool   `json:"returning"`
}

// MoveBlockedPayload describes a rejected move.
type MoveBlockedPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// EvidenceCollectedPayload describes evidence taken from a room.
type EvidenceCollectedPayload struct {
	Status
	Room     string `json:"room"`
	Evidence string `json:"evidence"`
	Fresh    bool   `json:"fresh"`
}

// ReturningPayload explains why a hunter is heading back.
type ReturningPayload struct {
	Status
	Room   string `json:"room"`
	Reason string `json:"reason"`
}

// ReachedBasePayload describes a tick spent at base.
type ReachedBasePayload struct {
	Status
	Room string `json:"room"`
}

// DeviceSwappedPayload records a detector change.
type DeviceSwappedPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ExitedPayload records why and where a hunter stopped.
type ExitedPayload struct {
	Status
	Reason string `json:"reason"`
	Room   string `json:"room"`
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, tick uint64, actor logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Severity: severity,
		Category: logging.CategoryHunters,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// Joined publishes a hunter registration event.
func Joined(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload JoinedPayload, extra map[string]any) {
	publish(ctx, pub, EventJoined, logging.SeverityInfo, 0, actor, payload, extra)
}

// Moved publishes a hunter move.
func Moved(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload MovedPayload, extra map[string]any) {
	publish(ctx, pub, EventMoved, logging.SeverityInfo, tick, actor, payload, extra)
}

// MoveBlocked publishes a rejected move.
func MoveBlocked(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload MoveBlockedPayload, extra map[string]any) {
	publish(ctx, pub, EventMoveBlocked, logging.SeverityDebug, tick, actor, payload, extra)
}

// EvidenceCollected publishes an evidence pickup.
func EvidenceCollected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload EvidenceCollectedPayload, extra map[string]any) {
	publish(ctx, pub, EventEvidenceCollected, logging.SeverityInfo, tick, actor, payload, extra)
}

// Returning publishes a return-to-base decision.
func Returning(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ReturningPayload, extra map[string]any) {
	publish(ctx, pub, EventReturning, logging.SeverityInfo, tick, actor, payload, extra)
}

// ReachedBase publishes a tick spent in the starting room.
func ReachedBase(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ReachedBasePayload, extra map[string]any) {
	publish(ctx, pub, EventReachedBase, logging.SeverityDebug, tick, actor, payload, extra)
}

// DeviceSwapped publishes a detector change.
func DeviceSwapped(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload DeviceSwappedPayload, extra map[string]any) {
	publish(ctx, pub, EventDeviceSwapped, logging.SeverityInfo, tick, actor, payload, extra)
}

// Exited publishes a hunter's final state.
func Exited(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ExitedPayload, extra map[string]any) {
	publish(ctx, pub, EventExited, logging.SeverityInfo, tick, actor, payload, extra)
}
