package ghosts

import (
	"context"

	"hauntsim/server/logging"
)

const (
	// EventSpawned is emitted when the ghost is placed in its first room.
	EventSpawned logging.EventType = "ghosts.spawned"
	// EventIdle is emitted when the ghost spends a tick doing nothing.
	EventIdle logging.EventType = "ghosts.idle"
	// EventEvidenceLeft is emitted when the ghost deposits evidence.
	EventEvidenceLeft logging.EventType = "ghosts.evidence_left"
	// EventMoved is emitted after the ghost drifts to another room.
	EventMoved logging.EventType = "ghosts.moved"
	// EventExited is emitted once when the ghost leaves the house.
	EventExited logging.EventType = "ghosts.exited"
)

// SpawnedPayload describes the ghost's starting state.
type SpawnedPayload struct {
	Room      string `json:"room"`
	GhostType string `json:"ghostType"`
}

// IdlePayload describes an idle tick.
type IdlePayload struct {
	Room    string `json:"room"`
	Boredom int    `json:"boredom"`
}

// EvidenceLeftPayload describes a deposit.
type EvidenceLeftPayload struct {
	Room     string `json:"room"`
	Evidence string `json:"evidence"`
	Boredom  int    `json:"boredom"`
}

// MovedPayload describes a ghost move.
type MovedPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Boredom int    `json:"boredom"`
}

// ExitedPayload describes why the ghost stopped.
type ExitedPayload struct {
	Room    string `json:"room"`
	Boredom int    `json:"boredom"`
	Cause   string `json:"cause"`
}

// Spawned publishes the ghost's placement.
func Spawned(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SpawnedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventSpawned,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGhosts,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// Idle publishes an idle tick.
func Idle(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload IdlePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventIdle,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryGhosts,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// EvidenceLeft publishes an evidence deposit.
func EvidenceLeft(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload EvidenceLeftPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventEvidenceLeft,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGhosts,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// Moved publishes a ghost move.
func Moved(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload MovedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventMoved,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGhosts,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// Exited publishes the ghost's departure.
func Exited(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ExitedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventExited,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGhosts,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
