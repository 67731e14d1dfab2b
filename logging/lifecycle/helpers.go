package lifecycle

import (
	"context"

	"hauntsim/server/logging"
)

const (
	// EventSimulationStarted is emitted once every agent has been spawned.
	EventSimulationStarted logging.EventType = "lifecycle.simulation_started"
	// EventSimulationFinished is emitted after every agent has been joined.
	EventSimulationFinished logging.EventType = "lifecycle.simulation_finished"
	// EventConnectionRejected is emitted when a room edge cannot be added.
	EventConnectionRejected logging.EventType = "lifecycle.connection_rejected"
	// EventSpawnFailed is emitted when an agent could not be started.
	EventSpawnFailed logging.EventType = "lifecycle.spawn_failed"
)

// SimulationStartedPayload captures the run's initial shape.
type SimulationStartedPayload struct {
	Rooms   int    `json:"rooms"`
	Hunters int    `json:"hunters"`
	Start   string `json:"start"`
}

// SimulationFinishedPayload captures the case file outcome.
type SimulationFinishedPayload struct {
	Evidence       string `json:"evidence"`
	Solved         bool   `json:"solved"`
	Identified     string `json:"identified,omitempty"`
	Correct        bool   `json:"correct"`
	DurationMillis int64  `json:"durationMillis"`
}

// ConnectionRejectedPayload names the rooms of a rejected edge.
type ConnectionRejectedPayload struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
}

// SpawnFailedPayload describes a failed agent start.
type SpawnFailedPayload struct {
	Error string `json:"error"`
}

// SimulationStarted publishes the start of a run.
func SimulationStarted(ctx context.Context, pub logging.Publisher, payload SimulationStartedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventSimulationStarted,
		Actor:    logging.EntityRef{Kind: logging.EntityKindHouse},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// SimulationFinished publishes the end of a run.
func SimulationFinished(ctx context.Context, pub logging.Publisher, payload SimulationFinishedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventSimulationFinished,
		Actor:    logging.EntityRef{Kind: logging.EntityKindHouse},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// ConnectionRejected publishes a warning for an edge that could not be added.
func ConnectionRejected(ctx context.Context, pub logging.Publisher, payload ConnectionRejectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventConnectionRejected,
		Actor:    logging.RoomRef(payload.From),
		Targets:  []logging.EntityRef{logging.RoomRef(payload.To)},
		Severity: logging.SeverityWarn,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// SpawnFailed publishes an error for an agent that could not start.
func SpawnFailed(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SpawnFailedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventSpawnFailed,
		Actor:    actor,
		Severity: logging.SeverityError,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
