package house

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"hauntsim/server/internal/evidence"
	"hauntsim/server/logging"
	"hauntsim/server/logging/ghosts"
)

// GhostExit records why the ghost stopped.
type GhostExit uint8

const (
	GhostExitNone GhostExit = iota
	GhostExitBored
	GhostExitStopped
)

func (e GhostExit) String() string {
	switch e {
	case GhostExitBored:
		return "bored"
	case GhostExitStopped:
		return "stopped"
	default:
		return "none"
	}
}

// GhostAction is one of the ghost's per-tick choices.
type GhostAction uint8

const (
	ActionIdle GhostAction = iota
	ActionEvidence
	ActionMove
	ghostActionCount
)

// Ghost haunts the house, leaving evidence of its type. Like Hunter, its
// state belongs to the goroutine driving it.
type Ghost struct {
	occupant  *Occupant
	ghostType evidence.GhostType
	cfg       GhostConfig
	deps      Deps
	ctx       context.Context
	actor     logging.EntityRef

	boredom  int
	tick     uint64
	exitCase GhostExit

	running   atomic.Bool
	leaveOnce sync.Once
}

// GhostOption customizes the ghost at creation.
type GhostOption func(*ghostSetup)

type ghostSetup struct {
	ghostType evidence.GhostType
	room      *Room
}

// WithGhostType fixes the ghost's type instead of drawing one.
func WithGhostType(g evidence.GhostType) GhostOption {
	return func(s *ghostSetup) {
		if g.Valid() {
			s.ghostType = g
		}
	}
}

// WithGhostRoom fixes the ghost's starting room.
func WithGhostRoom(room *Room) GhostOption {
	return func(s *ghostSetup) {
		s.room = room
	}
}

// NewGhost places the house's ghost in a random room, or the one given by
// WithGhostRoom, and registers it with the house.
func NewGhost(house *House, cfg GhostConfig, opts ...GhostOption) (*Ghost, error) {
	if house == nil {
		return nil, ErrNilHouse
	}
	rooms := house.Rooms()
	if len(rooms) == 0 {
		return nil, ErrNoRooms
	}
	deps := house.Deps()
	cfg = cfg.normalized()
	setup := ghostSetup{}
	for _, opt := range opts {
		if opt != nil {
			opt(&setup)
		}
	}
	if !setup.ghostType.Valid() {
		setup.ghostType = evidence.RandomGhostType(deps.Random)
	}
	if setup.room == nil {
		setup.room = rooms[deps.Random.Intn(len(rooms))]
	}
	g := &Ghost{
		occupant:  NewOccupant(KindGhost, cfg.ID),
		ghostType: setup.ghostType,
		cfg:       cfg,
		deps:      deps,
		ctx:       context.Background(),
		actor:     logging.GhostRef(cfg.ID),
	}
	if err := house.SetGhost(g); err != nil {
		return nil, err
	}
	if !setup.room.SetGhost(g.occupant) {
		house.clearGhost(g)
		return nil, fmt.Errorf("%w: ghost slot of %s is taken", ErrGhostPresent, setup.room.Name())
	}
	g.running.Store(true)
	ghosts.Spawned(g.ctx, deps.Publisher, g.actor, ghosts.SpawnedPayload{
		Room:      setup.room.Name(),
		GhostType: g.ghostType.String(),
	}, nil)
	return g, nil
}

func (g *Ghost) ID() int                  { return g.occupant.ID() }
func (g *Ghost) Type() evidence.GhostType { return g.ghostType }
func (g *Ghost) Occupant() *Occupant      { return g.occupant }
func (g *Ghost) Room() *Room              { return g.occupant.Room() }
func (g *Ghost) Boredom() int             { return g.boredom }
func (g *Ghost) Ticks() uint64            { return g.tick }
func (g *Ghost) ExitCause() GhostExit     { return g.exitCase }
func (g *Ghost) Running() bool            { return g != nil && g.running.Load() }

// Evidence returns the evidence types this ghost can leave.
func (g *Ghost) Evidence() evidence.Set {
	return g.ghostType.Evidence()
}

// Stop asks the ghost to finish after its current tick.
func (g *Ghost) Stop() {
	if g == nil {
		return
	}
	g.running.Store(false)
}

// Run ticks the ghost until it gets bored or is stopped, then clears its
// room's ghost slot.
func (g *Ghost) Run() {
	if g == nil {
		return
	}
	defer g.leave()
	for g.running.Load() {
		if !g.Step() {
			return
		}
		g.deps.Sleep(g.cfg.Tick)
	}
}

// Step runs one tick and reports whether the ghost is still active.
func (g *Ghost) Step() bool {
	if g == nil || !g.running.Load() {
		return false
	}
	g.tick++
	g.updateMood()
	if g.boredom > g.cfg.BoredomMax {
		g.exit(GhostExitBored)
		return false
	}
	g.act(GhostAction(g.deps.Random.Intn(int(ghostActionCount))))
	return true
}

func (g *Ghost) updateMood() {
	if g.Room().HunterCount() > 0 {
		g.boredom = 0
	} else {
		g.boredom++
	}
}

func (g *Ghost) act(action GhostAction) {
	room := g.Room()
	if room == nil {
		return
	}
	switch action {
	case ActionEvidence:
		if t, ok := evidence.RandomFrom(g.deps.Random, g.Evidence()); ok {
			room.AddEvidence(t)
			g.deps.Metrics.Add(MetricEvidenceDeposited, 1)
			ghosts.EvidenceLeft(g.ctx, g.deps.Publisher, g.tick, g.actor, ghosts.EvidenceLeftPayload{
				Room:     room.Name(),
				Evidence: t.String(),
				Boredom:  g.boredom,
			}, nil)
			return
		}
	case ActionMove:
		if room.HunterCount() == 0 {
			target := room.RandomConnection(g.deps.Random)
			if target != nil && MoveEntity(room, target, g.occupant) {
				g.deps.Metrics.Add(MetricGhostMoves, 1)
				ghosts.Moved(g.ctx, g.deps.Publisher, g.tick, g.actor, ghosts.MovedPayload{
					From:    room.Name(),
					To:      target.Name(),
					Boredom: g.boredom,
				}, nil)
				return
			}
		}
	}
	ghosts.Idle(g.ctx, g.deps.Publisher, g.tick, g.actor, ghosts.IdlePayload{
		Room:    room.Name(),
		Boredom: g.boredom,
	}, nil)
}

func (g *Ghost) exit(cause GhostExit) {
	g.exitCase = cause
	g.running.Store(false)
	ghosts.Exited(g.ctx, g.deps.Publisher, g.tick, g.actor, ghosts.ExitedPayload{
		Room:    g.Room().Name(),
		Boredom: g.boredom,
		Cause:   cause.String(),
	}, nil)
}

// leave clears the ghost slot of its final room exactly once.
func (g *Ghost) leave() {
	g.leaveOnce.Do(func() {
		if g.exitCase == GhostExitNone {
			g.exit(GhostExitStopped)
		}
		if room := g.Room(); room != nil {
			room.RemoveGhost()
		}
	})
}
