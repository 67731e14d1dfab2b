package house

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"hauntsim/server/internal/evidence"
	"hauntsim/server/internal/random"
	"hauntsim/server/logging"
	"hauntsim/server/logging/hunters"
)

// ExitReason records why a hunter stopped.
type ExitReason uint8

const (
	ExitNone ExitReason = iota
	ExitBored
	ExitAfraid
	ExitEvidence
	ExitStopped
)

func (r ExitReason) String() string {
	switch r {
	case ExitBored:
		return "bored"
	case ExitAfraid:
		return "afraid"
	case ExitEvidence:
		return "evidence"
	case ExitStopped:
		return "stopped"
	default:
		return "none"
	}
}

// Hunter explores the house with one evidence detector at a time. All of its
// fields except the running flag belong to the goroutine calling Step or
// Run; other goroutines may read them only after that goroutine has finished.
type Hunter struct {
	name     string
	occupant *Occupant
	house    *House
	base     *Room
	caseFile *evidence.CaseFile
	cfg      HunterConfig
	deps     Deps
	ctx      context.Context
	actor    logging.EntityRef

	device       evidence.Type
	path         RoomStack
	boredom      int
	fear         int
	returnToBase bool
	tick         uint64
	exitReason   ExitReason

	running   atomic.Bool
	leaveOnce sync.Once
}

// HunterOption customizes a hunter at creation.
type HunterOption func(*Hunter)

// WithDevice fixes the hunter's initial detector instead of drawing one.
func WithDevice(device evidence.Type) HunterOption {
	return func(h *Hunter) {
		if device.Valid() {
			h.device = device
		}
	}
}

// NewHunter registers a hunter in the house's starting room.
func NewHunter(name string, id int, house *House, cfg HunterConfig, opts ...HunterOption) (*Hunter, error) {
	if house == nil {
		return nil, ErrNilHouse
	}
	base := house.StartingRoom()
	if base == nil {
		return nil, ErrNoStartingRoom
	}
	deps := house.Deps()
	h := &Hunter{
		name:     name,
		occupant: NewOccupant(KindHunter, id),
		house:    house,
		base:     base,
		caseFile: house.CaseFile(),
		cfg:      cfg.normalized(),
		deps:     deps,
		ctx:      context.Background(),
		actor:    logging.HunterRef(id),
	}
	h.device = evidence.RandomType(deps.Random)
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if !base.AddHunter(h.occupant) {
		return nil, fmt.Errorf("%w: %s cannot hold hunter %s", ErrRoomFull, base.Name(), name)
	}
	h.running.Store(true)
	house.AddHunter(h)
	hunters.Joined(h.ctx, deps.Publisher, h.actor, hunters.JoinedPayload{
		Name:   name,
		Room:   base.Name(),
		Device: h.device.String(),
	}, nil)
	return h, nil
}

func (h *Hunter) Name() string           { return h.name }
func (h *Hunter) ID() int                { return h.occupant.ID() }
func (h *Hunter) Occupant() *Occupant    { return h.occupant }
func (h *Hunter) Room() *Room            { return h.occupant.Room() }
func (h *Hunter) Device() evidence.Type  { return h.device }
func (h *Hunter) Boredom() int           { return h.boredom }
func (h *Hunter) Fear() int              { return h.fear }
func (h *Hunter) ReturningToBase() bool  { return h.returnToBase }
func (h *Hunter) PathLen() int           { return h.path.Len() }
func (h *Hunter) ExitReason() ExitReason { return h.exitReason }
func (h *Hunter) Ticks() uint64          { return h.tick }
func (h *Hunter) Running() bool          { return h != nil && h.running.Load() }

// Stop asks the hunter to finish after its current tick.
func (h *Hunter) Stop() {
	if h == nil {
		return
	}
	h.running.Store(false)
}

// Run ticks the hunter until it exits or is stopped, then takes it out of
// the room it ended in.
func (h *Hunter) Run() {
	if h == nil {
		return
	}
	defer h.leave()
	for h.running.Load() {
		if !h.Step() {
			return
		}
		h.deps.Sleep(h.cfg.Tick)
	}
}

// Step runs one tick and reports whether the hunter is still active.
func (h *Hunter) Step() bool {
	if h == nil || !h.running.Load() {
		return false
	}
	h.tick++
	h.updateMood()
	if h.checkExit() {
		return false
	}
	if h.checkBase() {
		return false
	}
	h.gatherEvidence()
	h.move()
	return true
}

func (h *Hunter) updateMood() {
	room := h.Room()
	if room == nil {
		return
	}
	if room.HasGhost() {
		h.boredom = 0
		h.fear++
	} else {
		h.boredom++
		h.fear = 0
	}
}

func (h *Hunter) checkExit() bool {
	switch {
	case h.boredom > h.cfg.BoredomMax:
		h.exit(ExitBored)
	case h.fear > h.cfg.FearMax:
		h.exit(ExitAfraid)
	default:
		return false
	}
	return true
}

// checkBase resets the trip when the hunter stands in the starting room and
// reports whether the case is closed.
func (h *Hunter) checkBase() bool {
	room := h.Room()
	if room == nil || room != h.base {
		return false
	}
	h.path.Clear()
	h.returnToBase = false
	hunters.ReachedBase(h.ctx, h.deps.Publisher, h.tick, h.actor, hunters.ReachedBasePayload{
		Status: h.status(),
		Room:   room.Name(),
	}, nil)
	if h.caseFile.Solved() {
		h.exit(ExitEvidence)
		return true
	}
	previous := h.device
	h.device = evidence.RandomTypeExcept(h.deps.Random, previous)
	hunters.DeviceSwapped(h.ctx, h.deps.Publisher, h.tick, h.actor, hunters.DeviceSwappedPayload{
		From: previous.String(),
		To:   h.device.String(),
	}, nil)
	return false
}

func (h *Hunter) gatherEvidence() {
	room := h.Room()
	if room == nil {
		return
	}
	if room.RemoveEvidence(h.device) {
		fresh := h.caseFile.Add(h.device)
		h.deps.Metrics.Add(MetricEvidenceCollected, 1)
		h.deps.Metrics.Store(MetricCaseFileEvidence, uint64(h.caseFile.Evidence().CountUnique()))
		hunters.EvidenceCollected(h.ctx, h.deps.Publisher, h.tick, h.actor, hunters.EvidenceCollectedPayload{
			Status:   h.status(),
			Room:     room.Name(),
			Evidence: h.device.String(),
			Fresh:    fresh,
		}, nil)
		if !room.IsExit() {
			h.startReturn(room, "evidence")
		}
		return
	}
	if !h.returnToBase && random.Chance(h.deps.Random, h.cfg.ReturnChance) {
		h.startReturn(room, "gave_up")
	}
}

func (h *Hunter) startReturn(room *Room, reason string) {
	h.returnToBase = true
	hunters.Returning(h.ctx, h.deps.Publisher, h.tick, h.actor, hunters.ReturningPayload{
		Status: h.status(),
		Room:   room.Name(),
		Reason: reason,
	}, nil)
}

func (h *Hunter) move() {
	from := h.Room()
	if from == nil {
		return
	}
	if h.returnToBase {
		target := h.path.Pop()
		if target == nil {
			h.returnToBase = false
			return
		}
		if !h.moveTo(from, target) {
			// Keep the breadcrumb so the next tick retries the same step home.
			h.path.Push(target)
		}
		return
	}
	target := from.RandomConnection(h.deps.Random)
	if target == nil {
		return
	}
	if h.moveTo(from, target) {
		h.path.Push(from)
	}
}

func (h *Hunter) moveTo(from, to *Room) bool {
	if !MoveEntity(from, to, h.occupant) {
		h.deps.Metrics.Add(MetricHunterMovesBlocked, 1)
		hunters.MoveBlocked(h.ctx, h.deps.Publisher, h.tick, h.actor, hunters.MoveBlockedPayload{
			From: from.Name(),
			To:   to.Name(),
		}, nil)
		return false
	}
	h.deps.Metrics.Add(MetricHunterMoves, 1)
	hunters.Moved(h.ctx, h.deps.Publisher, h.tick, h.actor, hunters.MovedPayload{
		Status:    h.status(),
		From:      from.Name(),
		To:        to.Name(),
		Returning: h.returnToBase,
	}, nil)
	return true
}

func (h *Hunter) exit(reason ExitReason) {
	h.exitReason = reason
	h.running.Store(false)
	switch reason {
	case ExitBored:
		h.deps.Metrics.Add(MetricHuntersBored, 1)
	case ExitAfraid:
		h.deps.Metrics.Add(MetricHuntersAfraid, 1)
	case ExitEvidence:
		h.deps.Metrics.Add(MetricHuntersSolved, 1)
	case ExitStopped:
		h.deps.Metrics.Add(MetricHuntersStopped, 1)
	}
	hunters.Exited(h.ctx, h.deps.Publisher, h.tick, h.actor, hunters.ExitedPayload{
		Status: h.status(),
		Reason: reason.String(),
		Room:   h.Room().Name(),
	}, nil)
}

// leave removes the hunter from its final room exactly once.
func (h *Hunter) leave() {
	h.leaveOnce.Do(func() {
		if h.exitReason == ExitNone {
			h.exit(ExitStopped)
		}
		if room := h.Room(); room != nil {
			room.RemoveHunter(h.occupant)
		}
	})
}

func (h *Hunter) status() hunters.Status {
	return hunters.Status{Boredom: h.boredom, Fear: h.fear, Device: h.device.String()}
}
