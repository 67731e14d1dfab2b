package house

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hauntsim/server/internal/evidence"
	"hauntsim/server/internal/random"
	"hauntsim/server/internal/telemetry"
	"hauntsim/server/logging"
	"hauntsim/server/logging/lifecycle"
)

// Deps bundles runtime dependencies shared by the house and its agents.
type Deps struct {
	Publisher logging.Publisher
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Random    random.Source
	Sleep     func(time.Duration)
}

func (d Deps) normalized() Deps {
	if d.Publisher == nil {
		d.Publisher = logging.NopPublisher()
	}
	if d.Logger == nil {
		d.Logger = telemetry.NopLogger()
	}
	if d.Metrics == nil {
		d.Metrics = telemetry.NopMetrics()
	}
	d.Random = random.Or(d.Random)
	if d.Sleep == nil {
		d.Sleep = time.Sleep
	}
	return d
}

// House owns the room arena, the shared case file, the hunters and the
// ghost. Rooms are appended during setup only and never move afterwards.
type House struct {
	limits Limits
	deps   Deps

	rooms    []*Room
	starting *Room
	caseFile *evidence.CaseFile

	mu      sync.Mutex
	hunters []*Hunter
	ghost   *Ghost
}

// New constructs an empty house.
func New(limits Limits, deps Deps) *House {
	limits = limits.normalized()
	return &House{
		limits:   limits,
		deps:     deps.normalized(),
		rooms:    make([]*Room, 0, limits.MaxRooms),
		caseFile: evidence.NewCaseFile(),
	}
}

func (h *House) Limits() Limits {
	if h == nil {
		return Limits{}
	}
	return h.limits
}

// Deps returns the normalized dependencies.
func (h *House) Deps() Deps {
	if h == nil {
		return Deps{}.normalized()
	}
	return h.deps
}

// AddRoom appends a room to the arena. The first exit room added becomes
// the starting room unless one was set explicitly.
func (h *House) AddRoom(name string, isExit bool) (*Room, error) {
	if h == nil {
		return nil, ErrNilHouse
	}
	if len(h.rooms) >= h.limits.MaxRooms {
		return nil, fmt.Errorf("%w: cannot add %q beyond %d rooms", ErrRoomLimit, name, h.limits.MaxRooms)
	}
	if h.RoomByName(name) != nil {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateRoom, name)
	}
	room := NewRoom(name, isExit, h.limits)
	h.rooms = append(h.rooms, room)
	if isExit && h.starting == nil {
		h.starting = room
	}
	return room, nil
}

// Connect links two rooms. A rejected edge is logged and reported, never fatal.
func (h *House) Connect(a, b *Room) bool {
	if h == nil {
		return false
	}
	if err := Connect(a, b); err != nil {
		h.deps.Logger.Printf("WARNING: skipping connection %s <-> %s: %v", a, b, err)
		lifecycle.ConnectionRejected(context.Background(), h.deps.Publisher, lifecycle.ConnectionRejectedPayload{
			From:   a.Name(),
			To:     b.Name(),
			Reason: err.Error(),
		}, nil)
		return false
	}
	return true
}

// SetStartingRoom marks room as the base hunters start from and return to.
func (h *House) SetStartingRoom(room *Room) error {
	if h == nil {
		return ErrNilHouse
	}
	if room == nil || !room.IsExit() {
		return fmt.Errorf("%w: starting room must be an exit room", ErrInvalidLayout)
	}
	h.starting = room
	return nil
}

func (h *House) StartingRoom() *Room {
	if h == nil {
		return nil
	}
	return h.starting
}

// Rooms returns the rooms in arena order.
func (h *House) Rooms() []*Room {
	if h == nil {
		return nil
	}
	out := make([]*Room, len(h.rooms))
	copy(out, h.rooms)
	return out
}

func (h *House) RoomByName(name string) *Room {
	if h == nil {
		return nil
	}
	for _, room := range h.rooms {
		if room.name == name {
			return room
		}
	}
	return nil
}

func (h *House) CaseFile() *evidence.CaseFile {
	if h == nil {
		return nil
	}
	return h.caseFile
}

// AddHunter appends a hunter to the collection.
func (h *House) AddHunter(hunter *Hunter) {
	if h == nil || hunter == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hunters = append(h.hunters, hunter)
}

// Hunters returns the registered hunters in registration order.
func (h *House) Hunters() []*Hunter {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Hunter, len(h.hunters))
	copy(out, h.hunters)
	return out
}

// SetGhost registers the house's single ghost.
func (h *House) SetGhost(ghost *Ghost) error {
	if h == nil {
		return ErrNilHouse
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ghost != nil && h.ghost != ghost {
		return ErrGhostPresent
	}
	h.ghost = ghost
	return nil
}

func (h *House) Ghost() *Ghost {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ghost
}

// Validate checks the house is ready for agents: a starting exit room that
// is the only exit, and every room reachable from it.
func (h *House) Validate() error {
	if h == nil {
		return ErrNilHouse
	}
	if len(h.rooms) == 0 {
		return ErrNoRooms
	}
	if h.starting == nil {
		return ErrNoStartingRoom
	}
	exits := 0
	for _, room := range h.rooms {
		if room.isExit {
			exits++
		}
	}
	if exits != 1 || !h.starting.isExit {
		return fmt.Errorf("%w: want exactly one exit room, found %d", ErrInvalidLayout, exits)
	}
	seen := map[*Room]bool{h.starting: true}
	queue := []*Room{h.starting}
	for len(queue) > 0 {
		room := queue[0]
		queue = queue[1:]
		for _, next := range room.connections {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	if len(seen) != len(h.rooms) {
		return fmt.Errorf("%w: %d of %d rooms reachable from %q", ErrDisconnectedLayout, len(seen), len(h.rooms), h.starting.name)
	}
	return nil
}

func (h *House) clearGhost(ghost *Ghost) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ghost == ghost {
		h.ghost = nil
	}
}
