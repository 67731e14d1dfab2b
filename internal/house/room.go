package house

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"hauntsim/server/internal/evidence"
	"hauntsim/server/internal/random"
)

var roomSeq atomic.Uint64

// Room is a node of the house graph. Its lock guards the occupant sets and
// the evidence mask. Connections are fixed before any agent starts and are
// read without the lock.
type Room struct {
	id     uint64
	name   string
	isExit bool
	limits Limits

	connections []*Room

	mu       sync.Mutex
	hunters  []*Occupant
	ghost    *Occupant
	evidence evidence.Set
}

// NewRoom creates a room with a process-unique identity. Rooms must only be
// handled by pointer; the identity orders lock acquisition in MoveEntity.
func NewRoom(name string, isExit bool, limits Limits) *Room {
	limits = limits.normalized()
	return &Room{
		id:          roomSeq.Add(1),
		name:        name,
		isExit:      isExit,
		limits:      limits,
		connections: make([]*Room, 0, limits.MaxConnections),
		hunters:     make([]*Occupant, 0, limits.RoomCapacity),
	}
}

// ID returns the room's stable identity.
func (r *Room) ID() uint64 {
	if r == nil {
		return 0
	}
	return r.id
}

func (r *Room) Name() string {
	if r == nil {
		return ""
	}
	return r.name
}

func (r *Room) IsExit() bool {
	return r != nil && r.isExit
}

// Capacity returns the maximum number of hunters the room holds.
func (r *Room) Capacity() int {
	if r == nil {
		return 0
	}
	return r.limits.RoomCapacity
}

// Connections returns a copy of the room's neighbours.
func (r *Room) Connections() []*Room {
	if r == nil {
		return nil
	}
	return slices.Clone(r.connections)
}

// Connected reports whether other is a neighbour of r.
func (r *Room) Connected(other *Room) bool {
	if r == nil || other == nil {
		return false
	}
	return slices.Contains(r.connections, other)
}

// Connect adds a symmetric edge between a and b. It is a setup-time call and
// must not race with agents. The edge is skipped when either endpoint is
// already at its connection limit.
func Connect(a, b *Room) error {
	if a == nil || b == nil || a == b {
		return ErrInvalidConnection
	}
	if a.Connected(b) {
		return fmt.Errorf("%w: %s and %s are already connected", ErrInvalidConnection, a.name, b.name)
	}
	if len(a.connections) >= a.limits.MaxConnections {
		return fmt.Errorf("%w: room %q has %d connections", ErrConnectionLimit, a.name, len(a.connections))
	}
	if len(b.connections) >= b.limits.MaxConnections {
		return fmt.Errorf("%w: room %q has %d connections", ErrConnectionLimit, b.name, len(b.connections))
	}
	a.connections = append(a.connections, b)
	b.connections = append(b.connections, a)
	return nil
}

// RandomConnection picks a neighbour uniformly, or nil when isolated.
func (r *Room) RandomConnection(src random.Source) *Room {
	if r == nil || len(r.connections) == 0 {
		return nil
	}
	return r.connections[random.Or(src).Intn(len(r.connections))]
}

// AddHunter places a hunter handle in the room. It fails when the room is
// full, the handle is not a hunter, or the hunter is already somewhere.
func (r *Room) AddHunter(o *Occupant) bool {
	if r == nil || o == nil || o.kind != KindHunter {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.room.Load() != nil || len(r.hunters) >= r.limits.RoomCapacity {
		return false
	}
	r.hunters = append(r.hunters, o)
	o.room.Store(r)
	return true
}

// RemoveHunter takes a hunter out of the room and reports whether it was there.
func (r *Room) RemoveHunter(o *Occupant) bool {
	if r == nil || o == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.dropHunterLocked(o) {
		return false
	}
	o.room.CompareAndSwap(r, nil)
	return true
}

func (r *Room) dropHunterLocked(o *Occupant) bool {
	idx := slices.Index(r.hunters, o)
	if idx < 0 {
		return false
	}
	r.hunters = slices.Delete(r.hunters, idx, idx+1)
	return true
}

// SetGhost places the ghost handle in the room's single ghost slot.
func (r *Room) SetGhost(o *Occupant) bool {
	if r == nil || o == nil || o.kind != KindGhost {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ghost != nil && r.ghost != o {
		return false
	}
	if current := o.room.Load(); current != nil && current != r {
		return false
	}
	r.ghost = o
	o.room.Store(r)
	return true
}

// RemoveGhost empties the ghost slot and reports whether it was occupied.
func (r *Room) RemoveGhost() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ghost == nil {
		return false
	}
	r.ghost.room.CompareAndSwap(r, nil)
	r.ghost = nil
	return true
}

// HasGhost reports whether the ghost is in the room.
func (r *Room) HasGhost() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ghost != nil
}

// HunterCount returns the number of hunters in the room.
func (r *Room) HunterCount() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hunters)
}

// Hunters returns a snapshot of the hunter handles in the room.
func (r *Room) Hunters() []*Occupant {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.hunters)
}

// AddEvidence deposits t in the room.
func (r *Room) AddEvidence(t evidence.Type) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evidence = r.evidence.Add(t)
}

// RemoveEvidence clears t and reports whether it was present.
func (r *Room) RemoveEvidence(t evidence.Type) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	had := r.evidence.Contains(t)
	if had {
		r.evidence = r.evidence.Remove(t)
	}
	return had
}

// HasEvidence reports whether t is present.
func (r *Room) HasEvidence(t evidence.Type) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evidence.Contains(t)
}

// Evidence returns a snapshot of the room's evidence mask.
func (r *Room) Evidence() evidence.Set {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evidence
}

func (r *Room) String() string {
	if r == nil {
		return "<nil room>"
	}
	return r.name
}
