package house

import "sync/atomic"

// Kind distinguishes hunters from the ghost inside a room.
type Kind uint8

const (
	KindHunter Kind = iota + 1
	KindGhost
)

func (k Kind) String() string {
	switch k {
	case KindHunter:
		return "hunter"
	case KindGhost:
		return "ghost"
	default:
		return "unknown"
	}
}

// Occupant is the handle a room stores for an agent. It does not own the
// room it points at; the pointer is written only while that room's lock is
// held, and membership in the room's occupant set always agrees with it
// outside of a move's critical section.
type Occupant struct {
	kind Kind
	id   int
	room atomic.Pointer[Room]
}

// NewOccupant returns a handle that is not yet in any room.
func NewOccupant(kind Kind, id int) *Occupant {
	return &Occupant{kind: kind, id: id}
}

// Kind reports whether the handle belongs to a hunter or the ghost.
func (o *Occupant) Kind() Kind {
	if o == nil {
		return 0
	}
	return o.kind
}

// ID returns the agent's numeric id.
func (o *Occupant) ID() int {
	if o == nil {
		return 0
	}
	return o.id
}

// Room returns the room the agent is in, or nil.
func (o *Occupant) Room() *Room {
	if o == nil {
		return nil
	}
	return o.room.Load()
}
