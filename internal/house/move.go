package house

// MoveEntity transfers o from one room to another as a single step. Both
// room locks are taken in ascending ID order whichever direction the move
// goes, so two opposing moves can never wait on each other in a cycle.
// Hunters are refused when the destination is at capacity; the ghost is
// never capacity checked. Nothing changes when the move fails.
func MoveEntity(from, to *Room, o *Occupant) bool {
	if from == nil || to == nil || o == nil || from == to {
		return false
	}
	first, second := from, to
	if second.id < first.id {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	switch o.kind {
	case KindGhost:
		if from.ghost != o || to.ghost != nil {
			return false
		}
		from.ghost = nil
		to.ghost = o
	case KindHunter:
		if len(to.hunters) >= to.limits.RoomCapacity {
			return false
		}
		if !from.dropHunterLocked(o) {
			return false
		}
		to.hunters = append(to.hunters, o)
	default:
		return false
	}
	o.room.Store(to)
	return true
}
