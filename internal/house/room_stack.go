package house

// RoomStack records the rooms a hunter walked through since it last left
// base, most recent on top. It belongs to a single hunter and is not
// synchronized.
type RoomStack struct {
	rooms []*Room
}

// Push adds room to the top of the stack. Nil rooms are ignored.
func (s *RoomStack) Push(room *Room) {
	if s == nil || room == nil {
		return
	}
	s.rooms = append(s.rooms, room)
}

// Pop removes and returns the top room, or nil when empty.
func (s *RoomStack) Pop() *Room {
	if s == nil || len(s.rooms) == 0 {
		return nil
	}
	last := len(s.rooms) - 1
	room := s.rooms[last]
	s.rooms[last] = nil
	s.rooms = s.rooms[:last]
	return room
}

// Peek returns the top room without removing it.
func (s *RoomStack) Peek() *Room {
	if s == nil || len(s.rooms) == 0 {
		return nil
	}
	return s.rooms[len(s.rooms)-1]
}

func (s *RoomStack) Clear() {
	if s == nil {
		return
	}
	clear(s.rooms)
	s.rooms = s.rooms[:0]
}

func (s *RoomStack) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rooms)
}

func (s *RoomStack) Empty() bool {
	return s.Len() == 0
}
