package house

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMoveEntityHunter(t *testing.T) {
	from := NewRoom("from", true, Limits{})
	to := NewRoom("to", false, Limits{})
	hunter := NewOccupant(KindHunter, 1)
	if !from.AddHunter(hunter) {
		t.Fatalf("failed to place hunter")
	}

	if !MoveEntity(from, to, hunter) {
		t.Fatalf("expected move to succeed")
	}
	if hunter.Room() != to || from.HunterCount() != 0 || to.HunterCount() != 1 {
		t.Fatalf("expected hunter to be in destination only")
	}
	if MoveEntity(from, to, hunter) {
		t.Fatalf("expected move from a room the hunter is not in to fail")
	}
	if MoveEntity(to, to, hunter) {
		t.Fatalf("expected move to the same room to fail")
	}
	if MoveEntity(nil, to, hunter) || MoveEntity(to, nil, hunter) || MoveEntity(to, from, nil) {
		t.Fatalf("expected nil arguments to fail")
	}
}

func TestMoveEntityRespectsCapacityForHunters(t *testing.T) {
	from := NewRoom("from", true, Limits{})
	to := NewRoom("to", false, Limits{RoomCapacity: 1})
	resident := NewOccupant(KindHunter, 1)
	mover := NewOccupant(KindHunter, 2)
	to.AddHunter(resident)
	from.AddHunter(mover)

	if MoveEntity(from, to, mover) {
		t.Fatalf("expected full destination to refuse hunter")
	}
	if mover.Room() != from || from.HunterCount() != 1 || to.HunterCount() != 1 {
		t.Fatalf("failed move must leave both rooms unchanged")
	}
}

func TestMoveEntityGhostIgnoresCapacity(t *testing.T) {
	from := NewRoom("from", false, Limits{})
	to := NewRoom("to", false, Limits{RoomCapacity: 1})
	to.AddHunter(NewOccupant(KindHunter, 1))
	ghost := NewOccupant(KindGhost, DefaultGhostID)
	from.SetGhost(ghost)

	if !MoveEntity(from, to, ghost) {
		t.Fatalf("expected ghost to enter a full room")
	}
	if from.HasGhost() || !to.HasGhost() || ghost.Room() != to {
		t.Fatalf("expected ghost slot to transfer")
	}

	second := NewOccupant(KindGhost, 2)
	from.SetGhost(second)
	if MoveEntity(from, to, second) {
		t.Fatalf("expected occupied ghost slot to refuse a move")
	}
}

func TestMoveEntityOpposingMovesDoNotDeadlock(t *testing.T) {
	const capacity = 10
	a := NewRoom("a", false, Limits{RoomCapacity: capacity})
	b := NewRoom("b", false, Limits{RoomCapacity: capacity})

	const movers = 16
	const rounds = 2000
	occupants := make([]*Occupant, movers)
	for i := range occupants {
		occupants[i] = NewOccupant(KindHunter, i+1)
		room := a
		if i%2 == 1 {
			room = b
		}
		if !room.AddHunter(occupants[i]) {
			t.Fatalf("failed to place hunter %d", i)
		}
	}
	ghost := NewOccupant(KindGhost, DefaultGhostID)
	if !a.SetGhost(ghost) {
		t.Fatalf("failed to place ghost")
	}

	var moved atomic.Int64
	bounce := func(o *Occupant) {
		for i := 0; i < rounds; i++ {
			from := o.Room()
			to := b
			if from == b {
				to = a
			}
			if MoveEntity(from, to, o) {
				moved.Add(1)
			}
		}
	}

	var wg sync.WaitGroup
	for _, o := range occupants {
		wg.Add(1)
		go func(o *Occupant) {
			defer wg.Done()
			bounce(o)
		}(o)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		bounce(ghost)
	}()

	done := make(chan struct{})
	var sampled sync.WaitGroup
	sampled.Add(1)
	go func() {
		defer sampled.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			for _, room := range []*Room{a, b} {
				if n := room.HunterCount(); n > room.Capacity() {
					t.Errorf("room %s holds %d hunters, capacity %d", room, n, room.Capacity())
					return
				}
			}
			if err := checkPairConsistent(a, b, occupants, ghost); err != "" {
				t.Error(err)
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("opposing moves did not finish; suspected deadlock")
	}
	sampled.Wait()

	if moved.Load() == 0 {
		t.Fatalf("expected some moves to succeed")
	}
	if err := checkPairConsistent(a, b, occupants, ghost); err != "" {
		t.Fatal(err)
	}
}

// checkPairConsistent holds both room locks, in the order MoveEntity uses,
// and verifies every handle sits in exactly the room its pointer names.
func checkPairConsistent(a, b *Room, hunters []*Occupant, ghost *Occupant) string {
	first, second := a, b
	if second.id < first.id {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if total := len(a.hunters) + len(b.hunters); total != len(hunters) {
		return fmt.Sprintf("expected %d hunters across both rooms, got %d", len(hunters), total)
	}
	for _, room := range []*Room{a, b} {
		if len(room.hunters) > room.limits.RoomCapacity {
			return fmt.Sprintf("room %s over capacity: %d", room.name, len(room.hunters))
		}
	}
	for _, o := range hunters {
		inA, inB := containsOccupant(a.hunters, o), containsOccupant(b.hunters, o)
		current := o.room.Load()
		if inA == inB || (inA && current != a) || (inB && current != b) {
			return fmt.Sprintf("hunter %d: in a=%t in b=%t but points at %v", o.ID(), inA, inB, current)
		}
	}
	inA, inB := a.ghost == ghost, b.ghost == ghost
	current := ghost.room.Load()
	if inA == inB || (inA && current != a) || (inB && current != b) {
		return fmt.Sprintf("ghost: in a=%t in b=%t but points at %v", inA, inB, current)
	}
	return ""
}

func containsOccupant(list []*Occupant, o *Occupant) bool {
	for _, candidate := range list {
		if candidate == o {
			return true
		}
	}
	return false
}

func TestMoveEntityCapacityUnderContention(t *testing.T) {
	from := NewRoom("from", true, Limits{RoomCapacity: 32})
	to := NewRoom("to", false, Limits{RoomCapacity: DefaultRoomCapacity})

	const hunters = 20
	occupants := make([]*Occupant, hunters)
	for i := range occupants {
		occupants[i] = NewOccupant(KindHunter, i+1)
		from.AddHunter(occupants[i])
	}

	var moved atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for _, o := range occupants {
		wg.Add(1)
		go func(o *Occupant) {
			defer wg.Done()
			<-start
			if MoveEntity(from, to, o) {
				moved.Add(1)
			}
		}(o)
	}
	close(start)
	wg.Wait()

	if got := moved.Load(); got != DefaultRoomCapacity {
		t.Fatalf("expected exactly %d successful moves, got %d", DefaultRoomCapacity, got)
	}
	if to.HunterCount() != DefaultRoomCapacity {
		t.Fatalf("destination exceeded capacity: %d", to.HunterCount())
	}
	if from.HunterCount() != hunters-DefaultRoomCapacity {
		t.Fatalf("expected %d hunters left behind, got %d", hunters-DefaultRoomCapacity, from.HunterCount())
	}
}
