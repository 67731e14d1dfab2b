package house

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"hauntsim/server/internal/telemetry"
)

func TestDefaultLayoutValidates(t *testing.T) {
	h := New(DefaultLimits(), Deps{})
	if err := DefaultLayout().Populate(h); err != nil {
		t.Fatalf("populate: %v", err)
	}
	if err := h.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got := len(h.Rooms()); got != 13 {
		t.Fatalf("expected 13 rooms, got %d", got)
	}
	if h.StartingRoom().Name() != "Van" || !h.StartingRoom().IsExit() {
		t.Fatalf("expected the van to be the starting exit")
	}
	hallway := h.RoomByName("Hallway")
	if got := len(hallway.Connections()); got != 6 {
		t.Fatalf("expected hallway to have 6 connections, got %d", got)
	}
}

func TestParseLayout(t *testing.T) {
	doc := []byte(`
exit: Porch
rooms: [Porch, Parlor, Cellar]
edges:
  - [Porch, Parlor]
  - [Parlor, Cellar]
`)
	layout, err := ParseLayout(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	h := New(DefaultLimits(), Deps{})
	if err := layout.Populate(h); err != nil {
		t.Fatalf("populate: %v", err)
	}
	if err := h.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !h.RoomByName("Parlor").Connected(h.RoomByName("Cellar")) {
		t.Fatalf("expected parlor and cellar to be connected")
	}

	if _, err := ParseLayout([]byte("rooms: {")); !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("expected ErrInvalidLayout for malformed yaml, got %v", err)
	}
}

func TestLayoutPopulateErrors(t *testing.T) {
	cases := []struct {
		name   string
		layout Layout
		want   error
	}{
		{name: "no exit", layout: Layout{Rooms: []string{"a"}}, want: ErrInvalidLayout},
		{name: "exit not listed", layout: Layout{Exit: "z", Rooms: []string{"a"}}, want: ErrInvalidLayout},
		{name: "unknown edge", layout: Layout{Exit: "a", Rooms: []string{"a"}, Edges: [][2]string{{"a", "b"}}}, want: ErrInvalidLayout},
		{name: "duplicate room", layout: Layout{Exit: "a", Rooms: []string{"a", "a"}}, want: ErrDuplicateRoom},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.layout.Populate(New(DefaultLimits(), Deps{}))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestHouseRoomLimit(t *testing.T) {
	h := New(Limits{MaxRooms: 2}, Deps{})
	if _, err := h.AddRoom("a", true); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if _, err := h.AddRoom("b", false); err != nil {
		t.Fatalf("add b: %v", err)
	}
	if _, err := h.AddRoom("c", false); !errors.Is(err, ErrRoomLimit) {
		t.Fatalf("expected ErrRoomLimit, got %v", err)
	}
}

func TestHouseConnectSkipsOverLimitEdges(t *testing.T) {
	events := &eventLog{}
	var warnings []string
	deps := testDeps(zeroSource, events)
	deps.Logger = telemetry.LoggerFunc(func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	})
	h := New(Limits{MaxConnections: 1}, deps)
	a, _ := h.AddRoom("a", true)
	b, _ := h.AddRoom("b", false)
	c, _ := h.AddRoom("c", false)

	if !h.Connect(a, b) {
		t.Fatalf("expected first edge to connect")
	}
	if h.Connect(a, c) {
		t.Fatalf("expected over-limit edge to be skipped")
	}
	if len(events.events) != 1 {
		t.Fatalf("expected a rejection event, got %d events", len(events.events))
	}
	if len(warnings) != 1 || !strings.HasPrefix(warnings[0], "WARNING: skipping connection a <-> c") {
		t.Fatalf("expected one warning for the skipped edge, got %q", warnings)
	}
	if err := Connect(a, c); !errors.Is(err, ErrConnectionLimit) {
		t.Fatalf("expected ErrConnectionLimit from the room level, got %v", err)
	}
}

func TestHouseValidate(t *testing.T) {
	if err := New(DefaultLimits(), Deps{}).Validate(); !errors.Is(err, ErrNoRooms) {
		t.Fatalf("expected ErrNoRooms, got %v", err)
	}

	noExit := New(DefaultLimits(), Deps{})
	noExit.AddRoom("a", false)
	if err := noExit.Validate(); !errors.Is(err, ErrNoStartingRoom) {
		t.Fatalf("expected ErrNoStartingRoom, got %v", err)
	}

	twoExits := New(DefaultLimits(), Deps{})
	front, _ := twoExits.AddRoom("front", true)
	back, _ := twoExits.AddRoom("back", true)
	twoExits.Connect(front, back)
	if err := twoExits.Validate(); !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("expected ErrInvalidLayout for two exits, got %v", err)
	}

	island := New(DefaultLimits(), Deps{})
	island.AddRoom("van", true)
	island.AddRoom("shed", false)
	if err := island.Validate(); !errors.Is(err, ErrDisconnectedLayout) {
		t.Fatalf("expected ErrDisconnectedLayout, got %v", err)
	}

	if err := island.SetStartingRoom(island.RoomByName("shed")); !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("expected non-exit starting room to be refused, got %v", err)
	}
}
