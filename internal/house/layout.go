package house

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Populator builds the room graph of a house before any agent starts.
type Populator interface {
	Populate(h *House) error
}

// PopulatorFunc adapts a function into a Populator.
type PopulatorFunc func(h *House) error

func (f PopulatorFunc) Populate(h *House) error {
	if f == nil {
		return nil
	}
	return f(h)
}

// Layout describes a house as named rooms and undirected edges. Exit names
// the starting room.
type Layout struct {
	Exit  string      `yaml:"exit" json:"exit"`
	Rooms []string    `yaml:"rooms" json:"rooms"`
	Edges [][2]string `yaml:"edges" json:"edges"`
}

// DefaultLayout is the stock thirteen room house with the van as base.
func DefaultLayout() Layout {
	return Layout{
		Exit: "Van",
		Rooms: []string{
			"Van",
			"Hallway",
			"Master Bedroom",
			"Boy's Bedroom",
			"Bathroom",
			"Basement",
			"Basement Hallway",
			"Right Storage Room",
			"Left Storage Room",
			"Kitchen",
			"Living Room",
			"Garage",
			"Utility Room",
		},
		Edges: [][2]string{
			{"Van", "Hallway"},
			{"Hallway", "Master Bedroom"},
			{"Hallway", "Boy's Bedroom"},
			{"Hallway", "Bathroom"},
			{"Hallway", "Kitchen"},
			{"Hallway", "Basement"},
			{"Basement", "Basement Hallway"},
			{"Basement Hallway", "Right Storage Room"},
			{"Basement Hallway", "Left Storage Room"},
			{"Kitchen", "Living Room"},
			{"Kitchen", "Garage"},
			{"Garage", "Utility Room"},
		},
	}
}

// ParseLayout decodes a YAML layout document.
func ParseLayout(data []byte) (Layout, error) {
	var layout Layout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return Layout{}, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	return layout, nil
}

// LoadLayout reads a YAML layout from path.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read layout %s: %w", path, err)
	}
	return ParseLayout(data)
}

// Populate adds the layout's rooms and edges to h. Edges that exceed a
// connection limit are skipped with a warning; unknown room names and a
// missing exit are errors.
func (l Layout) Populate(h *House) error {
	if h == nil {
		return ErrNilHouse
	}
	if l.Exit == "" {
		return fmt.Errorf("%w: no exit room", ErrInvalidLayout)
	}
	foundExit := false
	for _, name := range l.Rooms {
		isExit := name == l.Exit
		foundExit = foundExit || isExit
		if _, err := h.AddRoom(name, isExit); err != nil {
			return err
		}
	}
	if !foundExit {
		return fmt.Errorf("%w: exit room %q is not listed", ErrInvalidLayout, l.Exit)
	}
	for _, edge := range l.Edges {
		a, b := h.RoomByName(edge[0]), h.RoomByName(edge[1])
		if a == nil || b == nil {
			return fmt.Errorf("%w: edge %q <-> %q names an unknown room", ErrInvalidLayout, edge[0], edge[1])
		}
		h.Connect(a, b)
	}
	return h.SetStartingRoom(h.RoomByName(l.Exit))
}
