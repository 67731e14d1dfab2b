package house

import "time"

const (
	DefaultMaxRooms       = 24
	DefaultMaxConnections = 8
	DefaultRoomCapacity   = 8
	DefaultBoredomMax     = 15
	DefaultFearMax        = 15
	DefaultHunterTick     = 100 * time.Millisecond
	DefaultGhostTick      = 150 * time.Millisecond
	DefaultReturnChance   = 0.10
	DefaultGhostID        = 68057
)

// Limits bounds the room graph.
type Limits struct {
	MaxRooms       int
	MaxConnections int
	RoomCapacity   int
}

// DefaultLimits returns the stock room graph bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxRooms:       DefaultMaxRooms,
		MaxConnections: DefaultMaxConnections,
		RoomCapacity:   DefaultRoomCapacity,
	}
}

func (l Limits) normalized() Limits {
	if l.MaxRooms <= 0 {
		l.MaxRooms = DefaultMaxRooms
	}
	if l.MaxConnections <= 0 {
		l.MaxConnections = DefaultMaxConnections
	}
	if l.RoomCapacity <= 0 {
		l.RoomCapacity = DefaultRoomCapacity
	}
	return l
}

// Normalized replaces non-positive limits with defaults.
func (l Limits) Normalized() Limits {
	return l.normalized()
}

// HunterConfig tunes the hunter state machine.
type HunterConfig struct {
	BoredomMax   int
	FearMax      int
	ReturnChance float64
	Tick         time.Duration
}

// DefaultHunterConfig returns the stock hunter tuning.
func DefaultHunterConfig() HunterConfig {
	return HunterConfig{
		BoredomMax:   DefaultBoredomMax,
		FearMax:      DefaultFearMax,
		ReturnChance: DefaultReturnChance,
		Tick:         DefaultHunterTick,
	}
}

func (c HunterConfig) normalized() HunterConfig {
	if c.BoredomMax <= 0 {
		c.BoredomMax = DefaultBoredomMax
	}
	if c.FearMax <= 0 {
		c.FearMax = DefaultFearMax
	}
	if c.ReturnChance < 0 {
		c.ReturnChance = 0
	}
	if c.ReturnChance > 1 {
		c.ReturnChance = 1
	}
	if c.Tick < 0 {
		c.Tick = DefaultHunterTick
	}
	return c
}

// GhostConfig tunes the ghost state machine.
type GhostConfig struct {
	ID         int
	BoredomMax int
	Tick       time.Duration
}

// DefaultGhostConfig returns the stock ghost tuning.
func DefaultGhostConfig() GhostConfig {
	return GhostConfig{
		ID:         DefaultGhostID,
		BoredomMax: DefaultBoredomMax,
		Tick:       DefaultGhostTick,
	}
}

func (c GhostConfig) normalized() GhostConfig {
	if c.ID == 0 {
		c.ID = DefaultGhostID
	}
	if c.BoredomMax <= 0 {
		c.BoredomMax = DefaultBoredomMax
	}
	if c.Tick < 0 {
		c.Tick = DefaultGhostTick
	}
	return c
}
