package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"hauntsim/server/internal/evidence"
	"hauntsim/server/internal/house"
	"hauntsim/server/internal/observability"
	"hauntsim/server/internal/sim"
	"hauntsim/server/internal/telemetry"
	"hauntsim/server/logging"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HAUNT_"

// Config aggregates everything a run needs.
type Config struct {
	House   HouseConfig      `yaml:"house" json:"house"`
	Hunter  HunterConfig     `yaml:"hunter" json:"hunter"`
	Ghost   GhostConfig      `yaml:"ghost" json:"ghost"`
	Hunters []sim.HunterSpec `yaml:"hunters" json:"hunters"`

	// Layout is a YAML layout file; empty uses the stock house.
	Layout string `yaml:"layout" json:"layout"`
	// Seed seeds the shared random source; 0 seeds from the clock.
	Seed int64 `yaml:"seed" json:"seed"`
	// Listen serves /ws, /metrics and /healthz when set.
	Listen    string `yaml:"listen" json:"listen"`
	MaxAgents int    `yaml:"max_agents" json:"max_agents"`

	Logging       logging.Config       `yaml:"logging" json:"logging"`
	Observability observability.Config `yaml:"observability" json:"observability"`
}

type HouseConfig struct {
	MaxRooms       int `yaml:"max_rooms" json:"max_rooms"`
	MaxConnections int `yaml:"max_connections" json:"max_connections"`
	RoomCapacity   int `yaml:"room_capacity" json:"room_capacity"`
}

type HunterConfig struct {
	BoredomMax   int           `yaml:"boredom_max" json:"boredom_max"`
	FearMax      int           `yaml:"fear_max" json:"fear_max"`
	ReturnChance float64       `yaml:"return_chance" json:"return_chance"`
	Tick         time.Duration `yaml:"tick" json:"tick"`
}

type GhostConfig struct {
	ID         int           `yaml:"id" json:"id"`
	Type       string        `yaml:"type" json:"type"`
	BoredomMax int           `yaml:"boredom_max" json:"boredom_max"`
	Tick       time.Duration `yaml:"tick" json:"tick"`
}

// Default returns the stock configuration without any hunters.
func Default() Config {
	limits := house.DefaultLimits()
	hunter := house.DefaultHunterConfig()
	ghost := house.DefaultGhostConfig()
	return Config{
		House: HouseConfig{
			MaxRooms:       limits.MaxRooms,
			MaxConnections: limits.MaxConnections,
			RoomCapacity:   limits.RoomCapacity,
		},
		Hunter: HunterConfig{
			BoredomMax:   hunter.BoredomMax,
			FearMax:      hunter.FearMax,
			ReturnChance: hunter.ReturnChance,
			Tick:         hunter.Tick,
		},
		Ghost: GhostConfig{
			ID:         ghost.ID,
			BoredomMax: ghost.BoredomMax,
			Tick:       ghost.Tick,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load layers the YAML file at path (optional) and the HAUNT_* environment
// over the defaults. Invalid environment values are reported on logger and
// ignored.
func Load(path string, logger telemetry.Logger) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	cfg.ApplyEnv(logger)
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.Decode(data)
}

// Decode overlays a YAML document on c. Unknown keys are rejected.
func (c *Config) Decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv applies HAUNT_* overrides read from the process environment.
func (c *Config) ApplyEnv(logger telemetry.Logger) {
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	envInt := func(name string, dst *int) {
		raw := os.Getenv(EnvPrefix + name)
		if raw == "" {
			return
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			logger.Printf("invalid %s%s=%q: %v", EnvPrefix, name, raw, err)
			return
		}
		*dst = value
	}
	envDuration := func(name string, dst *time.Duration) {
		raw := os.Getenv(EnvPrefix + name)
		if raw == "" {
			return
		}
		value, err := time.ParseDuration(raw)
		if err != nil {
			logger.Printf("invalid %s%s=%q: %v", EnvPrefix, name, raw, err)
			return
		}
		*dst = value
	}

	envInt("MAX_ROOMS", &c.House.MaxRooms)
	envInt("MAX_CONNECTIONS", &c.House.MaxConnections)
	envInt("ROOM_CAPACITY", &c.House.RoomCapacity)
	envInt("BOREDOM_MAX", &c.Hunter.BoredomMax)
	envInt("FEAR_MAX", &c.Hunter.FearMax)
	envInt("GHOST_BOREDOM_MAX", &c.Ghost.BoredomMax)
	envInt("GHOST_ID", &c.Ghost.ID)
	envInt("MAX_AGENTS", &c.MaxAgents)
	envDuration("HUNTER_TICK", &c.Hunter.Tick)
	envDuration("GHOST_TICK", &c.Ghost.Tick)

	if raw := os.Getenv(EnvPrefix + "RETURN_CHANCE"); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil {
			c.Hunter.ReturnChance = value
		} else {
			logger.Printf("invalid %sRETURN_CHANCE=%q: %v", EnvPrefix, raw, err)
		}
	}
	if raw := os.Getenv(EnvPrefix + "SEED"); raw != "" {
		if value, err := strconv.ParseInt(raw, 10, 64); err == nil {
			c.Seed = value
		} else {
			logger.Printf("invalid %sSEED=%q: %v", EnvPrefix, raw, err)
		}
	}
	if raw := os.Getenv(EnvPrefix + "LISTEN"); raw != "" {
		c.Listen = raw
	}
	if raw := os.Getenv(EnvPrefix + "LAYOUT"); raw != "" {
		c.Layout = raw
	}
	if raw := os.Getenv(EnvPrefix + "GHOST_TYPE"); raw != "" {
		c.Ghost.Type = raw
	}
	if raw := os.Getenv(EnvPrefix + "LOG_LEVEL"); raw != "" {
		c.Logging.Severity = raw
	}
	if raw := os.Getenv(EnvPrefix + "JSON_LOG"); raw != "" {
		c.Logging.JSON.FilePath = raw
		c.Logging = c.Logging.WithSink("json")
	}
	if raw := os.Getenv(EnvPrefix + "PPROF"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			c.Observability.EnablePprofTrace = value
		} else {
			logger.Printf("invalid %sPPROF=%q: %v", EnvPrefix, raw, err)
		}
	}
	if raw := os.Getenv(EnvPrefix + "HUNTERS"); raw != "" {
		specs, err := ParseHunters(strings.Split(raw, ","))
		if err != nil {
			logger.Printf("invalid %sHUNTERS=%q: %v", EnvPrefix, raw, err)
		} else {
			c.Hunters = specs
		}
	}
}

// Normalized replaces out-of-range tunables with their defaults.
func (c Config) Normalized() Config {
	def := Default()
	if c.House.MaxRooms <= 0 {
		c.House.MaxRooms = def.House.MaxRooms
	}
	if c.House.MaxConnections <= 0 {
		c.House.MaxConnections = def.House.MaxConnections
	}
	if c.House.RoomCapacity <= 0 {
		c.House.RoomCapacity = def.House.RoomCapacity
	}
	if c.Hunter.BoredomMax <= 0 {
		c.Hunter.BoredomMax = def.Hunter.BoredomMax
	}
	if c.Hunter.FearMax <= 0 {
		c.Hunter.FearMax = def.Hunter.FearMax
	}
	if c.Hunter.ReturnChance < 0 || c.Hunter.ReturnChance > 1 {
		c.Hunter.ReturnChance = def.Hunter.ReturnChance
	}
	if c.Hunter.Tick < 0 {
		c.Hunter.Tick = def.Hunter.Tick
	}
	if c.Ghost.ID == 0 {
		c.Ghost.ID = def.Ghost.ID
	}
	if c.Ghost.BoredomMax <= 0 {
		c.Ghost.BoredomMax = def.Ghost.BoredomMax
	}
	if c.Ghost.Tick < 0 {
		c.Ghost.Tick = def.Ghost.Tick
	}
	if c.Logging.BufferSize <= 0 {
		c.Logging.BufferSize = def.Logging.BufferSize
	}
	return c
}

// Validate rejects configurations a run cannot start from.
func (c Config) Validate() error {
	if _, err := c.GhostType(); err != nil {
		return err
	}
	seen := make(map[int]string, len(c.Hunters))
	for _, spec := range c.Hunters {
		if strings.TrimSpace(spec.Name) == "" {
			return fmt.Errorf("hunter %d has no name", spec.ID)
		}
		if other, ok := seen[spec.ID]; ok {
			return fmt.Errorf("hunters %s and %s share id %d", other, spec.Name, spec.ID)
		}
		seen[spec.ID] = spec.Name
	}
	return nil
}

// GhostType resolves the configured ghost type; zero means random.
func (c Config) GhostType() (evidence.GhostType, error) {
	if strings.TrimSpace(c.Ghost.Type) == "" {
		return 0, nil
	}
	return evidence.ParseGhostType(c.Ghost.Type)
}

func (c Config) Limits() house.Limits {
	return house.Limits{
		MaxRooms:       c.House.MaxRooms,
		MaxConnections: c.House.MaxConnections,
		RoomCapacity:   c.House.RoomCapacity,
	}
}

func (c Config) HunterSettings() house.HunterConfig {
	return house.HunterConfig{
		BoredomMax:   c.Hunter.BoredomMax,
		FearMax:      c.Hunter.FearMax,
		ReturnChance: c.Hunter.ReturnChance,
		Tick:         c.Hunter.Tick,
	}
}

func (c Config) GhostSettings() house.GhostConfig {
	return house.GhostConfig{
		ID:         c.Ghost.ID,
		BoredomMax: c.Ghost.BoredomMax,
		Tick:       c.Ghost.Tick,
	}
}

// Simulation builds the agent roster for a run.
func (c Config) Simulation() (sim.Config, error) {
	ghostType, err := c.GhostType()
	if err != nil {
		return sim.Config{}, err
	}
	return sim.Config{
		Hunters:   append([]sim.HunterSpec(nil), c.Hunters...),
		Hunter:    c.HunterSettings(),
		Ghost:     c.GhostSettings(),
		GhostType: ghostType,
	}, nil
}

// HouseLayout loads the configured layout, or the stock house.
func (c Config) HouseLayout() (house.Layout, error) {
	if c.Layout == "" {
		return house.DefaultLayout(), nil
	}
	return house.LoadLayout(c.Layout)
}

// ParseHunter parses a "name:id" pair.
func ParseHunter(raw string) (sim.HunterSpec, error) {
	name, idText, ok := strings.Cut(strings.TrimSpace(raw), ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return sim.HunterSpec{}, fmt.Errorf("hunter %q: want name:id", raw)
	}
	id, err := strconv.Atoi(strings.TrimSpace(idText))
	if err != nil {
		return sim.HunterSpec{}, fmt.Errorf("hunter %q: invalid id: %w", raw, err)
	}
	return sim.HunterSpec{Name: name, ID: id}, nil
}

// ParseHunters parses a list of "name:id" pairs, skipping blanks.
func ParseHunters(raw []string) ([]sim.HunterSpec, error) {
	specs := make([]sim.HunterSpec, 0, len(raw))
	for _, entry := range raw {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		spec, err := ParseHunter(entry)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
