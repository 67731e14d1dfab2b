package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"hauntsim/server/internal/evidence"
	"hauntsim/server/internal/house"
	"hauntsim/server/logging"
	"hauntsim/server/logging/lifecycle"
)

// MetricActiveAgents tracks how many agent loops are running.
const MetricActiveAgents = "active_agents"

// ErrNoHunters reports a run with nobody to investigate.
var ErrNoHunters = errors.New("no hunters registered")

// HunterSpec names one hunter to register.
type HunterSpec struct {
	Name string `yaml:"name" json:"name"`
	ID   int    `yaml:"id" json:"id"`
}

// Config describes the agents of one run.
type Config struct {
	Hunters   []HunterSpec
	Hunter    house.HunterConfig
	Ghost     house.GhostConfig
	GhostType evidence.GhostType
}

type agent interface {
	Run()
	Stop()
}

// Simulation drives one ghost and its hunters through a populated house.
type Simulation struct {
	house   *house.House
	cfg     Config
	deps    house.Deps
	spawner Spawner
	runID   string
	now     func() time.Time

	mu       sync.Mutex
	started  []agent
	stopping bool
	ghost    *house.Ghost
	hunters  []*house.Hunter
	active   atomic.Int64
}

// Option customizes a Simulation.
type Option func(*Simulation)

// WithSpawner replaces the default errgroup spawner.
func WithSpawner(spawner Spawner) Option {
	return func(s *Simulation) {
		if spawner != nil {
			s.spawner = spawner
		}
	}
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(s *Simulation) {
		if id != "" {
			s.runID = id
		}
	}
}

// WithClock overrides the wall clock used for the run duration.
func WithClock(now func() time.Time) Option {
	return func(s *Simulation) {
		if now != nil {
			s.now = now
		}
	}
}

// New prepares a simulation over a populated house.
func New(h *house.House, cfg Config, opts ...Option) (*Simulation, error) {
	if h == nil {
		return nil, house.ErrNilHouse
	}
	s := &Simulation{
		house:   h,
		cfg:     cfg,
		deps:    h.Deps(),
		spawner: NewGroupSpawner(0),
		runID:   uuid.NewString(),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// RunID identifies this run in events and reports.
func (s *Simulation) RunID() string {
	return s.runID
}

// Run places the agents, starts one loop per agent and blocks until every
// loop has returned. Cancelling ctx asks every agent to stop after its
// current tick. When an agent cannot be started every running agent is
// stopped and joined, and the partial report is returned with the error.
func (s *Simulation) Run(ctx context.Context) (Report, error) {
	if err := s.house.Validate(); err != nil {
		return Report{}, fmt.Errorf("validate house: %w", err)
	}
	if len(s.cfg.Hunters) == 0 {
		return Report{}, ErrNoHunters
	}
	pub := s.deps.Publisher
	start := s.now()

	var ghostOpts []house.GhostOption
	if s.cfg.GhostType.Valid() {
		ghostOpts = append(ghostOpts, house.WithGhostType(s.cfg.GhostType))
	}
	ghost, err := house.NewGhost(s.house, s.cfg.Ghost, ghostOpts...)
	if err != nil {
		lifecycle.SpawnFailed(ctx, pub, logging.GhostRef(s.cfg.Ghost.ID), lifecycle.SpawnFailedPayload{Error: err.Error()}, nil)
		return Report{}, fmt.Errorf("%w: ghost: %w", ErrSpawn, err)
	}
	s.ghost = ghost

	for _, spec := range s.cfg.Hunters {
		hunter, err := house.NewHunter(spec.Name, spec.ID, s.house, s.cfg.Hunter)
		if err != nil {
			s.deps.Logger.Printf("failed to create hunter %s: %v", spec.Name, err)
			lifecycle.SpawnFailed(ctx, pub, logging.HunterRef(spec.ID), lifecycle.SpawnFailedPayload{Error: err.Error()}, nil)
			continue
		}
		s.hunters = append(s.hunters, hunter)
	}
	if len(s.hunters) == 0 {
		retire(ghost)
		return s.report(start), ErrNoHunters
	}

	lifecycle.SimulationStarted(ctx, pub, lifecycle.SimulationStartedPayload{
		Rooms:   len(s.house.Rooms()),
		Hunters: len(s.hunters),
		Start:   s.house.StartingRoom().Name(),
	}, nil)

	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.deps.Logger.Printf("simulation %s cancelled: %v", s.runID, ctx.Err())
			s.StopAll()
		case <-watchDone:
		}
	}()

	type pendingAgent struct {
		name  string
		actor logging.EntityRef
		agent agent
	}
	pending := make([]pendingAgent, 0, len(s.hunters)+1)
	pending = append(pending, pendingAgent{name: "ghost", actor: logging.GhostRef(ghost.ID()), agent: ghost})
	for _, hunter := range s.hunters {
		pending = append(pending, pendingAgent{name: hunter.Name(), actor: logging.HunterRef(hunter.ID()), agent: hunter})
	}

	var spawnErr error
	for i, p := range pending {
		if err := s.spawn(p.name, p.agent); err != nil {
			spawnErr = err
			s.deps.Logger.Printf("failed to start %s: %v", p.name, err)
			lifecycle.SpawnFailed(ctx, pub, p.actor, lifecycle.SpawnFailedPayload{Error: err.Error()}, nil)
			s.StopAll()
			for _, rest := range pending[i:] {
				retire(rest.agent)
			}
			break
		}
	}

	waitErr := s.spawner.Wait()
	close(watchDone)

	report := s.report(start)
	lifecycle.SimulationFinished(ctx, pub, lifecycle.SimulationFinishedPayload{
		Evidence:       report.Evidence.String(),
		Solved:         report.Solved,
		Identified:     report.Identified,
		Correct:        report.Correct,
		DurationMillis: report.Duration.Milliseconds(),
	}, nil)
	return report, errors.Join(spawnErr, waitErr)
}

// StopAll asks every started agent to stop after its current tick. Agents
// started afterwards stop before their first tick.
func (s *Simulation) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopping = true
	for _, a := range s.started {
		a.Stop()
	}
}

// Active returns the number of agent loops currently running.
func (s *Simulation) Active() int {
	return int(s.active.Load())
}

func (s *Simulation) spawn(name string, a agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		a.Stop()
	}
	s.active.Add(1)
	err := s.spawner.Spawn(name, func() {
		defer func() {
			s.deps.Metrics.Store(MetricActiveAgents, uint64(s.active.Add(-1)))
		}()
		a.Run()
	})
	if err != nil {
		s.active.Add(-1)
		return err
	}
	s.deps.Metrics.Store(MetricActiveAgents, uint64(s.active.Load()))
	s.started = append(s.started, a)
	return nil
}

// retire runs a never-started agent's loop inline after stopping it, which
// only takes it out of its room.
func retire(a agent) {
	a.Stop()
	a.Run()
}
