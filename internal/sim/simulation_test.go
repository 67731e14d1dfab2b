package sim

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"hauntsim/server/internal/house"
	"hauntsim/server/internal/random"
	"hauntsim/server/logging"
	"hauntsim/server/logging/lifecycle"
	"hauntsim/server/logging/sinks"
)

func newTestHouse(t *testing.T, seed int64, pub logging.Publisher) *house.House {
	t.Helper()
	h := house.New(house.DefaultLimits(), house.Deps{
		Publisher: pub,
		Random:    random.NewLocked(seed),
		Sleep:     func(time.Duration) { runtime.Gosched() },
	})
	if err := house.DefaultLayout().Populate(h); err != nil {
		t.Fatalf("populate: %v", err)
	}
	return h
}

func threeHunters() []HunterSpec {
	return []HunterSpec{{Name: "Alice", ID: 1}, {Name: "Bob", ID: 2}, {Name: "Carol", ID: 3}}
}

// endlessConfig keeps agents running until something stops them.
func endlessConfig() Config {
	hunterCfg := house.DefaultHunterConfig()
	hunterCfg.BoredomMax = 1 << 30
	hunterCfg.FearMax = 1 << 30
	hunterCfg.Tick = 0
	ghostCfg := house.DefaultGhostConfig()
	ghostCfg.BoredomMax = 1 << 30
	ghostCfg.Tick = 0
	return Config{Hunters: threeHunters(), Hunter: hunterCfg, Ghost: ghostCfg}
}

func assertHouseEmpty(t *testing.T, h *house.House) {
	t.Helper()
	for _, room := range h.Rooms() {
		if room.HunterCount() != 0 || room.HasGhost() {
			t.Fatalf("expected %s to be empty after the run", room)
		}
	}
}

type memoryPublisher struct {
	sink *sinks.MemorySink
}

func (p memoryPublisher) Publish(_ context.Context, event logging.Event) {
	p.sink.Write(event)
}

func TestRunCompletes(t *testing.T) {
	memory := sinks.NewMemorySink()
	h := newTestHouse(t, 7, memoryPublisher{sink: memory})
	hunterCfg := house.DefaultHunterConfig()
	hunterCfg.Tick = 0
	ghostCfg := house.DefaultGhostConfig()
	ghostCfg.Tick = 0

	s, err := New(h, Config{Hunters: threeHunters(), Hunter: hunterCfg, Ghost: ghostCfg}, WithRunID("run-1"))
	if err != nil {
		t.Fatalf("new simulation: %v", err)
	}
	report, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if report.RunID != "run-1" {
		t.Fatalf("expected run id to carry through, got %q", report.RunID)
	}
	if len(report.Hunters) != 3 {
		t.Fatalf("expected 3 hunter results, got %d", len(report.Hunters))
	}
	for _, hr := range report.Hunters {
		switch hr.ExitReason {
		case "bored", "afraid", "evidence":
		default:
			t.Fatalf("hunter %s ended with unexpected reason %q", hr.Name, hr.ExitReason)
		}
		if hr.ExitReason == "evidence" && !report.Solved {
			t.Fatalf("hunter %s left on evidence without a solved case", hr.Name)
		}
	}
	if report.Ghost.ExitCause != "bored" || report.Ghost.ID != house.DefaultGhostID {
		t.Fatalf("expected the ghost to leave bored, got %+v", report.Ghost)
	}
	if report.Solved != (report.Evidence.CountUnique() >= 3) {
		t.Fatalf("solved flag disagrees with evidence %s", report.Evidence)
	}
	assertHouseEmpty(t, h)
	if s.Active() != 0 {
		t.Fatalf("expected no active agents, got %d", s.Active())
	}
	if len(memory.EventsOfType(lifecycle.EventSimulationStarted)) != 1 || len(memory.EventsOfType(lifecycle.EventSimulationFinished)) != 1 {
		t.Fatalf("expected start and finish lifecycle events")
	}
}

// failingSpawner refuses the spawn at index failAt and delegates the rest.
type failingSpawner struct {
	inner  *GroupSpawner
	mu     sync.Mutex
	calls  int
	failAt int
}

func (f *failingSpawner) Spawn(name string, run func()) error {
	f.mu.Lock()
	call := f.calls
	f.calls++
	f.mu.Unlock()
	if call == f.failAt {
		return errors.New("thread table full")
	}
	return f.inner.Spawn(name, run)
}

func (f *failingSpawner) Wait() error {
	return f.inner.Wait()
}

func TestRunSpawnFailureStopsStartedAgents(t *testing.T) {
	h := newTestHouse(t, 11, nil)
	spawner := &failingSpawner{inner: NewGroupSpawner(0), failAt: 2}
	s, err := New(h, endlessConfig(), WithSpawner(spawner))
	if err != nil {
		t.Fatalf("new simulation: %v", err)
	}

	done := make(chan struct{})
	var report Report
	go func() {
		defer close(done)
		report, err = s.Run(context.Background())
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("run did not return after a spawn failure")
	}

	if err == nil {
		t.Fatalf("expected spawn failure to surface")
	}
	if report.Ghost.ExitCause != "stopped" {
		t.Fatalf("expected the started ghost to be stopped, got %q", report.Ghost.ExitCause)
	}
	for _, hr := range report.Hunters {
		if hr.ExitReason != "stopped" && hr.ExitReason != "evidence" {
			t.Fatalf("hunter %s ended with %q", hr.Name, hr.ExitReason)
		}
	}
	if report.Hunters[1].ExitReason != "stopped" || report.Hunters[1].Ticks != 0 {
		t.Fatalf("expected the unspawned hunter to be retired without ticking")
	}
	assertHouseEmpty(t, h)
}

func TestRunCancellationStopsAgents(t *testing.T) {
	h := newTestHouse(t, 13, nil)
	s, err := New(h, endlessConfig())
	if err != nil {
		t.Fatalf("new simulation: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(20*time.Millisecond, cancel)
	defer timer.Stop()

	done := make(chan struct{})
	var report Report
	go func() {
		defer close(done)
		report, err = s.Run(ctx)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("run did not return after cancellation")
	}

	if err != nil {
		t.Fatalf("cancellation is not an error: %v", err)
	}
	if report.Ghost.ExitCause != "stopped" {
		t.Fatalf("expected ghost to be stopped, got %q", report.Ghost.ExitCause)
	}
	for _, hr := range report.Hunters {
		if hr.ExitReason != "stopped" && hr.ExitReason != "evidence" {
			t.Fatalf("hunter %s ended with %q", hr.Name, hr.ExitReason)
		}
	}
	assertHouseEmpty(t, h)
}

func TestRunWithoutHunters(t *testing.T) {
	h := newTestHouse(t, 1, nil)
	s, err := New(h, Config{})
	if err != nil {
		t.Fatalf("new simulation: %v", err)
	}
	if _, err := s.Run(context.Background()); !errors.Is(err, ErrNoHunters) {
		t.Fatalf("expected ErrNoHunters, got %v", err)
	}
	assertHouseEmpty(t, h)
}

func TestRunSkipsHuntersThatDoNotFit(t *testing.T) {
	h := house.New(house.Limits{RoomCapacity: 1}, house.Deps{Random: random.NewLocked(3), Sleep: func(time.Duration) {}})
	if err := house.DefaultLayout().Populate(h); err != nil {
		t.Fatalf("populate: %v", err)
	}
	cfg := Config{Hunters: threeHunters(), Hunter: house.HunterConfig{Tick: 0}, Ghost: house.GhostConfig{Tick: 0}}
	s, err := New(h, cfg)
	if err != nil {
		t.Fatalf("new simulation: %v", err)
	}
	report, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Hunters) != 1 || report.Hunters[0].Name != "Alice" {
		t.Fatalf("expected only the first hunter to fit the van, got %+v", report.Hunters)
	}
}

func TestRunRejectsInvalidHouse(t *testing.T) {
	s, err := New(house.New(house.DefaultLimits(), house.Deps{}), Config{Hunters: threeHunters()})
	if err != nil {
		t.Fatalf("new simulation: %v", err)
	}
	if _, err := s.Run(context.Background()); !errors.Is(err, house.ErrNoRooms) {
		t.Fatalf("expected ErrNoRooms, got %v", err)
	}
	if _, err := New(nil, Config{}); !errors.Is(err, house.ErrNilHouse) {
		t.Fatalf("expected ErrNilHouse, got %v", err)
	}
}

func TestGroupSpawnerLimit(t *testing.T) {
	spawner := NewGroupSpawner(1)
	release := make(chan struct{})
	if err := spawner.Spawn("first", func() { <-release }); err != nil {
		t.Fatalf("first spawn: %v", err)
	}
	if err := spawner.Spawn("second", func() {}); !errors.Is(err, ErrSpawn) {
		t.Fatalf("expected ErrSpawn beyond the limit, got %v", err)
	}
	if err := spawner.Spawn("nil", nil); !errors.Is(err, ErrSpawn) {
		t.Fatalf("expected ErrSpawn for a nil loop, got %v", err)
	}
	close(release)
	if err := spawner.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
}
