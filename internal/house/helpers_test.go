package house

import (
	"context"
	"sync"
	"testing"
	"time"

	"hauntsim/server/internal/random"
	"hauntsim/server/logging"
)

// zeroSource always draws the first option.
var zeroSource = random.SourceFunc(func(int) int { return 0 })

type eventLog struct {
	mu     sync.Mutex
	events []logging.Event
}

func (l *eventLog) Publish(_ context.Context, event logging.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) count(eventType logging.EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, event := range l.events {
		if event.Type == eventType {
			n++
		}
	}
	return n
}

func testDeps(src random.Source, pub logging.Publisher) Deps {
	return Deps{
		Publisher: pub,
		Random:    src,
		Sleep:     func(time.Duration) {},
	}
}

// buildHouse adds rooms in order, the first one being the exit, and then
// connects each pair in edges.
func buildHouse(t *testing.T, deps Deps, names []string, edges [][2]string) *House {
	t.Helper()
	layout := Layout{Exit: names[0], Rooms: names, Edges: edges}
	h := New(DefaultLimits(), deps)
	if err := layout.Populate(h); err != nil {
		t.Fatalf("populate: %v", err)
	}
	return h
}

func quietHunterConfig() HunterConfig {
	cfg := DefaultHunterConfig()
	cfg.ReturnChance = 0
	cfg.Tick = 0
	return cfg
}
