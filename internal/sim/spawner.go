package sim

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ErrSpawn reports that an agent could not be started.
var ErrSpawn = errors.New("agent spawn failed")

// Spawner starts agent loops and waits for all of them to return.
type Spawner interface {
	Spawn(name string, run func()) error
	Wait() error
}

// GroupSpawner runs each agent on its own goroutine under an errgroup. A
// positive limit caps the number of concurrently running agents; a spawn
// beyond it fails instead of queueing.
type GroupSpawner struct {
	group errgroup.Group
}

// NewGroupSpawner returns a spawner. limit <= 0 means unbounded.
func NewGroupSpawner(limit int) *GroupSpawner {
	s := &GroupSpawner{}
	if limit > 0 {
		s.group.SetLimit(limit)
	}
	return s
}

// Spawn starts run on a new goroutine.
func (s *GroupSpawner) Spawn(name string, run func()) error {
	if run == nil {
		return fmt.Errorf("%w: %s has no loop", ErrSpawn, name)
	}
	if !s.group.TryGo(func() error {
		run()
		return nil
	}) {
		return fmt.Errorf("%w: %s: agent limit reached", ErrSpawn, name)
	}
	return nil
}

// Wait blocks until every spawned loop has returned.
func (s *GroupSpawner) Wait() error {
	return s.group.Wait()
}
