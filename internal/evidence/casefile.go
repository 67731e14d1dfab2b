package evidence

import "sync"

// CaseFile is the evidence shared by every hunter in a run. Collected
// evidence only grows, and solved flips to true once and stays there.
type CaseFile struct {
	mu        sync.Mutex
	collected Set
	solved    bool
}

// NewCaseFile returns an empty case file.
func NewCaseFile() *CaseFile {
	return &CaseFile{}
}

// Add records t and recomputes the solved flag under the same lock, so a
// reader that observes solved also observes the evidence that caused it.
// It reports whether t was new to the case file.
func (c *CaseFile) Add(t Type) bool {
	if c == nil || !t.Valid() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fresh := !c.collected.Contains(t)
	c.collected = c.collected.Add(t)
	if c.collected.HasThreeUnique() {
		c.solved = true
	}
	return fresh
}

// Solved reports whether three distinct evidence types have been collected.
func (c *CaseFile) Solved() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.solved
}

// Evidence returns a snapshot of the collected evidence.
func (c *CaseFile) Evidence() Set {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collected
}

// Snapshot returns the collected evidence and solved flag read together.
func (c *CaseFile) Snapshot() (Set, bool) {
	if c == nil {
		return 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collected, c.solved
}
