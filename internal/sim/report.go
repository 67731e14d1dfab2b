package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"hauntsim/server/internal/evidence"
)

// HunterResult is a hunter's final state.
type HunterResult struct {
	Name       string `json:"name"`
	ID         int    `json:"id"`
	ExitReason string `json:"exitReason"`
	Device     string `json:"device"`
	Boredom    int    `json:"boredom"`
	Fear       int    `json:"fear"`
	Ticks      uint64 `json:"ticks"`
}

// GhostResult is the ghost's final state.
type GhostResult struct {
	ID        int    `json:"id"`
	Type      string `json:"type"`
	ExitCause string `json:"exitCause"`
	Boredom   int    `json:"boredom"`
	Ticks     uint64 `json:"ticks"`
}

// Report summarizes a finished run and the post-hoc analysis of the case
// file. Solved only means three distinct types were collected; whether they
// name the right ghost is reported separately.
type Report struct {
	RunID          string         `json:"runId"`
	Ghost          GhostResult    `json:"ghost"`
	Hunters        []HunterResult `json:"hunters"`
	Evidence       evidence.Set   `json:"-"`
	EvidenceTypes  []string       `json:"evidence"`
	EvidenceBits   uint8          `json:"evidenceBits"`
	Solved         bool           `json:"solved"`
	MatchesGhost   bool           `json:"matchesKnownGhost"`
	Identified     string         `json:"identified,omitempty"`
	Correct        bool           `json:"correct"`
	Candidates     []string       `json:"candidates"`
	Duration       time.Duration  `json:"-"`
	DurationMillis int64          `json:"durationMillis"`
}

func (s *Simulation) report(start time.Time) Report {
	collected, solved := s.house.CaseFile().Snapshot()
	r := Report{
		RunID:    s.runID,
		Evidence: collected,
		Solved:   solved,
		Duration: s.now().Sub(start),
	}
	if s.ghost != nil {
		r.Ghost = GhostResult{
			ID:        s.ghost.ID(),
			Type:      s.ghost.Type().String(),
			ExitCause: s.ghost.ExitCause().String(),
			Boredom:   s.ghost.Boredom(),
			Ticks:     s.ghost.Ticks(),
		}
	}
	for _, h := range s.hunters {
		r.Hunters = append(r.Hunters, HunterResult{
			Name:       h.Name(),
			ID:         h.ID(),
			ExitReason: h.ExitReason().String(),
			Device:     h.Device().String(),
			Boredom:    h.Boredom(),
			Fear:       h.Fear(),
			Ticks:      h.Ticks(),
		})
	}
	r.analyze()
	return r
}

func (r *Report) analyze() {
	r.EvidenceBits = uint8(r.Evidence)
	r.EvidenceTypes = make([]string, 0, r.Evidence.CountUnique())
	for _, t := range r.Evidence.Types() {
		r.EvidenceTypes = append(r.EvidenceTypes, t.String())
	}
	r.Candidates = make([]string, 0, evidence.GhostTypeCount)
	for _, g := range evidence.AllGhostTypes() {
		if g.Evidence()&r.Evidence == r.Evidence {
			r.Candidates = append(r.Candidates, g.String())
		}
	}
	r.DurationMillis = r.Duration.Milliseconds()
	matched, ok := evidence.MatchGhost(r.Evidence)
	r.MatchesGhost = ok
	if ok {
		r.Identified = matched.String()
		r.Correct = matched.String() == r.Ghost.Type
	}
}

// WriteText renders the console summary.
func (r Report) WriteText(w io.Writer) error {
	var b strings.Builder
	b.WriteString("=== FINAL RESULTS ===\n")
	if r.RunID != "" {
		fmt.Fprintf(&b, "Run: %s\n", r.RunID)
	}
	fmt.Fprintf(&b, "Ghost Type: %s\n", r.Ghost.Type)
	fmt.Fprintf(&b, "Ghost ID: %d\n", r.Ghost.ID)
	fmt.Fprintf(&b, "Ghost exited due to: %s\n", r.Ghost.ExitCause)

	b.WriteString("\n--- Hunter Results ---\n")
	for _, h := range r.Hunters {
		fmt.Fprintf(&b, "Hunter %d (%s):\n", h.ID, h.Name)
		fmt.Fprintf(&b, "  Exit reason: %s\n", h.ExitReason)
		fmt.Fprintf(&b, "  Final device: %s\n", h.Device)
		fmt.Fprintf(&b, "  Final stats: boredom=%d, fear=%d\n", h.Boredom, h.Fear)
	}

	b.WriteString("\n--- Evidence Analysis ---\n")
	fmt.Fprintf(&b, "Collected evidence: %s (0x%02X)\n", r.Evidence, r.EvidenceBits)
	fmt.Fprintf(&b, "Case solved: %s\n", yesNo(r.Solved))
	fmt.Fprintf(&b, "Evidence matches known ghost: %s\n", yesNo(r.MatchesGhost))
	if r.Identified != "" {
		fmt.Fprintf(&b, "Evidence identifies ghost as: %s\n", r.Identified)
		fmt.Fprintf(&b, "Correct identification: %s\n", yesNo(r.Correct))
	} else {
		b.WriteString("Evidence is insufficient or inconsistent to identify a specific ghost.\n")
		if len(r.Candidates) > 0 && len(r.Candidates) < evidence.GhostTypeCount {
			fmt.Fprintf(&b, "Remaining candidates: %s\n", strings.Join(r.Candidates, ", "))
		}
	}
	fmt.Fprintf(&b, "Duration: %s\n", r.Duration.Round(time.Millisecond))
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJSON encodes the report as indented JSON.
func (r Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func yesNo(v bool) string {
	if v {
		return "YES"
	}
	return "NO"
}
