package evidence

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"hauntsim/server/internal/random"
)

// GhostType identifies one of the 24 known ghosts.
type GhostType uint8

const (
	Poltergeist GhostType = iota + 1
	TheMimic
	Hantu
	Jinn
	Phantom
	Banshee
	Goryo
	Bullies
	Myling
	Obake
	Yurei
	Oni
	Moroi
	Revenant
	Shade
	Onryo
	TheTwins
	Deogen
	Thaye
	Yokai
	Wraith
	Raiju
	Mare
	Spirit
)

type ghostEntry struct {
	name     string
	evidence Set
}

var ghostTable = [...]ghostEntry{
	Poltergeist: {"Poltergeist", Of(Fingerprints, Temperature, Writing)},
	TheMimic:    {"The Mimic", Of(Fingerprints, Temperature, Radio)},
	Hantu:       {"Hantu", Of(Fingerprints, Temperature, Orbs)},
	Jinn:        {"Jinn", Of(Fingerprints, Temperature, EMF)},
	Phantom:     {"Phantom", Of(Fingerprints, Infrared, Radio)},
	Banshee:     {"Banshee", Of(Fingerprints, Infrared, Orbs)},
	Goryo:       {"Goryo", Of(Fingerprints, Infrared, EMF)},
	Bullies:     {"Bullies", Of(Fingerprints, Writing, Radio)},
	Myling:      {"Myling", Of(Fingerprints, Writing, EMF)},
	Obake:       {"Obake", Of(Fingerprints, Orbs, EMF)},
	Yurei:       {"Yurei", Of(Temperature, Infrared, Orbs)},
	Oni:         {"Oni", Of(Temperature, Infrared, EMF)},
	Moroi:       {"Moroi", Of(Temperature, Writing, Radio)},
	Revenant:    {"Revenant", Of(Temperature, Writing, Orbs)},
	Shade:       {"Shade", Of(Temperature, Writing, EMF)},
	Onryo:       {"Onryo", Of(Temperature, Radio, Orbs)},
	TheTwins:    {"The Twins", Of(Temperature, Radio, EMF)},
	Deogen:      {"Deogen", Of(Infrared, Writing, Radio)},
	Thaye:       {"Thaye", Of(Infrared, Writing, Orbs)},
	Yokai:       {"Yokai", Of(Infrared, Radio, Orbs)},
	Wraith:      {"Wraith", Of(Infrared, Radio, EMF)},
	Raiju:       {"Raiju", Of(Infrared, Orbs, EMF)},
	Mare:        {"Mare", Of(Writing, Radio, Orbs)},
	Spirit:      {"Spirit", Of(Writing, Radio, EMF)},
}

// GhostTypeCount is the number of known ghost types.
const GhostTypeCount = int(Spirit)

// AllGhostTypes returns every ghost type in declaration order.
func AllGhostTypes() []GhostType {
	out := make([]GhostType, 0, GhostTypeCount)
	for g := Poltergeist; g <= Spirit; g++ {
		out = append(out, g)
	}
	return out
}

// Valid reports whether g is one of the known ghost types.
func (g GhostType) Valid() bool {
	return g >= Poltergeist && g <= Spirit
}

// Evidence returns the three evidence types the ghost can leave behind.
func (g GhostType) Evidence() Set {
	if !g.Valid() {
		return 0
	}
	return ghostTable[g].evidence
}

func (g GhostType) String() string {
	if !g.Valid() {
		return "Unknown"
	}
	return ghostTable[g].name
}

// RandomGhostType draws one of the 24 ghost types uniformly.
func RandomGhostType(src random.Source) GhostType {
	return GhostType(random.Or(src).Intn(GhostTypeCount)) + Poltergeist
}

// MatchGhost returns the ghost whose evidence equals s exactly.
func MatchGhost(s Set) (GhostType, bool) {
	for g := Poltergeist; g <= Spirit; g++ {
		if ghostTable[g].evidence == s {
			return g, true
		}
	}
	return 0, false
}

// IsValidGhost reports whether s is exactly the evidence of a known ghost.
func (s Set) IsValidGhost() bool {
	_, ok := MatchGhost(s)
	return ok
}

// ParseGhostType resolves a ghost by name, ignoring case, spaces and
// underscores. On a miss the error names the closest known ghost.
func ParseGhostType(name string) (GhostType, error) {
	key := normalizeGhostName(name)
	if key == "" {
		return 0, fmt.Errorf("empty ghost name")
	}
	best, bestDistance := GhostType(0), -1
	for g := Poltergeist; g <= Spirit; g++ {
		candidate := normalizeGhostName(ghostTable[g].name)
		if candidate == key {
			return g, nil
		}
		distance := levenshtein.ComputeDistance(key, candidate)
		if bestDistance < 0 || distance < bestDistance {
			best, bestDistance = g, distance
		}
	}
	return 0, fmt.Errorf("unknown ghost %q (did you mean %q?)", name, best.String())
}

func normalizeGhostName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(name)
}
