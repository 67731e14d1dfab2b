package evidence

import (
	"math/bits"
	"strings"

	"hauntsim/server/internal/random"
)

// Type is a single evidence flag.
type Type uint8

const (
	EMF          Type = 1 << 0
	Orbs         Type = 1 << 1
	Radio        Type = 1 << 2
	Temperature  Type = 1 << 3
	Fingerprints Type = 1 << 4
	Writing      Type = 1 << 5
	Infrared     Type = 1 << 6
)

// Set is a bitmask of zero or more evidence types.
type Set uint8

var allTypes = [...]Type{EMF, Orbs, Radio, Temperature, Fingerprints, Writing, Infrared}

// All returns the seven evidence types in flag order.
func All() []Type {
	out := make([]Type, len(allTypes))
	copy(out, allTypes[:])
	return out
}

// Valid reports whether t is exactly one known flag.
func (t Type) Valid() bool {
	return t != 0 && t&^Type(everything) == 0 && bits.OnesCount8(uint8(t)) == 1
}

func (t Type) String() string {
	switch t {
	case EMF:
		return "EMF"
	case Orbs:
		return "ORBS"
	case Radio:
		return "RADIO"
	case Temperature:
		return "TEMPERATURE"
	case Fingerprints:
		return "FINGERPRINTS"
	case Writing:
		return "WRITING"
	case Infrared:
		return "INFRARED"
	default:
		return "UNKNOWN"
	}
}

const everything = Set(EMF | Orbs | Radio | Temperature | Fingerprints | Writing | Infrared)

// Of builds a set from the given types.
func Of(types ...Type) Set {
	var s Set
	for _, t := range types {
		s = s.Add(t)
	}
	return s
}

// Add returns s with t set.
func (s Set) Add(t Type) Set {
	return s | Set(t)
}

// Remove returns s with t cleared.
func (s Set) Remove(t Type) Set {
	return s &^ Set(t)
}

// Contains reports whether any flag of t is present in s.
func (s Set) Contains(t Type) bool {
	return s&Set(t) != 0
}

// CountUnique counts the known evidence types present in s.
func (s Set) CountUnique() int {
	return bits.OnesCount8(uint8(s & everything))
}

// HasThreeUnique reports whether s holds at least three distinct types.
func (s Set) HasThreeUnique() bool {
	return s.CountUnique() >= 3
}

// Types lists the members of s in flag order.
func (s Set) Types() []Type {
	var out []Type
	for _, t := range allTypes {
		if s.Contains(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s Set) String() string {
	types := s.Types()
	if len(types) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, "|")
}

// RandomType draws one of the seven types uniformly.
func RandomType(src random.Source) Type {
	return allTypes[random.Or(src).Intn(len(allTypes))]
}

// RandomTypeExcept draws uniformly among the types other than current.
func RandomTypeExcept(src random.Source, current Type) Type {
	if !current.Valid() {
		return RandomType(src)
	}
	candidates := make([]Type, 0, len(allTypes)-1)
	for _, t := range allTypes {
		if t != current {
			candidates = append(candidates, t)
		}
	}
	return candidates[random.Or(src).Intn(len(candidates))]
}

// RandomFrom draws uniformly among the members of s. ok is false when s is empty.
func RandomFrom(src random.Source, s Set) (Type, bool) {
	types := s.Types()
	if len(types) == 0 {
		return 0, false
	}
	return types[random.Or(src).Intn(len(types))], true
}
