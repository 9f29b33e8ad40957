package manual

import "strings"

// Toggle is one on/off transition for a MODGUESS/REFGUESS/ISLANDGUESS-style
// directive at a given offset.
type Toggle struct {
	Offset  int
	Enabled bool
}

// ToggleRange is a half-open [Start, Stop) interval where a toggle is
// enabled. Stop is -1 to mean "to the end of the file".
type ToggleRange struct {
	Start, Stop int
}

// Contains reports whether off falls in [Start, Stop) (or [Start, inf) when
// Stop < 0).
func (r ToggleRange) Contains(off int) bool {
	if off < r.Start {
		return false
	}
	return r.Stop < 0 || off < r.Stop
}

// Toggles reads every directive entry for name and turns it into a Toggle
// sequence: presence of the directive with no args (or an arg other than
// "OFF") enables scanning from that offset; an "OFF" argument disables it.
// Toggles default to disabled before the first occurrence, matching the
// operator-opt-in nature of MODGUESS/REFGUESS (spec.md GLOSSARY).
func (m *Map) Toggles(name string) []Toggle {
	var out []Toggle
	for _, e := range m.Entries(name) {
		enabled := true
		if len(e.Args) > 0 && strings.EqualFold(strings.TrimSpace(e.Args[0]), "OFF") {
			enabled = false
		}
		out = append(out, Toggle{Offset: e.Offset, Enabled: enabled})
	}
	return out
}

// Ranges converts a Toggle sequence into the enabled intervals it implies.
func Ranges(toggles []Toggle) []ToggleRange {
	var out []ToggleRange
	var openAt = -1
	for _, t := range toggles {
		if t.Enabled {
			if openAt < 0 {
				openAt = t.Offset
			}
			continue
		}
		if openAt >= 0 {
			out = append(out, ToggleRange{Start: openAt, Stop: t.Offset})
			openAt = -1
		}
	}
	if openAt >= 0 {
		out = append(out, ToggleRange{Start: openAt, Stop: -1})
	}
	return out
}

// AnyEnabled reports whether off lies within any of ranges.
func AnyEnabled(ranges []ToggleRange, off int) bool {
	for _, r := range ranges {
		if r.Contains(off) {
			return true
		}
	}
	return false
}
