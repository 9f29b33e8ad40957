// Package modules implements the module-boundary engine (spec.md §4.7): it
// fuses glue, island, manual-directive and heuristic ("modguess") signals
// into a set of start offsets, pairs them with a set of stop offsets, and
// trims trailing zero padding from the resulting ranges. This is the
// architectural core of the engine.
package modules

import (
	"fmt"
	"sort"

	"unlink/islands"
	"unlink/labels"
	"unlink/manual"
	"unlink/romimage"
	"unlink/vectors"
)

// Range is one recovered module: a half-open byte range plus the
// human-readable reasons its start and stop were chosen, for diagnostic
// output only (spec.md §3).
type Range struct {
	Start, Stop  int
	StartReasons []string
	StopReasons  []string
}

const cellSize = 16

// Build runs the full module-boundary algorithm of spec.md §4.7 and
// returns ranges sorted by Start.
func Build(rom *romimage.ROM, vt *vectors.Table, glue []vectors.Glue, isl []islands.Island, m *manual.Map, base labels.L) ([]Range, error) {
	trim := rom.Trim()

	starts := newSignalSet()
	stops := newSignalSet()

	starts.add(0, "start of ROM")

	sortedGlue := append([]vectors.Glue(nil), glue...)
	sort.Slice(sortedGlue, func(i, j int) bool { return sortedGlue[i].StubOffset < sortedGlue[j].StubOffset })
	for i := 0; i+1 < len(sortedGlue); i++ {
		a, b := sortedGlue[i], sortedGlue[i+1]
		if b.StubOffset-a.StubOffset > 10 {
			cand := roundUp16(b.StubOffset + 10)
			starts.add(cand, "certain-module-boundary from glue")
		}
	}

	for _, e := range m.Entries("MOD") {
		starts.add(e.Offset, "MOD directive")
	}
	for _, e := range m.Entries("FILE") {
		starts.add(e.Offset, "FILE directive")
	}
	for _, e := range m.Entries("ENDF") {
		stops.add(e.Offset, "ENDF directive")
	}

	for _, g := range sortedGlue {
		stops.add(g.StubOffset, "glue offset")
	}
	for _, isle := range isl {
		starts.add(isle.ReferrerOffset+cellSize, "island+16")
		starts.add(isle.ReferrerOffset, "BRA.L island")
		stops.add(isle.ReferrerOffset, "island site")
		stops.add(isle.ReferrerOffset+cellSize, "island+16")
	}

	stops.add(trim, "end of ROM")

	modguessToggles := m.Toggles("MODGUESS")
	modguessRanges := manual.Ranges(modguessToggles)
	guessed := modguess(rom, modguessRanges, sortedGlue, vt, base)
	for _, s := range guessed {
		starts.add(s.offset, s.reason)
	}

	return construct(rom, starts, stops, sortedGlue)
}

type signalHit struct {
	offset int
	reason string
}

// signalSet accumulates offset->reasons, preserving the order reasons were
// added at a given offset, and the order offsets were first seen overall
// (spec.md §9's "insertion order must survive the sort").
type signalSet struct {
	reasons map[int][]string
	order   []int
	seen    map[int]bool
}

func newSignalSet() *signalSet {
	return &signalSet{reasons: make(map[int][]string), seen: make(map[int]bool)}
}

func (s *signalSet) add(offset int, reason string) {
	if !s.seen[offset] {
		s.seen[offset] = true
		s.order = append(s.order, offset)
	}
	for _, r := range s.reasons[offset] {
		if r == reason {
			return
		}
	}
	s.reasons[offset] = append(s.reasons[offset], reason)
}

func (s *signalSet) sorted() []int {
	out := append([]int(nil), s.order...)
	sort.Ints(out)
	return out
}

// construct implements the "range construction" step of spec.md §4.7:
// stable-sorted starts and stops, each range's stop the smaller of the next
// stop or the next start, followed by trailing-padding trimming.
func construct(rom *romimage.ROM, starts, stops *signalSet, glue []vectors.Glue) ([]Range, error) {
	sortedStarts := starts.sorted()
	sortedStops := stops.sorted()

	glueOffsets := make(map[int]bool, len(glue))
	for _, g := range glue {
		glueOffsets[g.StubOffset] = true
	}

	var out []Range
	for i, s := range sortedStarts {
		stopIdx := sort.SearchInts(sortedStops, s)
		hasStop := stopIdx < len(sortedStops)
		var stop int
		if hasStop {
			stop = sortedStops[stopIdx]
		}
		if i+1 < len(sortedStarts) {
			nextStart := sortedStarts[i+1]
			if !hasStop || nextStart < stop {
				stop = nextStart
				hasStop = true
			}
		}
		if !hasStop {
			continue
		}
		if stop <= s {
			continue
		}

		r := Range{
			Start:        s,
			Stop:         stop,
			StartReasons: append([]string(nil), starts.reasons[s]...),
			StopReasons:  append([]string(nil), stops.reasons[stop]...),
		}
		out = append(out, r)
	}

	for i := range out {
		out[i] = trimTrailing(rom, out[i], glueOffsets)
	}

	return out, nil
}

// trimTrailing implements spec.md §4.7's "Trimming" step: a range whose
// stop is not itself a glue offset, with at least 16 bytes, non-zero bytes
// in [b-16, b-2) and zero bytes in [b-2, b), has its stop walked leftward
// two bytes at a time while the preceding 2 bytes remain zero.
func trimTrailing(rom *romimage.ROM, r Range, glueOffsets map[int]bool) Range {
	if glueOffsets[r.Stop] {
		return r
	}
	a, b := r.Start, r.Stop
	if b-a < cellSize {
		return r
	}

	body, err := rom.Slice(b-cellSize, cellSize-2)
	if err != nil || allZero(body) {
		return r
	}
	tail, err := rom.Slice(b-2, 2)
	if err != nil || !allZero(tail) {
		return r
	}

	trimmed := false
	for b-2 >= a {
		two, err := rom.Slice(b-2, 2)
		if err != nil || !allZero(two) {
			break
		}
		b -= 2
		trimmed = true
	}
	if trimmed {
		r.Stop = b
		r.StopReasons = append(append([]string(nil), r.StopReasons...), "nulls trimmed")
	}
	return r
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func roundUp16(off int) int {
	return (off + cellSize - 1) &^ (cellSize - 1)
}

func (r Range) String() string {
	return fmt.Sprintf("[0x%X, 0x%X)", r.Start, r.Stop)
}
