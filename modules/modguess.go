package modules

import (
	"sort"

	"unlink/labels"
	"unlink/manual"
	"unlink/romimage"
	"unlink/vectors"
)

// forbidden is a half-open byte range that modguess may never propose a
// start inside (spec.md §4.7's "Forbidden ranges").
type forbidden struct {
	start, stop int
}

func (f forbidden) contains(off int) bool { return off >= f.start && off < f.stop }

// modguess implements spec.md §4.7's modguess sub-procedure: it walks the
// caller-enabled MODGUESS ranges at 16-byte stride and yields candidate
// module starts.
func modguess(rom *romimage.ROM, enabled []manual.ToggleRange, glue []vectors.Glue, vt *vectors.Table, base labels.L) []signalHit {
	if len(enabled) == 0 {
		return nil
	}

	forbiddenRanges := forbiddenRangesFromGlue(vt, glue)

	var out []signalHit
	trim := rom.Trim()
	for s := 0; s+cellSize <= trim; s += cellSize {
		if s < cellSize {
			continue
		}
		if !manual.AnyEnabled(enabled, s) {
			continue
		}

		prev, err := rom.Slice(s-cellSize, cellSize)
		if err != nil || allZero(prev) {
			continue
		}

		if inAnyForbidden(forbiddenRanges, s) {
			continue
		}

		_, hasLabel := base[s]
		returnThenPad := precededByReturnAndPadding(rom, s)
		if !hasLabel && !returnThenPad {
			continue
		}

		// Every candidate that survives the gate above is 16-aligned by
		// construction, so "align" always applies; "RTS then padding" is an
		// additional, independent reason when condition (b) also holds
		// (spec.md §4.7 Scenario E: a candidate can carry both at once).
		out = append(out, signalHit{offset: s, reason: "align"})
		if returnThenPad {
			out = append(out, signalHit{offset: s, reason: "RTS then padding"})
		}
	}
	return out
}

func inAnyForbidden(ranges []forbidden, off int) bool {
	for _, f := range ranges {
		if f.contains(off) {
			return true
		}
	}
	return false
}

// precededByReturnAndPadding checks whether s is immediately preceded by
// one of the four M68K return-instruction shapes followed by 2-14 zero
// bytes of even-length padding, per spec.md §4.7 condition (b).
func precededByReturnAndPadding(rom *romimage.ROM, s int) bool {
	for pad := 2; pad <= 14; pad += 2 {
		padStart := s - pad
		if padStart < 0 {
			break
		}
		padBytes, err := rom.Slice(padStart, pad)
		if err != nil || !allZero(padBytes) {
			continue
		}
		if isReturnEndingAt(rom, padStart) {
			return true
		}
	}
	return false
}

func isReturnEndingAt(rom *romimage.ROM, end int) bool {
	if end-2 >= 0 {
		if op, err := rom.U16BE(end - 2); err == nil {
			switch {
			case op == 0x4E75: // RTS
				return true
			case op >= 0x4ED0 && op <= 0x4ED7: // JMP (An)
				return true
			}
		}
	}
	if end-4 >= 0 {
		if op, err := rom.U16BE(end - 4); err == nil && op == 0x4E74 { // RTD
			return true
		}
	}
	if end-6 >= 0 {
		if op, err := rom.U16BE(end - 6); err == nil && op == 0x60FF { // BRA.L
			return true
		}
	}
	return false
}

// forbiddenRangesFromGlue implements spec.md §4.7's "Forbidden ranges"
// paragraph: for each maximal run of glues at strides of exactly 10 bytes,
// the run's own span plus its first member's implementation target (when
// that target precedes the run), or a 2-byte left shrink when the first
// member's target lies after some other member's earlier target (the
// "entry-point" pattern).
func forbiddenRangesFromGlue(vt *vectors.Table, glue []vectors.Glue) []forbidden {
	sorted := append([]vectors.Glue(nil), glue...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StubOffset < sorted[j].StubOffset })

	var out []forbidden
	i := 0
	for i < len(sorted) {
		j := i + 1
		for j < len(sorted) && sorted[j].StubOffset-sorted[j-1].StubOffset == 10 {
			j++
		}
		run := sorted[i:j]
		if len(run) >= 2 {
			out = append(out, forbiddenRangeFor(vt, run))
		}
		i = j
	}
	return out
}

func forbiddenRangeFor(vt *vectors.Table, run []vectors.Glue) forbidden {
	first := run[0]
	last := run[len(run)-1]
	start := first.StubOffset
	stop := last.StubOffset + 10

	target0, ok := vt.RoutineFor(first.TableID, first.VOffset)
	if !ok {
		return forbidden{start: start, stop: stop}
	}

	earliest := int(target0)
	for _, g := range run[1:] {
		if t, ok := vt.RoutineFor(g.TableID, g.VOffset); ok && int(t) < earliest {
			earliest = int(t)
		}
	}

	if int(target0) <= earliest {
		if int(target0) < start {
			start = int(target0)
		}
	} else {
		start -= 2
	}

	return forbidden{start: start, stop: stop}
}
