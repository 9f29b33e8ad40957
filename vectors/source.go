package vectors

import (
	"strconv"
	"strings"

	"unlink/asmscan"
)

// SourceLabel names one (table_id, voffset) entry, as declared by the
// source tree's VectorTable.a. A declaration line has the form:
//
//	RoutineName: VEC tableIDHex, voffsetHex, aregDecimal ; comment
//
// This module has no vector-source directive grammar of its own in
// spec.md (only the trap-table source grammar, §4.5, is given literally),
// so VEC is this project's own minimal convention: one source label per
// table entry, matching the shape of a Entry/Glue key.
type SourceLabel struct {
	Label   string
	TableID uint16
	VOffset uint16
	AReg    uint8
	Comment string
}

// ScanSource parses VectorTable.a-style source text for VEC declarations.
// Malformed or unrelated records are silently skipped: labelling the
// vector table from source is itself a fail-soft convenience (spec.md
// §7.2), not a requirement for correctness.
func ScanSource(text string) []SourceLabel {
	var out []SourceLabel
	for _, rec := range asmscan.Scan(text) {
		if !strings.EqualFold(rec.Directive, "VEC") || rec.Label == "" || len(rec.Args) < 2 {
			continue
		}
		tableID, err := strconv.ParseUint(strings.TrimPrefix(rec.Args[0], "$"), 16, 16)
		if err != nil {
			continue
		}
		voffset, err := strconv.ParseUint(strings.TrimPrefix(rec.Args[1], "$"), 16, 16)
		if err != nil {
			continue
		}
		var areg uint64
		if len(rec.Args) >= 3 {
			areg, _ = strconv.ParseUint(rec.Args[2], 10, 8)
		}
		out = append(out, SourceLabel{
			Label:   rec.Label,
			TableID: uint16(tableID),
			VOffset: uint16(voffset),
			AReg:    uint8(areg),
			Comment: rec.Comment,
		})
	}
	return out
}

// GlueImplMap maps a glue stub's offset to the implementation routine it
// ultimately calls through, one level of vector-table dereference.
type GlueImplMap map[int]uint32

// BuildGlueImplMap dereferences every glue stub through t.
func BuildGlueImplMap(t *Table, glue []Glue) GlueImplMap {
	m := make(GlueImplMap, len(glue))
	for _, g := range glue {
		if impl, ok := t.RoutineFor(g.TableID, g.VOffset); ok {
			m[g.StubOffset] = impl
		}
	}
	return m
}
