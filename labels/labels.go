// Package labels maintains the offset→label multi-map L (spec.md §4.8):
// built from vector/trap records and manual MOD/ENTRY directives, then
// overridden by island labelling, and finally consulted to pick module
// names and ordered entry lists.
package labels

import (
	"fmt"
	"sort"

	"unlink/islands"
	"unlink/manual"
	"unlink/traps"
	"unlink/vectors"
)

// L is the offset→label multi-map. Sets are represented as insertion-ordered
// slices: small (typically ≤3 entries), and order matters so synthetic
// names never mask source names (spec.md §9).
type L map[int][]string

// Add appends label to L[offset], skipping exact duplicates already present.
func (l L) Add(offset int, label string) {
	for _, existing := range l[offset] {
		if existing == label {
			return
		}
	}
	l[offset] = append(l[offset], label)
}

// Replace overwrites L[offset] with a single label, discarding whatever was
// there before. Used exclusively by island labelling, which must take
// precedence over every other source (spec.md §4.8).
func (l L) Replace(offset int, label string) {
	l[offset] = []string{label}
}

// Best returns the shortest-then-lex-smallest label at offset, and whether
// any label exists there at all (spec.md §8 property 4).
func (l L) Best(offset int) (string, bool) {
	labs := l[offset]
	if len(labs) == 0 {
		return "", false
	}
	return PickBest(labs), true
}

// PickBest implements the project-wide "shortest, then lexicographically
// smallest" tie-break used for module names, entry names, island names and
// reference-target names alike (spec.md §4.8, §4.9, §8 property 4).
func PickBest(labs []string) string {
	best := labs[0]
	for _, l := range labs[1:] {
		if len(l) < len(best) || (len(l) == len(best) && l < best) {
			best = l
		}
	}
	return best
}

// BuildBase populates L from vector-table records (preferring a source
// label, falling back to a synthesised "MGR{table:04X}_VEC{voff:04X}"),
// trap records (preferring a source label, falling back to
// traps.PlaceholderName), and manual MOD/ENTRY directives (spec.md §4.8).
func BuildBase(vt *vectors.Table, srcVec []vectors.SourceLabel, tt *traps.Table, srcTrap traps.SourceLabels, m *manual.Map) L {
	l := make(L)

	vecNames := make(map[vecKey]string, len(srcVec))
	for _, sl := range srcVec {
		vecNames[vecKey{sl.TableID, sl.VOffset}] = sl.Label
	}
	for _, e := range vt.Entries {
		name, ok := vecNames[vecKey{e.TableID, e.VOffset}]
		if !ok {
			name = fmt.Sprintf("MGR%04X_VEC%04X", e.TableID, e.VOffset)
		}
		l.Add(int(e.RoutineOffset), name)
	}

	for _, e := range tt.Entries {
		name, ok := srcTrap[e.TrapNumber]
		if !ok {
			name = traps.PlaceholderName(e.TrapNumber)
		}
		l.Add(int(e.RoutineOffset), name)
	}

	for _, directive := range []string{"MOD", "ENTRY"} {
		for _, e := range m.Entries(directive) {
			if len(e.Args) == 0 {
				continue
			}
			l.Add(e.Offset, e.Args[0])
		}
	}

	return l
}

type vecKey struct {
	table   uint16
	voffset uint16
}

// ApplyIslands overrides L at every island's referrer offset with a single
// synthesised label naming the island's target, dereferenced one level
// through glue (spec.md §4.8).
func ApplyIslands(l L, isl []islands.Island, impl vectors.GlueImplMap) {
	for _, isle := range isl {
		tgt := isle.TargetOffset
		if r, ok := impl[tgt]; ok {
			tgt = int(r)
		}
		name, ok := l.Best(tgt)
		if !ok {
			name = fmt.Sprintf("UNRESOLVED_%X", tgt)
		}
		l.Replace(isle.ReferrerOffset, fmt.Sprintf("ISLAND_%X_%s", isle.ReferrerOffset, name))
	}
}

// Entry is one module entry candidate: an offset within the module paired
// with one of its labels.
type Entry struct {
	Offset   int
	Label    string
	GlueAddr int // -1 unless the label is vector-bound
}

// SelectModuleEntries partitions every labelled offset in [start, stop)
// into vector-bound and other entries (spec.md §4.8), sorts each group,
// picks the module name (vector-bound preferred, spec.md §4.8), and
// returns the entry lists in chunk order (vector-bound by glue address,
// then others by offset — spec.md §5) and in offset order (spec.md §5,
// §GLOSSARY "chunk order vs offset order").
func SelectModuleEntries(start, stop int, l L, bound vectors.BoundIndex) (name string, chunkOrder, offsetOrder []Entry, nameVectorBound bool) {
	var vb, other []Entry
	for off := start; off < stop; off++ {
		labs := l[off]
		if len(labs) == 0 {
			continue
		}
		if ga, ok := bound[off]; ok {
			for _, lab := range labs {
				vb = append(vb, Entry{Offset: off, Label: lab, GlueAddr: ga})
			}
		} else {
			for _, lab := range labs {
				other = append(other, Entry{Offset: off, Label: lab, GlueAddr: -1})
			}
		}
	}

	sort.SliceStable(vb, func(i, j int) bool {
		if vb[i].GlueAddr != vb[j].GlueAddr {
			return vb[i].GlueAddr < vb[j].GlueAddr
		}
		if vb[i].Offset != vb[j].Offset {
			return vb[i].Offset < vb[j].Offset
		}
		return vb[i].Label < vb[j].Label
	})
	sort.SliceStable(other, func(i, j int) bool {
		if other[i].Offset != other[j].Offset {
			return other[i].Offset < other[j].Offset
		}
		return other[i].Label < other[j].Label
	})

	consumed := -1
	fromVB := false
	for i, e := range vb {
		if e.Offset == start {
			name, consumed, fromVB = e.Label, i, true
			break
		}
	}
	if consumed < 0 {
		for i, e := range other {
			if e.Offset == start {
				name, consumed = e.Label, i
				break
			}
		}
	}
	if consumed < 0 {
		name = fmt.Sprintf("AUTOMOD_%X", start)
	} else if fromVB {
		vb = append(vb[:consumed], vb[consumed+1:]...)
	} else {
		other = append(other[:consumed], other[consumed+1:]...)
	}

	chunkOrder = append(append([]Entry{}, vb...), other...)

	offsetOrder = append([]Entry{}, chunkOrder...)
	sort.SliceStable(offsetOrder, func(i, j int) bool {
		if offsetOrder[i].Offset != offsetOrder[j].Offset {
			return offsetOrder[i].Offset < offsetOrder[j].Offset
		}
		return offsetOrder[i].Label < offsetOrder[j].Label
	})

	return name, chunkOrder, offsetOrder, fromVB
}
