package manual

import (
	"fmt"
	"sort"
)

// FileRange is a contiguous group of modules destined for one output
// relocatable object, delimited by a paired FILE/ENDF directive.
type FileRange struct {
	Start, Stop int
	RelPath     string
	Flags       []string
}

// HasFlag reports whether name (case-sensitive, matching the directive
// argument spelling) was set on the FILE directive.
func (f FileRange) HasFlag(name string) bool {
	for _, fl := range f.Flags {
		if fl == name {
			return true
		}
	}
	return false
}

// FileRanges pairs FILE/ENDF directives into FileRange values, in file
// order. Ranges are returned sorted by Start and are expected to be
// disjoint (spec.md §3).
func (m *Map) FileRanges() ([]FileRange, error) {
	type tagged struct {
		kind  byte // 'F' or 'E'
		entry Entry
	}
	var all []tagged
	for _, e := range m.Entries("FILE") {
		all = append(all, tagged{'F', e})
	}
	for _, e := range m.Entries("ENDF") {
		all = append(all, tagged{'E', e})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].entry.Line < all[j].entry.Line })

	var out []FileRange
	var open *FileRange
	for _, t := range all {
		switch t.kind {
		case 'F':
			if open != nil {
				return nil, fmt.Errorf("manual: line %d: FILE directive without matching ENDF", t.entry.Line)
			}
			relpath := ""
			var flags []string
			if len(t.entry.Args) > 0 {
				relpath = t.entry.Args[0]
				flags = t.entry.Args[1:]
			}
			open = &FileRange{Start: t.entry.Offset, RelPath: relpath, Flags: flags}
		case 'E':
			if open == nil {
				return nil, fmt.Errorf("manual: line %d: ENDF directive without matching FILE", t.entry.Line)
			}
			open.Stop = t.entry.Offset
			out = append(out, *open)
			open = nil
		}
	}
	if open != nil {
		return nil, fmt.Errorf("manual: FILE directive %q at offset 0x%X never closed with ENDF", open.RelPath, open.Start)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}
