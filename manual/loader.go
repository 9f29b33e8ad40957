// Package manual implements the annotation-file self-edit pass and loader
// described in spec.md §3 and §4.3: a human-maintained side-channel file
// that forces module boundaries, labels entries, and toggles heuristics
// the engine would otherwise apply blindly.
package manual

import (
	"fmt"
	"os"
	"strconv"

	"unlink/asmscan"
)

// ManualOutOfOrder is the fatal error raised when directive offsets are not
// monotonically non-decreasing across the entire annotation file.
type ManualOutOfOrder struct {
	Line       int
	Offset     int
	PrevOffset int
}

func (e *ManualOutOfOrder) Error() string {
	return fmt.Sprintf("manual: line %d: offset 0x%X is less than previous offset 0x%X", e.Line, e.Offset, e.PrevOffset)
}

// Load reads the annotation file at path, applies the self-edit pass
// (rewriting the file in place if it changes anything), parses the result
// via asmscan, and buckets directives into a Map.
//
// A missing annotation file is a fail-soft condition (spec.md §7.2): Load
// returns an empty Map and a nil error so the caller can proceed with
// fewer labels.
func Load(path string) (*Map, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewMap(), nil
	}
	if err != nil {
		return nil, err
	}

	text := string(raw)
	rewritten, changed, err := selfEdit(text)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := os.WriteFile(path, []byte(rewritten), 0644); err != nil {
			return nil, err
		}
	}

	return parse(rewritten)
}

// parse turns already self-edited annotation text into a Map, enforcing
// the monotonic-offset invariant across every record (with or without a
// directive) in raw file order.
func parse(text string) (*Map, error) {
	records := asmscan.Scan(text)
	m := NewMap()

	prevOffset := -1
	havePrev := false
	for _, rec := range records {
		if rec.Label == "" {
			continue
		}
		off, err := strconv.ParseInt(rec.Label, 16, 64)
		if err != nil {
			continue
		}

		if havePrev && int(off) < prevOffset {
			return nil, &ManualOutOfOrder{Line: rec.Line, Offset: int(off), PrevOffset: prevOffset}
		}
		prevOffset = int(off)
		havePrev = true

		if rec.Directive == "" {
			continue
		}
		m.Add(rec.Directive, Entry{Offset: int(off), Args: rec.Args, Line: rec.Line})
	}

	return m, nil
}
