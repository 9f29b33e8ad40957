// Package asmscan splits assembly-style source text (annotation files and
// the VectorTable.a / DispTable.a source files) into a flat sequence of
// records. It is a pure function over its input: same text in, same
// records out, no I/O of its own.
package asmscan

import "strings"

// Record is one parsed line: "[label[':']] [directive [arg(','arg)*]] [';' comment]".
// Blank fields are always the empty string/slice, never nil-vs-absent.
type Record struct {
	Label     string
	Directive string
	Args      []string
	Comment   string
	Line      int // 1-based source line number, for diagnostics
}

// Scan splits text into Records, one per matched line. Blank lines (empty,
// or only space/tab) are silently skipped, matching spec.md §4.2.
func Scan(text string) []Record {
	lines := splitLines(text)
	recs := make([]Record, 0, len(lines))
	for i, line := range lines {
		if rec, ok := scanLine(line); ok {
			rec.Line = i + 1
			recs = append(recs, rec)
		}
	}
	return recs
}

// splitLines splits on '\n', stripping a trailing '\r' from each line. It
// never returns a trailing empty line for text ending in a newline.
func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	if len(raw) > 0 && raw[len(raw)-1] == "" {
		raw = raw[:len(raw)-1]
	}
	for i, l := range raw {
		raw[i] = strings.TrimSuffix(l, "\r")
	}
	return raw
}

// scanLine matches a single line against the record grammar. Whitespace
// within a record is space or tab only; it never crosses the newline that
// scan already split on.
//
// A label is distinguished from a directive by position, the classic
// assembler convention this source format follows: a token starting in
// column 0 is the label (optionally ':'-suffixed); a line that instead
// starts with leading space/tab carries no label, only a directive.
func scanLine(line string) (Record, bool) {
	rest := line

	// Split off the comment, if any: everything from the first ';' onward.
	comment := ""
	if idx := strings.IndexByte(rest, ';'); idx >= 0 {
		comment = strings.TrimSpace(rest[idx+1:])
		rest = rest[:idx]
	}

	indented := len(rest) > 0 && (rest[0] == ' ' || rest[0] == '\t')
	fields := splitWS(rest)
	if len(fields) == 0 && comment == "" {
		return Record{}, false
	}
	if len(fields) == 0 {
		// Comment-only line: still a record, with empty label/directive.
		return Record{Comment: comment}, true
	}

	var rec Record
	rec.Comment = comment

	rest2 := fields
	if !indented {
		first := fields[0]
		rec.Label = strings.TrimSuffix(first, ":")
		rest2 = fields[1:]
	}

	if len(rest2) == 0 {
		return rec, true
	}

	rec.Directive = rest2[0]
	if len(rest2) > 1 {
		argStr := strings.Join(rest2[1:], " ")
		rec.Args = splitArgs(argStr)
	} else {
		rec.Args = nil
	}

	return rec, true
}

// splitWS splits on runs of space/tab, dropping empty fields.
func splitWS(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == '\t' })
}

// splitArgs splits a comma-delimited argument string, trimming each piece.
// A trailing empty argument from a dangling comma is dropped: "foo," yields
// [foo], not [foo ""].
func splitArgs(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		out = append(out, p)
	}
	if len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}
