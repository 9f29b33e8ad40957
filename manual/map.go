package manual

import "strings"

// Entry is one directive occurrence: its resolved offset and arguments.
type Entry struct {
	Offset int
	Args   []string
	Line   int
}

// Map buckets annotation-file directives by uppercased name, preserving
// insertion order within each name (spec.md §3).
type Map struct {
	byName map[string][]Entry
	order  []string
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{byName: make(map[string][]Entry)}
}

// Add appends an entry under directive (case-insensitive).
func (m *Map) Add(directive string, e Entry) {
	key := strings.ToUpper(directive)
	if _, ok := m.byName[key]; !ok {
		m.order = append(m.order, key)
	}
	m.byName[key] = append(m.byName[key], e)
}

// Entries returns the ordered entries for directive, or nil.
func (m *Map) Entries(directive string) []Entry {
	return m.byName[strings.ToUpper(directive)]
}

// Directives returns every directive name present, in first-seen order.
func (m *Map) Directives() []string {
	return append([]string(nil), m.order...)
}
