// Package objemit drives the object sink per file-range (spec.md §4.10):
// module header, bytes, entries, relocations, trailing directives. The
// sink itself is an opaque interface (spec.md §6); this package ships one
// concrete implementation, a human-readable assembly-object renderer used
// by the dry-run path and by tests.
package objemit

// Flag bits for PutMod (spec.md §4.10).
const (
	FlagExternal = 1 << 3 // bit 3: externally accessible
	FlagForced   = 1 << 7 // bit 7: "forced" unless NOFORCE
)

// Sink is the opaque object-file writer spec.md §6 describes. Its
// low-level serialization format is explicitly out of scope (spec.md §1);
// only this interface is the engine's concern.
type Sink interface {
	PutFirst()
	PutLast()
	PutComment(text string)
	PutDict(names []string)
	PutMod(name string, flags int)
	PutSize(n int)
	PutContents(b []byte)
	PutEntry(offset int, label string)
	PutSimpleRef(label string, width, site int)
	PutWeirdRef(label string, width, site int)
}
