package objemit

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// TextSink is a Sink that renders a human-readable pseudo-assembly
// rendition of the object stream to an io.Writer. It exists for the
// dry-run path and for tests; it is not a real linker's object format
// (spec.md §1 treats that as an opaque, out-of-scope serializer).
type TextSink struct {
	w io.Writer
}

// NewTextSink wraps w.
func NewTextSink(w io.Writer) *TextSink { return &TextSink{w: w} }

func (s *TextSink) PutFirst() { fmt.Fprintln(s.w, "FIRST") }
func (s *TextSink) PutLast()  { fmt.Fprintln(s.w, "LAST") }

func (s *TextSink) PutComment(text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintf(s.w, "; %s\n", line)
	}
}

func (s *TextSink) PutDict(names []string) {
	fmt.Fprintf(s.w, "DICT %s\n", strings.Join(names, ","))
}

func (s *TextSink) PutMod(name string, flags int) {
	fmt.Fprintf(s.w, "MOD %s FLAGS=0x%02X\n", name, flags)
}

func (s *TextSink) PutSize(n int) { fmt.Fprintf(s.w, "SIZE %d\n", n) }

func (s *TextSink) PutContents(b []byte) {
	fmt.Fprintf(s.w, "CONTENTS %s\n", hex.EncodeToString(b))
}

func (s *TextSink) PutEntry(offset int, label string) {
	fmt.Fprintf(s.w, "ENTRY 0x%X %s\n", offset, label)
}

func (s *TextSink) PutSimpleRef(label string, width, site int) {
	fmt.Fprintf(s.w, "SIMPLEREF %s %d 0x%X\n", label, width, site)
}

func (s *TextSink) PutWeirdRef(label string, width, site int) {
	fmt.Fprintf(s.w, "WEIRDREF %s %d 0x%X\n", label, width, site)
}
