// Package rewrite implements the reference resolver & rewriter (spec.md
// §4.9): for each intra-module reference site, it resolves the target to a
// symbolic label (dereferencing islands and glue stubs as needed), mutates
// the module's local byte buffer to zero or reseat the referenced operand,
// and stages the relocation record the object emitter will write out.
package rewrite

import (
	"sort"
	"strconv"
	"strings"

	"unlink/islands"
	"unlink/labels"
	"unlink/refs"
	"unlink/vectors"
)

// ResolvedRef is a reference whose target was given a symbolic label.
type ResolvedRef struct {
	SiteOffset  int // absolute ROM offset of the site (the opcode)
	RelOffset   int // operand field's offset relative to the owning module's start (SiteOffset+2-moduleStart)
	Label       string
	Width       int
	Kind        refs.Kind
	IsBranch    bool // kind begins with 'B' (spec.md §4.9 step 7)
	IslandIndex int  // island index of orig_targ, or -1
}

// UnresolvedRef is a reference with no label at its (dereferenced) target.
// It is left byte-intact and recorded as a comment only (spec.md §7.3).
type UnresolvedRef struct {
	SiteOffset   int
	TargetOffset int
	Kind         refs.Kind
}

// Context bundles the lookup tables the rewriter needs, built once per run.
type Context struct {
	L               labels.L
	IslandsByOffset map[int]islands.Island
	GlueImpl        vectors.GlueImplMap
	VectorImpl      map[int]bool // offsets that are a vector table's implementation target
	IslandHide      bool
}

// NewVectorImplSet builds the "targ is one of the implementations pointed
// at by a vector table" membership set from spec.md §4.9 step 3.
func NewVectorImplSet(vt *vectors.Table) map[int]bool {
	out := make(map[int]bool, len(vt.Entries))
	for _, e := range vt.Entries {
		out[int(e.RoutineOffset)] = true
	}
	return out
}

// Apply resolves and rewrites every site in sites that falls within
// [moduleStart, moduleStop), mutating buf (which must represent exactly
// R[moduleStart:moduleStop]) in place. Resolved references are returned
// sorted by the island index of their original (pre-dereference) target,
// reversed (spec.md §4.9, §5).
func Apply(buf []byte, moduleStart, moduleStop int, sites []refs.Site, ctx Context) (resolved []ResolvedRef, unresolved []UnresolvedRef) {
	for _, site := range sites {
		if site.SiteOffset < moduleStart || site.SiteOffset >= moduleStop {
			continue
		}

		origTarg := site.TargetOffset
		targ := origTarg

		if ctx.IslandHide {
			if isl, ok := ctx.IslandsByOffset[targ]; ok {
				targ = isl.TargetOffset
			}
		}

		var label string
		var haveLabel bool

		if ctx.VectorImpl[targ] {
			if l, ok := ctx.L.Best(targ); ok {
				label = "__v__" + l
				haveLabel = true
			}
		} else {
			if impl, ok := ctx.GlueImpl[targ]; ok {
				targ = int(impl)
			}
			if l, ok := ctx.L.Best(targ); ok {
				label = l
				haveLabel = true
			}
		}

		if !haveLabel {
			unresolved = append(unresolved, UnresolvedRef{
				SiteOffset:   site.SiteOffset,
				TargetOffset: origTarg,
				Kind:         site.Kind,
			})
			continue
		}

		if targ >= moduleStart && targ < moduleStop {
			// Self-reference: not emitted (spec.md §4.9 step 6).
			continue
		}

		rel := site.SiteOffset - moduleStart
		isBranch := len(site.Kind) > 0 && site.Kind[0] == 'B'

		zeroOperand(buf, rel, site.Width)
		if isBranch {
			reseatOperand(buf, rel, site.Width)
		}

		resolved = append(resolved, ResolvedRef{
			SiteOffset:  site.SiteOffset,
			RelOffset:   rel + 2, // the operand/patch field, not the opcode itself
			Label:       label,
			Width:       site.Width,
			Kind:        site.Kind,
			IsBranch:    isBranch,
			IslandIndex: islandIndexOf(ctx.IslandsByOffset, origTarg),
		})
	}

	sort.SliceStable(resolved, func(i, j int) bool { return resolved[i].IslandIndex < resolved[j].IslandIndex })
	for i, j := 0, len(resolved)-1; i < j; i, j = i+1, j-1 {
		resolved[i], resolved[j] = resolved[j], resolved[i]
	}

	return resolved, unresolved
}

func islandIndexOf(byOffset map[int]islands.Island, origTarg int) int {
	if isl, ok := byOffset[origTarg]; ok {
		return isl.Index
	}
	return -1
}

// zeroOperand writes width zero bytes starting 2 bytes after the opcode at
// rel (every recognised opcode in refs.Scan is 2 bytes wide).
func zeroOperand(buf []byte, rel, width int) {
	start := rel + 2
	if start < 0 || start+width > len(buf) {
		return
	}
	for i := 0; i < width; i++ {
		buf[start+i] = 0
	}
}

// reseatOperand writes the big-endian two's-complement encoding of
// -(rel+2) mod 2^(8*width) into the operand field, so that the branch
// decodes as pointing exactly at the module's own start when the object is
// loaded at address 0 (spec.md §4.9 step 7, §8 property 3).
func reseatOperand(buf []byte, rel, width int) {
	start := rel + 2
	if start < 0 || start+width > len(buf) {
		return
	}
	mod := int64(1) << uint(8*width)
	v := (int64(-(rel + 2))%mod + mod) % mod
	for i := width - 1; i >= 0; i-- {
		buf[start+i] = byte(v & 0xFF)
		v >>= 8
	}
}

// HexOperand renders target as a "$"-prefixed uppercase hex string,
// zero-padded to width*2 digits.
func HexOperand(target int, width int) string {
	s := strings.ToUpper(strconv.FormatInt(int64(target), 16))
	for len(s) < width*2 {
		s = "0" + s
	}
	return "$" + s
}
