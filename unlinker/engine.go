// Package unlinker wires the whole pipeline together (spec.md §2): ROM
// load, source index / manual map, vector & trap recovery, island
// detection, reference scanning, module-range computation, label
// resolution, and object emission. It is the package an external caller
// (or cmd/unlink) drives.
package unlinker

import (
	"fmt"
	"os"
	"path/filepath"

	"unlink/islands"
	"unlink/labels"
	"unlink/manual"
	"unlink/modules"
	"unlink/objemit"
	"unlink/refs"
	"unlink/rewrite"
	"unlink/romimage"
	"unlink/traps"
	"unlink/vectors"
)

// Options configures a run (spec.md §6 CLI surface).
type Options struct {
	ROMPath    string // path to the ROM binary
	SrcDir     string // optional source tree; "" if this run is ROM-only
	OutDir     string // directory WRITEOUT objects are written relative to
	IslandMode string // "", "ON", "HIDE", "OFF" — overridden by an ISLANDGUESS directive at offset 0
}

// Result is what a run produces: the recovered data plus whatever the
// Sink was driven to emit.
type Result struct {
	ROM          *romimage.ROM
	VectorTable  *vectors.Table
	TrapTable    *traps.Table
	Glue         []vectors.Glue
	Islands      []islands.Island
	ModuleRanges []modules.Range
	Labels       labels.L
}

// Run executes the full pipeline against opts, driving sink with the
// result. sink is typically an objemit.TextSink, but any objemit.Sink
// implementation works.
func Run(opts Options, sink objemit.Sink) (*Result, error) {
	raw, err := os.ReadFile(opts.ROMPath)
	if err != nil {
		return nil, fmt.Errorf("unlinker: reading ROM: %w", err)
	}
	rom, err := romimage.Load(raw)
	if err != nil {
		return nil, fmt.Errorf("unlinker: loading ROM: %w", err)
	}

	annotationPath := opts.ROMPath + "-info.txt"
	m, err := manual.Load(annotationPath)
	if err != nil {
		return nil, fmt.Errorf("unlinker: loading annotation file: %w", err)
	}

	var srcVec []vectors.SourceLabel
	var srcTrap traps.SourceLabels = make(traps.SourceLabels)
	if opts.SrcDir != "" {
		if text, ok := readFirstExisting(opts.SrcDir, "Make/VectorTable.a", "VectorTable.a"); ok {
			srcVec = vectors.ScanSource(text)
		}
		if text, ok := readFirstExisting(opts.SrcDir, "OS/DispTable.a", "DispTable.a"); ok {
			srcTrap = traps.ScanSource(text)
		}
	}

	vt, err := vectors.Extract(rom)
	if err != nil {
		return nil, err
	}
	tt, err := traps.Extract(rom)
	if err != nil {
		return nil, err
	}

	glue := vectors.ExtractGlue(rom)
	glueImpl := vectors.BuildGlueImplMap(vt, glue)
	bound := vectors.BuildBoundIndex(glueImpl)

	islandMode, err := resolveIslandMode(m, opts.IslandMode)
	if err != nil {
		return nil, err
	}

	forbidden := nonIslandOffsets(m)
	var isl []islands.Island
	if islandMode != "OFF" {
		isl = islands.Detect(rom, forbidden)
	}

	base := labels.BuildBase(vt, srcVec, tt, srcTrap, m)
	labels.ApplyIslands(base, isl, glueImpl)

	moduleRanges, err := modules.Build(rom, vt, glue, isl, m, base)
	if err != nil {
		return nil, err
	}

	fileRanges, err := m.FileRanges()
	if err != nil {
		return nil, err
	}

	allSites := refs.Scan(rom)
	refEnabled := manual.Ranges(m.Toggles("REFGUESS"))

	islandsByOffset := islands.ByOffset(isl)
	driver := objemit.Driver{
		Sink:  sink,
		ROM:   rom,
		L:     base,
		Bound: bound,
		RewriteCtx: rewrite.Context{
			L:               base,
			IslandsByOffset: islandsByOffset,
			GlueImpl:        glueImpl,
			VectorImpl:      rewrite.NewVectorImplSet(vt),
			IslandHide:      islandMode == "HIDE",
		},
		OutDir: outDir(opts),
	}

	if err := driver.Emit(fileRanges, moduleRanges, refEnabled, allSites); err != nil {
		return nil, err
	}

	return &Result{
		ROM: rom, VectorTable: vt, TrapTable: tt, Glue: glue,
		Islands: isl, ModuleRanges: moduleRanges, Labels: base,
	}, nil
}

func outDir(opts Options) string {
	if opts.OutDir != "" {
		return opts.OutDir
	}
	return filepath.Dir(opts.ROMPath)
}

func readFirstExisting(srcDir string, relpaths ...string) (string, bool) {
	for _, rel := range relpaths {
		b, err := os.ReadFile(filepath.Join(srcDir, rel))
		if err == nil {
			return string(b), true
		}
	}
	return "", false
}

// IslandGuessAtZero is the fatal error raised when an ISLANDGUESS
// directive appears at a non-zero offset (spec.md §6, §7.1).
type IslandGuessAtZero struct {
	Offset int
}

func (e *IslandGuessAtZero) Error() string {
	return fmt.Sprintf("unlinker: ISLANDGUESS directive at offset 0x%X, must appear only at offset 0", e.Offset)
}

// resolveIslandMode reads the (global, offset-0-only) ISLANDGUESS
// directive, falling back to override. A HIDE after an ON at offset 0 is
// "last write wins" (spec.md §9) since manual.Map preserves file order.
func resolveIslandMode(m *manual.Map, override string) (string, error) {
	mode := override
	if mode == "" {
		mode = "ON"
	}
	for _, e := range m.Entries("ISLANDGUESS") {
		if e.Offset != 0 {
			return "", &IslandGuessAtZero{Offset: e.Offset}
		}
		if len(e.Args) > 0 {
			mode = e.Args[0]
		} else {
			mode = "ON"
		}
	}
	return mode, nil
}

func nonIslandOffsets(m *manual.Map) map[int]bool {
	out := make(map[int]bool)
	for _, e := range m.Entries("NONISLAND") {
		out[e.Offset] = true
	}
	return out
}
