package unlinker

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"unlink/objemit"
	"unlink/romimage"
)

func putU16(buf []byte, off int, v uint16) {
	buf[off] = byte(v >> 8)
	buf[off+1] = byte(v)
}

func putU32(buf []byte, off int, v uint32) {
	buf[off] = byte(v >> 24)
	buf[off+1] = byte(v >> 16)
	buf[off+2] = byte(v >> 8)
	buf[off+3] = byte(v)
}

// buildROM constructs a minimal but well-formed ROM image: a two-entry
// InitRomVectors chain (table 0x2010, routines at 0x20 and 0x30) and a
// trap table pointed at an untouched, all-zero region so no spurious trap
// entries are recovered.
func buildROM(t *testing.T) []byte {
	t.Helper()
	buf := make([]byte, 0x200)

	const initOff = 0x100
	const sub = 0x110
	const rec = 0x150

	putU32(buf, romimage.OffsetVectorInit, initOff)
	putU16(buf, initOff, 0x61FF)   // BSR.L InitDescriptors, not walked
	putU16(buf, initOff+6, 0x61FF) // BSR.L sub
	disp := int32(sub - (initOff + 8))
	putU32(buf, initOff+8, uint32(disp))
	putU16(buf, initOff+12, 0x4E75) // RTS

	putU32(buf, sub, 0x41FA000E)
	putU16(buf, sub+6, 0x2010) // table ID
	putU32(buf, sub+16, uint32(rec))
	putU32(buf, rec+8, 2) // entry count
	putU32(buf, sub+20, 0x20)
	putU32(buf, sub+24, 0x30)

	putU32(buf, romimage.OffsetTrapTable, 0x180)
	putU32(buf, romimage.OffsetBadTrap, 0xFFFFFFFF)

	putU32(buf, romimage.OffsetTrimLength, uint32(len(buf)))
	return buf
}

func writeROM(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "rom.bin")
	if err := os.WriteFile(path, buildROM(t), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestRunProducesModuleAndLabels(t *testing.T) {
	dir := t.TempDir()
	romPath := writeROM(t, dir)

	annotation := "0 FILE Whole.obj, WRITEOUT\n200 ENDF\n"
	if err := os.WriteFile(romPath+"-info.txt", []byte(annotation), 0644); err != nil {
		t.Fatalf("WriteFile annotation: %v", err)
	}

	var out bytes.Buffer
	outDir := t.TempDir()
	res, err := Run(Options{ROMPath: romPath, OutDir: outDir}, objemit.NewTextSink(&out))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.VectorTable.Entries) != 2 {
		t.Fatalf("got %d vector entries, want 2: %+v", len(res.VectorTable.Entries), res.VectorTable.Entries)
	}
	if len(res.TrapTable.Entries) != 0 {
		t.Fatalf("got %d trap entries, want 0: %+v", len(res.TrapTable.Entries), res.TrapTable.Entries)
	}
	if len(res.Glue) != 0 {
		t.Fatalf("got %d glue entries, want 0: %+v", len(res.Glue), res.Glue)
	}
	if len(res.ModuleRanges) != 1 || res.ModuleRanges[0].Start != 0 || res.ModuleRanges[0].Stop != 0x200 {
		t.Fatalf("got %+v, want a single [0,0x200) range", res.ModuleRanges)
	}

	if got, _ := res.Labels.Best(0x20); got != "MGR2010_VEC0000" {
		t.Errorf("label at 0x20 = %q, want MGR2010_VEC0000", got)
	}
	if got, _ := res.Labels.Best(0x30); got != "MGR2010_VEC0004" {
		t.Errorf("label at 0x30 = %q, want MGR2010_VEC0004", got)
	}

	rendered := out.String()
	for _, want := range []string{
		"FIRST",
		"MOD AUTOMOD_0",
		"ENTRY 0x20 MGR2010_VEC0000",
		"ENTRY 0x30 MGR2010_VEC0004",
		"LAST",
	} {
		if !strings.Contains(rendered, want) {
			t.Errorf("rendered output missing %q\nfull output:\n%s", want, rendered)
		}
	}

	written, err := os.ReadFile(filepath.Join(outDir, "Whole.obj"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(written) != 0x200 {
		t.Fatalf("wrote %d bytes, want 0x200", len(written))
	}
	if _, err := os.ReadFile(filepath.Join(outDir, "Whole.obj.desc")); err != nil {
		t.Fatalf("ReadFile desc: %v", err)
	}
}

func TestRunMissingAnnotationFileIsFailSoft(t *testing.T) {
	dir := t.TempDir()
	romPath := writeROM(t, dir)
	// Deliberately no "-info.txt" file written alongside the ROM.

	res, err := Run(Options{ROMPath: romPath, OutDir: t.TempDir()}, objemit.NewTextSink(&bytes.Buffer{}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// With no FILE/ENDF directives the whole ROM is still a single range
	// (start-of-ROM, end-of-ROM signals), just with no output file written.
	if len(res.ModuleRanges) != 1 || res.ModuleRanges[0].Start != 0 {
		t.Fatalf("got %+v", res.ModuleRanges)
	}
}

func TestRunIslandGuessAtNonZeroOffsetIsFatal(t *testing.T) {
	dir := t.TempDir()
	romPath := writeROM(t, dir)

	annotation := "0 FILE Whole.obj, WRITEOUT\n10 ISLANDGUESS HIDE\n200 ENDF\n"
	if err := os.WriteFile(romPath+"-info.txt", []byte(annotation), 0644); err != nil {
		t.Fatalf("WriteFile annotation: %v", err)
	}

	_, err := Run(Options{ROMPath: romPath, OutDir: t.TempDir()}, objemit.NewTextSink(&bytes.Buffer{}))
	if err == nil {
		t.Fatal("expected an error for ISLANDGUESS at a non-zero offset")
	}
	if _, ok := err.(*IslandGuessAtZero); !ok {
		t.Fatalf("got error %T (%v), want *IslandGuessAtZero", err, err)
	}
}

func TestRunIslandGuessHideAtZeroIsAccepted(t *testing.T) {
	dir := t.TempDir()
	romPath := writeROM(t, dir)

	annotation := "0 ISLANDGUESS HIDE\n0 FILE Whole.obj, WRITEOUT\n200 ENDF\n"
	if err := os.WriteFile(romPath+"-info.txt", []byte(annotation), 0644); err != nil {
		t.Fatalf("WriteFile annotation: %v", err)
	}

	res, err := Run(Options{ROMPath: romPath, OutDir: t.TempDir()}, objemit.NewTextSink(&bytes.Buffer{}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Islands) != 0 {
		t.Fatalf("this synthetic ROM has no BRA.L trampolines, got %+v", res.Islands)
	}
}

func TestRunMissingROMFileIsAnError(t *testing.T) {
	dir := t.TempDir()
	_, err := Run(Options{ROMPath: filepath.Join(dir, "nonexistent.bin"), OutDir: dir}, objemit.NewTextSink(&bytes.Buffer{}))
	if err == nil {
		t.Fatal("expected an error for a missing ROM file")
	}
}
