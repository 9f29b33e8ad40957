package islands

import (
	"testing"

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

func writeIslandCell(buf []byte, off int, target int) {
	putU16(buf, off, opBRAL)
	disp := int32(target - (off + 2))
	putU32(buf, off+2, uint32(disp))
	// bytes off+6..off+15 left zero
}

func TestDetectSingleIsland(t *testing.T) {
	buf := make([]byte, 0x500)
	putU32(buf, romimage.OffsetTrimLength, uint32(len(buf)))
	writeIslandCell(buf, 0x20, 0x400)

	rom, err := romimage.Load(buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := Detect(rom, nil)
	if len(got) != 1 {
		t.Fatalf("got %d islands, want 1: %+v", len(got), got)
	}
	if got[0].ReferrerOffset != 0x20 || got[0].TargetOffset != 0x400 || got[0].Index != 0 {
		t.Fatalf("got %+v", got[0])
	}
}

func TestDetectGroupIndicesIncrementOverConsecutiveCells(t *testing.T) {
	buf := make([]byte, 0x500)
	putU32(buf, romimage.OffsetTrimLength, uint32(len(buf)))
	writeIslandCell(buf, 0x20, 0x400)
	writeIslandCell(buf, 0x30, 0x410)
	writeIslandCell(buf, 0x40, 0x420)

	rom, err := romimage.Load(buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := Detect(rom, nil)
	if len(got) != 3 {
		t.Fatalf("got %d islands, want 3: %+v", len(got), got)
	}
	for i, isl := range got {
		if isl.Index != i {
			t.Errorf("island %d has Index %d, want %d", i, isl.Index, i)
		}
	}
}

func TestDetectNonConsecutiveCellsResetGroupIndex(t *testing.T) {
	buf := make([]byte, 0x500)
	putU32(buf, romimage.OffsetTrimLength, uint32(len(buf)))
	writeIslandCell(buf, 0x20, 0x400)
	// gap at 0x30 (no island cell there)
	writeIslandCell(buf, 0x40, 0x420)

	rom, err := romimage.Load(buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := Detect(rom, nil)
	if len(got) != 2 {
		t.Fatalf("got %d islands, want 2: %+v", len(got), got)
	}
	if got[0].Index != 0 || got[1].Index != 0 {
		t.Fatalf("expected both islands to start a fresh group (Index 0), got %+v", got)
	}
}

func TestDetectSkipsForbiddenOffsets(t *testing.T) {
	buf := make([]byte, 0x500)
	putU32(buf, romimage.OffsetTrimLength, uint32(len(buf)))
	writeIslandCell(buf, 0x20, 0x400)

	rom, err := romimage.Load(buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := Detect(rom, map[int]bool{0x20: true})
	if len(got) != 0 {
		t.Fatalf("expected forbidden offset to be excluded, got %+v", got)
	}
}

func TestDetectRejectsNonZeroTail(t *testing.T) {
	buf := make([]byte, 0x500)
	putU32(buf, romimage.OffsetTrimLength, uint32(len(buf)))
	writeIslandCell(buf, 0x20, 0x400)
	buf[0x20+6] = 0x01 // pollute the tail padding

	rom, err := romimage.Load(buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := Detect(rom, nil); len(got) != 0 {
		t.Fatalf("expected no island with a non-zero tail, got %+v", got)
	}
}

func TestByOffset(t *testing.T) {
	in := []Island{
		{ReferrerOffset: 0x10, TargetOffset: 0x100, Index: 0},
		{ReferrerOffset: 0x20, TargetOffset: 0x200, Index: 1},
	}
	m := ByOffset(in)
	if len(m) != 2 || m[0x10].TargetOffset != 0x100 || m[0x20].Index != 1 {
		t.Fatalf("got %+v", m)
	}
}
