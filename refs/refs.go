// Package refs enumerates every M68K PC-relative referencing opcode in the
// ROM and resolves each to a target offset (spec.md §4.6).
package refs

import "unlink/romimage"

// Kind names the referencing instruction shape. Branch-kind mnemonics
// start with 'B' per spec.md §4.9 step 7, which the rewriter relies on to
// decide whether to reseat an operand.
type Kind string

const (
	KindBranch16 Kind = "BRA16" // BRA/BSR, 16-bit PC-relative
	KindBranch32 Kind = "BRA32" // BRA.L/BSR.L, 32-bit PC-relative
	KindJump     Kind = "JSR"   // JSR/JMP d(PC)
	KindPEA      Kind = "PEA"   // PEA d(PC)
	KindLEA      Kind = "LEA"   // LEA d(PC), An
)

// Site is one discovered reference: the instruction's offset, its decoded
// target, its Kind, and the width in bytes of its operand field.
type Site struct {
	SiteOffset   int
	TargetOffset int
	Kind         Kind
	Width        int
}

// Scan enumerates every recognised opcode at 2-byte stride across the
// trimmed ROM (spec.md §4.6's table). A hit is only yielded if its decoded
// target lies in [0, trim] and is even.
func Scan(rom *romimage.ROM) []Site {
	var out []Site
	trim := rom.Trim()

	for off := 0; off+1 < trim; off += 2 {
		op, err := rom.U16BE(off)
		if err != nil {
			continue
		}

		kind, width, ok := classify(op)
		if !ok {
			continue
		}

		var operand int64
		var err2 error
		if width == 2 {
			var v uint16
			v, err2 = rom.U16BE(off + 2)
			operand = signExtend16(v)
		} else {
			var v uint32
			v, err2 = rom.U32BE(off + 2)
			operand = int64(int32(v))
		}
		if err2 != nil {
			continue
		}

		target := off + 2 + int(operand)
		if target < 0 || target > trim || target%2 != 0 {
			continue
		}

		out = append(out, Site{SiteOffset: off, TargetOffset: target, Kind: kind, Width: width})
	}

	return out
}

func signExtend16(v uint16) int64 {
	return int64(int16(v))
}

// classify identifies the opcode shape per spec.md §4.6's table.
func classify(op uint16) (kind Kind, width int, ok bool) {
	switch op {
	case 0x6000, 0x6100: // BRA / BSR, 16-bit
		return KindBranch16, 2, true
	case 0x60FF, 0x61FF: // BRA.L / BSR.L, 32-bit
		return KindBranch32, 4, true
	case 0x4EBA, 0x4EFA: // JSR / JMP d(PC)
		return KindJump, 2, true
	case 0x487A: // PEA d(PC)
		return KindPEA, 2, true
	}

	// LEA d(PC), An: 41FA-4FFA, every odd high-nibble (4x FA where x is odd).
	if op&0xF1FF == 0x41FA {
		return KindLEA, 2, true
	}

	return "", 0, false
}
