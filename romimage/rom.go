package romimage

// Header field offsets consulted by the unlinker engine (spec.md §6).
const (
	OffsetTrimLength = 0x1A // big-endian u32: length of the ROM after trailing padding
	OffsetTrapTable  = 0x22 // big-endian u32: base of the 1280-slot trap table
	OffsetBadTrap    = 0x56 // big-endian u32: routine offset used for unpopulated trap slots
	OffsetVectorInit = 0x66 // big-endian u32: InitRomVectors routine offset
)

// ROM is an immutable ROM image together with its trimmed length.
type ROM struct {
	*ByteReader
	trim int
}

// Load wraps raw ROM bytes, computing the trimmed length from the header.
// All subsequent reads through Trimmed bytes should stay inside [0, Trim()).
func Load(raw []byte) (*ROM, error) {
	r := NewByteReader(raw)
	trim, err := r.U32BE(OffsetTrimLength)
	if err != nil {
		return nil, err
	}
	t := int(trim)
	if t < 0 || t > r.Len() {
		t = r.Len()
	}
	return &ROM{ByteReader: r, trim: t}, nil
}

// Trim returns the trimmed length: the big-endian u32 at 0x1A, clamped to
// the buffer length.
func (r *ROM) Trim() int { return r.trim }

// TrimmedBytes returns R[0..trim).
func (r *ROM) TrimmedBytes() []byte {
	b, _ := r.Slice(0, r.trim)
	return b
}

// InRange reports whether off lies in [0, trim].
func (r *ROM) InRange(off int) bool {
	return off >= 0 && off <= r.trim
}
