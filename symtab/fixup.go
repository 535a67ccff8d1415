package symtab

// UsageWidth is the size, in bytes, of a fix-up site.
type UsageWidth int

const (
	// Width1 is a single relocatable byte. The relative offset of a
	// JR/DJNZ target is never itself recorded here: it is fully
	// resolved within the assembler, since a relative displacement
	// cannot survive a linker adding a segment base.
	Width1 UsageWidth = 1
	// Width2 is a 16-bit little-endian word — the common case: LD
	// HL,label / JP label / CALL label / DEFW label.
	Width2 UsageWidth = 2
)

// RefKind distinguishes a fix-up that targets this module's own
// relocatable segment from one that targets an external symbol
// resolved only by the linker.
type RefKind int

const (
	RefLocal RefKind = iota
	RefExternal
)

// AddressUsage records one place in an emitted segment whose value is
// only a provisional segment offset (or zero, for an external): the
// linker must add the target's final base address (or the external
// symbol's resolved address) before the bytes are correct. The
// assembler itself never patches these; it hands them to the object
// writer verbatim.
type AddressUsage struct {
	Segment      SegmentKind // segment the fix-up site lives in
	Offset       int         // offset within that segment
	Width        UsageWidth
	Ref          RefKind
	Target       SegmentKind // for RefLocal: which segment the value is relative to
	NameID       int         // for RefExternal: the external symbol's name id
	Displacement int         // constant added to the resolved base
	Part         AddressPart // PartLow/PartHigh for a LOW/HIGH-selected byte site
}

// FixupTable collects AddressUsage entries for the current pass. It is
// cleared and rebuilt from scratch every pass, since segment offsets
// from a stale pass no longer describe the segment being re-emitted.
type FixupTable struct {
	entries []AddressUsage
}

// NewFixupTable creates an empty table.
func NewFixupTable() *FixupTable { return &FixupTable{} }

// Add records a new fix-up site.
func (f *FixupTable) Add(u AddressUsage) { f.entries = append(f.entries, u) }

// NewUsage builds the AddressUsage for addr at (segKind, offset, width),
// selecting RefLocal vs. RefExternal and the local Target segment from
// addr.Tag. Shared by every call site that records a fix-up (DEFW,
// relocatable jump/call targets, LOW/HIGH byte operands) so the
// Tag-to-RefKind mapping lives in one place.
func NewUsage(segKind SegmentKind, offset int, width UsageWidth, addr Address) (AddressUsage, bool) {
	switch addr.Tag {
	case CodeAddr:
		return AddressUsage{Segment: segKind, Offset: offset, Width: width, Ref: RefLocal, Target: Code, Part: addr.Part}, true
	case DataAddr:
		return AddressUsage{Segment: segKind, Offset: offset, Width: width, Ref: RefLocal, Target: Data, Part: addr.Part}, true
	case ExternalAddr:
		return AddressUsage{Segment: segKind, Offset: offset, Width: width, Ref: RefExternal, NameID: addr.ExternID, Displacement: addr.Value, Part: addr.Part}, true
	default:
		return AddressUsage{}, false
	}
}

// Reset discards every recorded fix-up.
func (f *FixupTable) Reset() { f.entries = f.entries[:0] }

// Entries returns the fix-ups recorded so far this pass.
func (f *FixupTable) Entries() []AddressUsage { return f.entries }
