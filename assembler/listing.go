package assembler

import (
	"fmt"
	"strings"

	"github.com/lookbusy1344/z80asm/diag"
)

// Listing accumulates the final pass's interleaved source/hex-dump
// lines. It implements source.ListingSink, and also
// records the bytes each statement emits via RecordBytes; both arrive
// in source order, with a statement's bytes always recorded before
// the source line that produced them (the tokenizer only crosses a
// line boundary, which triggers WriteSourceLine, once every token on
// that line — including any emitted bytes — has already been
// consumed). Rendering merges the two into one line per source line.
type Listing struct {
	pending []byte
	addr    int
	haveAddr bool
	lines   []string
	depth   int
}

// NewListing creates an empty Listing.
func NewListing() *Listing { return &Listing{} }

// RecordBytes appends the bytes a statement emitted, starting at
// segOffset, to the pending dump for the line currently being
// assembled.
func (l *Listing) RecordBytes(segOffset int, bytes []byte) {
	if !l.haveAddr {
		l.addr = segOffset
		l.haveAddr = true
	}
	l.pending = append(l.pending, bytes...)
}

// SetDepth records the current open-block indent depth, applied to
// the next line rendered.
func (l *Listing) SetDepth(depth int) { l.depth = depth }

// WriteSourceLine implements source.ListingSink.
func (l *Listing) WriteSourceLine(pos diag.SourcePosition, text string) {
	var hex string
	if l.haveAddr {
		hex = fmt.Sprintf("%04X: %s", l.addr, hexDump(l.pending))
	}
	indent := strings.Repeat("  ", l.depth)
	l.lines = append(l.lines, fmt.Sprintf("%-9s %-24s %s%s", pos.String(), hex, indent, text))
	l.pending = nil
	l.haveAddr = false
}

func hexDump(b []byte) string {
	var sb strings.Builder
	for i, v := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", v)
	}
	return sb.String()
}

// Lines returns the accumulated listing text, one entry per source
// line, in input order.
func (l *Listing) Lines() []string { return l.lines }

// String renders the full listing as a single newline-joined block.
func (l *Listing) String() string { return strings.Join(l.lines, "\n") }
