// Package objfile writes the relocatable object file consumed by the
// companion linker: little-endian 16-bit words and length-prefixed
// strings.
package objfile

import (
	"encoding/binary"
	"io"
	"sort"

	"github.com/lookbusy1344/z80asm/symtab"
)

// Version is the on-disk format version word.
const Version = 0x0100

// addrType is the on-disk discriminant for symtab.AddressTag.
type addrType byte

const (
	tUndefined addrType = iota
	tConst
	tCode
	tData
	tExternal
)

func toAddrType(tag symtab.AddressTag) addrType {
	switch tag {
	case symtab.ConstAddr:
		return tConst
	case symtab.CodeAddr:
		return tCode
	case symtab.DataAddr:
		return tData
	case symtab.ExternalAddr:
		return tExternal
	default:
		return tUndefined
	}
}

// Writer serializes an assembler result to the relocatable object
// format.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

func (wr *Writer) writeWord(v int) {
	if wr.err != nil {
		return
	}
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], uint16(v))
	_, wr.err = wr.w.Write(buf[:])
}

func (wr *Writer) writeByte(b byte) {
	if wr.err != nil {
		return
	}
	_, wr.err = wr.w.Write([]byte{b})
}

func (wr *Writer) writeBytes(b []byte) {
	if wr.err != nil {
		return
	}
	_, wr.err = wr.w.Write(b)
}

// writeString writes a length-prefixed (word count) string.
func (wr *Writer) writeString(s string) {
	wr.writeWord(len(s))
	wr.writeBytes([]byte(s))
}

// partByte is the on-disk discriminant for symtab.AddressPart: 0 for a
// full 16-bit value, 1/2 for a LOW/HIGH-selected byte. A fix-up's
// target Address is the only place this is
// ever non-zero — a public symbol's own Address is always whole.
func partByte(p symtab.AddressPart) byte {
	switch p {
	case symtab.PartLow:
		return 1
	case symtab.PartHigh:
		return 2
	default:
		return 0
	}
}

// writeAddress writes an Address as: type byte; part byte; id word (0
// when absent); value word.
func (wr *Writer) writeAddress(a symtab.Address) {
	wr.writeByte(byte(toAddrType(a.Tag)))
	wr.writeByte(partByte(a.Part))
	id := 0
	if a.Tag == symtab.ExternalAddr {
		id = a.ExternID
	}
	wr.writeWord(id)
	wr.writeWord(a.Value)
}

// Names resolves an interned identifier id to its source spelling, so
// the object writer can emit the id table's name strings.
type Names interface {
	Name(id int) string
}

// Write serializes code, data, the public symbol table, and the
// fix-up table to w. The field ordering and widths are a
// linker-compatibility contract and must not change.
func Write(w io.Writer, code, data *symtab.Segment, syms *symtab.SymbolTable, fixups []symtab.AddressUsage, names Names) error {
	wr := NewWriter(w)

	wr.writeWord(Version)

	wr.writeWord(len(code.Bytes))
	wr.writeBytes(code.Bytes)
	wr.writeWord(len(data.Bytes))
	wr.writeBytes(data.Bytes)

	publics := syms.AllPublic()
	externIDs := map[int]bool{}
	for _, f := range fixups {
		if f.Ref == symtab.RefExternal {
			externIDs[f.NameID] = true
		}
	}
	externList := make([]int, 0, len(externIDs))
	for id := range externIDs {
		externList = append(externList, id)
	}
	sort.Ints(externList)

	ids := make([]int, 0, len(publics)+len(externList))
	ids = append(ids, publics...)
	ids = append(ids, externList...)
	wr.writeWord(len(ids))
	for _, id := range ids {
		wr.writeWord(id)
		wr.writeString(names.Name(id))
	}

	wr.writeWord(len(publics))
	for _, id := range publics {
		sym, _ := syms.Lookup(id)
		wr.writeWord(id)
		wr.writeAddress(sym.Addr)
	}

	wr.writeWord(len(fixups))
	for _, f := range fixups {
		site := symtab.Address{Tag: targetTag(f), Value: f.Offset}
		target := fixupTargetAddress(f)
		wr.writeAddress(site)
		wr.writeAddress(target)
	}

	return wr.err
}

func targetTag(f symtab.AddressUsage) symtab.AddressTag {
	if f.Segment == symtab.Data {
		return symtab.DataAddr
	}
	return symtab.CodeAddr
}

func fixupTargetAddress(f symtab.AddressUsage) symtab.Address {
	var a symtab.Address
	if f.Ref == symtab.RefExternal {
		a = symtab.NewExternal(f.NameID, f.Displacement)
	} else {
		a = symtab.NewSegment(f.Target, f.Displacement)
	}
	a.Part = f.Part
	return a
}
