package z80

import (
	"github.com/lookbusy1344/z80asm/diag"
	"github.com/lookbusy1344/z80asm/symtab"
)

// The relative-offset bounds for JR/DJNZ. The +128 upper bound is
// deliberately one past the hardware's signed-byte maximum of +127;
// do not tighten it. A displacement of +128 is written as the byte 0x80.
const (
	minRelOffset = -128
	maxRelOffset = 128
)

// RelOffset computes the signed displacement a JR/DJNZ at instrAddr
// (instrAddr is the address of the opcode byte itself; instruction
// length is always 2 for these) would need to reach targetAddr, and
// reports whether that displacement fits the permitted range.
func RelOffset(targetAddr, instrAddr int) (int, bool) {
	offset := targetAddr - (instrAddr + 2)
	return offset, offset >= minRelOffset && offset <= maxRelOffset
}

// canUseShortForm reports whether target is close enough, and in the
// right segment, for a JR/DJNZ relative encoding from an instruction at
// instrOffset within segKind. An Undefined target always forces the
// long form speculatively: from whichever pass first resolves the
// target, the jump shrinks to the 2-byte form if the target is in
// range, and the fixpoint loop settles once every address stops moving.
func canUseShortForm(target symtab.Address, segKind symtab.SegmentKind, instrOffset int) (int, bool) {
	if !target.IsDefined() || target.Tag != symtab.CodeAddr || segKind != symtab.Code {
		return 0, false
	}
	return RelOffset(target.Value, instrOffset)
}

// emitJP handles JP cc?,nn and JP (HL|IX|IY).
func (e *Emitter) emitJP() {
	first := parseOperand(e.tr, e.ev)
	if first.Kind == OpMemHL {
		e.byte(0xE9)
		return
	}
	if first.Kind == OpIndexReg {
		e.indexedPrefix(first.Name)
		e.byte(0xE9)
		return
	}
	if cond, ok := condOperand(first); ok {
		if !e.tr.AcceptOperator(',') {
			e.errf("expected ','")
			return
		}
		target := e.ev.Evaluate()
		e.byte(0xC2 | byte(condIndex(cond))<<3)
		e.relocWord(target)
		return
	}
	if first.Kind == OpExpr {
		e.byte(0xC3)
		e.relocWord(first.Addr)
		return
	}
	e.errf("invalid JP operand")
}

// emitJR handles JR cc,e and JR e, falling back to the equivalent
// JP cc,nn / JP nn when the target is out of relative range.
func (e *Emitter) emitJR() {
	first := parseOperand(e.tr, e.ev)
	var cond string
	var target symtab.Address
	if name, ok := condOperand(first); ok {
		if !ShortJumpConditions[name] {
			e.errf("JR does not support condition %s", name)
			return
		}
		if !e.tr.AcceptOperator(',') {
			e.errf("expected ','")
			return
		}
		cond = name
		target = e.ev.Evaluate()
	} else if first.Kind == OpExpr {
		target = first.Addr
	} else {
		e.errf("invalid JR operand")
		return
	}
	e.emitJRTarget(cond, target)
}

// emitJRTarget is the shared fallback-aware core used by emitJR.
func (e *Emitter) emitJRTarget(cond string, target symtab.Address) {
	EmitRelativeJump(e.seg, e.fixups, e.segKind, cond, target)
}

// EmitRelativeJump emits a conditional or unconditional jump to target
// from the current end of seg, choosing the 2-byte JR/JR cc form when
// it fits and falling back to the 3-byte JP/JP cc form otherwise.
// cond is "" for an unconditional jump. This is used
// directly by the structured-flow compiler to synthesize the jumps
// IF/WHILE/etc lower into, without going through token parsing.
func EmitRelativeJump(seg *symtab.Segment, fixups *symtab.FixupTable, segKind symtab.SegmentKind, cond string, target symtab.Address) {
	instrOffset := seg.Offset()
	if offset, ok := canUseShortForm(target, segKind, instrOffset); ok {
		if cond != "" {
			seg.EmitByte(0x20 | byte(shortCondIndex(cond))<<3)
		} else {
			seg.EmitByte(0x18)
		}
		seg.EmitByte(byte(int8(offset)))
		return
	}
	if cond != "" {
		seg.EmitByte(0xC2 | byte(condIndex(cond))<<3)
	} else {
		seg.EmitByte(0xC3)
	}
	emitRelocWordRaw(seg, fixups, segKind, target)
}

// EmitRelativeDJNZ emits DJNZ target, falling back to DEC B; JP NZ,
// target when out of range. Used by the structured-flow compiler for
// DWNZ.
func EmitRelativeDJNZ(seg *symtab.Segment, fixups *symtab.FixupTable, segKind symtab.SegmentKind, target symtab.Address) {
	instrOffset := seg.Offset()
	if offset, ok := canUseShortForm(target, segKind, instrOffset); ok {
		seg.EmitByte(0x10)
		seg.EmitByte(byte(int8(offset)))
		return
	}
	seg.EmitByte(0x05)
	seg.EmitByte(0xC2)
	emitRelocWordRaw(seg, fixups, segKind, target)
}

// emitRelocWordRaw is EmitRelativeJump's segment/fixup-only equivalent
// of Emitter.relocWord.
func emitRelocWordRaw(seg *symtab.Segment, fixups *symtab.FixupTable, segKind symtab.SegmentKind, addr symtab.Address) {
	off := seg.EmitWord(addr.Value)
	if usage, ok := symtab.NewUsage(segKind, off, symtab.Width2, addr); ok {
		fixups.Add(usage)
	}
}

func shortCondIndex(name string) int {
	switch name {
	case "NZ":
		return 0
	case "Z":
		return 1
	case "NC":
		return 2
	case "C":
		return 3
	}
	return 0
}

// emitDJNZ handles DJNZ e, falling back to DEC B; JP NZ,nn when out of
// range.
func (e *Emitter) emitDJNZ() {
	target := e.ev.Evaluate()
	EmitRelativeDJNZ(e.seg, e.fixups, e.segKind, target)
}

func (e *Emitter) emitCALL() {
	first := parseOperand(e.tr, e.ev)
	if cond, ok := condOperand(first); ok {
		if !e.tr.AcceptOperator(',') {
			e.errf("expected ','")
			return
		}
		target := e.ev.Evaluate()
		e.byte(0xC4 | byte(condIndex(cond))<<3)
		e.relocWord(target)
		return
	}
	if first.Kind == OpExpr {
		e.byte(0xCD)
		e.relocWord(first.Addr)
		return
	}
	e.errf("invalid CALL operand")
}

func (e *Emitter) emitRET() {
	tok := e.tr.Current()
	if tok.IsNewline() || tok.IsEOF() {
		e.byte(0xC9)
		return
	}
	op := parseOperand(e.tr, e.ev)
	cond, ok := condOperand(op)
	if !ok {
		e.errf("invalid RET operand")
		return
	}
	e.byte(0xC0 | byte(condIndex(cond))<<3)
}

func (e *Emitter) emitRST() {
	p := e.ev.Evaluate()
	if p.Tag != symtab.ConstAddr || p.Value&0xC7 != 0 {
		e.errKind(diag.ErrOutOfRange, "RST operand %d is not a valid restart page", p.Value)
		return
	}
	e.byte(0xC7 | byte(p.Value))
}
