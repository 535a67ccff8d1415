package z80

import (
	"github.com/lookbusy1344/z80asm/diag"
	"github.com/lookbusy1344/z80asm/symtab"
	"github.com/lookbusy1344/z80asm/token"
)

// Emitter recognizes one Z80 instruction's operands from a
// token.TokenReader and appends its encoded bytes to the current
// segment: one dispatch over the mnemonic, routing to a
// family-specific method that consumes operand tokens itself.
type Emitter struct {
	tr      *token.TokenReader
	ev      evaluator
	seg     *symtab.Segment
	segKind symtab.SegmentKind
	fixups  *symtab.FixupTable
}

// NewEmitter creates an Emitter writing into seg (whose Kind is used to
// tag fix-ups) and recording relocation sites into fixups.
func NewEmitter(tr *token.TokenReader, ev evaluator, seg *symtab.Segment, fixups *symtab.FixupTable) *Emitter {
	return &Emitter{tr: tr, ev: ev, seg: seg, segKind: seg.Kind, fixups: fixups}
}

func (e *Emitter) errf(format string, args ...interface{}) {
	e.errKind(diag.ErrSyntax, format, args...)
}

func (e *Emitter) errKind(kind diag.ErrorKind, format string, args ...interface{}) {
	e.tr.Errors().Add(diag.Newf(e.tr.Current().Pos, kind, format, args...))
}

// reg8 returns the encoding bits for an 8-bit register operand. I and R
// parse as OpReg8 but only the dedicated LD A,I / LD I,A forms accept
// them; anywhere else they are the wrong register class.
func (e *Emitter) reg8(name string) byte {
	idx := regIndex(name)
	if idx < 0 {
		e.errKind(diag.ErrInvalidRegister, "invalid register %s", name)
		return 0
	}
	return byte(idx)
}

func (e *Emitter) byte(b byte) { e.seg.EmitByte(b) }

// relocWord writes a 16-bit operand that may refer to a relocatable
// address, recording a fix-up when it does.
func (e *Emitter) relocWord(addr symtab.Address) {
	emitRelocWordRaw(e.seg, e.fixups, e.segKind, addr)
}

// checkByteRange validates and returns a constant 8-bit immediate's
// byte value. A relocatable operand (a bare label, not LOW/HIGH of
// one) reaching here is an address-usage error: an 8-bit immediate
// slot can't hold an unresolved 16-bit address. LOW/HIGH-selected
// relocatable operands are handled separately by emitByteOperand,
// which records a fix-up instead of erroring.
func (e *Emitter) checkByteRange(addr symtab.Address) byte {
	if addr.Tag == symtab.ConstAddr && (addr.Value < -128 || addr.Value > 255) {
		e.errKind(diag.ErrOutOfRange, "value %d out of byte range", addr.Value)
	}
	if addr.IsRelocatable() && addr.Part == symtab.PartNone {
		e.errKind(diag.ErrAddressUsage, "relocatable value used where a byte constant is required")
	}
	return byte(addr.Value)
}

// emitByteOperand writes an 8-bit immediate operand, recording a
// Width1 fix-up when addr is a LOW/HIGH-selected relocatable value
// instead of baking in a pass-1 placeholder byte that the linker
// never gets a chance to correct.
func (e *Emitter) emitByteOperand(addr symtab.Address) {
	if addr.IsRelocatable() && addr.Part != symtab.PartNone {
		off := e.seg.Offset()
		e.byte(0)
		if usage, ok := symtab.NewUsage(e.segKind, off, symtab.Width1, addr); ok {
			e.fixups.Add(usage)
		}
		return
	}
	e.byte(e.checkByteRange(addr))
}

// Emit recognizes mnemonic's operands from e.tr and appends its
// encoding to e.seg. It returns false if mnemonic is not a recognized
// Z80 instruction.
func (e *Emitter) Emit(mnemonic string) bool {
	if op, ok := noOperandOps[mnemonic]; ok {
		for _, b := range op {
			e.byte(b)
		}
		return true
	}

	switch mnemonic {
	case "LD":
		e.emitLD()
	case "EX":
		e.emitEX()
	case "PUSH":
		e.emitStackOp(0xC5)
	case "POP":
		e.emitStackOp(0xC1)
	case "RLC", "RL", "RRC", "RR", "SLA", "SRA", "SRL":
		e.emitRotateShift(mnemonic)
	case "SUB", "AND", "OR", "XOR", "CP":
		e.emitALU8(mnemonic)
	case "ADD", "ADC", "SBC":
		e.emitAdditive(mnemonic)
	case "INC", "DEC":
		e.emitIncDec(mnemonic)
	case "BIT", "SET", "RES":
		e.emitBitOp(mnemonic)
	case "JP":
		e.emitJP()
	case "JR":
		e.emitJR()
	case "DJNZ":
		e.emitDJNZ()
	case "CALL":
		e.emitCALL()
	case "RET":
		e.emitRET()
	case "RST":
		e.emitRST()
	case "IM":
		e.emitIM()
	case "IN":
		e.emitIN()
	case "OUT":
		e.emitOUT()
	default:
		return false
	}
	return true
}

// noOperandOps is the fixed mnemonic-to-opcode table for every
// instruction taking no operands.
var noOperandOps = map[string][]byte{
	"LDI": {0xED, 0xA0}, "LDIR": {0xED, 0xB0}, "LDD": {0xED, 0xA8}, "LDDR": {0xED, 0xB8},
	"EXX": {0xD9},
	"RLCA": {0x07}, "RLA": {0x17}, "RRCA": {0x0F}, "RRA": {0x1F},
	"CPL": {0x2F}, "NEG": {0xED, 0x44}, "CCF": {0x3F}, "SCF": {0x37},
	"CPI": {0xED, 0xA1}, "CPIR": {0xED, 0xB1}, "CPD": {0xED, 0xA9}, "CPDR": {0xED, 0xB9},
	"RETI": {0xED, 0x4D}, "RETN": {0xED, 0x45},
	"NOP": {0x00}, "HALT": {0x76}, "DI": {0xF3}, "EI": {0xFB},
	"INI": {0xED, 0xA2}, "INIR": {0xED, 0xB2}, "IND": {0xED, 0xAA}, "INDR": {0xED, 0xBA},
	"OUTI": {0xED, 0xA3}, "OUTIR": {0xED, 0xB3}, "OUTD": {0xED, 0xAB}, "OUTDR": {0xED, 0xBB},
	"DAA": {0x27}, "RLD": {0xED, 0x6F}, "RRD": {0xED, 0x67},
}

func (e *Emitter) emitEX() {
	op := parseOperand(e.tr, e.ev)
	if !e.tr.AcceptOperator(',') {
		e.errf("expected ','")
		return
	}
	switch {
	case op.Kind == OpRegPair && op.Name == "DE":
		rhs := parseOperand(e.tr, e.ev)
		if rhs.Kind == OpRegPair && rhs.Name == "HL" {
			e.byte(0xEB)
			return
		}
		e.errKind(diag.ErrInvalidRegister, "EX DE, requires HL")
	case op.Kind == OpRegPair && op.Name == "AF":
		rhs := parseOperand(e.tr, e.ev)
		if rhs.Kind == OpRegPair && rhs.Name == "AF'" {
			e.byte(0x08)
			return
		}
		e.errKind(diag.ErrInvalidRegister, "EX AF, requires AF'")
	case op.Kind == OpMemSP:
		rhs := parseOperand(e.tr, e.ev)
		switch {
		case rhs.Kind == OpRegPair && rhs.Name == "HL":
			e.byte(0xE3)
		case rhs.Kind == OpIndexReg:
			e.byte(IndexRegisterPrefixes[rhs.Name])
			e.byte(0xE3)
		default:
			e.errKind(diag.ErrInvalidRegister, "EX (SP), requires HL, IX or IY")
		}
	default:
		e.errf("invalid EX operands")
	}
}

func (e *Emitter) emitStackOp(base byte) {
	op := parseOperand(e.tr, e.ev)
	switch {
	case op.Kind == OpRegPair && op.Name == "AF":
		e.byte(base | (3 << 4))
	case op.Kind == OpRegPair && pairIndex(op.Name) >= 0 && op.Name != "SP":
		e.byte(base | byte(pairIndex(op.Name))<<4)
	case op.Kind == OpIndexReg:
		e.byte(IndexRegisterPrefixes[op.Name])
		e.byte(base | (2 << 4))
	default:
		e.errKind(diag.ErrInvalidRegister, "invalid operand for PUSH/POP")
	}
}

func (e *Emitter) emitIM() {
	v := e.ev.Evaluate()
	switch v.Value {
	case 0:
		e.byte(0xED)
		e.byte(0x46)
	case 1:
		e.byte(0xED)
		e.byte(0x56)
	case 2:
		e.byte(0xED)
		e.byte(0x5E)
	default:
		e.errKind(diag.ErrOutOfRange, "IM operand %d must be 0, 1 or 2", v.Value)
	}
}

func (e *Emitter) emitIN() {
	op := parseOperand(e.tr, e.ev)
	if !e.tr.AcceptOperator(',') {
		e.errf("expected ','")
		return
	}
	mem := parseOperand(e.tr, e.ev)
	if op.Kind == OpReg8 && op.Name == "A" && mem.Kind == OpMemImm {
		e.byte(0xDB)
		e.emitByteOperand(mem.Addr)
		return
	}
	if op.Kind == OpReg8 && mem.Kind == OpMemC {
		e.byte(0xED)
		e.byte(0x40 | e.reg8(op.Name)<<3)
		return
	}
	e.errf("invalid IN operands")
}

func (e *Emitter) emitOUT() {
	mem := parseOperand(e.tr, e.ev)
	if !e.tr.AcceptOperator(',') {
		e.errf("expected ','")
		return
	}
	op := parseOperand(e.tr, e.ev)
	if mem.Kind == OpMemImm && op.Kind == OpReg8 && op.Name == "A" {
		e.byte(0xD3)
		e.emitByteOperand(mem.Addr)
		return
	}
	if mem.Kind == OpMemC && op.Kind == OpReg8 {
		e.byte(0xED)
		e.byte(0x41 | e.reg8(op.Name)<<3)
		return
	}
	e.errf("invalid OUT operands")
}

// indexedPrefix emits the DD/FD prefix byte of an IX/IY operand.
// Callers write the opcode byte and, for indexed-memory operands, the
// displacement byte (via dispByte) themselves after calling this.
func (e *Emitter) indexedPrefix(indexReg string) {
	e.byte(IndexRegisterPrefixes[indexReg])
}

func (e *Emitter) dispByte(disp symtab.Address) byte {
	if disp.Value < -128 || disp.Value > 127 {
		e.errKind(diag.ErrOutOfRange, "displacement %d out of range", disp.Value)
	}
	return byte(int8(disp.Value))
}
