package z80

import (
	"testing"

	"github.com/lookbusy1344/z80asm/diag"
	"github.com/lookbusy1344/z80asm/expr"
	"github.com/lookbusy1344/z80asm/source"
	"github.com/lookbusy1344/z80asm/symtab"
	"github.com/lookbusy1344/z80asm/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// emitTestRig bundles everything one instruction needs to be emitted
// in isolation, mirroring the shape the assembler driver assembles at
// runtime (tokenizer → reader → evaluator → emitter over one segment).
type emitTestRig struct {
	t      *testing.T
	tr     *token.TokenReader
	ev     *expr.Evaluator
	seg    *symtab.Segment
	fixups *symtab.FixupTable
	errs   *diag.ErrorList
	syms   *symtab.SymbolTable
	idents *source.StringTable
}

func newRig(t *testing.T, src string, segKind symtab.SegmentKind) *emitTestRig {
	t.Helper()
	r := source.NewSourceReader(func(string) ([]byte, error) { return []byte(src + "\n"), nil }, nil)
	require.NoError(t, r.Open("t.asm"))
	tz := token.NewTokenizer(r)
	errs := diag.NewErrorList()
	tr := token.NewTokenReader(tz, errs)
	syms := symtab.NewSymbolTable()
	ev := expr.NewEvaluator(tr, syms, tz.Strings)
	ev.SetFinalPass(true)
	seg := symtab.NewSegmentBuffer(segKind)
	fixups := symtab.NewFixupTable()
	return &emitTestRig{t: t, tr: tr, ev: ev, seg: seg, fixups: fixups, errs: errs, syms: syms, idents: tz.Idents}
}

// emit encodes mnemonic with the reader already positioned at its
// operands, matching the assembler driver's contract (the driver
// consumes the mnemonic token itself before calling Emit).
func (rig *emitTestRig) emit(mnemonic string) {
	e := NewEmitter(rig.tr, rig.ev, rig.seg, rig.fixups)
	ok := e.Emit(mnemonic)
	require.True(rig.t, ok, "mnemonic %s was not recognized", mnemonic)
}

func assembleOne(t *testing.T, src, mnemonic string) []byte {
	t.Helper()
	rig := newRig(t, src, symtab.Code)
	rig.emit(mnemonic)
	require.False(t, rig.errs.HasErrors(), "unexpected errors: %v", rig.errs.Errors)
	return rig.seg.Bytes
}

func TestEmitLDImmediateByte(t *testing.T) {
	assert.Equal(t, []byte{0x3E, 0x05}, assembleOne(t, "A,5", "LD"))
}

func TestEmitLDRegPairImmediate(t *testing.T) {
	assert.Equal(t, []byte{0x21, 0x34, 0x12}, assembleOne(t, "HL,1234H", "LD"))
}

func TestEmitLDRegPairFromMemory(t *testing.T) {
	assert.Equal(t, []byte{0x2A, 0x34, 0x12}, assembleOne(t, "HL,(1234H)", "LD"))
}

func TestEmitLDIndexedImmediate(t *testing.T) {
	assert.Equal(t, []byte{0xDD, 0x36, 0x02, 0x07}, assembleOne(t, "(IX+2),7", "LD"))
}

func TestEmitLDRegisterToRegister(t *testing.T) {
	assert.Equal(t, []byte{0x78}, assembleOne(t, "A,B", "LD"))
}

func TestEmitLDMemoryToAccumulator(t *testing.T) {
	assert.Equal(t, []byte{0x0A}, assembleOne(t, "A,(BC)", "LD"))
	assert.Equal(t, []byte{0x1A}, assembleOne(t, "A,(DE)", "LD"))
}

func TestEmitLDAccumulatorToAbsolute(t *testing.T) {
	assert.Equal(t, []byte{0x32, 0x00, 0x80}, assembleOne(t, "(8000H),A", "LD"))
}

func TestEmitLDSPFromHL(t *testing.T) {
	assert.Equal(t, []byte{0xF9}, assembleOne(t, "SP,HL", "LD"))
}

func TestEmitLDIAndR(t *testing.T) {
	assert.Equal(t, []byte{0xED, 0x57}, assembleOne(t, "A,I", "LD"))
	assert.Equal(t, []byte{0xED, 0x5F}, assembleOne(t, "A,R", "LD"))
}

func TestEmitEX(t *testing.T) {
	assert.Equal(t, []byte{0xEB}, assembleOne(t, "DE,HL", "EX"))
	assert.Equal(t, []byte{0x08}, assembleOne(t, "AF,AF'", "EX"))
	assert.Equal(t, []byte{0xE3}, assembleOne(t, "(SP),HL", "EX"))
}

func TestEmitPushPop(t *testing.T) {
	assert.Equal(t, []byte{0xC5}, assembleOne(t, "BC", "PUSH"))
	assert.Equal(t, []byte{0xF5}, assembleOne(t, "AF", "PUSH"))
	assert.Equal(t, []byte{0xE1}, assembleOne(t, "HL", "POP"))
	assert.Equal(t, []byte{0xDD, 0xE5}, assembleOne(t, "IX", "PUSH"))
}

func TestEmitNoOperandOpcodes(t *testing.T) {
	assert.Equal(t, []byte{0x00}, assembleOne(t, "", "NOP"))
	assert.Equal(t, []byte{0x76}, assembleOne(t, "", "HALT"))
	assert.Equal(t, []byte{0xED, 0xB0}, assembleOne(t, "", "LDIR"))
}

func TestEmitALU8(t *testing.T) {
	assert.Equal(t, []byte{0xB8}, assembleOne(t, "B", "CP"))
	assert.Equal(t, []byte{0xFE, 0x0A}, assembleOne(t, "10", "CP"))
	assert.Equal(t, []byte{0xA6}, assembleOne(t, "(HL)", "AND"))
}

func TestEmitAdditive(t *testing.T) {
	assert.Equal(t, []byte{0x80}, assembleOne(t, "A,B", "ADD"))
	assert.Equal(t, []byte{0x09}, assembleOne(t, "HL,BC", "ADD"))
	assert.Equal(t, []byte{0xED, 0x4A}, assembleOne(t, "HL,BC", "ADC"))
	assert.Equal(t, []byte{0xDD, 0x09}, assembleOne(t, "IX,BC", "ADD"))
}

func TestEmitAddIndexRejectsHL(t *testing.T) {
	rig := newRig(t, "IX,HL", symtab.Code)
	rig.emit("ADD")
	assert.True(t, rig.errs.HasErrors())

	rig2 := newRig(t, "IY,HL", symtab.Code)
	rig2.emit("ADD")
	assert.True(t, rig2.errs.HasErrors())
}

func TestEmitIncDec(t *testing.T) {
	assert.Equal(t, []byte{0x3C}, assembleOne(t, "A", "INC"))
	assert.Equal(t, []byte{0x3D}, assembleOne(t, "A", "DEC"))
	assert.Equal(t, []byte{0x23}, assembleOne(t, "HL", "INC"))
	assert.Equal(t, []byte{0x34}, assembleOne(t, "(HL)", "INC"))
}

func TestEmitRotateShift(t *testing.T) {
	assert.Equal(t, []byte{0xCB, 0x00}, assembleOne(t, "B", "RLC"))
	assert.Equal(t, []byte{0xCB, 0x3F}, assembleOne(t, "A", "SRL"))
}

func TestEmitBitSetRes(t *testing.T) {
	assert.Equal(t, []byte{0xCB, 0x7F}, assembleOne(t, "7,A", "BIT"))
	assert.Equal(t, []byte{0xCB, 0xC7}, assembleOne(t, "0,A", "SET"))
}

func TestEmitBitOutOfRangeIsRejected(t *testing.T) {
	rig := newRig(t, "8,A", symtab.Code)
	rig.emit("BIT")
	assert.True(t, rig.errs.HasErrors())
	assert.Equal(t, diag.ErrOutOfRange, rig.errs.Errors[0].Kind)
}

func TestEmitJPUnconditionalAndConditional(t *testing.T) {
	assert.Equal(t, []byte{0xC3, 0x00, 0x80}, assembleOne(t, "8000H", "JP"))
	assert.Equal(t, []byte{0xCA, 0x00, 0x80}, assembleOne(t, "Z,8000H", "JP"))
	assert.Equal(t, []byte{0xE9}, assembleOne(t, "(HL)", "JP"))
}

func TestEmitCALLAndRET(t *testing.T) {
	assert.Equal(t, []byte{0xCD, 0x00, 0x80}, assembleOne(t, "8000H", "CALL"))
	assert.Equal(t, []byte{0xC9}, assembleOne(t, "", "RET"))
	assert.Equal(t, []byte{0xC0}, assembleOne(t, "NZ", "RET"))
}

func TestEmitRST(t *testing.T) {
	assert.Equal(t, []byte{0xFF}, assembleOne(t, "38H", "RST"))
}

func TestEmitRSTInvalidPage(t *testing.T) {
	rig := newRig(t, "39H", symtab.Code)
	rig.emit("RST")
	assert.True(t, rig.errs.HasErrors())
}

func TestEmitIM(t *testing.T) {
	assert.Equal(t, []byte{0xED, 0x56}, assembleOne(t, "1", "IM"))
}

func TestEmitINOUT(t *testing.T) {
	assert.Equal(t, []byte{0xDB, 0x10}, assembleOne(t, "A,(10H)", "IN"))
	assert.Equal(t, []byte{0xD3, 0x10}, assembleOne(t, "(10H),A", "OUT"))
	assert.Equal(t, []byte{0xED, 0x40}, assembleOne(t, "B,(C)", "IN"))
	assert.Equal(t, []byte{0xED, 0x78}, assembleOne(t, "A,(C)", "IN"))
	assert.Equal(t, []byte{0xED, 0x41}, assembleOne(t, "(C),B", "OUT"))
}

// C is both the 8-bit register and the carry condition; the register
// reading wins at parse time and the jump/call/return families
// reinterpret it, so both uses have to encode correctly.
func TestEmitRegisterCDisambiguation(t *testing.T) {
	assert.Equal(t, []byte{0x0E, 0x05}, assembleOne(t, "C,5", "LD"))
	assert.Equal(t, []byte{0x0C}, assembleOne(t, "C", "INC"))
	assert.Equal(t, []byte{0xB9}, assembleOne(t, "C", "CP"))
	assert.Equal(t, []byte{0xDA, 0x00, 0x80}, assembleOne(t, "C,8000H", "JP"))
	assert.Equal(t, []byte{0xDC, 0x00, 0x80}, assembleOne(t, "C,8000H", "CALL"))
	assert.Equal(t, []byte{0xD8}, assembleOne(t, "C", "RET"))
}

func TestEmitLDIntoIAndR(t *testing.T) {
	assert.Equal(t, []byte{0xED, 0x47}, assembleOne(t, "I,A", "LD"))
	assert.Equal(t, []byte{0xED, 0x4F}, assembleOne(t, "R,A", "LD"))
}

func TestEmitIOutsideLDIsInvalidRegister(t *testing.T) {
	rig := newRig(t, "I", symtab.Code)
	rig.emit("INC")
	assert.True(t, rig.errs.HasErrors())
	assert.Equal(t, diag.ErrInvalidRegister, rig.errs.Errors[0].Kind)
}

func TestRelOffsetBoundaries(t *testing.T) {
	off, ok := RelOffset(2, 0)
	assert.Equal(t, 0, off)
	assert.True(t, ok)

	// +128 is accepted: the bound is deliberately inclusive.
	_, ok = RelOffset(130, 0)
	assert.True(t, ok)

	// +129 is rejected.
	_, ok = RelOffset(131, 0)
	assert.False(t, ok)

	// -128 is accepted.
	_, ok = RelOffset(-126, 0)
	assert.True(t, ok)

	// -129 is rejected.
	_, ok = RelOffset(-127, 0)
	assert.False(t, ok)
}

func TestDJNZShortForm(t *testing.T) {
	// LOOP: DJNZ LOOP, at address 0, targets itself -> offset -2.
	seg := symtab.NewSegmentBuffer(symtab.Code)
	fixups := symtab.NewFixupTable()
	EmitRelativeDJNZ(seg, fixups, symtab.Code, symtab.NewSegment(symtab.Code, 0))
	assert.Equal(t, []byte{0x10, 0xFE}, seg.Bytes)
}

func TestJRFallsBackToLongFormWhenUndefined(t *testing.T) {
	// Pass 1: an undefined target must force the long JP form
	// speculatively.
	seg := symtab.NewSegmentBuffer(symtab.Code)
	fixups := symtab.NewFixupTable()
	EmitRelativeJump(seg, fixups, symtab.Code, "", symtab.NewUndefined())
	assert.Equal(t, byte(0xC3), seg.Bytes[0])
	assert.Len(t, seg.Bytes, 3)
}

func TestDJNZFallsBackWhenOutOfRange(t *testing.T) {
	seg := symtab.NewSegmentBuffer(symtab.Code)
	fixups := symtab.NewFixupTable()
	EmitRelativeDJNZ(seg, fixups, symtab.Code, symtab.NewSegment(symtab.Code, 1000))
	assert.Equal(t, byte(0x05), seg.Bytes[0])
	assert.Equal(t, byte(0xC2), seg.Bytes[1])
}

func TestRegisterTablesReserveHLSlot(t *testing.T) {
	assert.Equal(t, "", SingleRegisters[6], "(HL) slot is reserved, never a register name")
}

func TestLDImmediateLowOfRelocatableRecordsByteFixup(t *testing.T) {
	// LD A, LOW FOO where FOO is a code-segment label: the byte can't be
	// baked in until the linker knows FOO's final address, so this must
	// emit a placeholder byte plus a Width1 fix-up rather than silently
	// writing whatever FOO's pass-time offset happens to be.
	rig := newRig(t, "A, LOW FOO", symtab.Code)
	fooID := rig.idents.Intern("FOO")
	rig.syms.Define(fooID, symtab.NewSegment(symtab.Code, 0x1234))

	rig.emit("LD")
	require.False(t, rig.errs.HasErrors(), "unexpected errors: %v", rig.errs.Errors)

	require.Equal(t, []byte{0x3E, 0x00}, rig.seg.Bytes)
	entries := rig.fixups.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, symtab.Width1, entries[0].Width)
	assert.Equal(t, symtab.PartLow, entries[0].Part)
	assert.Equal(t, 1, entries[0].Offset)
}
