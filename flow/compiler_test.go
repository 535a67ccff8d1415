package flow

import (
	"testing"

	"github.com/lookbusy1344/z80asm/diag"
	"github.com/lookbusy1344/z80asm/symtab"
	"github.com/stretchr/testify/assert"
)

// rig bundles a fresh SymbolTable/Segment/FixupTable/Compiler and drives
// the two-pass fixpoint the assembler driver runs, so a structured-flow
// test exercises the same convergence behavior the real driver relies
// on rather than a single, possibly-unstable pass.
type rig struct {
	syms   *symtab.SymbolTable
	seg    *symtab.Segment
	fixups *symtab.FixupTable
	errs   *diag.ErrorList
	c      *Compiler
}

func newRig() *rig {
	syms := symtab.NewSymbolTable()
	seg := symtab.NewSegmentBuffer(symtab.Code)
	fixups := symtab.NewFixupTable()
	errs := diag.NewErrorList()
	return &rig{syms: syms, seg: seg, fixups: fixups, errs: errs, c: NewCompiler(syms, seg, fixups, errs)}
}

// runUntilConverged re-runs body (a sequence of Compiler calls plus raw
// byte injections standing in for ordinary instructions between them)
// until a pass changes no symbol addresses, then runs one final pass and
// returns its bytes -- mirroring assembler.Assemble's own pass loop.
func (r *rig) runUntilConverged(t *testing.T, body func(c *Compiler, seg *symtab.Segment)) []byte {
	t.Helper()
	const maxPasses = 10
	for i := 0; i < maxPasses; i++ {
		r.syms.StartPass()
		r.c.ResetPass()
		r.seg.Reset()
		body(r.c, r.seg)
		if !r.syms.AnyChangedThisPass() && !r.errs.HasErrors() {
			break
		}
	}
	r.syms.StartPass()
	r.c.ResetPass()
	r.seg.Reset()
	body(r.c, r.seg)
	out := make([]byte, len(r.seg.Bytes))
	copy(out, r.seg.Bytes)
	return out
}

// TestIfElseEndifConverges reproduces "IF NZ | INC A | ELSE | DEC A |
// ENDIF", with INC A/DEC A standing in as their already-verified opcode
// bytes (3C/3D) since emitting them for real is the emitter package's
// concern, not flow's.
func TestIfElseEndifConverges(t *testing.T) {
	r := newRig()
	bytes := r.runUntilConverged(t, func(c *Compiler, seg *symtab.Segment) {
		pos := diag.SourcePosition{File: "t.asm", Line: 1}
		c.IF(pos, "NZ")
		seg.EmitByte(0x3C) // INC A
		c.ELSE(pos)
		seg.EmitByte(0x3D) // DEC A
		c.ENDIF(pos)
	})
	assert.Equal(t, []byte{0x28, 0x03, 0x3C, 0x18, 0x01, 0x3D}, bytes)
	assert.False(t, r.errs.HasErrors())
	assert.Equal(t, 0, r.c.OpenBlocks())
}

// TestDoWhileWendOptimization reproduces an empty-bodied "DO | WHILE NZ
// | WEND": once the loop layout settles, the exit test and back-edge
// collapse into one conditional self-jump emitted at WEND.
func TestDoWhileWendOptimization(t *testing.T) {
	r := newRig()
	bytes := r.runUntilConverged(t, func(c *Compiler, seg *symtab.Segment) {
		pos := diag.SourcePosition{File: "t.asm", Line: 1}
		c.DO(pos)
		c.WHILE(pos, "NZ")
		c.WEND(pos)
	})
	assert.Equal(t, []byte{0x20, 0xFE}, bytes)
	assert.False(t, r.errs.HasErrors())
}

// TestDoWhileWendShortBackEdgeAfterBody covers "DO | WHILE NZ | INC A
// | WEND" with a short-reachable back-edge: the collapsed conditional
// jump must land at WEND's position, after the body, so the body
// still executes on every iteration -- never at WHILE's own position
// ahead of it.
func TestDoWhileWendShortBackEdgeAfterBody(t *testing.T) {
	r := newRig()
	bytes := r.runUntilConverged(t, func(c *Compiler, seg *symtab.Segment) {
		pos := diag.SourcePosition{File: "t.asm", Line: 1}
		c.DO(pos)
		c.WHILE(pos, "NZ")
		seg.EmitByte(0x3C) // INC A
		c.WEND(pos)
	})
	assert.Equal(t, []byte{0x3C, 0x20, 0xFD}, bytes)
	assert.False(t, r.errs.HasErrors())
	assert.Equal(t, 0, r.c.OpenBlocks())
}

func TestElseIfChaining(t *testing.T) {
	r := newRig()
	pos := diag.SourcePosition{File: "t.asm", Line: 1}
	r.syms.StartPass()
	r.c.ResetPass()
	r.c.IF(pos, "Z")
	r.seg.EmitByte(0x3C)
	r.c.ELSEIF(pos, "C")
	r.seg.EmitByte(0x3D)
	r.c.ELSE(pos)
	r.seg.EmitByte(0x00)
	r.c.ENDIF(pos)

	assert.False(t, r.errs.HasErrors())
	assert.Equal(t, 0, r.c.OpenBlocks())
	// IF's conditional jump, ELSEIF's "jump to end" plus its own
	// conditional jump, and ELSE's "jump to end": four 3-byte jumps
	// (all long form, first pass) around the three one-byte bodies.
	assert.Len(t, r.seg.Bytes, 4*3+3)
}

func TestMultipleElseIsError(t *testing.T) {
	r := newRig()
	pos := diag.SourcePosition{File: "t.asm", Line: 1}
	r.syms.StartPass()
	r.c.ResetPass()
	r.c.IF(pos, "NZ")
	r.c.ELSE(pos)
	r.c.ELSE(pos)

	assert.True(t, r.errs.HasErrors())
	assert.Equal(t, diag.ErrMultipleElse, r.errs.Errors[0].Kind)
}

func TestEndifWithoutIfIsError(t *testing.T) {
	r := newRig()
	pos := diag.SourcePosition{File: "t.asm", Line: 1}
	r.syms.StartPass()
	r.c.ResetPass()
	r.c.ENDIF(pos)

	assert.True(t, r.errs.HasErrors())
	assert.Equal(t, diag.ErrNoOpenBlock, r.errs.Errors[0].Kind)
}

func TestWendWithoutDoIsError(t *testing.T) {
	r := newRig()
	pos := diag.SourcePosition{File: "t.asm", Line: 1}
	r.syms.StartPass()
	r.c.ResetPass()
	r.c.WEND(pos)

	assert.True(t, r.errs.HasErrors())
	assert.Equal(t, diag.ErrNoOpenBlock, r.errs.Errors[0].Kind)
}

func TestDwnzAfterWhileIsError(t *testing.T) {
	r := newRig()
	pos := diag.SourcePosition{File: "t.asm", Line: 1}
	r.syms.StartPass()
	r.c.ResetPass()
	r.c.DO(pos)
	r.c.WHILE(pos, "NZ")
	r.c.DWNZ(pos)

	assert.True(t, r.errs.HasErrors())
	assert.Equal(t, diag.ErrWhileAndDwnz, r.errs.Errors[0].Kind)
}

func TestUnclosedIfBlockIsReportedOpen(t *testing.T) {
	r := newRig()
	pos := diag.SourcePosition{File: "t.asm", Line: 1}
	r.syms.StartPass()
	r.c.ResetPass()
	r.c.IF(pos, "NZ")

	assert.Equal(t, 1, r.c.OpenBlocks())
}

func TestDwnzEmitsSelfLoopWhenInRange(t *testing.T) {
	r := newRig()
	pos := diag.SourcePosition{File: "t.asm", Line: 1}
	bytes := r.runUntilConverged(t, func(c *Compiler, seg *symtab.Segment) {
		c.DO(pos)
		c.DWNZ(pos)
	})
	assert.Equal(t, []byte{0x10, 0xFE}, bytes)
}
