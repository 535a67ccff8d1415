package flow

import (
	"github.com/lookbusy1344/z80asm/diag"
	"github.com/lookbusy1344/z80asm/symtab"
	z80 "github.com/lookbusy1344/z80asm/z80asm"
)

// firstAutoID is the first id handed to an auto-generated block label
// each pass. User identifiers begin at source.FirstUserID (0x100) and
// stay well below this by construction.
const firstAutoID = 0x8000

// Compiler maintains the open-block stack and synthesizes the jumps
// IF/ELSE/ELSEIF/ENDIF and DO/WHILE/WEND/DWNZ lower into, writing
// directly into the current segment.
type Compiler struct {
	syms    *symtab.SymbolTable
	seg     *symtab.Segment
	fixups  *symtab.FixupTable
	segKind symtab.SegmentKind
	errs    *diag.ErrorList

	stack  []*block
	nextID int
}

// NewCompiler creates a Compiler emitting into seg.
func NewCompiler(syms *symtab.SymbolTable, seg *symtab.Segment, fixups *symtab.FixupTable, errs *diag.ErrorList) *Compiler {
	return &Compiler{syms: syms, seg: seg, fixups: fixups, segKind: seg.Kind, errs: errs, nextID: firstAutoID}
}

// ResetPass clears the auto-label counter and the open-block stack
// for a fresh pass. Blocks left open at end-of-pass are reported by the
// driver after the final pass only; starting clean keeps them from
// cascading into the next pass.
func (c *Compiler) ResetPass() {
	c.nextID = firstAutoID
	c.stack = nil
}

// OpenBlocks reports how many IF/DO blocks are still open, used by the
// assembler driver to report unclosed blocks at end-of-file.
func (c *Compiler) OpenBlocks() int { return len(c.stack) }

// SetSegment retargets emission at a CSEG/DSEG directive boundary.
func (c *Compiler) SetSegment(seg *symtab.Segment) {
	c.seg = seg
	c.segKind = seg.Kind
}

// openIfBlock opens an IfBlock and emits its entry jump. A bare IF
// (no condition token) compiles to an unconditional jump to elseId
// when its expression is the constant 0, or to no jump at all
// (straight fallthrough) when non-zero.
func (c *Compiler) openIfBlock(cond string, bare bool, bareIsZero bool) {
	b := &block{kind: ifBlock, elseID: c.newLabel(), endID: c.newLabel()}
	c.stack = append(c.stack, b)
	switch {
	case !bare:
		z80.EmitRelativeJump(c.seg, c.fixups, c.segKind, negateCond(cond), c.labelAddr(b.elseID))
	case bareIsZero:
		z80.EmitRelativeJump(c.seg, c.fixups, c.segKind, "", c.labelAddr(b.elseID))
	default:
		// non-zero bare IF: no jump, body always runs.
	}
}

func (c *Compiler) newLabel() int {
	id := c.nextID
	c.nextID++
	return id
}

func (c *Compiler) defineHere(id int) {
	c.syms.Define(id, symtab.NewSegment(c.segKind, c.seg.Offset()))
}

func (c *Compiler) labelAddr(id int) symtab.Address {
	if sym, ok := c.syms.Lookup(id); ok {
		return sym.Addr
	}
	return symtab.NewUndefined()
}

func negateCond(cond string) string {
	switch cond {
	case "NZ":
		return "Z"
	case "Z":
		return "NZ"
	case "NC":
		return "C"
	case "C":
		return "NC"
	case "PO":
		return "PE"
	case "PE":
		return "PO"
	case "P":
		return "M"
	case "M":
		return "P"
	default:
		return cond
	}
}

func (c *Compiler) err(kind diag.ErrorKind, pos diag.SourcePosition, msg string) {
	c.errs.Add(diag.New(pos, kind, msg))
}

// IF opens an IfBlock and emits the negated conditional jump to the
// new elseId.
func (c *Compiler) IF(pos diag.SourcePosition, cond string) {
	c.openIfBlock(cond, false, false)
}

// BareIF handles "IF" with no trailing condition token.
func (c *Compiler) BareIF(pos diag.SourcePosition, exprIsZero bool) {
	c.openIfBlock("", true, exprIsZero)
}

func (c *Compiler) topIf(pos diag.SourcePosition) *block {
	if len(c.stack) == 0 || c.stack[len(c.stack)-1].kind != ifBlock {
		c.err(diag.ErrNoOpenBlock, pos, "ELSE/ELSEIF/ENDIF without a matching IF")
		return nil
	}
	return c.stack[len(c.stack)-1]
}

// ELSE emits the unconditional jump past the else-branch and defines
// elseId at the current address.
func (c *Compiler) ELSE(pos diag.SourcePosition) {
	b := c.topIf(pos)
	if b == nil {
		return
	}
	if b.elseConsumed {
		c.err(diag.ErrMultipleElse, pos, "multiple ELSE for the same IF")
		return
	}
	z80.EmitRelativeJump(c.seg, c.fixups, c.segKind, "", c.labelAddr(b.endID))
	c.defineHere(b.elseID)
	b.elseConsumed = true
}

// ELSEIF behaves as ELSE followed by a new nested IF that reuses
// endId: the eventual ENDIF closes the whole chain.
// elseConsumed is deliberately left false across the whole chain, so
// ENDIF's "define elseId if still live" branch fires for however many
// ELSEIFs appear before the final ENDIF (or a trailing ELSE).
func (c *Compiler) ELSEIF(pos diag.SourcePosition, cond string) {
	b := c.topIf(pos)
	if b == nil {
		return
	}
	if b.elseConsumed {
		c.err(diag.ErrMultipleElse, pos, "multiple ELSE/ELSEIF for the same IF")
		return
	}
	z80.EmitRelativeJump(c.seg, c.fixups, c.segKind, "", c.labelAddr(b.endID))
	c.defineHere(b.elseID)
	b.elseID = c.newLabel()
	z80.EmitRelativeJump(c.seg, c.fixups, c.segKind, negateCond(cond), c.labelAddr(b.elseID))
}

// ENDIF defines elseId at the current address if no ELSE consumed it,
// always defines endId there (the target of ELSE's and every ELSEIF's
// jump past the rest of the chain), and pops the block.
func (c *Compiler) ENDIF(pos diag.SourcePosition) {
	b := c.topIf(pos)
	if b == nil {
		return
	}
	if !b.elseConsumed {
		c.defineHere(b.elseID)
	}
	c.defineHere(b.endID)
	c.stack = c.stack[:len(c.stack)-1]
}

// DO opens a WhileBlock, defining beginId at the current address.
func (c *Compiler) DO(pos diag.SourcePosition) {
	b := &block{kind: whileBlock, beginID: c.newLabel(), repeatID: c.newLabel(), endID: c.newLabel(), endLive: true}
	c.defineHere(b.beginID)
	c.stack = append(c.stack, b)
}

func (c *Compiler) topWhile(pos diag.SourcePosition) *block {
	if len(c.stack) == 0 || c.stack[len(c.stack)-1].kind != whileBlock {
		c.err(diag.ErrNoOpenBlock, pos, "WHILE/WEND/DWNZ without a matching DO")
		return nil
	}
	return c.stack[len(c.stack)-1]
}

// WHILE emits the loop-exit test. If repeatId already carries a
// defined address whose relative offset from here is at most 1, the
// body is empty (or holds only WEND's back-jump) and the exit test
// and back-edge collapse into one conditional jump: WHILE emits
// nothing at its own position, records the condition on the block,
// and WEND emits a conditional jump back to beginId after the body,
// erasing endId since no separate exit jump is needed.
func (c *Compiler) WHILE(pos diag.SourcePosition, cond string) {
	b := c.topWhile(pos)
	if b == nil {
		return
	}
	if b.hasWhile {
		c.err(diag.ErrWhileAndDwnz, pos, "multiple WHILE in the same DO block")
		return
	}
	b.hasWhile = true

	if sym, ok := c.syms.Lookup(b.repeatID); ok && sym.Addr.IsDefined() {
		offset, _ := z80.RelOffset(sym.Addr.Value, c.seg.Offset())
		if offset <= 1 {
			b.deferred = true
			b.deferredCond = cond
			b.endLive = false
			return
		}
	}
	z80.EmitRelativeJump(c.seg, c.fixups, c.segKind, negateCond(cond), c.labelAddr(b.endID))
}

// WEND closes a WhileBlock: if endId is still live, defines repeatId
// here, emits the unconditional back-edge, then defines endId here.
// If WHILE's optimization erased endId, WEND instead emits the
// collapsed conditional back-jump here, after the body.
func (c *Compiler) WEND(pos diag.SourcePosition) {
	b := c.topWhile(pos)
	if b == nil {
		return
	}
	if b.deferred {
		z80.EmitRelativeJump(c.seg, c.fixups, c.segKind, b.deferredCond, c.labelAddr(b.beginID))
	} else if b.endLive {
		c.defineHere(b.repeatID)
		z80.EmitRelativeJump(c.seg, c.fixups, c.segKind, "", c.labelAddr(b.beginID))
		c.defineHere(b.endID)
	}
	c.stack = c.stack[:len(c.stack)-1]
}

// DWNZ closes a WhileBlock with a DJNZ-based exit instead of WEND's
// conditional test: defines repeatId here and emits DJNZ beginId
// (falling back to DEC B; JP NZ,beginId out of range). It is an error
// to combine DWNZ with a WHILE already seen in the same block.
func (c *Compiler) DWNZ(pos diag.SourcePosition) {
	b := c.topWhile(pos)
	if b == nil {
		return
	}
	if b.hasWhile {
		c.err(diag.ErrWhileAndDwnz, pos, "WHILE and DWNZ cannot be used in the same syntax")
		return
	}
	c.defineHere(b.repeatID)
	z80.EmitRelativeDJNZ(c.seg, c.fixups, c.segKind, c.labelAddr(b.beginID))
	c.stack = c.stack[:len(c.stack)-1]
}
