// Package flow lowers the structured-flow keywords (IF/ELSE/ELSEIF/
// ENDIF, DO/WHILE/WEND/DWNZ) into conditional and unconditional
// jumps. It reuses the z80asm package's fallback-aware jump
// emission so a synthesized jump gets the same short-form-if-it-fits
// treatment as a hand-written JR/DJNZ.
package flow

// blockKind discriminates the two shapes a Block can take. Kept as a
// tagged union rather than an interface, matching symtab.Address
// and z80asm.Operand.
type blockKind int

const (
	ifBlock blockKind = iota
	whileBlock
)

// block is one entry of the compiler's open-block stack.
type block struct {
	kind blockKind

	// IfBlock fields.
	elseID        int
	endID         int
	elseConsumed  bool

	// WhileBlock fields.
	beginID  int
	repeatID int
	hasWhile bool
	endLive  bool

	// deferred marks that WHILE's short-back-edge optimization fired:
	// WHILE emitted nothing at its own position, and WEND emits the
	// conditional back-jump (deferredCond) after the body instead of
	// its usual unconditional one.
	deferred     bool
	deferredCond string
}
