package z80

import (
	"github.com/lookbusy1344/z80asm/diag"
	"github.com/lookbusy1344/z80asm/symtab"
	"github.com/lookbusy1344/z80asm/token"
)

// OperandKind discriminates the operand shapes the emitter's families
// recognize. Kept as a closed tagged union rather than an interface
// hierarchy, matching symtab.Address.
type OperandKind int

const (
	OpNone OperandKind = iota
	OpReg8
	OpRegPair
	OpIndexReg   // IX or IY used as a 16-bit value, not a memory form
	OpCondition
	OpMemHL      // (HL)
	OpMemBC      // (BC)
	OpMemDE      // (DE)
	OpMemSP      // (SP) -- only valid as EX's first operand
	OpMemC       // (C) -- the IN/OUT port-indirect form
	OpMemIndexed // (IX+d) or (IY+d)
	OpMemImm     // (nn)
	OpExpr       // a bare expression: immediate, or a register-pair/IX/IY target selected by context
)

// Operand is the parsed form of one instruction argument.
type Operand struct {
	Kind  OperandKind
	Name  string       // register/pair/condition/index-register spelling
	Disp  symtab.Address // displacement for OpMemIndexed
	Addr  symtab.Address // value for OpMemImm / OpExpr
}

func keywordName(tok token.Token) (string, bool) {
	if tok.Kind != token.ReservedWord || tok.Value < token.FirstKeywordID {
		return "", false
	}
	return token.KeywordName(tok.Value)
}

// parseOperand consumes and classifies one operand. ev is used for any
// expression content (displacement, immediate, memory address).
func parseOperand(tr *token.TokenReader, ev evaluator) Operand {
	tok := tr.Current()

	if tok.IsOperator('(') {
		return parseMemOperand(tr, ev)
	}

	if name, ok := keywordName(tok); ok {
		switch name {
		case "IX", "IY":
			tr.Advance()
			return Operand{Kind: OpIndexReg, Name: name}
		}
		// C doubles as a register and a condition. The register reading
		// wins here; condition-consuming families (JP/JR/CALL/RET)
		// reinterpret an OpReg8 named C through condOperand.
		if regIndex(name) >= 0 || name == "I" || name == "R" {
			tr.Advance()
			return Operand{Kind: OpReg8, Name: name}
		}
		if pairIndex(name) >= 0 || name == "AF" || name == "AF'" {
			tr.Advance()
			return Operand{Kind: OpRegPair, Name: name}
		}
		switch name {
		case "NZ", "Z", "NC", "PO", "PE", "P", "M":
			tr.Advance()
			return Operand{Kind: OpCondition, Name: name}
		}
	}

	addr := ev.Evaluate()
	return Operand{Kind: OpExpr, Addr: addr}
}

// parseMemOperand handles every "(...)" operand shape: a bare register
// pair ((HL),(BC),(DE)), an indexed form ((IX+d),(IY+d)), or a plain
// address expression ((nn)).
func parseMemOperand(tr *token.TokenReader, ev evaluator) Operand {
	next := tr.Peek()
	if name, ok := keywordName(next); ok {
		switch name {
		case "HL":
			tr.Advance() // (
			tr.Advance() // HL
			expectClose(tr)
			return Operand{Kind: OpMemHL}
		case "BC":
			tr.Advance()
			tr.Advance()
			expectClose(tr)
			return Operand{Kind: OpMemBC}
		case "DE":
			tr.Advance()
			tr.Advance()
			expectClose(tr)
			return Operand{Kind: OpMemDE}
		case "SP":
			tr.Advance()
			tr.Advance()
			expectClose(tr)
			return Operand{Kind: OpMemSP}
		case "C":
			tr.Advance()
			tr.Advance()
			expectClose(tr)
			return Operand{Kind: OpMemC}
		case "IX", "IY":
			tr.Advance() // (
			tr.Advance() // IX/IY
			disp := symtab.NewConst(0)
			if tr.AcceptOperator('+') {
				disp = ev.Evaluate()
			} else if tr.AcceptOperator('-') {
				d := ev.Evaluate()
				disp = d.Add(0)
				disp.Value = -disp.Value
			}
			expectClose(tr)
			return Operand{Kind: OpMemIndexed, Name: name, Disp: disp}
		}
	}
	// (expr) — the expression evaluator's own factor() consumes the
	// parentheses and tags the result Parenthesized.
	addr := ev.Evaluate()
	return Operand{Kind: OpMemImm, Addr: addr}
}

// condOperand reports op as a condition-code operand. The register
// reading of C wins in parseOperand, so condition-consuming callers
// accept OpReg8 C here as the carry condition.
func condOperand(op Operand) (string, bool) {
	if op.Kind == OpCondition {
		return op.Name, true
	}
	if op.Kind == OpReg8 && op.Name == "C" {
		return "C", true
	}
	return "", false
}

func expectClose(tr *token.TokenReader) {
	if !tr.AcceptOperator(')') {
		tr.Errors().Add(diag.New(tr.Current().Pos, diag.ErrSyntax, "expected ')'"))
	}
}

// evaluator is the slice of expr.Evaluator this package depends on,
// kept as a local interface so z80asm does not import expr directly
// (expr already imports token and symtab; z80asm stays a sibling, not
// a consumer, of expr — the assembler driver wires the concrete
// *expr.Evaluator in).
type evaluator interface {
	Evaluate() symtab.Address
}
