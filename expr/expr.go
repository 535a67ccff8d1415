// Package expr implements the six-level recursive-descent expression
// evaluator, evaluating directly to symtab.Address values rather than
// building an intermediate AST.
package expr

import (
	"github.com/lookbusy1344/z80asm/diag"
	"github.com/lookbusy1344/z80asm/source"
	"github.com/lookbusy1344/z80asm/symtab"
	"github.com/lookbusy1344/z80asm/token"
)

// Evaluator walks a TokenReader's stream, resolving identifiers
// against a SymbolTable and reporting failures through the reader's
// shared diag.ErrorList.
type Evaluator struct {
	tr      *token.TokenReader
	syms    *symtab.SymbolTable
	strings *source.StringTable

	// finalPass demotes an address-usage violation (non-const where
	// const is required) to a silent zero until undefined-symbol
	// resolution is expected to be final, so forward references do not
	// spuriously error on early passes.
	finalPass bool
}

// NewEvaluator creates an Evaluator reading from tr and resolving
// identifiers in syms. strings is the same StringTable the owning
// Tokenizer interns string literals into, needed to recover a literal's
// first character for the char-constant factor form.
func NewEvaluator(tr *token.TokenReader, syms *symtab.SymbolTable, strings *source.StringTable) *Evaluator {
	return &Evaluator{tr: tr, syms: syms, strings: strings}
}

// SetFinalPass toggles whether address-usage violations are reported
// (true) or tolerated as a provisional zero (false), matching the
// two-pass driver's need to stay quiet about not-yet-resolved symbols
// until the last pass.
func (e *Evaluator) SetFinalPass(final bool) { e.finalPass = final }

// binOpLevel is one entry in the operator-precedence ladder: the set
// of tokens recognized at this level. Kept as data, one table per
// level, rather than one hand-written recursive function per
// precedence tier, so adding an operator is a table edit.
type binOpLevel struct {
	match func(tok token.Token) (op string, ok bool)
}

func wordOp(name string) func(token.Token) (string, bool) {
	return func(tok token.Token) (string, bool) {
		if tok.Is(name) {
			return name, true
		}
		return "", false
	}
}

func charOp(ch byte, name string) func(token.Token) (string, bool) {
	return func(tok token.Token) (string, bool) {
		if tok.IsOperator(ch) {
			return name, true
		}
		return "", false
	}
}

func anyOf(matchers ...func(token.Token) (string, bool)) func(token.Token) (string, bool) {
	return func(tok token.Token) (string, bool) {
		for _, m := range matchers {
			if op, ok := m(tok); ok {
				return op, true
			}
		}
		return "", false
	}
}

var levels = []binOpLevel{
	{ // level 0: OR XOR
		match: anyOf(wordOp("OR"), wordOp("XOR")),
	},
	{ // level 1: AND
		match: wordOp("AND"),
	},
	{ // level 2: SHL SHR
		match: anyOf(wordOp("SHL"), wordOp("SHR")),
	},
	{ // level 3: + -
		match: anyOf(charOp('+', "+"), charOp('-', "-")),
	},
	{ // level 4: * / MOD
		match: anyOf(charOp('*', "*"), charOp('/', "/"), wordOp("MOD")),
	},
}

// Evaluate parses and computes one expression starting at the
// reader's current token.
func (e *Evaluator) Evaluate() symtab.Address {
	return e.level(0)
}

func (e *Evaluator) level(n int) symtab.Address {
	if n >= len(levels) {
		return e.unary()
	}
	left := e.level(n + 1)
	for {
		tok := e.tr.Current()
		op, ok := levels[n].match(tok)
		if !ok {
			return left
		}
		pos := tok.Pos
		e.tr.Advance()
		right := e.level(n + 1)
		left = e.applyBinary(pos, op, left, right)
	}
}

// applyBinary implements the Address semantics shared by every binary
// operator: the right operand must be Const, and the left may be
// relocatable only under +/-. LOW/HIGH
// selection on a relocatable is applied in the unary level and
// recorded in the operand's Part, so a relocatable operand reaching
// +/- here may be a byte-selected one.
func (e *Evaluator) applyBinary(pos diag.SourcePosition, op string, left, right symtab.Address) symtab.Address {
	if !left.IsDefined() || !right.IsDefined() {
		return symtab.NewUndefined()
	}

	additive := op == "+" || op == "-"

	if right.Tag != symtab.ConstAddr {
		e.reportAddressUsage(pos)
		return symtab.NewConst(0)
	}
	if left.Tag != symtab.ConstAddr && !(additive && left.IsRelocatable()) {
		e.reportAddressUsage(pos)
		return symtab.NewConst(0)
	}

	lv, rv := left.Value, right.Value
	var result int
	switch op {
	case "OR":
		result = lv | rv
	case "XOR":
		result = lv ^ rv
	case "AND":
		result = lv & rv
	case "SHL":
		result = lv << uint(rv)
	case "SHR":
		result = lv >> uint(rv)
	case "+":
		result = lv + rv
	case "-":
		result = lv - rv
	case "*":
		result = lv * rv
	case "/":
		if rv == 0 {
			e.reportAddressUsage(pos)
			return symtab.NewConst(0)
		}
		result = lv / rv
	case "MOD":
		if rv == 0 {
			e.reportAddressUsage(pos)
			return symtab.NewConst(0)
		}
		result = lv % rv
	}

	if additive && left.IsRelocatable() {
		out := left
		out.Value = result
		out.Parenthesized = false
		return out
	}
	return symtab.NewConst(result)
}

func (e *Evaluator) reportAddressUsage(pos diag.SourcePosition) {
	if !e.finalPass {
		return
	}
	e.tr.Errors().Add(diag.New(pos, diag.ErrAddressUsage,
		"relocatable value used where a constant is required"))
}

// unary implements level 5: prefix +, -, NOT, LOW, HIGH.
func (e *Evaluator) unary() symtab.Address {
	tok := e.tr.Current()
	switch {
	case tok.IsOperator('+'):
		e.tr.Advance()
		return e.unary()
	case tok.IsOperator('-'):
		e.tr.Advance()
		v := e.unary()
		if !v.IsDefined() {
			return v
		}
		if v.IsRelocatable() {
			e.reportAddressUsage(tok.Pos)
			return symtab.NewConst(0)
		}
		return symtab.NewConst(-v.Value)
	case tok.Is("NOT"):
		e.tr.Advance()
		v := e.unary()
		if !v.IsDefined() {
			return v
		}
		if v.IsRelocatable() {
			e.reportAddressUsage(tok.Pos)
			return symtab.NewConst(0)
		}
		return symtab.NewConst(^v.Value)
	case tok.Is("LOW"):
		e.tr.Advance()
		v := e.unary()
		if !v.IsDefined() {
			return v
		}
		return v.Low()
	case tok.Is("HIGH"):
		e.tr.Advance()
		v := e.unary()
		if !v.IsDefined() {
			return v
		}
		return v.High()
	default:
		return e.factor()
	}
}

// factor implements level 6: literal, identifier, char constant, or a
// parenthesized subexpression.
func (e *Evaluator) factor() symtab.Address {
	tok := e.tr.Current()
	switch {
	case tok.Kind == token.NumericValue:
		e.tr.Advance()
		return symtab.NewConst(tok.Value)

	case tok.Kind == token.Identifier:
		e.tr.Advance()
		return e.syms.Reference(tok.Value).Addr

	case tok.Kind == token.StringValue:
		e.tr.Advance()
		// A string literal used in expression context contributes the
		// numeric value of its first character only.
		s := e.strings.Name(tok.Value)
		if len(s) == 0 {
			return symtab.NewConst(0)
		}
		return symtab.NewConst(int(s[0]))

	case tok.IsOperator('('):
		e.tr.Advance()
		v := e.level(0)
		if !e.tr.AcceptOperator(')') {
			e.tr.Errors().Add(diag.New(e.tr.Current().Pos, diag.ErrSyntax, "expected ')'"))
		}
		if v.IsDefined() {
			v = v.WithParens()
		}
		return v

	default:
		e.tr.Errors().Add(diag.New(tok.Pos, diag.ErrSyntax, "expected expression operand"))
		return symtab.NewConst(0)
	}
}
