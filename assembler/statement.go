package assembler

import (
	"github.com/lookbusy1344/z80asm/diag"
	"github.com/lookbusy1344/z80asm/symtab"
	"github.com/lookbusy1344/z80asm/token"
)

// runStatements drives pc's TokenReader to end-of-input, dispatching
// each statement to (label definition | directive | instruction).
func runStatements(pc *passContext) {
	for {
		if pc.errs.AtCap() {
			return
		}
		tok := pc.tr.Current()
		if tok.IsEOF() {
			return
		}
		if tok.IsNewline() {
			pc.tr.Advance()
			continue
		}
		if pc.listing != nil {
			pc.listing.SetDepth(pc.flow.OpenBlocks())
			before := pc.curSeg
			beforeOff := before.Offset()
			runStatement(pc)
			pc.listing.RecordBytes(beforeOff, before.Bytes[beforeOff:])
			continue
		}
		runStatement(pc)
	}
}

func runStatement(pc *passContext) {
	tok := pc.tr.Current()

	if tok.Kind == token.Identifier {
		nameID := tok.Value
		pos := tok.Pos
		pc.tr.Advance()

		if pc.tr.AcceptReservedWord("EQU") {
			val := pc.ev.Evaluate()
			res := pc.syms.Define(nameID, val)
			if res.Redefined {
				pc.errs.Add(diag.New(pos, diag.ErrMultipleDefinition, "symbol defined twice in this pass"))
			}
			finishStatement(pc)
			return
		}

		pc.tr.AcceptOperator(':')
		res := pc.syms.Define(nameID, symtab.NewSegment(pc.curSegKind, pc.curSeg.Offset()))
		if res.Redefined {
			pc.errs.Add(diag.New(pos, diag.ErrMultipleDefinition, "symbol defined twice in this pass"))
		}

		if pc.tr.Current().IsNewline() || pc.tr.Current().IsEOF() {
			pc.tr.Advance()
			return
		}
		runMnemonicOrDirective(pc)
		return
	}

	if name, ok := keywordName(tok); ok {
		pc.tr.Advance()
		dispatchKeyword(pc, tok.Pos, name)
		finishStatement(pc)
		return
	}

	pc.errs.Add(diag.New(tok.Pos, diag.ErrSyntax, "expected label, directive or instruction"))
	pc.tr.SkipToNewline()
}

func runMnemonicOrDirective(pc *passContext) {
	tok := pc.tr.Current()
	name, ok := keywordName(tok)
	if !ok {
		pc.errs.Add(diag.New(tok.Pos, diag.ErrSyntax, "expected instruction or directive"))
		pc.tr.SkipToNewline()
		return
	}
	pc.tr.Advance()
	dispatchKeyword(pc, tok.Pos, name)
	finishStatement(pc)
}

func dispatchKeyword(pc *passContext, pos diag.SourcePosition, name string) {
	if runDirective(pc, pos, name) {
		return
	}
	if runFlowKeyword(pc, pos, name) {
		return
	}
	if pc.newEmitter().Emit(name) {
		return
	}
	pc.errs.Add(diag.New(pos, diag.ErrSyntax, "unrecognized instruction or directive: "+name))
}

func finishStatement(pc *passContext) {
	tok := pc.tr.Current()
	if tok.IsNewline() {
		pc.tr.Advance()
		return
	}
	if tok.IsEOF() {
		return
	}
	pc.errs.Add(diag.New(tok.Pos, diag.ErrSyntax, "unexpected trailing tokens"))
	pc.tr.SkipToNewline()
}

func keywordName(tok token.Token) (string, bool) {
	if tok.Kind != token.ReservedWord || tok.Value < token.FirstKeywordID {
		return "", false
	}
	return token.KeywordName(tok.Value)
}

// parseCondition reads the condition keyword immediately following
// IF/WHILE/ELSEIF. An absent condition is the bare-IF/WHILE edge
// case: the expression is evaluated instead, and the caller decides
// unconditional-skip vs. fallthrough from whether it is zero.
func parseCondition(pc *passContext) (cond string, bare bool, bareZero bool) {
	tok := pc.tr.Current()
	if name, ok := keywordName(tok); ok {
		switch name {
		case "NZ", "Z", "NC", "C", "PO", "PE", "P", "M":
			pc.tr.Advance()
			return name, false, false
		}
	}
	v := pc.ev.Evaluate()
	return "", true, v.Tag == symtab.ConstAddr && v.Value == 0
}

func runFlowKeyword(pc *passContext, pos diag.SourcePosition, name string) bool {
	switch name {
	case "IF":
		cond, bare, bareZero := parseCondition(pc)
		if bare {
			pc.flow.BareIF(pos, bareZero)
		} else {
			pc.flow.IF(pos, cond)
		}
	case "ELSE":
		pc.flow.ELSE(pos)
	case "ELSEIF":
		cond, _, _ := parseCondition(pc)
		pc.flow.ELSEIF(pos, cond)
	case "ENDIF":
		pc.flow.ENDIF(pos)
	case "DO":
		pc.flow.DO(pos)
	case "WHILE":
		cond, _, _ := parseCondition(pc)
		pc.flow.WHILE(pos, cond)
	case "WEND":
		pc.flow.WEND(pos)
	case "DWNZ":
		pc.flow.DWNZ(pos)
	default:
		return false
	}
	return true
}
