// Package assembler is the driver: the two-pass fixpoint loop,
// directive dispatch, statement framing and listing emission.
package assembler

import (
	"github.com/lookbusy1344/z80asm/diag"
	"github.com/lookbusy1344/z80asm/expr"
	"github.com/lookbusy1344/z80asm/flow"
	"github.com/lookbusy1344/z80asm/source"
	"github.com/lookbusy1344/z80asm/symtab"
	"github.com/lookbusy1344/z80asm/token"
	z80 "github.com/lookbusy1344/z80asm/z80asm"
)

// passContext bundles everything a single pass needs; it is rebuilt
// from scratch at the start of every pass except for the two fields
// that persist across passes (symbols and, indirectly through it,
// the segments' final byte count from the previous pass).
type passContext struct {
	src  *source.SourceReader
	tz   *token.Tokenizer
	tr   *token.TokenReader
	ev   *expr.Evaluator
	flow *flow.Compiler

	syms   *symtab.SymbolTable
	code   *symtab.Segment
	data   *symtab.Segment
	fixups *symtab.FixupTable
	errs   *diag.ErrorList

	curSeg     *symtab.Segment
	curSegKind symtab.SegmentKind

	finalPass bool
	listing   *Listing
}

func newPassContext(src *source.SourceReader, syms *symtab.SymbolTable, finalPass bool, maxErrorCount int) *passContext {
	errs := diag.NewErrorList()
	errs.SetCap(maxErrorCount)
	tz := token.NewTokenizer(src)
	tr := token.NewTokenReader(tz, errs)
	ev := expr.NewEvaluator(tr, syms, tz.Strings)
	ev.SetFinalPass(finalPass)

	code := symtab.NewSegmentBuffer(symtab.Code)
	data := symtab.NewSegmentBuffer(symtab.Data)
	fixups := symtab.NewFixupTable()
	flowC := flow.NewCompiler(syms, code, fixups, errs)

	return &passContext{
		src: src, tz: tz, tr: tr, ev: ev, flow: flowC,
		syms: syms, code: code, data: data, fixups: fixups, errs: errs,
		curSeg: code, curSegKind: symtab.Code,
		finalPass: finalPass,
	}
}

func (pc *passContext) setSegment(kind symtab.SegmentKind) {
	if kind == symtab.Data {
		pc.curSeg = pc.data
	} else {
		pc.curSeg = pc.code
	}
	pc.curSegKind = kind
	pc.flow.SetSegment(pc.curSeg)
}

func (pc *passContext) newEmitter() *z80.Emitter {
	return z80.NewEmitter(pc.tr, pc.ev, pc.curSeg, pc.fixups)
}
