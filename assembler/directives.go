package assembler

import (
	"github.com/lookbusy1344/z80asm/diag"
	"github.com/lookbusy1344/z80asm/symtab"
	"github.com/lookbusy1344/z80asm/token"
)

// runDirective handles the directive keywords. It
// returns false for any keyword that is not a directive, so the
// caller can fall through to the structured-flow and instruction
// dispatchers.
func runDirective(pc *passContext, pos diag.SourcePosition, name string) bool {
	switch name {
	case "INCLUDE":
		runInclude(pc)
	case "CSEG":
		pc.setSegment(symtab.Code)
	case "DSEG":
		pc.setSegment(symtab.Data)
	case "PUBLIC":
		forEachIdentifier(pc, func(id int) { pc.syms.MarkPublic(id) })
	case "EXTRN", "EXT":
		forEachIdentifier(pc, func(id int) { pc.syms.MarkExtern(id) })
	case "DEFB", "DB":
		runDefineBytes(pc)
	case "DEFW", "DW":
		runDefineWords(pc)
	case "DEFS", "DS":
		runReserve(pc)
	default:
		return false
	}
	return true
}

func runInclude(pc *passContext) {
	tok := pc.tr.Current()
	if tok.Kind != token.StringValue {
		pc.errs.Add(diag.New(tok.Pos, diag.ErrSyntax, "INCLUDE requires a quoted filename"))
		return
	}
	path := pc.tz.Strings.Name(tok.Value)
	// The file is pushed before moving past the filename token: the
	// tokenizer holds one character of lookahead, so advancing first
	// would take the next line's first character from this file. The
	// included text starts at the character after the closing quote,
	// so the filename has to be the last thing on the line.
	if err := pc.src.Include(path); err != nil {
		if ae, ok := err.(*diag.Error); ok {
			pc.errs.Add(ae)
		}
	}
	pc.tr.Advance()
}

func forEachIdentifier(pc *passContext, fn func(id int)) {
	for {
		id, ok := pc.tr.ExpectIdentifier()
		if !ok {
			return
		}
		fn(id)
		if !pc.tr.AcceptOperator(',') {
			return
		}
	}
}

func runDefineBytes(pc *passContext) {
	for {
		tok := pc.tr.Current()
		if tok.Kind == token.StringValue {
			s := pc.tz.Strings.Name(tok.Value)
			pc.tr.Advance()
			for i := 0; i < len(s); i++ {
				pc.curSeg.EmitByte(s[i])
			}
		} else {
			v := pc.ev.Evaluate()
			emitByteOperand(pc, v)
		}
		if !pc.tr.AcceptOperator(',') {
			return
		}
	}
}

func emitByteOperand(pc *passContext, v symtab.Address) {
	if v.IsRelocatable() && v.Part != symtab.PartNone {
		off := pc.curSeg.EmitByte(0)
		if usage, ok := symtab.NewUsage(pc.curSegKind, off, symtab.Width1, v); ok {
			pc.fixups.Add(usage)
		}
		return
	}
	if v.IsRelocatable() {
		pc.errs.Add(diag.New(pc.tr.Current().Pos, diag.ErrAddressUsage, "relocatable value used where a byte constant is required"))
	}
	if v.Tag == symtab.ConstAddr && (v.Value < -128 || v.Value > 255) {
		pc.errs.Add(diag.Newf(pc.tr.Current().Pos, diag.ErrOutOfRange, "value %d out of byte range", v.Value))
	}
	pc.curSeg.EmitByte(byte(v.Value))
}

func runDefineWords(pc *passContext) {
	for {
		v := pc.ev.Evaluate()
		emitRelocWord(pc, v)
		if !pc.tr.AcceptOperator(',') {
			return
		}
	}
}

func emitRelocWord(pc *passContext, addr symtab.Address) {
	off := pc.curSeg.EmitWord(addr.Value)
	if usage, ok := symtab.NewUsage(pc.curSegKind, off, symtab.Width2, addr); ok {
		pc.fixups.Add(usage)
	}
}

func runReserve(pc *passContext) {
	n := pc.ev.Evaluate()
	if n.Tag != symtab.ConstAddr || n.Value < 0 {
		pc.errs.Add(diag.New(pc.tr.Current().Pos, diag.ErrOutOfRange, "DEFS/DS count must be a non-negative constant"))
		return
	}
	pc.curSeg.Reserve(n.Value)
}
