package assembler

import (
	"github.com/lookbusy1344/z80asm/diag"
	"github.com/lookbusy1344/z80asm/source"
	"github.com/lookbusy1344/z80asm/symtab"
)

// Options configures a run of Assemble, sourced from config.Config's
// [assembler] section.
type Options struct {
	MaxErrorCount int
	MaxPasses     int
}

// DefaultOptions mirrors config.Config's built-in defaults.
func DefaultOptions() Options {
	return Options{MaxErrorCount: diag.MaxErrorCount, MaxPasses: 10}
}

// Result is everything a successful (or failed) run produced.
type Result struct {
	Code    *symtab.Segment
	Data    *symtab.Segment
	Symbols *symtab.SymbolTable
	Fixups  []symtab.AddressUsage
	Listing *Listing
	Errors  *diag.ErrorList
	Passes  int

	// Idents resolves the interned identifier ids carried by Symbols
	// and Fixups back to their source spelling, for the object writer's
	// id table.
	Idents *source.StringTable
}

// Assemble runs the two-pass fixpoint loop over path, opened through
// opener, until symbol addresses stop moving and no errors appear, or
// until opts.MaxPasses is reached. The final pass also builds the
// listing.
func Assemble(path string, opener source.Opener, opts Options) (*Result, error) {
	if opts.MaxPasses <= 0 {
		opts.MaxPasses = 10
	}
	if opts.MaxErrorCount <= 0 {
		opts.MaxErrorCount = diag.MaxErrorCount
	}

	syms := symtab.NewSymbolTable()

	var pc *passContext
	passCount := 0
	for pass := 1; pass <= opts.MaxPasses; pass++ {
		passCount = pass
		syms.StartPass()

		src := source.NewSourceReader(opener, nil)
		if err := src.Open(path); err != nil {
			return nil, err
		}

		pc = newPassContext(src, syms, false, opts.MaxErrorCount)
		pc.flow.ResetPass()
		runStatements(pc)

		converged := !syms.AnyChangedThisPass() && !pc.errs.HasErrors()
		if converged || pass == opts.MaxPasses {
			break
		}
	}

	// Final pass: re-run once more with finalPass=true so undefined
	// symbols and address-usage violations are actually reported (the
	// earlier passes stay quiet about them so forward references do not
	// spuriously error), and with a Listing attached.
	syms.StartPass()
	listing := NewListing()
	src := source.NewSourceReader(opener, listing)
	if err := src.Open(path); err != nil {
		return nil, err
	}
	pc = newPassContext(src, syms, true, opts.MaxErrorCount)
	pc.listing = listing
	pc.flow.ResetPass()
	runStatements(pc)

	eofPos := diag.SourcePosition{File: path}
	for _, id := range syms.Undefined() {
		name := pc.tz.Idents.Name(id)
		pc.errs.Add(diag.Newf(eofPos, diag.ErrUndefinedIdentifier, "identifier %q is never defined", name))
	}
	if pc.flow.OpenBlocks() > 0 {
		pc.errs.Add(diag.New(eofPos, diag.ErrNoOpenBlock, "unclosed IF/DO block at end of file"))
	}

	return &Result{
		Code:    pc.code,
		Data:    pc.data,
		Symbols: syms,
		Fixups:  pc.fixups.Entries(),
		Listing: listing,
		Errors:  pc.errs,
		Passes:  passCount + 1,
		Idents:  pc.tz.Idents,
	}, nil
}
