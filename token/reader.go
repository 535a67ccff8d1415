package token

import "github.com/lookbusy1344/z80asm/diag"

// TokenReader wraps a Tokenizer with one-token lookahead and routes
// syntax diagnostics through a shared diag.ErrorList, so the same
// source position never reports more than one error even when several
// Expect calls fail while recovering from the same bad statement.
type TokenReader struct {
	tz   *Tokenizer
	errs *diag.ErrorList

	cur     Token
	curSet  bool
	pending Token
	hasPending bool
}

// NewTokenReader creates a reader over tz, reporting syntax errors into
// errs.
func NewTokenReader(tz *Tokenizer, errs *diag.ErrorList) *TokenReader {
	tz.errs = errs
	return &TokenReader{tz: tz, errs: errs}
}

// Current returns the token at the read cursor without consuming it.
func (r *TokenReader) Current() Token {
	if !r.curSet {
		r.cur = r.tz.Next()
		r.curSet = true
	}
	return r.cur
}

// Peek looks one token past Current without consuming either.
func (r *TokenReader) Peek() Token {
	r.Current()
	if !r.hasPending {
		r.pending = r.tz.Next()
		r.hasPending = true
	}
	return r.pending
}

// Advance consumes Current and returns it.
func (r *TokenReader) Advance() Token {
	tok := r.Current()
	if r.hasPending {
		r.cur = r.pending
		r.hasPending = false
	} else {
		r.cur = r.tz.Next()
	}
	return tok
}

// AcceptReservedWord consumes Current if it is the reserved word kw,
// reporting true on success.
func (r *TokenReader) AcceptReservedWord(kw string) bool {
	if r.Current().Is(kw) {
		r.Advance()
		return true
	}
	return false
}

// AcceptOperator consumes Current if it is the single-character
// operator ch.
func (r *TokenReader) AcceptOperator(ch byte) bool {
	if r.Current().IsOperator(ch) {
		r.Advance()
		return true
	}
	return false
}

// ExpectReservedWord consumes Current if it is kw; otherwise it records
// diag.ErrMissingKeyword at the current position and leaves the cursor
// unmoved so the caller's statement-recovery loop can resynchronize.
func (r *TokenReader) ExpectReservedWord(kw string) bool {
	if r.AcceptReservedWord(kw) {
		return true
	}
	r.errs.Add(diag.Newf(r.Current().Pos, diag.ErrMissingKeyword,
		"expected %q", kw))
	return false
}

// ExpectIdentifier consumes and returns Current's interned id if it is
// an Identifier token; otherwise records diag.ErrMissingIdentifier.
func (r *TokenReader) ExpectIdentifier() (int, bool) {
	tok := r.Current()
	if tok.Kind != Identifier {
		r.errs.Add(diag.New(tok.Pos, diag.ErrMissingIdentifier, "expected identifier"))
		return 0, false
	}
	r.Advance()
	return tok.Value, true
}

// SkipToNewline consumes tokens up to and including the next newline
// or end-of-input, used to resynchronize after a malformed statement.
func (r *TokenReader) SkipToNewline() {
	for {
		tok := r.Current()
		if tok.IsNewline() || tok.IsEOF() {
			if tok.IsNewline() {
				r.Advance()
			}
			return
		}
		r.Advance()
	}
}

// Errors returns the shared error list this reader reports into.
func (r *TokenReader) Errors() *diag.ErrorList { return r.errs }
