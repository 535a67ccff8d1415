package token

import (
	"strconv"
	"strings"

	"github.com/lookbusy1344/z80asm/diag"
	"github.com/lookbusy1344/z80asm/source"
)

func isIdentStart(ch byte) bool {
	return ch == '_' || ch == '$' || ch == '?' || ch == '@' ||
		(ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z')
}

func isIdentCont(ch byte) bool {
	return isIdentStart(ch) || ch == '\'' || (ch >= '0' && ch <= '9')
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'A' && ch <= 'F') || (ch >= 'a' && ch <= 'f')
}

// Tokenizer turns a character stream from a source.SourceReader into a
// sequence of Tokens. Identifiers and string literals are interned
// into two separate tables.
type Tokenizer struct {
	src   *source.SourceReader
	Idents *source.StringTable
	Strings *source.StringTable

	ch    byte
	chPos diag.SourcePosition

	// peek buffers a single lookahead character; peekChar never
	// consumes the cursor, so no pushback stack is needed.
	bufCh    byte
	bufPos   diag.SourcePosition
	bufValid bool

	// errs is set by NewTokenReader once the shared ErrorList exists, so
	// the tokenizer itself can report a malformed numeric literal as a
	// syntax error rather than silently substituting 0.
	errs *diag.ErrorList
}

// NewTokenizer creates a Tokenizer reading from src. The caller must
// already have pushed the top-level file onto src via src.Open.
func NewTokenizer(src *source.SourceReader) *Tokenizer {
	t := &Tokenizer{
		src:     src,
		Idents:  source.NewStringTable(),
		Strings: source.NewStringTable(),
	}
	t.advance()
	return t
}

// rawNext returns the next raw character, splicing across INCLUDE
// boundaries: a '\0' from source.SourceReader.GetChar means the
// innermost file just ended, not that input is exhausted, unless
// src.Done() confirms every file has been popped (see
// source.SourceReader's Done doc comment).
func (t *Tokenizer) rawNext() byte {
	for {
		ch := t.src.GetChar()
		if ch == 0 && !t.src.Done() {
			continue
		}
		return ch
	}
}

func (t *Tokenizer) advance() {
	if t.bufValid {
		t.ch = t.bufCh
		t.chPos = t.bufPos
		t.bufValid = false
		return
	}
	t.chPos = t.src.Position()
	t.ch = t.rawNext()
}

// peekChar looks one character past the current one without consuming
// it.
func (t *Tokenizer) peekChar() byte {
	if !t.bufValid {
		t.bufPos = t.src.Position()
		t.bufCh = t.rawNext()
		t.bufValid = true
	}
	return t.bufCh
}

func isSpace(ch byte) bool { return ch == ' ' || ch == '\t' }

// Next scans and returns the next Token. Comments (';' to end of line)
// are skipped; '\n' is itself returned as a ReservedWord statement
// terminator, matching assembler grammars where newline ends a
// statement the way ';' ends one in C-family languages.
func (t *Tokenizer) Next() Token {
	for isSpace(t.ch) {
		t.advance()
	}
	if t.ch == ';' {
		for t.ch != '\n' && t.ch != 0 {
			t.advance()
		}
	}

	pos := t.chPos

	switch {
	case t.ch == 0:
		return Token{Pos: pos, Kind: ReservedWord, Value: 0}

	case t.ch == '\n' || t.ch == '|':
		// '|' is an in-line statement separator equivalent to
		// end-of-line.
		t.advance()
		return Token{Pos: pos, Kind: ReservedWord, Value: '\n'}

	case t.ch == '\'' || t.ch == '"':
		return t.scanString(pos)

	case isDigit(t.ch):
		return t.scanNumber(pos)

	case isIdentStart(t.ch):
		return t.scanIdentOrKeyword(pos)

	default:
		return t.scanOperator(pos)
	}
}

func (t *Tokenizer) scanString(pos diag.SourcePosition) Token {
	quote := t.ch
	t.advance()
	var sb strings.Builder
	for t.ch != quote && t.ch != '\n' && t.ch != 0 {
		sb.WriteByte(t.ch)
		t.advance()
	}
	if t.ch == quote {
		t.advance()
	}
	id := t.Strings.Intern(sb.String())
	return Token{Pos: pos, Kind: StringValue, Value: id}
}

// scanNumber reads a run of hex-digit characters (0-9, A-F). If the run
// is immediately followed by H or h (with no intervening space), it is
// parsed as hexadecimal, per the 0-9A-FH hex-literal convention (a
// leading digit disambiguates a hex literal from an identifier starting
// with a letter); otherwise it is parsed as decimal.
func (t *Tokenizer) scanNumber(pos diag.SourcePosition) Token {
	var sb strings.Builder
	for isHexDigit(t.ch) {
		sb.WriteByte(t.ch)
		t.advance()
	}
	if t.ch == 'H' || t.ch == 'h' {
		t.advance()
		v, _ := strconv.ParseInt(sb.String(), 16, 64)
		return Token{Pos: pos, Kind: NumericValue, Value: int(v)}
	}
	v, err := strconv.ParseInt(sb.String(), 10, 64)
	if err != nil {
		// Hex digits (A-F) appeared without a trailing H: not a valid
		// decimal literal.
		if t.errs != nil {
			t.errs.Add(diag.Newf(pos, diag.ErrSyntax, "invalid numeric literal %q", sb.String()))
		}
		v = 0
	}
	return Token{Pos: pos, Kind: NumericValue, Value: int(v)}
}

func (t *Tokenizer) scanIdentOrKeyword(pos diag.SourcePosition) Token {
	var sb strings.Builder
	for isIdentCont(t.ch) {
		sb.WriteByte(t.ch)
		t.advance()
	}
	upper := strings.ToUpper(sb.String())
	if id, ok := LookupKeyword(upper); ok {
		return Token{Pos: pos, Kind: ReservedWord, Value: id}
	}
	id := t.Idents.Intern(upper)
	return Token{Pos: pos, Kind: Identifier, Value: id}
}

// scanOperator consumes a single-character operator/punctuation byte.
// No two-character operator (<=, >=, <>, //) exists in this grammar,
// so there is nothing to pair up here.
func (t *Tokenizer) scanOperator(pos diag.SourcePosition) Token {
	ch := t.ch
	t.advance()
	return Token{Pos: pos, Kind: ReservedWord, Value: int(ch)}
}
