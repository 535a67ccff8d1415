// Package diag carries source positions and the assembler's error taxonomy.
//
// It sits below every other package in this module (source, token,
// symtab, expr, z80asm, flow, assembler) so that each can report and
// deduplicate errors without importing one another.
package diag

import "fmt"

// SourcePosition identifies a location in the original source text.
// It is value-comparable and used both for diagnostics and, by the
// TokenReader, as an error-deduplication key.
type SourcePosition struct {
	File string
	Line int
}

func (p SourcePosition) String() string {
	return fmt.Sprintf("%s(%d)", p.File, p.Line)
}

// ErrorKind categorizes an assembler error.
type ErrorKind int

const (
	ErrSyntax ErrorKind = iota
	ErrMissingIdentifier
	ErrMissingKeyword
	ErrUndefinedIdentifier
	ErrMultipleDefinition
	ErrMultipleElse
	ErrNoOpenBlock
	ErrInvalidRegister
	ErrOutOfRange
	ErrAddressUsage
	ErrWhileAndDwnz
	ErrIO
)

// Error is a single diagnostic tied to a source position.
type Error struct {
	Pos     SourcePosition
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// New builds an Error.
func New(pos SourcePosition, kind ErrorKind, message string) *Error {
	return &Error{Pos: pos, Kind: kind, Message: message}
}

// Newf builds an Error with a formatted message.
func Newf(pos SourcePosition, kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Pos: pos, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// MaxErrorCount is the default pass-abort threshold.
const MaxErrorCount = 100

// ErrorList collects errors for a pass, deduplicating by source
// position: once a position has produced one error, later errors at
// the same position are silently dropped, so one bad statement does
// not cascade into a wall of follow-on diagnostics.
type ErrorList struct {
	Errors []*Error
	seen   map[SourcePosition]bool

	// cap overrides MaxErrorCount when non-zero, set via SetCap so a
	// caller's configured assembler.max_error_count actually governs
	// the abort threshold instead of the package default.
	cap int
}

// NewErrorList creates an empty, ready-to-use ErrorList.
func NewErrorList() *ErrorList {
	return &ErrorList{seen: make(map[SourcePosition]bool)}
}

// SetCap overrides the error count this list aborts a pass at. A
// non-positive n restores the MaxErrorCount default.
func (el *ErrorList) SetCap(n int) {
	el.cap = n
}

// Add appends err unless its position has already reported an error.
// Returns true if the error was kept.
func (el *ErrorList) Add(err *Error) bool {
	if el.seen == nil {
		el.seen = make(map[SourcePosition]bool)
	}
	if el.seen[err.Pos] {
		return false
	}
	el.seen[err.Pos] = true
	el.Errors = append(el.Errors, err)
	return true
}

// HasErrors reports whether any error survived deduplication.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Count returns the number of deduplicated errors.
func (el *ErrorList) Count() int {
	return len(el.Errors)
}

// AtCap reports whether the list has reached its cap: the caller's
// SetCap value if set, otherwise MaxErrorCount.
func (el *ErrorList) AtCap() bool {
	cap := el.cap
	if cap <= 0 {
		cap = MaxErrorCount
	}
	return len(el.Errors) >= cap
}

// Reset clears the list for the next pass, keeping prior positions out
// of the dedup map so re-passes start clean. Callers decide whether to
// Reset between passes.
func (el *ErrorList) Reset() {
	el.Errors = nil
	el.seen = make(map[SourcePosition]bool)
}

// Error implements the error interface over the whole list.
func (el *ErrorList) Error() string {
	if len(el.Errors) == 0 {
		return ""
	}
	msg := el.Errors[0].Error()
	for _, e := range el.Errors[1:] {
		msg += "\n" + e.Error()
	}
	return msg
}
