package source

import (
	"path/filepath"

	"github.com/lookbusy1344/z80asm/diag"
)

// ListingSink receives each fully-read source line, in input order,
// before the SourceReader advances past its trailing newline. The
// assembler driver implements this to interleave source lines with
// emitted bytes in the listing file.
type ListingSink interface {
	WriteSourceLine(pos diag.SourcePosition, text string)
}

// Opener reads a source file's full content given a path. Production
// code supplies os.ReadFile; tests supply an in-memory map.
type Opener func(path string) ([]byte, error)

type fileFrame struct {
	name      string
	dir       string
	data      []byte
	pos       int
	line      int
	lineStart int
}

// SourceReader is a character stream over one or more open source
// files, with INCLUDE nesting. It tracks (file, line) position and
// broadcasts each completed line to a ListingSink.
type SourceReader struct {
	stack   []*fileFrame
	listing ListingSink
	open    Opener
	lastPos diag.SourcePosition
}

// NewSourceReader creates a reader that has not yet opened any file.
// Call Open with the top-level source path before calling GetChar.
func NewSourceReader(open Opener, listing ListingSink) *SourceReader {
	return &SourceReader{open: open, listing: listing}
}

// Open pushes path as the (first, top-level) open file.
func (r *SourceReader) Open(path string) error {
	return r.push(path)
}

// Include pushes path as a nested INCLUDE, resolved relative to the
// directory of the file currently being read.
func (r *SourceReader) Include(path string) error {
	if len(r.stack) > 0 && !filepath.IsAbs(path) {
		path = filepath.Join(r.stack[len(r.stack)-1].dir, path)
	}
	return r.push(path)
}

func (r *SourceReader) push(path string) error {
	data, err := r.open(path)
	if err != nil {
		return diag.Newf(r.Position(), diag.ErrIO, "cannot open %q: %v", path, err)
	}
	r.stack = append(r.stack, &fileFrame{
		name: filepath.Base(path),
		dir:  filepath.Dir(path),
		data: data,
		line: 1,
	})
	return nil
}

// Done reports whether every open file (including all INCLUDEs) has
// been exhausted.
func (r *SourceReader) Done() bool {
	return len(r.stack) == 0
}

// Position returns the current (file, line) — the innermost open
// file's position, or the last known position once all files have
// been exhausted (useful for reporting end-of-input errors).
func (r *SourceReader) Position() diag.SourcePosition {
	if len(r.stack) == 0 {
		return r.lastPos
	}
	f := r.stack[len(r.stack)-1]
	return diag.SourcePosition{File: f.name, Line: f.line}
}

// GetChar returns the next character. At the end of a line it returns
// the sentinel '\n' (synthesizing one even if the file lacks a final
// newline) and hands the completed line to the listing sink. At the
// end of the innermost file it pops the INCLUDE stack and returns
// '\0'; once every file has been exhausted, it keeps returning '\0'.
func (r *SourceReader) GetChar() byte {
	for {
		if len(r.stack) == 0 {
			return 0
		}
		f := r.stack[len(r.stack)-1]
		if f.pos >= len(f.data) {
			if f.lineStart < len(f.data) {
				// The last line has no trailing newline: end it here.
				r.finishLine(f)
				f.line++
				f.lineStart = len(f.data)
				return '\n'
			}
			r.lastPos = diag.SourcePosition{File: f.name, Line: f.line}
			r.stack = r.stack[:len(r.stack)-1]
			return 0
		}
		ch := f.data[f.pos]
		f.pos++
		if ch == '\r' {
			continue // normalize CRLF by dropping the CR
		}
		if ch == '\n' {
			r.finishLine(f)
			f.line++
			f.lineStart = f.pos
			return '\n'
		}
		return ch
	}
}

func (r *SourceReader) finishLine(f *fileFrame) {
	if r.listing == nil {
		return
	}
	end := f.pos
	if end > len(f.data) {
		end = len(f.data)
	}
	text := string(f.data[f.lineStart:end])
	for len(text) > 0 && (text[len(text)-1] == '\n' || text[len(text)-1] == '\r') {
		text = text[:len(text)-1]
	}
	r.listing.WriteSourceLine(diag.SourcePosition{File: f.name, Line: f.line}, text)
}
