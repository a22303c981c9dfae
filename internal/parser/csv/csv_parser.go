// Package csv decodes an uploaded delimited-text file into a Table. Parsing is
// all-or-nothing: the whole input becomes a Table or Parse fails with a
// *ParseError, never a partially filled Table.
package csv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrEmptyInput is returned (wrapped in a *ParseError) when the upload holds
// no header row at all.
var ErrEmptyInput = errors.New("input is empty")

// ParseError reports a structural failure while decoding an upload. Line is
// the 1-based physical line where decoding failed, or 0 when the failure is
// not tied to a line (e.g. empty input).
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse csv: line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("parse csv: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Options configures the parser. The zero value parses comma-separated input
// with strict quoting.
type Options struct {
	// Comma is the field delimiter. When zero the delimiter is sniffed from
	// the header line (see SniffDelimiter).
	Comma rune

	// LazyQuotes relaxes quote handling, mirroring encoding/csv.
	LazyQuotes bool
}

// Table is the raw, untyped result of ingestion: a header plus rows of string
// cells, each row exactly as wide as the header.
type Table struct {
	Header []string
	Rows   [][]string
}

// Index returns the position of the named column, or -1 when absent. Column
// names are matched case-sensitively.
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool { return t.Index(name) >= 0 }

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Parse decodes b into a Table.
//
// The input must be UTF-8; a leading byte-order mark is dropped. The first
// record is the header. Data rows narrower than the header are padded with
// empty cells, while rows wider than the header or malformed quoting fail the
// whole parse.
func Parse(b []byte, opt Options) (*Table, error) {
	if off, ok := firstInvalidUTF8(b); !ok {
		return nil, &ParseError{
			Line: bytes.Count(b[:off], []byte{'\n'}) + 1,
			Err:  fmt.Errorf("invalid UTF-8 at byte offset %d", off),
		}
	}

	body, err := StripBOM(b)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &ParseError{Err: ErrEmptyInput}
	}

	comma := opt.Comma
	if comma == 0 {
		comma = SniffDelimiter(body)
	}

	cr := csv.NewReader(bytes.NewReader(body))
	cr.Comma = comma
	cr.LazyQuotes = opt.LazyQuotes
	// Width is checked below so narrow rows can be padded.
	cr.FieldsPerRecord = -1

	h, err := cr.Read()
	if err == io.EOF {
		return nil, &ParseError{Err: ErrEmptyInput}
	}
	if err != nil {
		return nil, wrapReadErr(err)
	}
	header := normalizeHeader(h)

	t := &Table{Header: header}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapReadErr(err)
		}
		line, _ := cr.FieldPos(0)
		switch {
		case len(row) > len(header):
			return nil, &ParseError{
				Line: line,
				Err:  fmt.Errorf("expected %d fields, saw %d", len(header), len(row)),
			}
		case len(row) < len(header):
			padded := make([]string, len(header))
			copy(padded, row)
			row = padded
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// DecodeDelimiter converts a user-supplied delimiter setting into a rune.
// "tab" and `\t` select a tab, "auto" and "" select sniffing (zero rune).
func DecodeDelimiter(s string) rune {
	switch strings.ToLower(s) {
	case "", "auto":
		return 0
	case "tab", `\t`:
		return '\t'
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return 0
	}
	return r
}

// sniffCandidates are the delimiters SniffDelimiter chooses between, in
// tie-break order.
var sniffCandidates = []rune{',', ';', '\t', '|'}

// SniffDelimiter picks the candidate delimiter that occurs most often outside
// quotes in the first line of b. Comma wins ties and is the fallback.
func SniffDelimiter(b []byte) rune {
	line := b
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		line = b[:i]
	}
	counts := make(map[rune]int, len(sniffCandidates))
	inQuotes := false
	for _, r := range string(line) {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}
	best, bestN := ',', 0
	for _, c := range sniffCandidates {
		if counts[c] > bestN {
			best, bestN = c, counts[c]
		}
	}
	return best
}

// normalizeHeader trims header names and de-duplicates repeats by suffixing
// ".1", ".2", ... so every column stays addressable.
func normalizeHeader(h []string) []string {
	out := make([]string, len(h))
	seen := make(map[string]int, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if n, dup := seen[c]; dup {
			seen[c] = n + 1
			c = c + "." + strconv.Itoa(n+1)
		} else {
			seen[c] = 0
		}
		out[i] = c
	}
	return out
}

func wrapReadErr(err error) error {
	var ce *csv.ParseError
	if errors.As(err, &ce) {
		return &ParseError{Line: ce.Line, Err: ce.Err}
	}
	return &ParseError{Err: err}
}

func firstInvalidUTF8(b []byte) (int, bool) {
	for off := 0; off < len(b); {
		r, size := utf8.DecodeRune(b[off:])
		if r == utf8.RuneError && size == 1 {
			return off, false
		}
		off += size
	}
	return 0, true
}
