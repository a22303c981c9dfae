package csv_test

import (
	"errors"
	"reflect"
	"testing"

	pcsv "mediadash/internal/parser/csv"
)

const sample = "Date,Engagements,Sentiment,Platform,Media Type,Location\n" +
	"2024-01-01,10,Positive,Twitter,Text,Jakarta\n" +
	"2024-01-02,5,Negative,Instagram,Image,Bandung\n"

func TestParseSample(t *testing.T) {
	tbl, err := pcsv.Parse([]byte(sample), pcsv.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	wantHeader := []string{"Date", "Engagements", "Sentiment", "Platform", "Media Type", "Location"}
	if !reflect.DeepEqual(tbl.Header, wantHeader) {
		t.Fatalf("header=%q want %q", tbl.Header, wantHeader)
	}
	if got, want := tbl.Len(), 2; got != want {
		t.Fatalf("len=%d want=%d", got, want)
	}
	if v := tbl.Rows[1][3]; v != "Instagram" {
		t.Fatalf("platform=%q want Instagram", v)
	}
	if tbl.Index("Media Type") != 4 || tbl.Has("date") {
		t.Fatalf("column lookup must be exact and case-sensitive")
	}
}

/*
TestParse_StripsBOM verifies that a UTF-8 byte-order mark does not leak into
the first header cell.
*/
func TestParse_StripsBOM(t *testing.T) {
	tbl, err := pcsv.Parse([]byte("\uFEFF"+sample), pcsv.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tbl.Header[0] != "Date" {
		t.Fatalf("header[0]=%q want Date", tbl.Header[0])
	}
}

/*
TestParse_PadsShortRows verifies that rows narrower than the header are padded
with empty cells instead of failing the parse.
*/
func TestParse_PadsShortRows(t *testing.T) {
	in := "Date,Engagements,Platform\n2024-01-01,3\n"
	tbl, err := pcsv.Parse([]byte(in), pcsv.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := tbl.Rows[0]; !reflect.DeepEqual(got, []string{"2024-01-01", "3", ""}) {
		t.Fatalf("row=%q", got)
	}
}

/*
TestParse_Failures verifies that structural problems fail the whole parse with
a *ParseError and never return a partial table.
*/
func TestParse_Failures(t *testing.T) {
	cases := []struct {
		name     string
		in       []byte
		wantLine int
	}{
		{"empty", []byte(""), 0},
		{"whitespace only", []byte("  \n\n"), 0},
		{"invalid utf8", []byte("Date,Engagements\n2024-01-01,\xff\n"), 2},
		{"wide row", []byte("Date,Engagements\n2024-01-01,1\n2024-01-02,2,extra\n"), 3},
		{"bare quote", []byte("Date,Engagements\n2024-01-01,1\"2\n"), 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tbl, err := pcsv.Parse(tc.in, pcsv.Options{Comma: ','})
			if tbl != nil {
				t.Fatalf("expected nil table, got %+v", tbl)
			}
			var pe *pcsv.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("err=%v (%T), want *ParseError", err, err)
			}
			if pe.Line != tc.wantLine {
				t.Fatalf("line=%d want %d (err=%v)", pe.Line, tc.wantLine, err)
			}
		})
	}
}

func TestParse_EmptyIsErrEmptyInput(t *testing.T) {
	_, err := pcsv.Parse(nil, pcsv.Options{})
	if !errors.Is(err, pcsv.ErrEmptyInput) {
		t.Fatalf("err=%v want ErrEmptyInput", err)
	}
}

func TestParse_DuplicateHeaders(t *testing.T) {
	tbl, err := pcsv.Parse([]byte("Date,Platform,Platform\n2024-01-01,a,b\n"), pcsv.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []string{"Date", "Platform", "Platform.1"}
	if !reflect.DeepEqual(tbl.Header, want) {
		t.Fatalf("header=%q want %q", tbl.Header, want)
	}
}

func TestSniffDelimiter(t *testing.T) {
	cases := map[string]rune{
		"Date;Engagements;Platform\n1;2;3\n": ';',
		"Date\tEngagements\n":                '\t',
		"Date,Engagements\n":                 ',',
		`"a;b",c` + "\n":                     ',',
		"Date\n":                             ',',
	}
	for in, want := range cases {
		if got := pcsv.SniffDelimiter([]byte(in)); got != want {
			t.Errorf("SniffDelimiter(%q)=%q want %q", in, got, want)
		}
	}
}

func TestParse_SniffsSemicolon(t *testing.T) {
	tbl, err := pcsv.Parse([]byte("Date;Engagements\n2024-01-01;7\n"), pcsv.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tbl.Rows[0][1] != "7" {
		t.Fatalf("row=%q", tbl.Rows[0])
	}
}

func TestDecodeDelimiter(t *testing.T) {
	cases := map[string]rune{"": 0, "auto": 0, "tab": '\t', `\t`: '\t', ";": ';', "|": '|'}
	for in, want := range cases {
		if got := pcsv.DecodeDelimiter(in); got != want {
			t.Errorf("DecodeDelimiter(%q)=%q want %q", in, got, want)
		}
	}
}
