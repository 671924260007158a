// Package table reads the spreadsheet export that drives a batch run.
//
// Columns are matched by symbolized header name, so "Film ID", "film id" and
// "FILM_ID" all land on film_id, and column order does not matter.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
)

// Recognized column keys
const (
	ColFilmID    = "film_id"
	ColTitleCard = "title_card_timecode"
	ColImage1    = "image_1_timecode"
	ColImage2    = "image_2_timecode"
	ColImage3    = "image_3_timecode"
	ColDone      = "done"
	ColPublished = "published"
)

// Row is one data line of the table
type Row struct {
	Line      int // 1-based line in the file, header is line 1
	FilmID    string
	TitleCard string
	Image1    string
	Image2    string
	Image3    string
	Done      string
	Published string
}

// IsDone reports whether the row is marked as already processed
func (r *Row) IsDone() bool {
	return strings.EqualFold(strings.TrimSpace(r.Done), "x")
}

// IsPublished reports whether the film is marked as published
func (r *Row) IsPublished() bool {
	return strings.TrimSpace(r.Published) == "TRUE"
}

// Timecodes returns the four timecode cells in processing order
func (r *Row) Timecodes() [4]string {
	return [4]string{r.TitleCard, r.Image1, r.Image2, r.Image3}
}

// minTimecodeChars is the shortest combined length of the four timecode
// cells that can hold a real timecode (h:mm is already five characters).
const minTimecodeChars = 5

// HasTimecodes reports whether the row carries enough text in its timecode
// cells to be worth processing
func (r *Row) HasTimecodes() bool {
	n := 0
	for _, tc := range r.Timecodes() {
		n += len(tc)
	}
	return n >= minTimecodeChars
}

var (
	nonWord    = regexp.MustCompile(`[^\w\s]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Symbolize normalizes a header cell: trimmed, lower-cased, punctuation
// dropped and whitespace runs turned into underscores
func Symbolize(header string) string {
	s := strings.ToLower(strings.TrimSpace(header))
	s = nonWord.ReplaceAllString(s, "")
	return whitespace.ReplaceAllString(s, "_")
}

// DelimiterFor picks the field separator from a file name
func DelimiterFor(path string) rune {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".tab":
		return '\t'
	default:
		return ','
	}
}

// Reader yields rows from a delimited table with a header line
type Reader struct {
	r       *csv.Reader
	columns map[string]int
}

// NewReader reads the header line and prepares to stream rows
func NewReader(r io.Reader, delimiter rune) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("table is empty: missing header row")
		}
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		key := Symbolize(h)
		if _, dup := columns[key]; !dup && key != "" {
			columns[key] = i
		}
	}
	if _, ok := columns[ColFilmID]; !ok {
		return nil, fmt.Errorf("table has no %q column (headers: %s)", "Film ID", strings.Join(header, ", "))
	}

	return &Reader{r: cr, columns: columns}, nil
}

// Has reports whether the header contains the column key
func (t *Reader) Has(key string) bool {
	_, ok := t.columns[key]
	return ok
}

// Next returns the next row, or io.EOF after the last one. Blank lines are skipped.
func (t *Reader) Next() (*Row, error) {
	record, err := t.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read table row: %w", err)
	}

	line, _ := t.r.FieldPos(0)

	return &Row{
		Line:      line,
		FilmID:    t.cell(record, ColFilmID),
		TitleCard: t.cell(record, ColTitleCard),
		Image1:    t.cell(record, ColImage1),
		Image2:    t.cell(record, ColImage2),
		Image3:    t.cell(record, ColImage3),
		Done:      t.cell(record, ColDone),
		Published: t.cell(record, ColPublished),
	}, nil
}

func (t *Reader) cell(record []string, key string) string {
	i, ok := t.columns[key]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
