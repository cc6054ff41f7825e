// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package symbols extracts the set of species symbols to harvest from a
// delimited input list.
package symbols

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// InputError reports that the symbol list could not be used at all. It is
// fatal to a batch run.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("symbol input: %v", e.Err)
	}
	return fmt.Sprintf("symbol input %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// Read opens path and returns its unique symbols. Files ending in .tsv are
// read tab-delimited; everything else is comma-delimited.
func Read(path, column string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &InputError{Path: path, Err: err}
	}
	defer f.Close()

	delim := ','
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		delim = '\t'
	}

	syms, err := parse(f, column, delim)
	if err != nil {
		var ie *InputError
		if errors.As(err, &ie) {
			ie.Path = path
		}
		return nil, err
	}
	return syms, nil
}

// Parse reads comma-delimited records from r and returns the trimmed,
// non-blank values of column, deduplicated by exact match and sorted.
// The header match is case-insensitive.
func Parse(r io.Reader, column string) ([]string, error) {
	return parse(r, column, ',')
}

func parse(r io.Reader, column string, delim rune) ([]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &InputError{Err: errors.New("input is empty")}
	}
	if err != nil {
		return nil, &InputError{Err: fmt.Errorf("reading header: %w", err)}
	}

	idx := columnIndex(header, column)
	if idx < 0 {
		return nil, &InputError{Err: fmt.Errorf("no %q column in header %v", column, header)}
	}

	seen := make(map[string]struct{})
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			slog.Warn("skipping unreadable row", "line", pe.Line, "err", pe.Err)
			continue
		}
		if err != nil {
			return nil, &InputError{Err: fmt.Errorf("reading record: %w", err)}
		}
		if idx >= len(rec) {
			continue
		}
		sym := strings.TrimSpace(rec[idx])
		if sym == "" {
			continue
		}
		seen[sym] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

func columnIndex(header []string, column string) int {
	want := strings.TrimSpace(column)
	for i, h := range header {
		// Spreadsheet exports often prefix the first cell with a BOM.
		h = strings.TrimPrefix(h, "\ufeff")
		if strings.EqualFold(strings.TrimSpace(h), want) {
			return i
		}
	}
	return -1
}
