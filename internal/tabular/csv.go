package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// numericRegex validates that a string is a plain numeric literal.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// nullTokens are cell spellings read as null, case-insensitively.
var nullTokens = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
	"none": true,
	"#n/a": true,
}

// ErrEmptyFile is returned when a CSV source has no header row.
var ErrEmptyFile = errors.New("csv file is empty")

// ReadCSVFile reads a CSV file from disk. maxSize bounds the bytes read;
// zero means unlimited.
func ReadCSVFile(path string, maxSize int64) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	frame, err := ReadCSV(WrapCSV(f, maxSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return frame, nil
}

// ReadCSV parses CSV text with a header row into a frame.
//
// Types are inferred per column: a column whose non-null cells all parse as
// numbers holds float64 values, any other column holds strings. Null tokens
// (empty, NA, NaN, null, ...) become nil in either case.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := CleanCell(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = name + "." + strconv.Itoa(n)
		} else {
			seen[name] = 1
		}
		columns[i] = name
	}

	var records [][]string
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}

	numeric := make([]bool, len(columns))
	for c := range columns {
		numeric[c] = numericColumn(records, c)
	}

	rows := make([]Row, len(records))
	for i, rec := range records {
		row := make(Row, len(columns))
		for c, name := range columns {
			var cell string
			if c < len(rec) {
				cell = CleanCell(rec[c])
			}
			row[name] = parseCell(cell, numeric[c])
		}
		rows[i] = row
	}

	return NewFrame(columns, rows), nil
}

// numericColumn reports whether every non-null cell in column c is a number
// and at least one is present.
func numericColumn(records [][]string, c int) bool {
	seen := false
	for _, rec := range records {
		if c >= len(rec) {
			continue
		}
		cell := CleanCell(rec[c])
		if isNullToken(cell) {
			continue
		}
		if _, ok := ParseNumber(cell); !ok {
			return false
		}
		seen = true
	}
	return seen
}

func parseCell(cell string, numeric bool) any {
	if isNullToken(cell) {
		return nil
	}
	if numeric {
		f, _ := ParseNumber(cell)
		return f
	}
	return cell
}

func isNullToken(s string) bool {
	return nullTokens[strings.ToLower(s)]
}

// ParseNumber parses a numeric literal. "inf" and "-inf" parse to infinities;
// everything else must match a plain decimal or scientific literal.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "inf", "+inf", "infinity":
		return math.Inf(1), true
	case "-inf", "-infinity":
		return math.Inf(-1), true
	}
	if !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return s
}

// ReadHeader returns the cleaned header row of a CSV file without reading
// the rest of it.
func ReadHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(WrapCSV(f, 0))
	cr.LazyQuotes = true
	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = CleanCell(h)
	}
	return header, nil
}
