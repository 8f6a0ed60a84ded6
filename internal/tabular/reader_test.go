package tabular

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestSkipBOM(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "file with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("age,sex")...),
			expected: "age,sex",
		},
		{
			name:     "file without BOM",
			input:    []byte("age,sex"),
			expected: "age,sex",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "partial BOM at start",
			input:    []byte{0xEF, 0xBB, 'a', 'b', 'c'},
			expected: string([]byte{0xEF, 0xBB, 'a', 'b', 'c'}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(SkipBOM(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestSanitizeUTF8(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"valid ASCII", []byte("age,sex"), "age,sex"},
		{"valid multibyte", []byte("größe,Ω"), "größe,Ω"},
		{"invalid single byte replaced", []byte{'a', 'g', 0x80, 'e'}, "ag?e"},
		{"truncated rune at EOF", []byte{'a', 0xC3}, "a?"},
		{"empty input", []byte{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(SanitizeUTF8(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestSanitizeUTF8_SplitRune(t *testing.T) {
	// One byte per read splits every multibyte rune across reads.
	input := "größe,Ω,ok"
	result, err := io.ReadAll(SanitizeUTF8(iotest.OneByteReader(strings.NewReader(input))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result) != input {
		t.Errorf("got %q, want %q", string(result), input)
	}
}

func TestLimitSize(t *testing.T) {
	input := strings.Repeat("x", 100)

	if _, err := io.ReadAll(LimitSize(strings.NewReader(input), 100)); err != nil {
		t.Errorf("input at the limit: unexpected error %v", err)
	}

	_, err := io.ReadAll(LimitSize(strings.NewReader(input), 99))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("input over the limit: err = %v, want ErrFileTooLarge", err)
	}

	if _, err := io.ReadAll(LimitSize(strings.NewReader(input), 0)); err != nil {
		t.Errorf("no limit: unexpected error %v", err)
	}
}

func TestWrapCSV(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte{'a', 'g', 0x80, 'e'}...)

	result, err := io.ReadAll(WrapCSV(bytes.NewReader(input), 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result) != "ag?e" {
		t.Errorf("got %q, want %q", string(result), "ag?e")
	}
}
