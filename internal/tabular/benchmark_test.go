package tabular

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"
)

// ============================================================================
// Value Parsing Benchmarks
// ============================================================================

// BenchmarkParseNumber runs once per numeric-looking cell during inference.
func BenchmarkParseNumber(b *testing.B) {
	cases := []string{"123", "-456.78", "1e-9", ".5", "abc", ""}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, c := range cases {
			ParseNumber(c)
		}
	}
}

// BenchmarkParseTime covers the created_at formats seen in exports.
func BenchmarkParseTime(b *testing.B) {
	cases := []string{"2024-01-15", "2024-01-15T10:30:00Z", "01/15/2024", "1/5/24", "not a date"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, c := range cases {
			ParseTime(c)
		}
	}
}

// ============================================================================
// Reader Benchmarks
// ============================================================================

func csvFixture(rows int) []byte {
	var buf bytes.Buffer
	buf.WriteString("patient_age,sex,created_at,file\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&buf, "%d,%s,2024-01-%02d,records/%05d\n", i%90, [2]string{"F", "M"}[i%2], i%28+1, i)
	}
	return buf.Bytes()
}

func BenchmarkReadCSV_1k(b *testing.B) {
	data := csvFixture(1000)
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ReadCSV(bytes.NewReader(data)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkReadCSV_Wrapped(b *testing.B) {
	data := csvFixture(1000)
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ReadCSV(WrapCSV(bytes.NewReader(data), int64(len(data)))); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSanitizeUTF8_ValidInput(b *testing.B) {
	input := strings.Repeat("valid ascii and café,", 1000)
	b.SetBytes(int64(len(input)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		io.Copy(io.Discard, SanitizeUTF8(strings.NewReader(input)))
	}
}

func BenchmarkSanitizeUTF8_InvalidInput(b *testing.B) {
	input := strings.Repeat("bad \xff\xfe bytes,", 1000)
	b.SetBytes(int64(len(input)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		io.Copy(io.Discard, SanitizeUTF8(strings.NewReader(input)))
	}
}
