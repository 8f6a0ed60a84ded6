package tabular

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReadCSV_InfersColumnTypes(t *testing.T) {
	input := "patient_age,sex,site\n34,1,north\n,0,south\n51.5,NA,\n"

	frame, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}

	wantCols := []string{"patient_age", "sex", "site"}
	if diff := cmp.Diff(wantCols, frame.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}

	want := []Row{
		{"patient_age": 34.0, "sex": 1.0, "site": "north"},
		{"patient_age": nil, "sex": 0.0, "site": "south"},
		{"patient_age": 51.5, "sex": nil, "site": nil},
	}
	if diff := cmp.Diff(want, frame.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestReadCSV_MixedColumnStaysText(t *testing.T) {
	frame, err := ReadCSV(strings.NewReader("code\n12\nA7\n"))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if got := frame.Rows[0]["code"]; got != "12" {
		t.Errorf("code[0] = %#v, want %q", got, "12")
	}
}

func TestReadCSV_HeaderCleanup(t *testing.T) {
	frame, err := ReadCSV(strings.NewReader(" id ,id,\n1,2,3\n"))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	want := []string{"id", "id.1", "Unnamed: 2"}
	if diff := cmp.Diff(want, frame.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestReadCSV_ShortRows(t *testing.T) {
	frame, err := ReadCSV(strings.NewReader("a,b\n1\n"))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if frame.Rows[0]["b"] != nil {
		t.Errorf("missing cell = %#v, want nil", frame.Rows[0]["b"])
	}
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	if !errors.Is(err, ErrEmptyFile) {
		t.Errorf("err = %v, want ErrEmptyFile", err)
	}
}

func TestReadCSVFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ecg.csv")
	if err := os.WriteFile(path, []byte("\xEF\xBB\xBFage\n10\n20\n"), 0644); err != nil {
		t.Fatal(err)
	}

	frame, err := ReadCSVFile(path, 0)
	if err != nil {
		t.Fatalf("ReadCSVFile() error = %v", err)
	}
	if frame.Len() != 2 || frame.Columns[0] != "age" {
		t.Errorf("frame = %+v, want 2 rows with column age", frame)
	}

	if _, err := ReadCSVFile(path, 4); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("err = %v, want ErrFileTooLarge", err)
	}

	header, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader() error = %v", err)
	}
	if diff := cmp.Diff([]string{"age"}, header); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"42", 42, true},
		{"-3.5", -3.5, true},
		{".5", 0.5, true},
		{"1e-9", 1e-9, true},
		{" 7 ", 7, true},
		{"1,000", 0, false},
		{"$5", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseNumber(%q) = %v, %v, want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}

	if v, ok := ParseNumber("-inf"); !ok || !math.IsInf(v, -1) {
		t.Errorf("ParseNumber(-inf) = %v, %v", v, ok)
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  a  ", "a"},
		{`="0042"`, "0042"},
		{`"quoted"`, `"quoted"`},
	}
	for _, tt := range tests {
		if got := CleanCell(tt.in); got != tt.want {
			t.Errorf("CleanCell(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
