package tabular

import (
	"math"
	"testing"
	"time"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"2024-03-05T10:30:00Z", time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)},
		{"2024-03-05 10:30:00", time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)},
		{"3/5/2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"Mar 5, 2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"20240305", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"3/5/24", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, ok := ParseTime(tt.in)
		if !ok {
			t.Errorf("ParseTime(%q) failed", tt.in)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "yesterday", "2024-13-45"} {
		if _, ok := ParseTime(bad); ok {
			t.Errorf("ParseTime(%q) succeeded, want failure", bad)
		}
	}
}

func TestTimeValue(t *testing.T) {
	if got, ok := TimeValue(86400.0); !ok || !got.Equal(time.Unix(86400, 0)) {
		t.Errorf("TimeValue(86400) = %v, %v", got, ok)
	}
	if _, ok := TimeValue(nil); ok {
		t.Error("TimeValue(nil) succeeded, want failure")
	}
}

func TestFloat(t *testing.T) {
	tests := []struct {
		in     any
		want   float64
		wantOK bool
	}{
		{3.5, 3.5, true},
		{float32(2), 2, true},
		{7, 7, true},
		{int64(-1), -1, true},
		{true, 1, true},
		{"12.5", 12.5, true},
		{"abc", 0, false},
		{nil, 0, false},
		{math.NaN(), 0, false},
	}

	for _, tt := range tests {
		got, ok := Float(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("Float(%#v) = %v, %v, want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		in     any
		want   string
		wantOK bool
	}{
		{"F", "F", true},
		{1.0, "1", true},
		{0.25, "0.25", true},
		{true, "true", true},
		{nil, "", false},
		{math.NaN(), "", false},
	}

	for _, tt := range tests {
		got, ok := Text(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("Text(%#v) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
