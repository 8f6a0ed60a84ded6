package serialize

import (
	"encoding/json"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5/pgtype"
)

type figure struct {
	title string
}

func (f figure) ToPortableFigure() map[string]any {
	return map[string]any{
		"data":   []any{map[string]any{"type": "bar", "y": []float64{1, math.NaN(), 3}}},
		"layout": map[string]any{"title": f.title},
	}
}

type matrix [][]float32

func (m matrix) ToNested() any { return [][]float32(m) }

type summary struct {
	name  string
	score float64
	pad   chan int
}

func (s summary) AsMap() map[string]any {
	return map[string]any{"name": s.name, "score": s.score}
}

type opaque struct{ ch chan int }

type level string

func TestNormalize_JSONNativeIsIdentity(t *testing.T) {
	inputs := []any{
		nil,
		"text",
		true,
		42,
		int64(7),
		3.5,
		[]any{1.0, "a", nil, false},
		map[string]any{"a": 1.0, "b": []any{"x", map[string]any{"c": nil}}},
		map[string]any{},
		[]any{},
	}

	for _, in := range inputs {
		got, ok := Normalize(in)
		if !ok {
			t.Errorf("Normalize(%v) omitted", in)
			continue
		}
		if diff := cmp.Diff(in, got); diff != "" {
			t.Errorf("Normalize(%v) mismatch (-want +got):\n%s", in, diff)
		}
	}
}

func TestNormalize_OmitsNonFiniteAndOpaque(t *testing.T) {
	omitted := []any{
		math.NaN(),
		math.Inf(1),
		math.Inf(-1),
		float32(math.Inf(1)),
		opaque{},
		make(chan int),
		func() {},
		map[int]string{1: "a"},
	}
	for _, in := range omitted {
		if got, ok := Normalize(in); ok {
			t.Errorf("Normalize(%T) = %v, want omitted", in, got)
		}
	}
}

func TestNormalize_DropsOmittedEntries(t *testing.T) {
	in := map[string]any{
		"keep":   1.0,
		"nan":    math.NaN(),
		"opaque": opaque{},
		"list":   []any{1.0, math.Inf(1), "x", opaque{}},
		"null":   nil,
	}
	want := map[string]any{
		"keep": 1.0,
		"list": []any{1.0, "x"},
		"null": nil,
	}

	got, ok := Normalize(in)
	if !ok {
		t.Fatal("map omitted")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if _, present := got.(map[string]any)["nan"]; present {
		t.Error("omitted entry must be absent, not null")
	}
}

func TestNormalize_Capabilities(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 5

	in := map[string]any{
		"figure":  figure{title: "ages"},
		"array":   matrix{{1, 2}, {3, 4}},
		"summary": summary{name: "hill", score: 0.5, pad: make(chan int)},
		"when":    ts,
		"ptr":     &n,
		"nilptr":  (*int)(nil),
		"typed":   []float64{1, 2},
		"counts":  map[string]int{"a": 1},
		"small":   int16(3),
		"unsigned": uint8(9),
		"f32":     float32(0.5),
		"number":  json.Number("12"),
		"level":   level("warn"),
	}
	want := map[string]any{
		"figure": map[string]any{
			"data":   []any{map[string]any{"type": "bar", "y": []any{1.0, 3.0}}},
			"layout": map[string]any{"title": "ages"},
		},
		"array":    []any{[]any{float64(1), float64(2)}, []any{float64(3), float64(4)}},
		"summary":  map[string]any{"name": "hill", "score": 0.5},
		"when":     "2024-03-01T12:00:00Z",
		"ptr":      5,
		"nilptr":   nil,
		"typed":    []any{1.0, 2.0},
		"counts":   map[string]any{"a": 1},
		"small":    int64(3),
		"unsigned": uint64(9),
		"f32":      0.5,
		"number":   int64(12),
		"level":    "warn",
	}

	got, ok := Normalize(in)
	if !ok {
		t.Fatal("map omitted")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_PgtypeWrappers(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
		ok   bool
	}{
		{"numeric", pgtype.Numeric{Int: big.NewInt(125), Exp: -2, Valid: true}, 1.25, true},
		{"numeric null", pgtype.Numeric{}, nil, true},
		{"numeric nan", pgtype.Numeric{NaN: true, Valid: true}, nil, false},
		{"float8", pgtype.Float8{Float64: 2.5, Valid: true}, 2.5, true},
		{"float8 null", pgtype.Float8{}, nil, true},
		{"float4", pgtype.Float4{Float32: 1.5, Valid: true}, 1.5, true},
		{"int4", pgtype.Int4{Int32: 4, Valid: true}, int64(4), true},
		{"int8 null", pgtype.Int8{}, nil, true},
		{"text", pgtype.Text{String: "F", Valid: true}, "F", true},
		{"bool", pgtype.Bool{Bool: true, Valid: true}, true, true},
		{"date", pgtype.Date{Time: time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), Valid: true}, "2020-01-02T00:00:00Z", true},
		{"date infinity", pgtype.Date{InfinityModifier: pgtype.Infinity, Valid: true}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.in)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalize_EncodesAsJSON(t *testing.T) {
	in := map[string]any{
		"metrics": map[string]any{"variety_age": []any{map[string]any{"Range": 20.0}}},
		"bad":     math.NaN(),
		"fig":     figure{title: "x"},
	}
	got, _ := Normalize(in)
	if _, err := json.Marshal(got); err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
}

func TestFigures(t *testing.T) {
	in := map[string]any{
		"age": figure{title: "age"},
		"raw": []any{matrix{{1}}, pgtype.Float8{Float64: 2, Valid: true}, "label"},
	}
	want := map[string]any{
		"age": map[string]any{
			"data":   []any{map[string]any{"type": "bar", "y": []float64{1, math.NaN(), 3}}},
			"layout": map[string]any{"title": "age"},
		},
		"raw": []any{[][]float32{{1}}, 2.0, "label"},
	}

	got := Figures(in)
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b float64) bool {
		return a == b || (math.IsNaN(a) && math.IsNaN(b))
	})); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
