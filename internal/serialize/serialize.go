// Package serialize converts report results into JSON-representable trees.
//
// Normalize accepts a closed set of shapes and drops everything else, so a
// value the encoder cannot represent never reaches the response writer.
package serialize

import (
	"encoding"
	"encoding/json"
	"math"
	"reflect"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// PortableFigure is a chart that can export itself as a plain figure
// dictionary (data, layout).
type PortableFigure interface {
	ToPortableFigure() map[string]any
}

// Array is an n-dimensional numeric array.
type Array interface {
	ToNested() any
}

// Mapper is a structured record that declares its serializable fields.
type Mapper interface {
	AsMap() map[string]any
}

// Normalize returns a JSON-safe copy of v. The boolean is false when v is
// omitted: non-finite floats and opaque values. Omitted map entries and
// slice elements are dropped from their container, never written as null.
func Normalize(v any) (any, bool) {
	if v == nil {
		return nil, true
	}

	if out, ok, handled := unwrapNumeric(v); handled {
		if !ok {
			return nil, false
		}
		return out, true
	}

	switch x := v.(type) {
	case string, bool, int, int64:
		return x, true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, false
		}
		return x, true
	case encoding.TextMarshaler:
		text, err := x.MarshalText()
		if err != nil {
			return nil, false
		}
		return string(text), true
	case PortableFigure:
		return Normalize(x.ToPortableFigure())
	case Array:
		return Normalize(x.ToNested())
	case Mapper:
		return Normalize(x.AsMap())
	case map[string]any:
		return normalizeMap(x), true
	case []any:
		out := make([]any, 0, len(x))
		for _, e := range x {
			if n, ok := Normalize(e); ok {
				out = append(out, n)
			}
		}
		return out, true
	}

	return normalizeReflect(reflect.ValueOf(v))
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, e := range m {
		if n, ok := Normalize(e); ok {
			out[k] = n
		}
	}
	return out
}

// normalizeReflect handles typed containers ([]float64, map[string]int,
// pointers) that the fast path above does not name.
func normalizeReflect(rv reflect.Value) (any, bool) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, true
		}
		return Normalize(rv.Elem().Interface())

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []any{}, true
		}
		out := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			if n, ok := Normalize(rv.Index(i).Interface()); ok {
				out = append(out, n)
			}
		}
		return out, true

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			if n, ok := Normalize(iter.Value().Interface()); ok {
				out[iter.Key().String()] = n
			}
		}
		return out, true

	// Named scalar types (type Kind string) decay to their underlying kind.
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return rv.Bool(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Float32, reflect.Float64:
		return Normalize(rv.Float())
	}
	return nil, false
}

// unwrapNumeric converts sized numeric types and database scalar wrappers to
// plain values. handled is false when v is not a wrapper at all.
func unwrapNumeric(v any) (out any, ok bool, handled bool) {
	switch x := v.(type) {
	case int8:
		return int64(x), true, true
	case int16:
		return int64(x), true, true
	case int32:
		return int64(x), true, true
	case uint:
		return uint64(x), true, true
	case uint8:
		return uint64(x), true, true
	case uint16:
		return uint64(x), true, true
	case uint32:
		return uint64(x), true, true
	case uint64:
		return x, true, true
	case float32:
		return finite(float64(x))
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, true, true
		}
		f, err := x.Float64()
		if err != nil {
			return nil, false, true
		}
		return finite(f)

	case pgtype.Numeric:
		if !x.Valid {
			return nil, true, true
		}
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil, false, true
		}
		return finite(f.Float64)
	case pgtype.Float8:
		if !x.Valid {
			return nil, true, true
		}
		return finite(x.Float64)
	case pgtype.Float4:
		if !x.Valid {
			return nil, true, true
		}
		return finite(float64(x.Float32))
	case pgtype.Int2:
		return validOr(int64(x.Int16), x.Valid)
	case pgtype.Int4:
		return validOr(int64(x.Int32), x.Valid)
	case pgtype.Int8:
		return validOr(x.Int64, x.Valid)
	case pgtype.Text:
		return validOr(x.String, x.Valid)
	case pgtype.Bool:
		return validOr(x.Bool, x.Valid)
	case pgtype.Date:
		return pgTime(x.Time, x.InfinityModifier, x.Valid)
	case pgtype.Timestamp:
		return pgTime(x.Time, x.InfinityModifier, x.Valid)
	case pgtype.Timestamptz:
		return pgTime(x.Time, x.InfinityModifier, x.Valid)
	}
	return nil, false, false
}

func finite(f float64) (any, bool, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false, true
	}
	return f, true, true
}

func validOr(v any, valid bool) (any, bool, bool) {
	if !valid {
		return nil, true, true
	}
	return v, true, true
}

func pgTime(t time.Time, inf pgtype.InfinityModifier, valid bool) (any, bool, bool) {
	if !valid {
		return nil, true, true
	}
	if inf != pgtype.Finite {
		return nil, false, true
	}
	return t.Format(time.RFC3339Nano), true, true
}

// Figures prepares the chart section of a report. Containers are rebuilt,
// figures exported, arrays expanded and numeric wrappers unwrapped. Other
// values pass through unchanged.
func Figures(v any) any {
	if out, _, handled := unwrapNumeric(v); handled {
		return out
	}

	switch x := v.(type) {
	case PortableFigure:
		return Figures(x.ToPortableFigure())
	case Array:
		return Figures(x.ToNested())
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = Figures(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Figures(e)
		}
		return out
	}
	return v
}
