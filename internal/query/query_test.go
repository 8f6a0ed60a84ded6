package query

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataquality/internal/dataset"
	"github.com/JonMunkholm/dataquality/internal/tabular"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"empty", "", ""},
		{"whitespace", "  \t ", ""},
		{"and", "a == 1 AND b == 2", "a == 1 & b == 2"},
		{"or", "a == 1 OR b == 2", "a == 1 | b == 2"},
		{"brackets", "site in [\"A\", \"B\"]", "site in \"A\", \"B\""},
		{"nbsp", "a\u00a0==\u00a01", "a == 1"},
		{"is null", "age == null", "isnull(age)"},
		{"not null", "age != null", "notnull(age)"},
		{"null after and", "sex == 'F' AND age!=null", "sex == 'F' & notnull(age)"},
		{"nbsp before null", "age\u00a0==\u00a0null", "isnull(age)"},
		{"non-ascii is null", "größe == null", "isnull(größe)"},
		{"non-ascii not null", "âge != null AND 年齢 == null", "notnull(âge) & isnull(年齢)"},
		{"lowercase and untouched", "a == 1 and b == 2", "a == 1 and b == 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Translate(tt.query)
			if p.Expr != tt.want {
				t.Errorf("Translate(%q) = %q, want %q", tt.query, p.Expr, tt.want)
			}
			if p.Source != tt.query {
				t.Errorf("Source = %q, want %q", p.Source, tt.query)
			}
		})
	}
}

func TestPredicate_All(t *testing.T) {
	if !Translate("").All() {
		t.Error("empty query should select every row")
	}
	if Translate("age > 3").All() {
		t.Error("non-empty query should not select every row")
	}
}

func TestLowerOperators(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a == 1 & b == 2", "a == 1 && b == 2"},
		{"a == 1 | b == 2", "a == 1 || b == 2"},
		{"a && b || c", "a && b || c"},
		{"~isnull(a)", " not isnull(a)"},
		{`name == "x & y"`, `name == "x & y"`},
		{`name == 'it\'s | ok'`, `name == 'it\'s | ok'`},
	}
	for _, tt := range tests {
		if got := lowerOperators(tt.in); got != tt.want {
			t.Errorf("lowerOperators(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func rowsOf(values ...any) []map[string]any {
	rows := make([]map[string]any, len(values))
	for i, v := range values {
		rows[i] = map[string]any{"age": v}
	}
	return rows
}

func TestFilter_NullChecks(t *testing.T) {
	rows := []map[string]any{
		{"age": 34.0, "sex": "F"},
		{"age": nil, "sex": nil},
		{"age": math.NaN(), "sex": "M"},
		{"sex": "F"},
	}

	tests := []struct {
		query string
		want  []bool
	}{
		{"age == null", []bool{false, true, true, true}},
		{"age != null", []bool{true, false, false, false}},
		{"sex == null", []bool{false, true, false, false}},
		{"sex != null", []bool{true, false, true, true}},
		{"", []bool{true, true, true, true}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := Filter(rows, Translate(tt.query))
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mask mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilter_ComplementOfNullChecks(t *testing.T) {
	rows := rowsOf(1.0, nil, "x", math.NaN(), 0.0)

	isNull, err := Filter(rows, Translate("age == null"))
	require.NoError(t, err)
	notNull, err := Filter(rows, Translate("age != null"))
	require.NoError(t, err)

	for i := range rows {
		assert.NotEqual(t, isNull[i], notNull[i], "row %d", i)
	}
}

func TestFilter_ComparisonsWithNulls(t *testing.T) {
	rows := rowsOf(10.0, nil, 30.0)

	tests := []struct {
		query string
		want  []bool
	}{
		{"age > 15", []bool{false, false, true}},
		{"age <= 30", []bool{true, false, true}},
		{"age == 10", []bool{true, false, false}},
		{"age != 10", []bool{false, true, true}},
		{"~(age > 15)", []bool{true, true, false}},
		{"age > 5 AND age < 20", []bool{true, false, false}},
		{"age < 20 OR age == null", []bool{true, true, false}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := Filter(rows, Translate(tt.query))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilter_Strings(t *testing.T) {
	rows := []map[string]any{
		{"site": "A", "n": 1.0},
		{"site": "B", "n": 2.0},
		{"site": nil, "n": 3.0},
	}

	got, err := Filter(rows, Translate(`site == "A" OR n >= 3`))
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true}, got)

	got, err = Filter(rows, Translate(`site < "B"`))
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, false}, got)

	got, err = Filter(rows, Translate(`site == 1`))
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, false}, got, "mixed types are never equal")
}

func TestFilter_Errors(t *testing.T) {
	rows := []map[string]any{{"site": 1.0}, {"site": "A"}}

	tests := []struct {
		name  string
		query string
		row   int
	}{
		{"parse error", "age >", -1},
		{"unbalanced", "(age > 1", -1},
		{"ordered mixed types", `site > "B"`, 0},
		{"non boolean result", "site", 0},
		{"unknown name null check", "agee != null", -1},
		{"unknown name comparison", "agee > 3", -1},
		{"unknown name beside known", `site == "A" OR agee == 1`, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Filter(rows, Translate(tt.query))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrQuerySyntax)

			var se *SyntaxError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.query, se.Query)
			assert.Equal(t, tt.row, se.Row)
		})
	}
}

func TestFilter_UndefinedName(t *testing.T) {
	rows := []map[string]any{{"age": 34.0}, {"age": nil}}

	_, err := Filter(rows, Translate("agee != null"))
	assert.ErrorIs(t, err, ErrQuerySyntax)
	assert.ErrorIs(t, err, ErrUndefinedName)
	assert.ErrorContains(t, err, `"agee"`)

	// Functions and the null literal are not column names.
	mask, err := Filter(rows, Translate("notnull(age) AND age == null OR len(\"x\") == 1"))
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true}, mask)
}

func TestFilter_NonASCIIColumn(t *testing.T) {
	rows := []map[string]any{{"größe": 1.8}, {"größe": nil}}

	got, err := Filter(rows, Translate("größe == null"))
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, got)

	got, err = Filter(rows, Translate("größe != null AND größe > 1"))
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, got)
}

func TestFilter_SizedIntegers(t *testing.T) {
	rows := []map[string]any{
		{"n": uint32(7)}, {"n": int8(-3)}, {"n": uint8(200)}, {"n": int16(7)}, {"n": uint64(9)},
	}

	got, err := Filter(rows, Translate("n == 7"))
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, false, true, false}, got)

	got, err = Filter(rows, Translate("n > 8"))
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, true, false, true}, got)
}

func TestApply_SemanticFields(t *testing.T) {
	frame := tabular.NewFrame([]string{"patient_age"}, []tabular.Row{
		{"patient_age": 34.0},
		{"patient_age": nil},
	})
	ds := dataset.New("ecg", frame, dataset.FieldMapping{"age": "patient_age"})

	filtered, err := Apply(ds, Translate("age != null"))
	require.NoError(t, err)
	require.Equal(t, 1, filtered.Len())

	f, err := filtered.Fields(0)
	require.NoError(t, err)
	assert.Equal(t, 34.0, f["age"])

	raw, err := Apply(ds, Translate("patient_age == null"))
	require.NoError(t, err)
	assert.Equal(t, 1, raw.Len(), "raw column names stay addressable")

	_, err = Apply(ds, Translate("age >"))
	assert.ErrorIs(t, err, ErrQuerySyntax)

	_, err = Apply(ds, Translate("sex == null"))
	assert.ErrorIs(t, err, ErrUndefinedName)

	empty := dataset.New("empty", tabular.NewFrame([]string{"patient_age"}, nil), dataset.FieldMapping{"age": "patient_age"})
	_, err = Apply(empty, Translate("agee > 1"))
	assert.ErrorIs(t, err, ErrUndefinedName, "checked even without rows")
	none, err := Apply(empty, Translate("age > 1"))
	require.NoError(t, err)
	assert.Equal(t, 0, none.Len())
}

func TestApplyFrame(t *testing.T) {
	frame := tabular.NewFrame([]string{"age"}, []tabular.Row{
		{"age": 10.0}, {"age": 20.0}, {"age": 30.0},
	})

	out, err := ApplyFrame(frame, Translate("age >= 20"))
	require.NoError(t, err)
	assert.Equal(t, []any{20.0, 30.0}, out.Column("age"))

	all, err := ApplyFrame(frame, Translate(" "))
	require.NoError(t, err)
	assert.Equal(t, 3, all.Len())
	_, err = ApplyFrame(frame, Translate("agee >= 20"))
	assert.ErrorIs(t, err, ErrUndefinedName)
}
