package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const patientsCSV = "patient_age,sex\n10,F\n20,M\n30,F\n"

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run executes dqctl with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m), s)
	return m
}

func TestReport_JSON(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "patients.csv", patientsCSV)

	out, err := run(t, "report", path, "-o", "json",
		"--mapping", `patients={"age":"patient_age","sex":"sex"}`)
	require.NoError(t, err)

	got := decode(t, out)
	scores := got["scores"].(map[string]any)
	assert.InDelta(t, 15.0, scores["variety_age"], 1e-9)
	// Hill number of order 2 over F, M, F: 1 / (4/9 + 1/9).
	assert.InDelta(t, 1.8, scores["variety_sex"], 1e-9)
	assert.NotContains(t, got, "charts")
	assert.Len(t, got["metrics"].(map[string]any)["variety_age"], 2)
}

func TestReport_QueryAndCharts(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "patients.csv", patientsCSV)

	out, err := run(t, "report", path, "-o", "json", "--charts",
		"--mapping", `patients={"age":"patient_age"}`,
		"--query", "patients=age > 15")
	require.NoError(t, err)

	got := decode(t, out)
	assert.InDelta(t, 7.5, got["scores"].(map[string]any)["variety_age"], 1e-9)
	assert.NotContains(t, got["scores"], "variety_sex")
	assert.Contains(t, got["charts"], "variety_age")
}

func TestReport_MappingsFileAndTable(t *testing.T) {
	dir := t.TempDir()
	a := writeCSV(t, dir, "a.csv", patientsCSV)
	b := writeCSV(t, dir, "b.csv", "age\n1\n2\n3\n4\n5\n")
	mappings := writeCSV(t, dir, "mappings.yaml",
		"a:\n  age: patient_age\n  sex: sex\nb:\n  age: age\n")

	out, err := run(t, "report", a, b, "--mappings", mappings)
	require.NoError(t, err)
	assert.Contains(t, out, "Scores")
	assert.Contains(t, out, "variety_age")
	assert.Contains(t, out, "IQR")
	assert.Contains(t, out, "Charts:")

	out, err = run(t, "report", a, b, "--mappings", mappings, "--reducer", "max", "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "| variety_age |")
}

func TestReport_Errors(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "patients.csv", patientsCSV)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no files", []string{"report"}, "requires at least 1 arg"},
		{"missing file", []string{"report", filepath.Join(dir, "nope.csv")}, "no such file"},
		{"bad mapping flag", []string{"report", path, "--mapping", "patients"}, "expected name=value"},
		{"bad mapping json", []string{"report", path, "--mapping", "patients={"}, "JSON object"},
		{"unknown dataset", []string{"report", path, "--query", "other=age > 1"}, `unknown dataset "other"`},
		{"bad query", []string{"report", path, "--query", "patients=patient_age >"}, "invalid query"},
		{"bad reducer", []string{"report", path, "--reducer", "median"}, "unknown reducer"},
		{"bad format", []string{"report", path, "-o", "xml"}, "unknown format"},
		{"duplicate", []string{"report", path, path}, "given twice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFilter(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "patients.csv", "patient_age,sex\n10,F\n,M\n30,F\n")

	out, err := run(t, "filter", path, `sex == "F" AND patient_age > 15`, "-o", "json")
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 30.0, rows[0]["patient_age"])

	out, err = run(t, "filter", path, "age == null", "--mapping", `{"age":"patient_age"}`, "--count")
	require.NoError(t, err)
	assert.Equal(t, "1", strings.TrimSpace(out))

	out, err = run(t, "filter", path, "", "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "patient_age")
	assert.NotContains(t, out, "30")
}

func TestTranslate(t *testing.T) {
	out, err := run(t, "translate", "[age] > 18 AND sex != null")
	require.NoError(t, err)
	assert.Equal(t, "age > 18 & notnull(sex)", strings.TrimSpace(out))

	out, err = run(t, "translate", "  ")
	require.NoError(t, err)
	assert.Equal(t, "(all rows)", strings.TrimSpace(out))

	_, err = run(t, "translate", "age >", "--check")
	assert.ErrorContains(t, err, "invalid query")
}

func TestPlan(t *testing.T) {
	out, err := run(t, "plan")
	require.NoError(t, err)
	assert.Contains(t, out, "cluster: variety_sex")
	assert.Contains(t, out, "metric: HillNumbers")

	out, err = run(t, "plan", "-o", "json")
	require.NoError(t, err)
	got := decode(t, out)
	assert.Len(t, got["metrics"], 4)
	assert.Len(t, got["charts"], 3)

	out, err = run(t, "plan", "--capabilities", "-o", "json")
	require.NoError(t, err)
	got = decode(t, out)
	assert.Contains(t, got["metrics"], "IQR")
	assert.Contains(t, got["charts"], "continuous_bar_chart")

	planFile := writeCSV(t, t.TempDir(), "plan.yaml", "metrics:\n  - cluster: c\n")
	_, err = run(t, "plan", "--plan", planFile)
	assert.ErrorContains(t, err, "cluster and metric are required")
}
