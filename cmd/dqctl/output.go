package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/JonMunkholm/dataquality/internal/serialize"
)

const (
	formatTable    = "table"
	formatMarkdown = "markdown"
	formatJSON     = "json"
)

func checkFormat(format string) error {
	switch format {
	case formatTable, formatMarkdown, formatJSON:
		return nil
	}
	return fmt.Errorf("unknown format %q (valid: table, markdown, json)", format)
}

// newTable returns a table writer styled for format.
func newTable(format, title string) table.Writer {
	tw := table.NewWriter()
	if format == formatTable {
		tw.SetStyle(table.StyleLight)
		tw.SetTitle(title)
	}
	return tw
}

// render writes tw in the requested text format followed by a blank line.
func render(w io.Writer, tw table.Writer, format string) {
	if format == formatMarkdown {
		fmt.Fprintln(w, tw.RenderMarkdown())
	} else {
		fmt.Fprintln(w, tw.Render())
	}
	fmt.Fprintln(w)
}

// rightAlign right-aligns the given 1-based columns.
func rightAlign(tw table.Writer, cols ...int) {
	cfgs := make([]table.ColumnConfig, len(cols))
	for i, c := range cols {
		cfgs[i] = table.ColumnConfig{Number: c, Align: text.AlignRight}
	}
	tw.SetColumnConfigs(cfgs)
}

// writeJSON encodes v's JSON-safe form with indentation.
func writeJSON(w io.Writer, v any) error {
	out, ok := serialize.Normalize(v)
	if !ok {
		out = nil
	}
	return encodeJSON(w, out)
}

// encodeJSON writes v with encoding/json as is.
func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// cell formats a frame value for a text table. Nulls render empty.
func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
