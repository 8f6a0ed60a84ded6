package tabular

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// ErrTableNotFound is returned when a name has no registered table.
var ErrTableNotFound = errors.New("table not found")

// ErrInvalidTableName is returned for names the stores refuse to create.
var ErrInvalidTableName = errors.New("invalid table name")

// tablePrefix namespaces registered datasets inside the backing database.
const tablePrefix = "dataset_"

// rowOrderColumn preserves registration order for stores without a rowid.
const rowOrderColumn = "__row"

var tableNameRegex = regexp.MustCompile(`^[A-Za-z0-9_.\-]{1,100}$`)

// Store materializes named frames. Registering an existing name replaces
// the previous table atomically, so concurrent registrations of one name
// resolve to whichever committed last.
type Store interface {
	// Register creates or replaces the table called name with frame's contents.
	Register(ctx context.Context, name string, frame *Frame) error

	// Load returns the table's rows in registration order.
	Load(ctx context.Context, name string) (*Frame, error)

	// Drop removes the table. Dropping an unknown name is not an error.
	Drop(ctx context.Context, name string) error

	// Tables lists registered names in sorted order.
	Tables(ctx context.Context) ([]string, error)

	Close() error
}

// ValidateName checks that name can be used as a table name.
func ValidateName(name string) error {
	if !tableNameRegex.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidTableName, name)
	}
	return nil
}

// quoteIdentifier safely quotes a SQL identifier.
func quoteIdentifier(name string) string {
	return "\"" + strings.ReplaceAll(name, "\"", "\"\"") + "\""
}

func physicalName(name string) string {
	return tablePrefix + name
}

// storageValue converts a cell to what the database driver accepts.
func storageValue(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) {
			return nil
		}
		return x
	case nil, string:
		return x
	}
	if s, ok := Text(v); ok {
		return s
	}
	return nil
}

// columnKinds decides REAL or TEXT storage for each column of f.
func columnKinds(f *Frame) []bool {
	kinds := make([]bool, len(f.Columns))
	for i, c := range f.Columns {
		kinds[i] = f.NumericColumn(c)
	}
	return kinds
}

// readValue normalizes a value scanned from a database into a cell.
func readValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(x) {
			return nil
		}
		return x
	case float32:
		return float64(x)
	case int64:
		return float64(x)
	case int32:
		return float64(x)
	case []byte:
		return string(x)
	case string:
		return x
	}
	if s, ok := Text(v); ok {
		return s
	}
	return nil
}
