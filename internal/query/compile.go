package query

import (
	"cmp"
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"

	"github.com/JonMunkholm/dataquality/internal/tabular"
)

// ErrQuerySyntax matches every error produced while compiling or evaluating
// a predicate.
var ErrQuerySyntax = errors.New("invalid query")

// ErrUndefinedName is wrapped by a SyntaxError for a predicate that names a
// column or field the rows do not have.
var ErrUndefinedName = errors.New("undefined name")

// SyntaxError reports a predicate that failed to compile or evaluate.
type SyntaxError struct {
	Query string
	Expr  string

	// Row is the row being evaluated, or -1 for compile errors.
	Row int

	Err error
}

func (e *SyntaxError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("invalid query %q at row %d: %v", e.Query, e.Row, e.Err)
	}
	return fmt.Sprintf("invalid query %q: %v", e.Query, e.Err)
}

func (e *SyntaxError) Unwrap() []error {
	return []error{ErrQuerySyntax, e.Err}
}

// Program is a compiled predicate.
type Program struct {
	pred  Predicate
	prog  *vm.Program
	names []string
}

// Compile parses a translated predicate. The select-all predicate compiles
// to a program that matches every row.
func Compile(p Predicate) (*Program, error) {
	if p.All() {
		return &Program{pred: p}, nil
	}

	prog, err := expr.Compile(lowerOperators(p.Expr),
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
		expr.Patch(nullAwareComparisons{}),
		expr.Function("isnull", func(params ...any) (any, error) {
			return tabular.IsNull(params[0]), nil
		}, new(func(any) bool)),
		expr.Function("notnull", func(params ...any) (any, error) {
			return !tabular.IsNull(params[0]), nil
		}, new(func(any) bool)),
		expr.Function("compare", func(params ...any) (any, error) {
			return compareValues(params[0].(string), params[1], params[2])
		}, new(func(string, any, any) bool)),
	)
	if err != nil {
		return nil, &SyntaxError{Query: p.Source, Expr: p.Expr, Row: -1, Err: err}
	}

	tree, err := parser.Parse(lowerOperators(p.Expr))
	if err != nil {
		return nil, &SyntaxError{Query: p.Source, Expr: p.Expr, Row: -1, Err: err}
	}
	var names nameCollector
	ast.Walk(&tree.Node, &names)

	return &Program{pred: p, prog: prog, names: names.result()}, nil
}

// Predicate returns the predicate the program was compiled from.
func (p *Program) Predicate() Predicate { return p.pred }

// Names returns the column and field names the predicate reads, in order of
// first use.
func (p *Program) Names() []string { return p.names }

// CheckNames fails with a SyntaxError wrapping ErrUndefinedName for the
// first name that known rejects.
func (p *Program) CheckNames(known func(string) bool) error {
	for _, n := range p.names {
		if !known(n) {
			return &SyntaxError{
				Query: p.pred.Source,
				Expr:  p.pred.Expr,
				Row:   -1,
				Err:   fmt.Errorf("%w %q", ErrUndefinedName, n),
			}
		}
	}
	return nil
}

// nameCollector gathers identifiers that are read as variables. Function
// callees, let-bound names and the null literal are skipped.
type nameCollector struct {
	idents  []*ast.IdentifierNode
	callees map[ast.Node]bool
	bound   map[string]bool
}

func (c *nameCollector) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		c.idents = append(c.idents, n)
	case *ast.CallNode:
		if c.callees == nil {
			c.callees = make(map[ast.Node]bool)
		}
		c.callees[n.Callee] = true
	case *ast.VariableDeclaratorNode:
		if c.bound == nil {
			c.bound = make(map[string]bool)
		}
		c.bound[n.Name] = true
	}
}

func (c *nameCollector) result() []string {
	seen := make(map[string]bool)
	var out []string
	for _, id := range c.idents {
		if c.callees[id] || c.bound[id.Value] || id.Value == "null" || seen[id.Value] {
			continue
		}
		seen[id.Value] = true
		out = append(out, id.Value)
	}
	return out
}

// Match evaluates the program against one row's named values.
func (p *Program) Match(env map[string]any) (bool, error) {
	if p.prog == nil {
		return true, nil
	}
	out, err := expr.Run(p.prog, env)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("predicate produced %T, not a boolean", out)
	}
	return b, nil
}

// Mask evaluates the program against each row and returns the selection
// vector. The first failing row aborts evaluation.
func (p *Program) Mask(rows []map[string]any) ([]bool, error) {
	mask := make([]bool, len(rows))
	for i, row := range rows {
		ok, err := p.Match(row)
		if err != nil {
			return nil, &SyntaxError{Query: p.pred.Source, Expr: p.pred.Expr, Row: i, Err: err}
		}
		mask[i] = ok
	}
	return mask, nil
}

// comparisonOps are the operators replaced with null-aware comparisons.
var comparisonOps = map[string]bool{
	"==": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true,
}

// nullAwareComparisons rewrites every comparison into a compare() call so
// nulls follow one rule for all column types: == is false, != is true and
// ordered comparisons are false. A comparison against a null literal
// becomes isnull / notnull.
type nullAwareComparisons struct{}

func (nullAwareComparisons) Visit(node *ast.Node) {
	bin, ok := (*node).(*ast.BinaryNode)
	if !ok || !comparisonOps[bin.Operator] {
		return
	}

	if bin.Operator == "==" || bin.Operator == "!=" {
		fn := "isnull"
		if bin.Operator == "!=" {
			fn = "notnull"
		}
		switch {
		case isNullLiteral(bin.Right) && isNullLiteral(bin.Left):
			ast.Patch(node, &ast.BoolNode{Value: bin.Operator == "=="})
			return
		case isNullLiteral(bin.Right):
			ast.Patch(node, call(fn, bin.Left))
			return
		case isNullLiteral(bin.Left):
			ast.Patch(node, call(fn, bin.Right))
			return
		}
	}

	ast.Patch(node, call("compare", &ast.StringNode{Value: bin.Operator}, bin.Left, bin.Right))
}

func isNullLiteral(n ast.Node) bool {
	switch v := n.(type) {
	case *ast.NilNode:
		return true
	case *ast.IdentifierNode:
		return v.Value == "null"
	}
	return false
}

func call(name string, args ...ast.Node) ast.Node {
	return &ast.CallNode{Callee: &ast.IdentifierNode{Value: name}, Arguments: args}
}

// compareValues applies op with null-aware semantics. Numbers compare as
// float64, strings lexically and booleans by equality only.
func compareValues(op string, l, r any) (bool, error) {
	if tabular.IsNull(l) || tabular.IsNull(r) {
		return op == "!=", nil
	}

	if lf, ok := number(l); ok {
		if rf, ok := number(r); ok {
			return ordered(op, lf, rf), nil
		}
	}
	if ls, ok := l.(string); ok {
		if rs, ok := r.(string); ok {
			return ordered(op, ls, rs), nil
		}
	}

	switch op {
	case "==":
		return sameBool(l, r), nil
	case "!=":
		return !sameBool(l, r), nil
	}
	return false, fmt.Errorf("cannot compare %T %s %T", l, op, r)
}

func sameBool(l, r any) bool {
	lb, lok := l.(bool)
	rb, rok := r.(bool)
	return lok && rok && lb == rb
}

func ordered[T cmp.Ordered](op string, l, r T) bool {
	switch op {
	case "==":
		return l == r
	case "!=":
		return l != r
	case "<":
		return l < r
	case ">":
		return l > r
	case "<=":
		return l <= r
	case ">=":
		return l >= r
	}
	return false
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case int16:
		return float64(x), true
	case int8:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint64:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint8:
		return float64(x), true
	}
	return 0, false
}
