// Package query turns a user-authored row filter into a null-aware predicate.
//
// Filters use an infix grammar: comparisons joined by AND / OR, optional
// brackets left over from multi-select widgets, and "field == null" /
// "field != null" null checks. Translate normalizes that text; Compile
// turns the result into a program evaluated once per row.
package query

import (
	"regexp"
	"strings"
)

var (
	isNullPattern  = regexp.MustCompile(`([\p{L}\p{N}_]+)\s*==\s*null\b`)
	notNullPattern = regexp.MustCompile(`([\p{L}\p{N}_]+)\s*!=\s*null\b`)
)

// Predicate is a translated filter expression.
type Predicate struct {
	// Source is the query as the user wrote it.
	Source string

	// Expr is the rewritten expression. Empty selects every row.
	Expr string
}

// All reports whether the predicate selects every row.
func (p Predicate) All() bool {
	return strings.TrimSpace(p.Expr) == ""
}

func (p Predicate) String() string {
	return p.Expr
}

// Translate rewrites a filter string. The rewrites run in a fixed order:
//
//  1. " AND " becomes " & " and " OR " becomes " | "
//  2. '[' and ']' are removed and non-breaking spaces become spaces
//  3. "f == null" becomes "isnull(f)" and "f != null" becomes "notnull(f)"
//
// Translate never fails; malformed expressions surface from Compile.
func Translate(query string) Predicate {
	s := strings.ReplaceAll(query, " AND ", " & ")
	s = strings.ReplaceAll(s, " OR ", " | ")

	s = strings.NewReplacer("[", "", "]", "", "\u00a0", " ").Replace(s)

	s = isNullPattern.ReplaceAllString(s, "isnull($1)")
	s = notNullPattern.ReplaceAllString(s, "notnull($1)")

	if strings.TrimSpace(s) == "" {
		s = ""
	}
	return Predicate{Source: query, Expr: s}
}

// lowerOperators converts the single-character boolean operators of the
// translated form to the evaluator's spelling: & to &&, | to ||, ~ to not.
// Quoted string literals are left alone and doubled operators pass through.
func lowerOperators(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)

	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			b.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			} else if c == quote {
				quote = 0
			}
			continue
		}

		switch c {
		case '"', '\'', '`':
			quote = c
			b.WriteByte(c)
		case '&', '|':
			b.WriteByte(c)
			b.WriteByte(c)
			if i+1 < len(s) && s[i+1] == c {
				i++
			}
		case '~':
			b.WriteString(" not ")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
