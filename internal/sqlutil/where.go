package sqlutil

import "strings"

// Cond is a single column predicate. A scalar Value means equality; a
// []any Value means set membership. Use Eq and In instead of constructing
// Cond directly.
type Cond struct {
	Col   string
	Value any
}

// Eq matches rows whose column equals v.
func Eq(col string, v any) Cond {
	return Cond{Col: col, Value: v}
}

// In matches rows whose column is one of vals. With no values the
// condition is unsatisfiable and Where emits a literal FALSE term for it.
func In(col string, vals ...any) Cond {
	if vals == nil {
		vals = []any{}
	}
	return Cond{Col: col, Value: vals}
}

// Where builds a parameterized predicate from conds, joined with AND, and
// returns it together with the bound values in condition order. An empty
// cond list yields an empty predicate; callers must then omit the WHERE
// clause entirely.
//
// database/sql does not expand slice parameters, so an IN condition is
// expanded to one "?" per element and each element is bound individually.
// An empty IN term becomes the literal FALSE and binds nothing, but the
// other terms of the conjunction still apply and still bind their values.
func Where(conds []Cond) (string, []any) {
	if len(conds) == 0 {
		return "", nil
	}

	terms := make([]string, 0, len(conds))
	args := make([]any, 0, len(conds))
	for _, c := range conds {
		set, isSet := c.Value.([]any)
		if !isSet {
			terms = append(terms, QuoteIdent(c.Col)+" = ?")
			args = append(args, c.Value)
			continue
		}
		if len(set) == 0 {
			terms = append(terms, "FALSE")
			continue
		}
		terms = append(terms, QuoteIdent(c.Col)+" IN ("+Placeholders(len(set))+")")
		args = append(args, set...)
	}

	return strings.Join(terms, " AND "), args
}
