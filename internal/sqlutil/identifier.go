// Package sqlutil builds the SQL text fragments shared by the database
// layer: backtick-quoted identifiers, placeholder lists and parameterized
// WHERE predicates. Everything here is pure string work; no connection is
// ever touched.
package sqlutil

import "strings"

// QuoteIdent wraps an identifier in backticks for use in MySQL statements.
// A literal backtick inside the name is escaped by doubling it before
// wrapping, so a hostile name cannot break out of the quoted region.
//
// QuoteIdent is not idempotent: quoting an already-quoted name quotes it
// again. Callers must quote exactly once, at the point the name is
// spliced into a statement.
func QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QuoteIdents quotes each name and joins them with ", " for column lists.
func QuoteIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = QuoteIdent(name)
	}
	return strings.Join(quoted, ", ")
}

// Placeholders returns n comma-separated "?" markers.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(3 * n)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('?')
	}
	return b.String()
}
