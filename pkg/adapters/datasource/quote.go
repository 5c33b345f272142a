package datasource

import "regexp"

var bracketIdentifier = regexp.MustCompile(`\[([A-Za-z_][A-Za-z0-9_]*)\]`)

// QuoteBracketed rewrites [Name] identifiers in query with the dialect's
// quoting, so one statement text can serve every engine. Bracketed text
// inside string literals is not distinguished; callers keep literals free of it.
func QuoteBracketed(d Dialect, query string) string {
	return bracketIdentifier.ReplaceAllStringFunc(query, func(m string) string {
		return d.QuoteIdentifier(m[1 : len(m)-1])
	})
}
