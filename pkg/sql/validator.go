// Package sql provides static checks for generated SQL.
package sql

import (
	"errors"
	"strings"
)

var (
	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")
)

// ValidationResult contains the normalized SQL and any validation errors.
type ValidationResult struct {
	NormalizedSQL string
	Error         error
}

// ValidateAndNormalize checks SQL for multiple statements and strips the trailing semicolon.
//
// The validation order is:
// 1. Strip trailing semicolon and whitespace (normalize)
// 2. Check for multiple statements (any remaining semicolons outside literals, identifiers and comments)
func ValidateAndNormalize(sqlQuery string) ValidationResult {
	sqlQuery = strings.TrimSpace(sqlQuery)

	if sqlQuery == "" {
		return ValidationResult{NormalizedSQL: sqlQuery}
	}

	normalized := stripTrailingSemicolon(sqlQuery)

	if hasSemicolonOutsideStrings(normalized) {
		return ValidationResult{Error: ErrMultipleStatements}
	}

	return ValidationResult{NormalizedSQL: normalized}
}

type scanState int

const (
	stateNormal scanState = iota
	stateSingleQuote
	stateDoubleQuote
	stateBracket
	stateLineComment
	stateBlockComment
)

// scan walks the statement and calls visit for every rune that sits in
// plain SQL (outside literals, quoted identifiers and comments).
func scan(sqlQuery string, visit func(i int, r rune) bool) {
	state := stateNormal
	runes := []rune(sqlQuery)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch state {
		case stateNormal:
			switch {
			case r == '\'':
				state = stateSingleQuote
			case r == '"':
				state = stateDoubleQuote
			case r == '[':
				state = stateBracket
			case r == '-' && next == '-':
				state = stateLineComment
				i++
			case r == '/' && next == '*':
				state = stateBlockComment
				i++
			default:
				if !visit(i, r) {
					return
				}
			}
		case stateSingleQuote:
			// '' re-enters on the next quote, which keeps us in the literal
			if r == '\'' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if r == '"' {
				state = stateNormal
			}
		case stateBracket:
			if r == ']' {
				state = stateNormal
			}
		case stateLineComment:
			if r == '\n' {
				state = stateNormal
			}
		case stateBlockComment:
			if r == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}
}

// hasSemicolonOutsideStrings returns true if the SQL contains any semicolon
// in plain SQL.
func hasSemicolonOutsideStrings(sqlQuery string) bool {
	found := false
	scan(sqlQuery, func(_ int, r rune) bool {
		if r == ';' {
			found = true
			return false
		}
		return true
	})
	return found
}

// stripTrailingSemicolon removes a trailing semicolon and any whitespace after it.
func stripTrailingSemicolon(sqlQuery string) string {
	sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")

	if strings.HasSuffix(sqlQuery, ";") {
		sqlQuery = strings.TrimSuffix(sqlQuery, ";")
		sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	}

	return sqlQuery
}

// StripComments replaces -- and /* */ comments with a single space,
// keeping literals and quoted identifiers intact.
func StripComments(sqlQuery string) string {
	var b strings.Builder
	runes := []rune(sqlQuery)
	state := stateNormal

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}
		switch state {
		case stateNormal:
			switch {
			case r == '-' && next == '-':
				state = stateLineComment
				i++
				continue
			case r == '/' && next == '*':
				state = stateBlockComment
				i++
				continue
			case r == '\'':
				state = stateSingleQuote
			case r == '"':
				state = stateDoubleQuote
			case r == '[':
				state = stateBracket
			}
			b.WriteRune(r)
		case stateSingleQuote, stateDoubleQuote, stateBracket:
			b.WriteRune(r)
			if (state == stateSingleQuote && r == '\'') ||
				(state == stateDoubleQuote && r == '"') ||
				(state == stateBracket && r == ']') {
				state = stateNormal
			}
		case stateLineComment:
			if r == '\n' {
				b.WriteRune('\n')
				state = stateNormal
			}
		case stateBlockComment:
			if r == '*' && next == '/' {
				b.WriteRune(' ')
				state = stateNormal
				i++
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// StringLiterals returns the contents of every single-quoted literal, with
// doubled quotes unescaped.
func StringLiterals(sqlQuery string) []string {
	var out []string
	runes := []rune(sqlQuery)
	state := stateNormal
	var cur strings.Builder

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}
		switch state {
		case stateNormal:
			switch {
			case r == '\'':
				state = stateSingleQuote
				cur.Reset()
			case r == '"':
				state = stateDoubleQuote
			case r == '[':
				state = stateBracket
			case r == '-' && next == '-':
				state = stateLineComment
				i++
			case r == '/' && next == '*':
				state = stateBlockComment
				i++
			}
		case stateSingleQuote:
			if r == '\'' {
				if next == '\'' {
					cur.WriteRune('\'')
					i++
					continue
				}
				out = append(out, cur.String())
				state = stateNormal
				continue
			}
			cur.WriteRune(r)
		case stateDoubleQuote:
			if r == '"' {
				state = stateNormal
			}
		case stateBracket:
			if r == ']' {
				state = stateNormal
			}
		case stateLineComment:
			if r == '\n' {
				state = stateNormal
			}
		case stateBlockComment:
			if r == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}
	return out
}
