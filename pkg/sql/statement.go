package sql

import (
	"fmt"
	"strings"
	"unicode"
)

// WriteKeywords turn a statement that starts with SELECT or WITH into one
// that writes: WITH c AS (...) INSERT INTO ..., SELECT ... INTO NewTable,
// MERGE, procedure calls and DDL. They are matched as whole words in plain
// SQL only, so a column named CreatedAt or a literal 'insert' is fine.
var WriteKeywords = []string{"INSERT", "MERGE", "EXEC", "EXECUTE", "CREATE", "INTO"}

// WriteKeywordIssue is the verdict issue text for a write keyword match.
func WriteKeywordIssue(keyword string) string {
	if keyword == "INTO" {
		return "SELECT ... INTO is not allowed: it writes a table"
	}
	return fmt.Sprintf("Write keyword detected: %s", keyword)
}

// ModifyingKeywords returns the WriteKeywords found in plain SQL, in the
// order they first appear.
func ModifyingKeywords(sqlQuery string) []string {
	wanted := make(map[string]bool, len(WriteKeywords))
	for _, kw := range WriteKeywords {
		wanted[kw] = true
	}

	var matches []string
	seen := make(map[string]bool)
	for _, word := range plainWords(sqlQuery) {
		if wanted[word] && !seen[word] {
			seen[word] = true
			matches = append(matches, word)
		}
	}
	return matches
}

// plainWords splits the plain SQL of sqlQuery into upper-cased words.
// Literals, quoted identifiers and comments act as separators.
func plainWords(sqlQuery string) []string {
	var words []string
	var cur strings.Builder
	last := -2

	flush := func() {
		if cur.Len() > 0 {
			words = append(words, strings.ToUpper(cur.String()))
			cur.Reset()
		}
	}

	scan(sqlQuery, func(i int, r rune) bool {
		if i != last+1 {
			flush()
		}
		last = i
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
		return true
	})
	flush()
	return words
}
