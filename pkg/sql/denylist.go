package sql

import (
	"fmt"
	"strings"
)

// DangerousKeywords are vetoed anywhere in generated SQL, in this order.
var DangerousKeywords = []string{"DROP", "DELETE", "TRUNCATE", "ALTER", "UPDATE"}

// DangerousKeywordIssue is the verdict issue text for a denylist match.
func DangerousKeywordIssue(keyword string) string {
	return fmt.Sprintf("Dangerous keyword detected: %s", keyword)
}

// DenylistMatches returns the dangerous keywords present in sqlQuery.
// Matching is a case-insensitive substring test over the whole text,
// literals and identifiers included, so a column named "UpdatedAt" also
// trips the UPDATE entry. False positives are preferred over misses.
func DenylistMatches(sqlQuery string) []string {
	upper := strings.ToUpper(sqlQuery)
	var matches []string
	for _, kw := range DangerousKeywords {
		if strings.Contains(upper, kw) {
			matches = append(matches, kw)
		}
	}
	return matches
}

// IsReadStatement reports whether the statement starts with SELECT or WITH
// once comments and opening parentheses are removed.
func IsReadStatement(sqlQuery string) bool {
	s := strings.TrimLeft(StripComments(sqlQuery), "( \t\r\n")
	upper := strings.ToUpper(s)
	return hasKeywordPrefix(upper, "SELECT") || hasKeywordPrefix(upper, "WITH")
}

func hasKeywordPrefix(s, kw string) bool {
	if !strings.HasPrefix(s, kw) {
		return false
	}
	if len(s) == len(kw) {
		return true
	}
	c := s[len(kw)]
	return !(c == '_' || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9'))
}
