package datasource

import (
	"strconv"
	"strings"
)

// ConvertPlaceholders rewrites $1, $2, ... into the dialect's placeholder
// syntax. Placeholders inside string literals, quoted identifiers and
// comments are left alone.
func ConvertPlaceholders(query string, placeholder func(n int) string) string {
	if !strings.Contains(query, "$") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query))

	for i := 0; i < len(query); {
		c := query[i]
		switch {
		case c == '\'' || c == '"' || c == '[':
			end := skipQuoted(query, i)
			b.WriteString(query[i:end])
			i = end
		case c == '-' && i+1 < len(query) && query[i+1] == '-':
			end := strings.IndexByte(query[i:], '\n')
			if end < 0 {
				end = len(query) - i
			}
			b.WriteString(query[i : i+end])
			i += end
		case c == '/' && i+1 < len(query) && query[i+1] == '*':
			end := strings.Index(query[i+2:], "*/")
			stop := len(query)
			if end >= 0 {
				stop = i + 2 + end + 2
			}
			b.WriteString(query[i:stop])
			i = stop
		case c == '$' && i+1 < len(query) && isDigit(query[i+1]):
			j := i + 1
			for j < len(query) && isDigit(query[j]) {
				j++
			}
			n, _ := strconv.Atoi(query[i+1 : j])
			b.WriteString(placeholder(n))
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

func skipQuoted(s string, start int) int {
	closing := s[start]
	if closing == '[' {
		closing = ']'
	}
	for i := start + 1; i < len(s); i++ {
		if s[i] != closing {
			continue
		}
		// doubled quote is an escape
		if i+1 < len(s) && s[i+1] == closing {
			i++
			continue
		}
		return i + 1
	}
	return len(s)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
