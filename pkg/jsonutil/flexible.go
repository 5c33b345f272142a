// Package jsonutil decodes loosely typed values from model responses.
package jsonutil

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode"
)

// FlexibleString renders a raw JSON value as text. Models sometimes answer
// with a number or boolean where a string was asked for; those are
// formatted rather than rejected. Null and empty values yield "".
func FlexibleString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}

	return string(raw)
}

// FlexibleCount reads a non-negative row estimate. It accepts plain
// numbers, numeric strings and phrases such as "~1,200 rows" or
// "1.200 filas", taking the first run of digits and ignoring thousands
// separators. ok is false when no count can be read.
func FlexibleCount(raw json.RawMessage) (n int64, ok bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f < 0 {
			return 0, false
		}
		return int64(f), true
	}

	s := FlexibleString(raw)
	start := strings.IndexFunc(s, unicode.IsDigit)
	if start < 0 {
		return 0, false
	}

	var digits strings.Builder
	for i, r := range s[start:] {
		switch {
		case unicode.IsDigit(r):
			digits.WriteRune(r)
		case (r == ',' || r == '.') && followedByThreeDigits(s[start+i+1:]):
			// thousands separator
		default:
			return parseDigits(digits.String())
		}
	}
	return parseDigits(digits.String())
}

func followedByThreeDigits(s string) bool {
	if len(s) < 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) == 3 || s[3] < '0' || s[3] > '9'
}

func parseDigits(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
