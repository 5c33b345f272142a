package sql

import (
	"fmt"
)

// Risk levels reported by Inspect.
const (
	RiskNone = ""
	RiskHigh = "high"
)

// Inspection is the deterministic verdict on one statement.
type Inspection struct {
	NormalizedSQL string
	Issues        []string
	Risk          string
}

// Safe reports whether no deterministic rule fired.
func (i Inspection) Safe() bool {
	return len(i.Issues) == 0
}

// Inspect applies every static rule to sqlQuery: the keyword denylist,
// the write keyword scan, the single-statement rule, the read-only rule and
// the literal injection scan. Any issue raises the risk to high.
func Inspect(sqlQuery string) Inspection {
	var out Inspection

	for _, kw := range DenylistMatches(sqlQuery) {
		out.Issues = append(out.Issues, DangerousKeywordIssue(kw))
	}
	for _, kw := range ModifyingKeywords(sqlQuery) {
		out.Issues = append(out.Issues, WriteKeywordIssue(kw))
	}

	res := ValidateAndNormalize(sqlQuery)
	switch {
	case res.Error != nil:
		out.Issues = append(out.Issues, res.Error.Error())
		out.NormalizedSQL = stripTrailingSemicolon(sqlQuery)
	case res.NormalizedSQL == "":
		out.Issues = append(out.Issues, "empty statement")
	default:
		out.NormalizedSQL = res.NormalizedSQL
		if !IsReadStatement(res.NormalizedSQL) {
			out.Issues = append(out.Issues, "only SELECT statements are allowed")
		}
	}

	for _, r := range CheckLiteralsForInjection(sqlQuery) {
		out.Issues = append(out.Issues, fmt.Sprintf("SQL injection pattern in literal (fingerprint %s)", r.Fingerprint))
	}

	if len(out.Issues) > 0 {
		out.Risk = RiskHigh
	}
	return out
}
