package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a literal that libinjection flags.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	Literal     string // The literal contents that were checked
}

// CheckValueForInjection runs libinjection over a single value. Only string
// values are checked; anything else returns nil.
func CheckValueForInjection(value any) *InjectionCheckResult {
	strValue, ok := value.(string)
	if !ok || strValue == "" {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(strValue)
	if isSQLi {
		return &InjectionCheckResult{
			IsSQLi:      true,
			Fingerprint: string(fingerprint),
			Literal:     strValue,
		}
	}

	return nil
}

// CheckLiteralsForInjection inspects every string literal in sqlQuery.
// A model that copies hostile user text into a WHERE clause shows up here.
func CheckLiteralsForInjection(sqlQuery string) []*InjectionCheckResult {
	var results []*InjectionCheckResult
	for _, lit := range StringLiterals(sqlQuery) {
		if r := CheckValueForInjection(lit); r != nil {
			results = append(results, r)
		}
	}
	return results
}
