package offer

import "strings"

var (
	trueTokens = map[string]struct{}{
		"yes": {}, "y": {}, "true": {}, "1": {}, "x": {}, "+": {},
		"included": {}, "include": {}, "covered": {}, "checked": {}, "available": {},
		"ja": {}, "ir": {}, "iekļauts": {}, "ieklauts": {},
		"✓": {}, "✔": {}, "☑": {}, "✅": {}, "☒": {},
	}
	falseTokens = map[string]struct{}{
		"no": {}, "n": {}, "false": {}, "0": {}, "-": {}, "—": {},
		"excluded": {}, "not included": {}, "not covered": {}, "unchecked": {}, "none": {},
		"ne": {}, "nav": {}, "nav iekļauts": {}, "nav ieklauts": {},
		"✗": {}, "✘": {}, "❌": {}, "☐": {}, "✕": {},
	}
)

// ParseBool maps yes/no style tokens, check marks and JSON booleans to a
// boolean. The second result is false when the value is not recognised.
func ParseBool(raw any) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case float64:
		return boolFromNumber(v)
	case int:
		return boolFromNumber(float64(v))
	case string:
		return parseBoolToken(v)
	}
	return false, false
}

func boolFromNumber(f float64) (bool, bool) {
	switch f {
	case 1:
		return true, true
	case 0:
		return false, true
	}
	return false, false
}

func parseBoolToken(s string) (bool, bool) {
	token := strings.TrimSpace(strings.ToLower(s))
	token = strings.TrimRight(token, ".!")
	if token == "" {
		return false, false
	}
	if _, ok := trueTokens[token]; ok {
		return true, true
	}
	if _, ok := falseTokens[token]; ok {
		return false, true
	}
	folded := Fold(token)
	if _, ok := trueTokens[folded]; ok {
		return true, true
	}
	if _, ok := falseTokens[folded]; ok {
		return false, true
	}
	return false, false
}
