package offer

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// ParseMoney extracts the first amount from text such as "1 480,00 EUR",
// "€1,480.50" or "EUR 95". Spaces, apostrophes and non-breaking spaces are
// thousands separators; the decimal mark is inferred from the last separator.
// A minus is a sign only when it directly precedes a digit or currency symbol
// and does not follow a letter, so "Kasko-apdrošināšana 850" and
// "Premium - 850" stay positive.
// It reports false instead of failing when no amount can be read.
func ParseMoney(raw string) (float64, bool) {
	var num strings.Builder
	negative := false
	seenDigit := false
	runes := []rune(strings.TrimSpace(raw))

scan:
	for i, r := range runes {
		switch {
		case r >= '0' && r <= '9':
			num.WriteRune(r)
			seenDigit = true
		case r == ',' || r == '.':
			if seenDigit {
				num.WriteRune(r)
			}
		case r == '-' || r == '−':
			if seenDigit {
				break scan
			}
			negative = isSign(runes, i)
		case r == '\'' || r == '\u00a0' || r == '\u202f' || unicode.IsSpace(r):
		default:
			if seenDigit {
				break scan
			}
			if unicode.IsLetter(r) {
				negative = false
			}
		}
	}
	if !seenDigit {
		return 0, false
	}

	digits := resolveSeparators(strings.TrimRight(num.String(), ",."))
	amount, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		amount = -amount
	}
	return amount, true
}

func isSign(runes []rune, i int) bool {
	if i > 0 && (unicode.IsLetter(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
		return false
	}
	if i+1 >= len(runes) {
		return false
	}
	next := runes[i+1]
	return (next >= '0' && next <= '9') || unicode.Is(unicode.Sc, next)
}

func resolveSeparators(s string) string {
	lastComma := strings.LastIndexByte(s, ',')
	lastDot := strings.LastIndexByte(s, '.')

	switch {
	case lastComma >= 0 && lastDot >= 0:
		decimal := lastDot
		if lastComma > lastDot {
			decimal = lastComma
		}
		whole := strings.NewReplacer(",", "", ".", "").Replace(s[:decimal])
		frac := strings.NewReplacer(",", "", ".", "").Replace(s[decimal+1:])
		return whole + "." + frac
	case lastComma >= 0:
		return resolveSingle(s, ",")
	case lastDot >= 0:
		return resolveSingle(s, ".")
	}
	return s
}

// resolveSingle handles strings with one kind of separator. Repeated
// separators, or a single one followed by exactly three digits after a
// non-zero integer part, are thousands separators.
func resolveSingle(s, sep string) string {
	if strings.Count(s, sep) > 1 {
		return strings.ReplaceAll(s, sep, "")
	}
	idx := strings.Index(s, sep)
	whole, frac := s[:idx], s[idx+1:]
	if len(frac) == 3 && whole != "" && strings.TrimLeft(whole, "0") != "" {
		return whole + frac
	}
	return whole + "." + frac
}

var currencyCodePattern = regexp.MustCompile(`\b(EUR|USD|GBP|SEK|NOK|DKK|PLN|CHF)\b`)

// DetectCurrency returns the ISO code mentioned in text, or "".
func DetectCurrency(raw string) string {
	if m := currencyCodePattern.FindString(strings.ToUpper(raw)); m != "" {
		return m
	}
	switch {
	case strings.ContainsRune(raw, '€'):
		return "EUR"
	case strings.ContainsRune(raw, '£'):
		return "GBP"
	case strings.ContainsRune(raw, '$'):
		return "USD"
	}
	return ""
}
