package offer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const EnumTerritory = "territory"

// EnumValue is a canonical enumeration member and the spellings that map to it.
type EnumValue struct {
	Canonical string
	Aliases   []string
}

// Enumeration matches free text against canonical values, ignoring case,
// diacritics, punctuation and repeated whitespace.
type Enumeration struct {
	Name   string
	Values []EnumValue

	index map[string]string
}

func NewEnumeration(name string, values ...EnumValue) *Enumeration {
	e := &Enumeration{Name: name, Values: values, index: make(map[string]string)}
	for _, v := range values {
		e.index[Fold(v.Canonical)] = v.Canonical
		for _, alias := range v.Aliases {
			e.index[Fold(alias)] = v.Canonical
		}
	}
	return e
}

// Match returns the canonical value for raw.
func (e *Enumeration) Match(raw string) (string, bool) {
	canonical, ok := e.index[Fold(raw)]
	return canonical, ok
}

// Canonical lists the canonical values in declaration order.
func (e *Enumeration) Canonical() []string {
	out := make([]string, len(e.Values))
	for i, v := range e.Values {
		out[i] = v.Canonical
	}
	return out
}

var enumerations = map[string]*Enumeration{
	EnumTerritory: NewEnumeration(EnumTerritory,
		EnumValue{Canonical: "Latvia", Aliases: []string{"latvija", "lv", "republic of latvia", "latvijas republika"}},
		EnumValue{Canonical: "Baltic States", Aliases: []string{"baltics", "baltic", "baltija", "baltijas valstis", "baltic countries"}},
		EnumValue{Canonical: "Europe", Aliases: []string{"eiropa", "europa", "eu", "european union", "eiropas savieniba", "eea", "green card countries"}},
		EnumValue{Canonical: "Worldwide", Aliases: []string{"world", "whole world", "global", "pasaule", "visa pasaule"}},
	),
}

// LookupEnumeration returns a registered enumeration by name.
func LookupEnumeration(name string) (*Enumeration, bool) {
	e, ok := enumerations[name]
	return e, ok
}

// Fold lower-cases s, strips diacritics and punctuation and collapses
// whitespace, so "Eiropas Savienība." and "eiropas  savieniba" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	space := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			space = true
		case isMark(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}

// isMark keeps symbols that carry meaning on their own, like check marks.
func isMark(r rune) bool {
	return unicode.IsSymbol(r) || r == '+' || r == '-' || r == '—'
}
