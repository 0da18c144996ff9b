// Package filename holds the one filesystem-safe name transform used both when
// documents are stored and when share references are matched back to them.
package filename

import (
	"fmt"
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const fallbackName = "document"

// Normalize strips directories, folds diacritics, and replaces every rune
// outside [A-Za-z0-9._-] with '_'. Runs of '_' collapse to one and leading or
// trailing separators are trimmed. The result is stable: Normalize(Normalize(s))
// == Normalize(s).
func Normalize(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" {
		return fallbackName
	}

	folded, _, err := transform.String(foldTransformer(), name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	b.Grow(len(folded))
	lastUnderscore := false
	for _, r := range folded {
		if isSafe(r) {
			if r == '_' && lastUnderscore {
				continue
			}
			b.WriteRune(r)
			lastUnderscore = r == '_'
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}

	out := strings.Trim(b.String(), "_.")
	if out == "" {
		return fallbackName
	}
	return out
}

// Unique returns Normalize(name), or the same name with a "-2", "-3", ...
// suffix before the extension when it is already present in taken. The chosen
// name is added to taken.
func Unique(name string, taken map[string]bool) string {
	base := Normalize(name)
	candidate := base
	if taken[candidate] {
		ext := path.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		for i := 2; taken[candidate]; i++ {
			candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
		}
	}
	taken[candidate] = true
	return candidate
}

func isSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '-', r == '_':
		return true
	}
	return false
}

// foldTransformer is built per call; transform.Chain is stateful.
func foldTransformer() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
