package ranking

import (
	"context"
	"math"
	"strings"
	"unicode"

	"offerdesk/internal/model"
	"offerdesk/internal/offer"
)

// LexicalRanker scores passages with Okapi BM25 over diacritic-folded terms.
type LexicalRanker struct {
	K1 float64
	B  float64
}

func NewLexicalRanker() *LexicalRanker {
	return &LexicalRanker{K1: 1.2, B: 0.75}
}

func (r *LexicalRanker) Rank(_ context.Context, query string, passages []model.Passage, topK int) ([]model.Passage, error) {
	out := make([]model.Passage, len(passages))
	copy(out, passages)
	if len(out) == 0 {
		return out, nil
	}

	queryTerms := uniqueTerms(Terms(query))
	docs := make([]map[string]int, len(out))
	lengths := make([]int, len(out))
	df := make(map[string]int, len(queryTerms))
	total := 0
	for i := range out {
		terms := Terms(out[i].Content)
		lengths[i] = len(terms)
		total += len(terms)
		tf := make(map[string]int)
		for _, t := range terms {
			tf[t]++
		}
		docs[i] = tf
		for _, q := range queryTerms {
			if tf[q] > 0 {
				df[q]++
			}
		}
	}

	n := float64(len(out))
	avg := float64(total) / n
	if avg == 0 {
		avg = 1
	}
	for i := range out {
		var score float64
		for _, q := range queryTerms {
			f := float64(docs[i][q])
			if f == 0 {
				continue
			}
			idf := math.Log(1 + (n-float64(df[q])+0.5)/(float64(df[q])+0.5))
			norm := f + r.K1*(1-r.B+r.B*float64(lengths[i])/avg)
			score += idf * f * (r.K1 + 1) / norm
		}
		out[i].Score = float32(score)
	}
	return sortAndCut(out, topK), nil
}

// Terms splits folded text into searchable words.
func Terms(s string) []string {
	return strings.FieldsFunc(offer.Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func uniqueTerms(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := terms[:0:0]
	for _, t := range terms {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
