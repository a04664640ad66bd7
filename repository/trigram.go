package repository

import (
	"strings"
	"unicode"
)

// Trigram similarity with pg_trgm semantics: text is lowercased and split into
// words of letters and digits; each word is padded with two leading blanks and
// one trailing blank before its three-rune windows are collected into a set.

type trigramSet map[string]struct{}

func trigrams(s string) trigramSet {
	set := trigramSet{}
	for _, word := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		padded := []rune("  " + word + " ")
		for i := 0; i+3 <= len(padded); i++ {
			set[string(padded[i:i+3])] = struct{}{}
		}
	}
	return set
}

func (a trigramSet) shared(b trigramSet) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for g := range a {
		if _, ok := b[g]; ok {
			n++
		}
	}
	return n
}

// Similarity is the Jaccard ratio of the trigram sets of a and b, in [0, 1].
func Similarity(a, b string) float64 {
	return trigrams(a).similarity(trigrams(b))
}

func (a trigramSet) similarity(b trigramSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := a.shared(b)
	return float64(shared) / float64(len(a)+len(b)-shared)
}

// coverage is the share of the query trigrams present in the document.
func (a trigramSet) coverage(doc trigramSet) float64 {
	if len(a) == 0 {
		return 0
	}
	return float64(a.shared(doc)) / float64(len(a))
}

// Weights of the title and body fields in weighted search.
const (
	titleWeight = 1.0
	bodyWeight  = 0.4
)

// weightedScore ranks title matches above body matches: title similarity at
// weight 1.0 plus body coverage at weight 0.4, normalized back into [0, 1].
func weightedScore(query trigramSet, title, body string) float64 {
	score := titleWeight*query.similarity(trigrams(title)) + bodyWeight*query.coverage(trigrams(body))
	return score / (titleWeight + bodyWeight)
}
