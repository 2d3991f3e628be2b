// ABOUTME: Text pipeline shared by indexing and querying
// ABOUTME: Normalize, fold case, split, trim, drop stop words, stem

package fulltext

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a able about across after all almost also am among an and any are as
		at be because been but by can cannot could dear did do does either else ever every for from get got
		had has have he her hers him his how however i if in into is it its just least let like likely may me
		might most must my neither no nor not of off often on only or other our own rather said say says she
		should since so some than that the their them then there these they this tis to too twas us wants
		was we were what when where which while who whom why will with would yet you your`) {
		stopWords[w] = struct{}{}
	}
}

// fold normalizes s to NFKC and folds its case. A Caser keeps state, so
// each call gets its own.
func fold(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}

func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || r == '-'
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Tokenize splits text into folded, trimmed tokens without filtering.
func Tokenize(text string) []string {
	parts := strings.FieldsFunc(fold(text), isSeparator)
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimFunc(p, func(r rune) bool { return !isWordRune(r) })
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Analyze runs the full pipeline over text and returns index terms.
func Analyze(text string) []string {
	tokens := Tokenize(text)
	out := tokens[:0]
	for _, t := range tokens {
		if term, ok := processToken(t); ok {
			out = append(out, term)
		}
	}
	return out
}

// processToken applies the stop-word filter and stemmer to one token.
func processToken(token string) (string, bool) {
	if _, stop := stopWords[token]; stop {
		return "", false
	}
	if term := english.Stem(token, false); term != "" {
		return term, true
	}
	return token, true
}

// analyzeTerm prepares one query term. Query terms are stemmed but never
// stop-word filtered, so a required stop word still has to match.
func analyzeTerm(term string) (string, bool) {
	tokens := Tokenize(term)
	if len(tokens) == 0 {
		return "", false
	}
	if stem := english.Stem(tokens[0], false); stem != "" {
		return stem, true
	}
	return tokens[0], true
}
