package phase

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
)

var tokenPattern = regexp.MustCompile(`\b[a-zA-Z][a-zA-Z]+\b`)

// ErrEmptyVocabulary is returned when no term survives tokenization and
// document frequency pruning.
var ErrEmptyVocabulary = errors.New("empty vocabulary after pruning")

// Vectorizer computes TF-IDF weights over unigrams and bigrams.
type Vectorizer struct {
	MaxFeatures int
	MaxDF       float64
	StopWords   map[string]struct{}
}

// NewVectorizer returns a vectorizer with English stop words, a 0.9
// document frequency ceiling and at most 50 features.
func NewVectorizer() *Vectorizer {
	return &Vectorizer{MaxFeatures: 50, MaxDF: 0.9, StopWords: englishStopWords}
}

// Matrix holds one l2-normalized row per document. Features are sorted.
type Matrix struct {
	Features []string
	Rows     [][]float64
}

// MeanScores returns the column means of the matrix.
func (m Matrix) MeanScores() []float64 {
	means := make([]float64, len(m.Features))
	if len(m.Rows) == 0 {
		return means
	}
	for _, row := range m.Rows {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(len(m.Rows))
	}
	return means
}

// Top returns up to n features ordered by mean score, highest first. Among
// equal scores the feature sorting last by name comes first.
func (m Matrix) Top(n int) []string {
	means := m.MeanScores()
	idx := make([]int, len(m.Features))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		ma, mb := means[idx[a]], means[idx[b]]
		if ma != mb {
			return ma > mb
		}
		return idx[a] > idx[b]
	})
	if n > len(idx) {
		n = len(idx)
	}
	out := make([]string, n)
	for i := range out {
		out[i] = m.Features[idx[i]]
	}
	return out
}

func (v *Vectorizer) terms(doc string) []string {
	var tokens []string
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(doc), -1) {
		if _, stop := v.StopWords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	terms := make([]string, 0, 2*len(tokens))
	terms = append(terms, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		terms = append(terms, tokens[i]+" "+tokens[i+1])
	}
	return terms
}

// FitTransform learns the vocabulary from docs and returns their TF-IDF
// matrix. Terms found in more than MaxDF of the documents are dropped,
// then the MaxFeatures most frequent terms are kept. IDF is smoothed:
// ln((1+n)/(1+df)) + 1.
func (v *Vectorizer) FitTransform(docs []string) (Matrix, error) {
	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)
	tf := make(map[string]int)
	for i, doc := range docs {
		counts[i] = make(map[string]int)
		for _, term := range v.terms(doc) {
			counts[i][term]++
			tf[term]++
		}
		for term := range counts[i] {
			df[term]++
		}
	}
	if len(df) == 0 {
		return Matrix{}, ErrEmptyVocabulary
	}

	maxDocs := v.MaxDF * float64(len(docs))
	var vocab []string
	for term, n := range df {
		if float64(n) <= maxDocs {
			vocab = append(vocab, term)
		}
	}
	if len(vocab) == 0 {
		return Matrix{}, ErrEmptyVocabulary
	}
	sort.Strings(vocab)
	if v.MaxFeatures > 0 && len(vocab) > v.MaxFeatures {
		sort.SliceStable(vocab, func(a, b int) bool {
			return tf[vocab[a]] > tf[vocab[b]]
		})
		vocab = vocab[:v.MaxFeatures]
		sort.Strings(vocab)
	}

	n := float64(len(docs))
	idf := make([]float64, len(vocab))
	for j, term := range vocab {
		idf[j] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	rows := make([][]float64, len(docs))
	for i := range docs {
		row := make([]float64, len(vocab))
		var norm float64
		for j, term := range vocab {
			row[j] = float64(counts[i][term]) * idf[j]
			norm += row[j] * row[j]
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for j := range row {
				row[j] /= norm
			}
		}
		rows[i] = row
	}
	return Matrix{Features: vocab, Rows: rows}, nil
}
