// Package classifier implements a small additive-smoothed naive Bayes text
// classifier over the label set {domain, out_of_domain, unsafe}. A Model is
// built once by Train and is read-only afterwards, so concurrent Predict
// calls need no locking.
package classifier

import (
	"math"
	"sort"

	"github.com/adushin/queryguard/internal/textnorm"
)

// #region labels

const (
	LabelDomain      = "domain"
	LabelOutOfDomain = "out_of_domain"
	LabelUnsafe      = "unsafe"
)

// #endregion labels

// #region types

// Sample is one labeled training example.
type Sample struct {
	Text  string
	Label string
}

// Model holds the trained classifier state. Immutable after Train.
type Model struct {
	Labels      []string                  // sorted; defines deterministic tie-break order
	Priors      map[string]float64        // label -> document frequency / total documents
	TokenCounts map[string]map[string]int // label -> token -> count
	TotalTokens map[string]int            // label -> total token count
	VocabSize   int                       // distinct tokens across all labels, floor 1
	Alpha       float64                   // additive smoothing constant, > 0
}

// #endregion types

// #region train

// Train builds a Model from labeled samples with additive smoothing alpha.
// An empty corpus yields a model that degrades to uniform-ish priors in
// Predict rather than failing.
func Train(samples []Sample, alpha float64) *Model {
	labelSet := make(map[string]bool)
	for _, s := range samples {
		labelSet[s.Label] = true
	}
	labels := make([]string, 0, len(labelSet))
	for l := range labelSet {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	docCount := make(map[string]int)
	tokenCounts := make(map[string]map[string]int, len(labels))
	totalTokens := make(map[string]int)
	vocab := make(map[string]bool)
	for _, l := range labels {
		tokenCounts[l] = make(map[string]int)
		totalTokens[l] = 0
	}

	for _, s := range samples {
		docCount[s.Label]++
		for _, t := range textnorm.Tokenize(textnorm.Normalize(s.Text)) {
			tokenCounts[s.Label][t]++
			totalTokens[s.Label]++
			vocab[t] = true
		}
	}

	nDocs := len(samples)
	if nDocs == 0 {
		nDocs = 1
	}
	priors := make(map[string]float64, len(labels))
	for _, l := range labels {
		priors[l] = float64(docCount[l]) / float64(nDocs)
	}

	vocabSize := len(vocab)
	if vocabSize < 1 {
		vocabSize = 1
	}

	return &Model{
		Labels:      labels,
		Priors:      priors,
		TokenCounts: tokenCounts,
		TotalTokens: totalTokens,
		VocabSize:   vocabSize,
		Alpha:       alpha,
	}
}

// #endregion train

// #region predict

// Predict returns a probability distribution over the model's labels for the
// given text. The distribution sums to 1 for any input, including the empty
// string; unseen tokens contribute the smoothed floor, never zero probability.
func (m *Model) Predict(text string) map[string]float64 {
	counts := make(map[string]int)
	for _, t := range textnorm.Tokenize(textnorm.Normalize(text)) {
		counts[t]++
	}

	logp := make(map[string]float64, len(m.Labels))
	for _, label := range m.Labels {
		prior := m.Priors[label]
		if prior <= 0 {
			prior = 1e-12
		}
		lp := math.Log(prior)
		denom := float64(m.TotalTokens[label]) + m.Alpha*float64(m.VocabSize)
		for t, c := range counts {
			num := float64(m.TokenCounts[label][t]) + m.Alpha
			lp += float64(c) * math.Log(num/denom)
		}
		logp[label] = lp
	}

	// Log-sum-exp stabilization: shift by the max before exponentiating.
	maxLog := math.Inf(-1)
	for _, lp := range logp {
		if lp > maxLog {
			maxLog = lp
		}
	}
	exps := make(map[string]float64, len(logp))
	var z float64
	for label, lp := range logp {
		e := math.Exp(lp - maxLog)
		exps[label] = e
		z += e
	}
	if z == 0 {
		z = 1
	}
	for label := range exps {
		exps[label] /= z
	}
	return exps
}

// ArgMax returns the most probable label and its probability. Ties break to
// the earlier label in the model's stored order.
func (m *Model) ArgMax(dist map[string]float64) (string, float64) {
	best := ""
	bestP := math.Inf(-1)
	for _, label := range m.Labels {
		if p := dist[label]; p > bestP {
			best = label
			bestP = p
		}
	}
	if best == "" {
		return "", 0
	}
	return best, bestP
}

// #endregion predict
