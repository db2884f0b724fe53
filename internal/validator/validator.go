// Package validator composes the hard-rule gate and the naive Bayes intake
// classifier into a single accept/decline decision for a raw user query.
//
// The decline policy is deliberately asymmetric: only confidently unsafe or
// confidently out-of-domain queries are blocked. Uncertain calls are let
// through so legitimate domain questions are rarely declined.
package validator

import (
	"fmt"
	"strings"

	"github.com/adushin/queryguard/internal/classifier"
	"github.com/adushin/queryguard/internal/gate"
	"github.com/adushin/queryguard/internal/textnorm"
)

// #region constants

// MaxQueryLen is the character cap on incoming queries. Longer input is
// declined and the returned text is truncated to this length.
const MaxQueryLen = 4000

// Input-level decline reasons.
const (
	ReasonEmpty   = "empty_query"
	ReasonTooLong = "too_long"
)

// LayerPreLLM marks verdicts produced before any model-backed generation.
const LayerPreLLM = "pre_llm"

// #endregion constants

// #region verdict

// Verdict is the validator's structured decision for one request. Declines
// are encoded as reasons, never as errors; Reason is empty iff Accepted.
type Verdict struct {
	Text     string // cleaned (and possibly truncated) input
	Accepted bool
	Reason   string
	Layer    string
}

// #endregion verdict

// #region config

// Config carries the confidence thresholds for model-based declines. The
// defaults are policy choices, not derived constants; both are tunable.
type Config struct {
	DeclineUnsafe      float64 // arg-max unsafe with conf >= this declines
	DeclineOutOfDomain float64 // arg-max out_of_domain with conf >= this declines
	HardRules          bool    // toggles the whole hard-rule layer
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		DeclineUnsafe:      0.85,
		DeclineOutOfDomain: 0.92,
		HardRules:          true,
	}
}

// #endregion config

// #region validator

// Validator bundles an immutable classifier model with the gate and the
// decline thresholds. Safe for concurrent use: the model is read-only and
// Validate keeps no per-call state on the struct.
type Validator struct {
	model  *classifier.Model
	gate   *gate.Gate
	config Config
}

// New creates a validator around a trained model.
func New(model *classifier.Model, config Config) *Validator {
	return &Validator{
		model:  model,
		gate:   gate.New(gate.Config{Enabled: config.HardRules}),
		config: config,
	}
}

// Validate cleans the query and decides accept/decline. Order: emptiness and
// length checks, then the hard-rule gate, then the classifier with the
// confidence-thresholded decline policy.
func (v *Validator) Validate(query string) Verdict {
	text := textnorm.Clean(query)
	if text == "" {
		return Verdict{Text: "", Accepted: false, Reason: ReasonEmpty, Layer: LayerPreLLM}
	}
	if len([]rune(text)) > MaxQueryLen {
		truncated := strings.TrimRight(string([]rune(text)[:MaxQueryLen]), " \t")
		return Verdict{Text: truncated, Accepted: false, Reason: ReasonTooLong, Layer: LayerPreLLM}
	}

	if d := v.gate.Evaluate(text); d.Matched {
		return Verdict{Text: text, Accepted: false, Reason: d.Reason, Layer: LayerPreLLM}
	}

	dist := v.model.Predict(text)
	label, conf := v.model.ArgMax(dist)

	if label == classifier.LabelUnsafe && conf >= v.config.DeclineUnsafe {
		return Verdict{
			Text:     text,
			Accepted: false,
			Reason:   fmt.Sprintf("declined_model:unsafe(conf=%.2f)", conf),
			Layer:    LayerPreLLM,
		}
	}
	if label == classifier.LabelOutOfDomain && conf >= v.config.DeclineOutOfDomain {
		return Verdict{
			Text:     text,
			Accepted: false,
			Reason:   fmt.Sprintf("declined_model:out_of_domain(conf=%.2f)", conf),
			Layer:    LayerPreLLM,
		}
	}

	return Verdict{Text: text, Accepted: true, Layer: LayerPreLLM}
}

// #endregion validator
