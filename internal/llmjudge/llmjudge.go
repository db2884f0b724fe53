// Package llmjudge adapts an external model-backed relevance classifier into
// a structured verdict. The external model's reply is untrusted free text
// that is expected to contain an embedded JSON object; extraction is
// best-effort with a fixed fallback verdict on any malformed reply.
package llmjudge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// #region verdict

// RelevanceVerdict is the structured output of the secondary validator.
type RelevanceVerdict struct {
	IsRelevant bool   `json:"is_relevant"`
	Category   string `json:"category"`
	Reason     string `json:"reason"`
}

// fallbackVerdict is returned whenever the model reply cannot be parsed.
// A parse failure is recovered locally, never propagated.
func fallbackVerdict() RelevanceVerdict {
	return RelevanceVerdict{
		IsRelevant: false,
		Category:   "other",
		Reason:     "malformed model response",
	}
}

// #endregion verdict

// #region extract

// ExtractVerdict scans raw model output for the outermost JSON object
// substring (first '{' through last '}') and decodes it. Absent or invalid
// JSON yields the fixed fallback verdict; this function never fails.
func ExtractVerdict(raw string) RelevanceVerdict {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return fallbackVerdict()
	}

	var v RelevanceVerdict
	if err := json.Unmarshal([]byte(raw[start:end+1]), &v); err != nil {
		return fallbackVerdict()
	}
	return v
}

// #endregion extract

// #region judge

// Classifier is the external capability the judge consumes: free text in,
// opaque reply text out. Transport failures surface as errors.
type Classifier interface {
	Classify(ctx context.Context, text string) (string, error)
}

// Judge runs the secondary model-based relevance check.
type Judge struct {
	classifier Classifier
}

// New creates a judge over the given classify capability.
func New(classifier Classifier) *Judge {
	return &Judge{classifier: classifier}
}

// Validate classifies the text and parses the reply tolerantly. Only a
// transport failure returns an error; a malformed reply returns the fallback
// verdict with a nil error.
func (j *Judge) Validate(ctx context.Context, text string) (RelevanceVerdict, error) {
	raw, err := j.classifier.Classify(ctx, text)
	if err != nil {
		return RelevanceVerdict{}, fmt.Errorf("classify: %w", err)
	}
	return ExtractVerdict(raw), nil
}

// #endregion judge
