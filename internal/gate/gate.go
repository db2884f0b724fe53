// Package gate implements the hard-rule layer of query validation: an
// ordered, short-circuiting list of regex and lexical checks for prompt
// injection, toxicity, and PII. The gate runs before the statistical
// classifier and its verdicts are not subject to confidence thresholds.
package gate

import (
	"regexp"
	"strings"

	"github.com/adushin/queryguard/internal/textnorm"
)

// #region injection-patterns

// Injection and tool-abuse patterns, evaluated against the normalized text.
// RE2 word boundaries are ASCII-only, so Cyrillic phrases match on the
// space-separated normalized form instead of \b.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(^| )игнорируй .*(инструкц|правил)`),
	regexp.MustCompile(`(систем|system).*(промпт|prompt|instruction)`),
	regexp.MustCompile(`(^| )покажи .*(промпт|инструкц)`),
	regexp.MustCompile(`(^| )dump .*(db|database|баз)`),
	regexp.MustCompile(`\b(drop|truncate|delete)\b`),
}

// #endregion injection-patterns

// #region toxic-stems

// toxicStems match as token prefixes so inflected forms are caught.
var toxicStems = []string{
	"идиот", "дурак", "туп", "ублюд", "мраз", "ненавиж", "заткн",
}

// #endregion toxic-stems

// #region pii-patterns

var emailPattern = regexp.MustCompile(`\b[\w.-]+@[\w.-]+\.\w+\b`)

// Phone-like digit shapes: +7/8 local form, international form, and a long
// free-form digit run. A match alone is not enough; see phoneMarkers.
var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\+7|\b8)\s*[(\-\s]?\d{3}[)\-\s]?\d{3}[\-\s]?\d{2}[\-\s]?\d{2}`),
	regexp.MustCompile(`\+\d{1,3}[\s\-()]*\d{2,4}[\s\-)]*\d{2,4}[\s\-]*\d{2,4}`),
	regexp.MustCompile(`\b\d[\d\-\s()]{8,}\d\b`),
}

// phoneMarkers are contextual words that must accompany a phone-like digit
// pattern before the phone rule fires. The conjunction avoids false positives
// on bare numeric sequences such as prices or IDs.
var phoneMarkers = []string{
	"тел", "телефон", "phone", "whatsapp", "ватсап", "telegram", "tg",
	"контакт", "связ", "позвони", "звони",
}

var analyticsIDPattern = regexp.MustCompile(`\banalytics_id\b\s*[:=]\s*[\w-]+`)

// #endregion pii-patterns

// #region gate

// Gate evaluates the ordered hard rules against one input.
type Gate struct {
	config Config
}

// New creates a gate with the given configuration.
func New(config Config) *Gate {
	return &Gate{config: config}
}

// Enabled reports whether the hard-rule layer is active.
func (g *Gate) Enabled() bool {
	return g.config.Enabled
}

// Evaluate runs the rules in order against the cleaned text. The first rule
// to fire wins; later rules are not evaluated. A disabled gate matches
// nothing. The input is expected to be non-empty and within the length cap
// (the validator handles those before the gate).
func (g *Gate) Evaluate(text string) Decision {
	if !g.config.Enabled {
		return Decision{}
	}

	low := strings.ToLower(text)
	norm := textnorm.Normalize(text)
	toks := textnorm.Tokenize(text)

	// 1. Prompt injection / tool abuse
	for _, p := range injectionPatterns {
		if p.MatchString(norm) {
			return Decision{Matched: true, Rule: "prompt_injection", Reason: ReasonInjection}
		}
	}

	// 2. Bullying / toxicity via token stem prefixes
	for _, t := range toks {
		for _, stem := range toxicStems {
			if strings.HasPrefix(t, stem) {
				return Decision{Matched: true, Rule: "toxicity", Reason: ReasonToxicity}
			}
		}
	}

	// 3. PII: email declines unconditionally
	if emailPattern.MatchString(text) {
		return Decision{Matched: true, Rule: "pii_email", Reason: ReasonPIIEmail}
	}

	// 4. PII: phone requires digit shape AND contextual marker
	if hasPhoneMarker(low) && looksLikePhone(text) {
		return Decision{Matched: true, Rule: "pii_phone", Reason: ReasonPIIPhone}
	}

	// 5. PII: opaque sensitive identifier
	if analyticsIDPattern.MatchString(low) {
		return Decision{Matched: true, Rule: "pii_analytics_id", Reason: ReasonAnalyticsID}
	}

	return Decision{}
}

// #endregion gate

// #region helpers

func hasPhoneMarker(low string) bool {
	for _, m := range phoneMarkers {
		if strings.Contains(low, m) {
			return true
		}
	}
	return false
}

func looksLikePhone(text string) bool {
	for _, p := range phonePatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// #endregion helpers
