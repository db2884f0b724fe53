package gate

// #region reasons

// Stable machine-readable decline reasons produced by the hard-rule gate.
const (
	ReasonInjection   = "declined_hard:prompt_injection_or_tool_abuse"
	ReasonToxicity    = "declined_hard:bullying_or_toxicity"
	ReasonPIIEmail    = "declined_hard:pii_email"
	ReasonPIIPhone    = "declined_hard:pii_phone"
	ReasonAnalyticsID = "declined_hard:pii_analytics_id"
)

// #endregion reasons

// #region decision

// Decision is the outcome of the hard-rule pass over one input.
type Decision struct {
	Matched bool   // a rule fired; the request must be declined
	Rule    string // name of the rule that fired, empty when clean
	Reason  string // stable decline reason code, empty when clean
}

// #endregion decision

// #region config

// Config controls the hard-rule gate. The rules are a policy layer distinct
// from the statistical classifier and toggle as a unit.
type Config struct {
	Enabled bool
}

// DefaultConfig returns the production gate configuration: enabled.
func DefaultConfig() Config {
	return Config{Enabled: true}
}

// #endregion config
