// Package sqlgen turns an accepted textual request into a validated SQL
// query through an evaluator-optimizer loop: generate a draft, validate it
// against a real syntax evaluator, feed the exact failure back to the
// generator, and retry within a bounded attempt budget.
package sqlgen

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// #region messages

// Message roles for the generation conversation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged conversation turn.
type Message struct {
	Role    string
	Content string
}

// #endregion messages

// #region capabilities

// Generator is the external generation capability: full conversation in,
// unstructured draft text out. Any error is a transport failure.
type Generator interface {
	Generate(ctx context.Context, conversation []Message) (string, error)
}

// SyntaxValidator is the external evaluation capability. A rejected draft
// comes back as *SyntaxError; any other error is a transport failure.
type SyntaxValidator interface {
	ValidateSyntax(ctx context.Context, sql string) error
}

// SyntaxError reports a draft rejected by the validator. It is recoverable
// within the loop via feedback-and-retry.
type SyntaxError struct {
	Detail string
}

func (e *SyntaxError) Error() string {
	return e.Detail
}

// #endregion capabilities

// #region result

// Attempt records one loop iteration.
type Attempt struct {
	Number        int
	SQL           string
	ValidationErr string // empty on success
}

// Result is the terminal outcome of one guarded generation invocation.
// On success SQL is set and Err is empty; on exhaustion both the last draft
// and a terminal error are set; on transport failure SQL is empty.
type Result struct {
	SQL      string
	Err      string
	Attempts int
}

// Failed reports whether the invocation ended without a validated query.
func (r Result) Failed() bool {
	return r.Err != ""
}

// #endregion result

// #region config

// Config controls one generation loop instance.
type Config struct {
	MaxAttempts  int    // attempt budget; generate and validate are each called at most this many times
	SystemPrompt string // seeds the conversation as the system turn
	Verbose      bool   // log per-attempt progress
}

// DefaultMaxAttempts is the production attempt budget.
const DefaultMaxAttempts = 3

// #endregion config

// #region loop

// Loop is the guarded generation state machine. Conversation state and
// attempt counters are local to each Run call, so one Loop can serve
// concurrent invocations.
type Loop struct {
	gen    Generator
	val    SyntaxValidator
	config Config
}

// New creates a guarded generation loop over the two external capabilities.
func New(gen Generator, val SyntaxValidator, config Config) *Loop {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	return &Loop{gen: gen, val: val, config: config}
}

// Run executes the generate→validate→feedback cycle for one user request.
// The conversation accumulates strictly: no turn is ever removed or
// rewritten, so every retry sees all prior drafts and errors.
func (l *Loop) Run(ctx context.Context, userQuery string) Result {
	conversation := []Message{
		{Role: RoleSystem, Content: l.config.SystemPrompt},
		{Role: RoleUser, Content: userQuery},
	}

	var lastSQL string
	for attempt := 1; attempt <= l.config.MaxAttempts; attempt++ {
		draft, err := l.gen.Generate(ctx, conversation)
		if err != nil {
			// Transport failure: abandon remaining attempts immediately
			// rather than retrying against a broken dependency.
			return Result{
				Err:      fmt.Sprintf("generation transport failure on attempt %d: %v", attempt, err),
				Attempts: attempt,
			}
		}

		sql := StripFences(strings.TrimSpace(draft))
		lastSQL = sql
		conversation = append(conversation, Message{Role: RoleAssistant, Content: sql})

		if l.config.Verbose {
			log.Printf("[SQLGEN] attempt %d/%d draft: %s", attempt, l.config.MaxAttempts, sql)
		}

		verr := l.val.ValidateSyntax(ctx, sql)
		if verr == nil {
			if l.config.Verbose {
				log.Printf("[SQLGEN] attempt %d validated", attempt)
			}
			return Result{SQL: sql, Attempts: attempt}
		}

		syntaxErr, ok := verr.(*SyntaxError)
		if !ok {
			return Result{
				Err:      fmt.Sprintf("validation transport failure on attempt %d: %v", attempt, verr),
				Attempts: attempt,
			}
		}

		if l.config.Verbose {
			log.Printf("[SQLGEN] attempt %d rejected: %s", attempt, syntaxErr.Detail)
		}

		if attempt == l.config.MaxAttempts {
			return Result{
				SQL:      sql,
				Err:      fmt.Sprintf("sql validation failed after %d attempts: %s", l.config.MaxAttempts, syntaxErr.Detail),
				Attempts: attempt,
			}
		}

		conversation = append(conversation, Message{
			Role:    RoleUser,
			Content: feedbackMessage(sql, syntaxErr.Detail, attempt),
		})
	}

	// Unreachable: every branch above returns within the budget.
	return Result{
		SQL:      lastSQL,
		Err:      fmt.Sprintf("sql generation ended unexpectedly after %d attempts", l.config.MaxAttempts),
		Attempts: l.config.MaxAttempts,
	}
}

// #endregion loop

// #region feedback

// feedbackMessage embeds the exact failing draft, the exact validator error,
// and the attempt number, giving the generator compounding context.
func feedbackMessage(sql, detail string, attempt int) string {
	return fmt.Sprintf(
		"The SQL query from attempt %d failed validation.\n\nQuery:\n%s\n\nValidator error:\n%s\n\nFix the query. Return only the corrected SQL with no explanation or markdown.",
		attempt, sql, detail,
	)
}

// #endregion feedback

// #region strip-fences

// StripFences removes surrounding markdown code-fence markup from a draft.
func StripFences(sql string) string {
	if strings.HasPrefix(sql, "```sql") {
		sql = sql[len("```sql"):]
	} else if strings.HasPrefix(sql, "```") {
		sql = sql[len("```"):]
	}
	if strings.HasSuffix(sql, "```") {
		sql = sql[:len(sql)-len("```")]
	}
	return strings.TrimSpace(sql)
}

// #endregion strip-fences
