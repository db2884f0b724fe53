// Package pipeline is the top-level coordinator for one guarded request:
// pre-generation validation, the optional secondary model judge, the guarded
// SQL generation loop, and execution against the vacancy store, with every
// decision written to the audit log.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/adushin/queryguard/internal/auditlog"
	"github.com/adushin/queryguard/internal/llmjudge"
	"github.com/adushin/queryguard/internal/sqlgen"
	"github.com/adushin/queryguard/internal/store"
	"github.com/adushin/queryguard/internal/validator"
)

// #region outcome

// Outcome is everything one request produced. Declines and generation
// failures are data, not errors; Err is set only for operational failures
// (transport to the judge, execution of a validated query).
type Outcome struct {
	RequestID  string
	Verdict    validator.Verdict
	Judge      *llmjudge.RelevanceVerdict // nil when the judge is disabled or not reached
	Generation *sqlgen.Result             // nil when generation was not reached
	Results    *store.ResultSet           // nil unless execution succeeded
	Err        error
}

// Declined reports whether the request was stopped before generation.
func (o Outcome) Declined() bool {
	return !o.Verdict.Accepted
}

// #endregion outcome

// #region pipeline

// Pipeline wires the validation layers, the generation loop, and the store.
type Pipeline struct {
	validator *validator.Validator
	judge     *llmjudge.Judge // nil disables the secondary gate
	loop      *sqlgen.Loop
	store     *store.Store
	auditDB   *sql.DB
}

// New creates a fully wired pipeline. judge may be nil to skip the secondary
// model gate; auditDB may be nil to disable audit logging.
func New(v *validator.Validator, judge *llmjudge.Judge, loop *sqlgen.Loop, st *store.Store, auditDB *sql.DB) *Pipeline {
	return &Pipeline{
		validator: v,
		judge:     judge,
		loop:      loop,
		store:     st,
		auditDB:   auditDB,
	}
}

// Handle runs one raw user request through the full pipeline.
func (p *Pipeline) Handle(ctx context.Context, rawQuery string) Outcome {
	out := Outcome{RequestID: auditlog.NewRequestID()}

	out.Verdict = p.validator.Validate(rawQuery)
	p.logVerdict(out.RequestID, out.Verdict.Accepted, out.Verdict.Reason)
	if !out.Verdict.Accepted {
		log.Printf("[GUARD] %s declined: %s", out.RequestID, out.Verdict.Reason)
		return out
	}

	if p.judge != nil {
		verdict, err := p.judge.Validate(ctx, out.Verdict.Text)
		if err != nil {
			// Judge transport failure is operational, not a policy decline.
			out.Err = fmt.Errorf("secondary validation: %w", err)
			return out
		}
		out.Judge = &verdict
		if !verdict.IsRelevant {
			out.Verdict.Accepted = false
			out.Verdict.Reason = fmt.Sprintf("declined_llm:%s", verdict.Category)
			out.Verdict.Layer = "llm_judge"
			p.logJudge(out.RequestID, verdict)
			log.Printf("[GUARD] %s declined by judge: %s (%s)", out.RequestID, verdict.Category, verdict.Reason)
			return out
		}
	}

	res := p.loop.Run(ctx, out.Verdict.Text)
	out.Generation = &res
	p.logGeneration(out.RequestID, res)
	if res.Failed() {
		log.Printf("[GUARD] %s generation failed after %d attempts: %s", out.RequestID, res.Attempts, res.Err)
		return out
	}

	rs, err := p.store.Execute(ctx, res.SQL)
	if err != nil {
		out.Err = fmt.Errorf("execute validated query: %w", err)
		return out
	}
	out.Results = &rs
	log.Printf("[GUARD] %s answered: %d rows in %d attempt(s)", out.RequestID, len(rs.Rows), res.Attempts)
	return out
}

// #endregion pipeline

// #region system-prompt

// BuildSystemPrompt renders the generation system instruction with the live
// table DDL so drafts reference real tables and columns.
func BuildSystemPrompt(ctx context.Context, st *store.Store) (string, error) {
	ddl, err := st.SchemaDDL(ctx)
	if err != nil {
		return "", fmt.Errorf("build system prompt: %w", err)
	}
	return fmt.Sprintf(
		"You translate analytics questions about job vacancies into SQLite SQL.\n"+
			"Use only the tables and columns below. Return exactly one SELECT statement with no explanation and no markdown.\n\nSchema:\n%s",
		strings.Join(ddl, "\n\n"),
	), nil
}

// #endregion system-prompt

// #region audit-helpers

func (p *Pipeline) logVerdict(requestID string, accepted bool, reason string) {
	if p.auditDB == nil {
		return
	}
	if err := auditlog.LogVerdict(p.auditDB, requestID, accepted, reason); err != nil {
		log.Printf("[GUARD] audit log failed: %v", err)
	}
}

func (p *Pipeline) logJudge(requestID string, verdict llmjudge.RelevanceVerdict) {
	if p.auditDB == nil {
		return
	}
	err := auditlog.Log(p.auditDB, auditlog.Entry{
		RequestID: requestID,
		Stage:     auditlog.StageJudge,
		Decision:  "declined",
		Reason:    fmt.Sprintf("%s: %s", verdict.Category, verdict.Reason),
	})
	if err != nil {
		log.Printf("[GUARD] audit log failed: %v", err)
	}
}

func (p *Pipeline) logGeneration(requestID string, res sqlgen.Result) {
	if p.auditDB == nil {
		return
	}
	if err := auditlog.LogGeneration(p.auditDB, requestID, !res.Failed(), res.Err, res.Attempts); err != nil {
		log.Printf("[GUARD] audit log failed: %v", err)
	}
}

// #endregion audit-helpers
