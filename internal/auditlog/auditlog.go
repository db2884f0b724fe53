// Package auditlog records per-request guard decisions in SQLite so that
// declines and generation outcomes stay inspectable after the fact. Logging
// is best-effort: a failed write never fails the request it describes.
package auditlog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// #region schema

const schema = `
CREATE TABLE IF NOT EXISTS guard_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id  TEXT NOT NULL,
	stage       TEXT NOT NULL,
	decision    TEXT NOT NULL,
	reason      TEXT,
	attempts    INTEGER,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_guard_log_request ON guard_log(request_id);
`

// #endregion schema

// #region entry

// Stages of the pipeline that produce loggable decisions.
const (
	StageValidate = "validate"
	StageJudge    = "llm_judge"
	StageGenerate = "generate"
)

// Entry is a single row in guard_log.
type Entry struct {
	RequestID string
	Stage     string
	Decision  string // "accepted" | "declined" | "generated" | "failed"
	Reason    string
	Attempts  int
	CreatedAt time.Time
}

// #endregion entry

// #region init

// Init creates the guard_log table on the shared database connection.
func Init(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate guard_log: %w", err)
	}
	return nil
}

// NewRequestID mints the identifier that ties all of one request's log rows
// together.
func NewRequestID() string {
	return uuid.New().String()
}

// #endregion init

// #region log

// Log writes one entry to guard_log.
func Log(db *sql.DB, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := db.Exec(
		`INSERT INTO guard_log (request_id, stage, decision, reason, attempts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.RequestID,
		entry.Stage,
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.Attempts,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log entry: %w", err)
	}
	return nil
}

// LogVerdict records a validation-stage decision.
func LogVerdict(db *sql.DB, requestID string, accepted bool, reason string) error {
	decision := "accepted"
	if !accepted {
		decision = "declined"
	}
	return Log(db, Entry{
		RequestID: requestID,
		Stage:     StageValidate,
		Decision:  decision,
		Reason:    reason,
	})
}

// LogGeneration records the terminal outcome of one guarded generation run.
func LogGeneration(db *sql.DB, requestID string, ok bool, reason string, attempts int) error {
	decision := "generated"
	if !ok {
		decision = "failed"
	}
	return Log(db, Entry{
		RequestID: requestID,
		Stage:     StageGenerate,
		Decision:  decision,
		Reason:    reason,
		Attempts:  attempts,
	})
}

// #endregion log

// #region helpers

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
