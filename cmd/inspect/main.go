package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to queryguard.db")
	last := flag.Int("last", 20, "show N most recent audit entries")
	requestID := flag.String("request", "", "show all entries for one request")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/queryguard.db [--last N] [--request id] [--json]")
		os.Exit(2)
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if *requestID != "" {
		err = runRequestMode(db, *requestID, *jsonOut)
	} else {
		err = runListMode(db, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region query

type auditRow struct {
	RequestID string `json:"request_id"`
	Stage     string `json:"stage"`
	Decision  string `json:"decision"`
	Reason    string `json:"reason,omitempty"`
	Attempts  int    `json:"attempts"`
	CreatedAt string `json:"created_at"`
}

func queryRows(db *sql.DB, where string, args ...any) ([]auditRow, error) {
	rows, err := db.Query(
		`SELECT request_id, stage, decision, reason, attempts, created_at
		 FROM guard_log `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var out []auditRow
	for rows.Next() {
		var r auditRow
		var reason sql.NullString
		if err := rows.Scan(&r.RequestID, &r.Stage, &r.Decision, &reason, &r.Attempts, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if reason.Valid {
			r.Reason = reason.String
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// #endregion query

// #region list-mode

func runListMode(db *sql.DB, last int, jsonOut bool) error {
	// DESC then reverse for chronological order
	rows, err := queryRows(db,
		`WHERE rowid IN (SELECT rowid FROM guard_log ORDER BY created_at DESC LIMIT ?)
		 ORDER BY created_at ASC`, last)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "no audit entries found")
		return nil
	}

	if jsonOut {
		return printJSON(rows)
	}
	printTable(rows)
	return nil
}

// #endregion list-mode

// #region request-mode

func runRequestMode(db *sql.DB, requestID string, jsonOut bool) error {
	rows, err := queryRows(db, `WHERE request_id = ? ORDER BY created_at ASC`, requestID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no entries for request %s", requestID)
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("Request: %s\n\n", requestID)
	for _, r := range rows {
		fmt.Printf("  %-10s %-10s  %s", r.Stage, r.Decision, r.CreatedAt)
		if r.Attempts > 0 {
			fmt.Printf("  (%d attempt(s))", r.Attempts)
		}
		fmt.Println()
		if r.Reason != "" {
			fmt.Printf("             %s\n", r.Reason)
		}
	}
	return nil
}

// #endregion request-mode

// #region output

func printTable(rows []auditRow) {
	fmt.Printf("%-10s  %-10s  %-10s  %8s  %-27s  %s\n",
		"Request", "Stage", "Decision", "Attempts", "Time", "Reason")
	fmt.Printf("%-10s+-%-10s+-%-10s+-%8s+-%-27s+-%s\n",
		"----------", "----------", "----------", "--------", "---------------------------", "--------------------")
	for _, r := range rows {
		attempts := "—"
		if r.Attempts > 0 {
			attempts = fmt.Sprintf("%d", r.Attempts)
		}
		fmt.Printf("%-10s  %-10s  %-10s  %8s  %-27s  %s\n",
			shortID(r.RequestID), r.Stage, r.Decision, attempts, r.CreatedAt, r.Reason)
	}
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
