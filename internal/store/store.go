// Package store manages the vacancy analytics tables in SQLite. It is both
// the tabular data source for answering generated queries and the real
// syntax evaluator behind the guarded generation loop (EXPLAIN-based, not a
// heuristic).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/adushin/queryguard/internal/sqlgen"
)

// #region schema

const schema = `
CREATE TABLE IF NOT EXISTS Vacancies (
	vacancy_id    TEXT PRIMARY KEY,
	position      TEXT NOT NULL,
	company       TEXT,
	grade         TEXT,
	salary_from   INTEGER,
	salary_to     INTEGER,
	currency      TEXT,
	is_remote     INTEGER NOT NULL DEFAULT 0,
	published_at  TEXT
);

CREATE TABLE IF NOT EXISTS Locations (
	vacancy_id    TEXT NOT NULL,
	location      TEXT NOT NULL,
	FOREIGN KEY (vacancy_id) REFERENCES Vacancies(vacancy_id)
);

CREATE TABLE IF NOT EXISTS Skills (
	vacancy_id    TEXT NOT NULL,
	skill         TEXT NOT NULL,
	FOREIGN KEY (vacancy_id) REFERENCES Vacancies(vacancy_id)
);

CREATE TABLE IF NOT EXISTS Breadcrumbs (
	vacancy_id    TEXT NOT NULL,
	breadcrumb    TEXT NOT NULL,
	FOREIGN KEY (vacancy_id) REFERENCES Vacancies(vacancy_id)
);

CREATE TABLE IF NOT EXISTS Specializations (
	vacancy_id      TEXT NOT NULL,
	specialization  TEXT NOT NULL,
	FOREIGN KEY (vacancy_id) REFERENCES Vacancies(vacancy_id)
);

CREATE TABLE IF NOT EXISTS RelocationOptions (
	vacancy_id        TEXT NOT NULL,
	relocation_option TEXT NOT NULL,
	FOREIGN KEY (vacancy_id) REFERENCES Vacancies(vacancy_id)
);
`

// #endregion schema

// #region store-struct

// Store wraps the SQLite vacancy database.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor

// Open opens (or creates) the vacancy database and runs migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. the
// audit log shares the connection).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region execute

// ResultSet is the tabular output of one executed query.
type ResultSet struct {
	Columns []string
	Rows    [][]string
}

// Execute runs a generated query and returns its rows with all values
// rendered as strings. Callers only see validity-checked SQL, but any
// execution error still comes back as an error, never a panic.
func (s *Store) Execute(ctx context.Context, query string) (ResultSet, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return ResultSet{}, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return ResultSet{}, fmt.Errorf("read columns: %w", err)
	}

	rs := ResultSet{Columns: cols}
	values := make([]sql.NullString, len(cols))
	scanArgs := make([]any, len(cols))
	for i := range values {
		scanArgs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(scanArgs...); err != nil {
			return ResultSet{}, fmt.Errorf("scan row: %w", err)
		}
		row := make([]string, len(cols))
		for i, v := range values {
			if v.Valid {
				row[i] = v.String
			} else {
				row[i] = "NULL"
			}
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return ResultSet{}, fmt.Errorf("iterate rows: %w", err)
	}
	return rs, nil
}

// ListTables returns the user table names in the database.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return names, nil
}

// SchemaDDL returns the CREATE statements of the user tables, used to build
// the generation system prompt.
func (s *Store) SchemaDDL(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sql FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	defer rows.Close()

	var ddl []string
	for rows.Next() {
		var stmt sql.NullString
		if err := rows.Scan(&stmt); err != nil {
			return nil, fmt.Errorf("scan schema: %w", err)
		}
		if stmt.Valid {
			ddl = append(ddl, stmt.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema: %w", err)
	}
	return ddl, nil
}

// #endregion execute

// #region validate-syntax

// ValidateSyntax runs EXPLAIN over the draft. A query the engine cannot plan
// comes back as *sqlgen.SyntaxError so the generation loop can feed the
// exact engine message into its retry; anything else (cancellation, closed
// connection) surfaces as a transport failure.
func (s *Store) ValidateSyntax(ctx context.Context, query string) error {
	rows, err := s.db.QueryContext(ctx, "EXPLAIN "+query)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("validate syntax: %w", ctx.Err())
		}
		if errors.Is(err, sql.ErrConnDone) {
			return fmt.Errorf("validate syntax: %w", err)
		}
		return &sqlgen.SyntaxError{Detail: err.Error()}
	}
	rows.Close()
	return nil
}

// #endregion validate-syntax
