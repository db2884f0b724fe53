package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/adushin/queryguard/internal/sqlgen"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedVacancies(t *testing.T, s *Store) {
	t.Helper()
	stmts := []string{
		`INSERT INTO Vacancies (vacancy_id, position, company, grade, salary_from, salary_to, currency, is_remote)
		 VALUES ('v1', 'data analyst', 'acme', 'middle', 150000, 220000, 'RUB', 1)`,
		`INSERT INTO Vacancies (vacancy_id, position, company, grade, salary_from, salary_to, currency, is_remote)
		 VALUES ('v2', 'ml engineer', 'globex', 'senior', 300000, 420000, 'RUB', 0)`,
		`INSERT INTO Locations (vacancy_id, location) VALUES ('v1', 'москва')`,
		`INSERT INTO Locations (vacancy_id, location) VALUES ('v2', 'спб')`,
		`INSERT INTO Skills (vacancy_id, skill) VALUES ('v2', 'python')`,
	}
	for _, stmt := range stmts {
		if _, err := s.DB().Exec(stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestListTables(t *testing.T) {
	s := tempStore(t)
	names, err := s.ListTables(context.Background())
	if err != nil {
		t.Fatalf("ListTables: %v", err)
	}
	want := map[string]bool{
		"Vacancies": false, "Locations": false, "Skills": false,
		"Breadcrumbs": false, "Specializations": false, "RelocationOptions": false,
	}
	for _, n := range names {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for n, seen := range want {
		if !seen {
			t.Errorf("table %s missing from %v", n, names)
		}
	}
}

func TestExecuteReturnsRows(t *testing.T) {
	s := tempStore(t)
	seedVacancies(t, s)

	rs, err := s.Execute(context.Background(),
		`SELECT v.position, l.location FROM Vacancies v JOIN Locations l ON l.vacancy_id = v.vacancy_id ORDER BY v.vacancy_id`)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rs.Columns) != 2 || rs.Columns[0] != "position" {
		t.Fatalf("columns: %v", rs.Columns)
	}
	if len(rs.Rows) != 2 {
		t.Fatalf("rows: got %d, want 2", len(rs.Rows))
	}
	if rs.Rows[0][0] != "data analyst" || rs.Rows[0][1] != "москва" {
		t.Fatalf("first row: %v", rs.Rows[0])
	}
}

func TestExecuteNullRendering(t *testing.T) {
	s := tempStore(t)
	if _, err := s.DB().Exec(
		`INSERT INTO Vacancies (vacancy_id, position) VALUES ('v9', 'qa engineer')`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	rs, err := s.Execute(context.Background(), `SELECT salary_from FROM Vacancies WHERE vacancy_id = 'v9'`)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rs.Rows[0][0] != "NULL" {
		t.Fatalf("null rendering: got %q", rs.Rows[0][0])
	}
}

func TestValidateSyntaxAcceptsValid(t *testing.T) {
	s := tempStore(t)
	if err := s.ValidateSyntax(context.Background(),
		`SELECT position, AVG(salary_from) FROM Vacancies GROUP BY position`); err != nil {
		t.Fatalf("valid query rejected: %v", err)
	}
}

func TestValidateSyntaxRejectsMalformed(t *testing.T) {
	s := tempStore(t)
	err := s.ValidateSyntax(context.Background(), "SELEC * FORM Vacancies")
	if err == nil {
		t.Fatal("expected rejection")
	}
	if _, ok := err.(*sqlgen.SyntaxError); !ok {
		t.Fatalf("expected *sqlgen.SyntaxError, got %T: %v", err, err)
	}
}

func TestValidateSyntaxRejectsUnknownTable(t *testing.T) {
	s := tempStore(t)
	err := s.ValidateSyntax(context.Background(), "SELECT * FROM NoSuchTable")
	if err == nil {
		t.Fatal("expected rejection")
	}
	if _, ok := err.(*sqlgen.SyntaxError); !ok {
		t.Fatalf("expected *sqlgen.SyntaxError, got %T: %v", err, err)
	}
}

func TestStoreImplementsSyntaxValidator(t *testing.T) {
	var _ sqlgen.SyntaxValidator = tempStore(t)
}
