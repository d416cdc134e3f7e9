// Package store wraps the retail sqlite database. Connections are opened
// and closed around each statement so a failed or abandoned pipeline can
// never hold a transaction open for another request.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Store provides read access to the retail database plus a cached
// schema summary used to ground SQL generation.
type Store struct {
	path string

	mu          sync.Mutex
	schemaCache string
}

// Column describes one table column.
type Column struct {
	Name string
	Type string
}

// New creates a store over the sqlite file at path. The file is not
// touched until the first statement runs.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	return &Store{path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) open() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", s.path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// ListTables returns user table names in creation order.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// TableColumns returns the columns of one table.
func (s *Store) TableColumns(ctx context.Context, table string) ([]Column, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, err
		}
		columns = append(columns, Column{Name: name, Type: typ})
	}
	return columns, rows.Err()
}

// ExecuteSelect runs one SELECT and materializes the full result set.
// The connection is scoped to this call.
func (s *Store) ExecuteSelect(ctx context.Context, query string) ([]string, []map[string]any, error) {
	db, err := s.open()
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var data []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		scan := make([]any, len(columns))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, nil, err
		}
		record := make(map[string]any, len(columns))
		for i, col := range columns {
			record[col] = normalizeValue(values[i])
		}
		data = append(data, record)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return columns, data, nil
}

// SchemaSummary returns a cached textual description of tables and
// columns. Built once per store and reused for every generation and
// correction call; the database is static per run.
func (s *Store) SchemaSummary(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schemaCache != "" {
		return s.schemaCache, nil
	}

	tables, err := s.ListTables(ctx)
	if err != nil {
		return "", err
	}

	var summaries []string
	for _, table := range tables {
		columns, err := s.TableColumns(ctx, table)
		if err != nil {
			return "", err
		}
		parts := make([]string, len(columns))
		for i, col := range columns {
			parts[i] = fmt.Sprintf("%s %s", col.Name, col.Type)
		}
		summaries = append(summaries, fmt.Sprintf("Table %s (%s)", table, strings.Join(parts, ", ")))
	}

	s.schemaCache = strings.Join(summaries, "\n")
	return s.schemaCache, nil
}

func normalizeValue(value any) any {
	if b, ok := value.([]byte); ok {
		return string(b)
	}
	return value
}
