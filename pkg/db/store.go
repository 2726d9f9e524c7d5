package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoDocument is returned when no document has the requested name.
var ErrNoDocument = errors.New("document not found")

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// Document is one stored JSON document.
type Document struct {
	Name      string
	Body      []byte
	UpdatedAt time.Time
}

// PutDocument inserts or replaces the document called name.
func PutDocument(db DBExecutor, name string, body []byte) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("document name must be non-empty")
	}
	_, err := db.Exec(`INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
		  body = excluded.body,
		  updated_at = excluded.updated_at`,
		trimmed, string(body), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", trimmed, err)
	}
	return nil
}

// GetDocument returns the document called name, or ErrNoDocument.
func GetDocument(db DBExecutor, name string) (*Document, error) {
	var d Document
	var body string
	err := db.QueryRow(`SELECT name, body, updated_at FROM documents WHERE name = ?`, name).
		Scan(&d.Name, &body, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("select document %s: %w", name, err)
	}
	d.Body = []byte(body)
	return &d, nil
}

// ListDocuments returns the stored document names, most recently updated first.
func ListDocuments(db DBExecutor) ([]string, error) {
	rows, err := db.Query(`SELECT name FROM documents ORDER BY updated_at DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
