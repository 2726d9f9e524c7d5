package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/japaniel/diningmenu/pkg/db"
)

// Backend reads and writes whole named documents.
type Backend interface {
	// Read returns ErrNotFound when no document called name exists.
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	// List returns the names of the stored documents.
	List(ctx context.Context) ([]string, error)
}

var (
	_ Backend = (*FileBackend)(nil)
	_ Backend = (*SQLiteBackend)(nil)
)

// FileBackend keeps each document as <dir>/<name>.json.
type FileBackend struct {
	dir string
}

// NewFileBackend returns a backend rooted at dir. The directory is created on first write.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

func (b *FileBackend) path(name string) string {
	return filepath.Join(b.dir, name+".json")
}

// Read returns the document bytes.
func (b *FileBackend) Read(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(b.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// Write replaces the document atomically via a temp file and rename.
func (b *FileBackend) Write(_ context.Context, name string, data []byte) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(b.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, b.path(name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

// List returns the names of the .json documents in the directory. A missing
// directory holds no documents.
func (b *FileBackend) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", b.dir, err)
	}
	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".json"); ok && !e.IsDir() {
			names = append(names, name)
		}
	}
	return names, nil
}

// SQLiteBackend keeps documents as rows of the documents table.
type SQLiteBackend struct {
	conn *sql.DB
}

// NewSQLiteBackend wraps an already migrated connection (see db.Open).
func NewSQLiteBackend(conn *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{conn: conn}
}

// Read returns the document bytes.
func (b *SQLiteBackend) Read(_ context.Context, name string) ([]byte, error) {
	d, err := db.GetDocument(b.conn, name)
	if errors.Is(err, db.ErrNoDocument) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d.Body, nil
}

// Write upserts the document.
func (b *SQLiteBackend) Write(_ context.Context, name string, data []byte) error {
	return db.PutDocument(b.conn, name, data)
}

// List returns the stored document names.
func (b *SQLiteBackend) List(_ context.Context) ([]string, error) {
	return db.ListDocuments(b.conn)
}

// Close closes the underlying connection.
func (b *SQLiteBackend) Close() error {
	return b.conn.Close()
}
