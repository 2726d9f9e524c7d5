package db

import (
	"database/sql"
	"errors"
	"testing"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return db
}

func TestPutAndGetDocument(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if err := PutDocument(db, "locations", []byte(`{"locations":[]}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	d, err := GetDocument(db, "locations")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(d.Body) != `{"locations":[]}` {
		t.Fatalf("unexpected body %q", d.Body)
	}
	if d.UpdatedAt.IsZero() {
		t.Fatalf("expected updated_at to be set")
	}
}

func TestPutDocumentOverwrites(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for _, body := range []string{`{"v":1}`, `{"v":2}`} {
		if err := PutDocument(db, "menu-items", []byte(body)); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	d, err := GetDocument(db, "menu-items")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(d.Body) != `{"v":2}` {
		t.Fatalf("expected last write to win, got %q", d.Body)
	}

	names, err := ListDocuments(db)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 1 {
		t.Fatalf("expected one document, got %v", names)
	}
}

func TestGetDocumentMissing(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := GetDocument(db, "last-scrape")
	if !errors.Is(err, ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
}

func TestPutDocumentRejectsEmptyName(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if err := PutDocument(db, "  ", []byte(`{}`)); err == nil {
		t.Fatalf("expected error for empty name")
	}
}

func TestPutDocumentInTransaction(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := PutDocument(tx, "locations", []byte(`{}`)); err != nil {
		t.Fatalf("put in tx: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if _, err := GetDocument(db, "locations"); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("expected rolled back document to be absent, got %v", err)
	}
}
