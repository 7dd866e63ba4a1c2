package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "arena.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created at %s: %v", dbPath, err)
	}
	if db.Path() != dbPath {
		t.Errorf("Path: got %q, want %q", db.Path(), dbPath)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	for i := 0; i < 2; i++ {
		if err := db.Migrate(); err != nil {
			t.Fatalf("Migrate #%d failed: %v", i+1, err)
		}
	}

	for _, table := range []string{"voices", "ratings", "scripts", "comparisons"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestRatingCascadesWithVoice(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	if _, err := db.Exec(`INSERT INTO voices (id, provider, voice_id, name) VALUES ('v1', 'edge', 'x', 'X')`); err != nil {
		t.Fatalf("insert voice: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO ratings (voice_id, score) VALUES ('v1', 1500)`); err != nil {
		t.Fatalf("insert rating: %v", err)
	}
	if _, err := db.Exec(`DELETE FROM voices WHERE id = 'v1'`); err != nil {
		t.Fatalf("delete voice: %v", err)
	}

	var n int
	db.QueryRow(`SELECT COUNT(*) FROM ratings`).Scan(&n)
	if n != 0 {
		t.Errorf("expected rating to cascade, %d left", n)
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	boom := errors.New("boom")
	err = db.WithTx(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO scripts (id, title, content) VALUES ('s1', 't', 'c')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var n int
	db.QueryRow(`SELECT COUNT(*) FROM scripts`).Scan(&n)
	if n != 0 {
		t.Errorf("expected rollback, found %d scripts", n)
	}
}
