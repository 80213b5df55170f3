package levelstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestMigrate_OrderAndFailures(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "m.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	scripts := fstest.MapFS{
		"001_a.sql": {Data: []byte(`CREATE TABLE a (id INTEGER);`)},
		"002_b.sql": {Data: []byte(`CREATE TABLE b (id INTEGER); INSERT INTO missing VALUES (1);`)},
		"notes.txt": {Data: []byte(`not a migration`)},
	}
	if err := migrate(ctx, db, scripts); err == nil {
		t.Fatal("expected the broken migration to fail")
	}

	done, err := appliedMigrations(ctx, db)
	if err != nil {
		t.Fatalf("applied: %v", err)
	}
	if !done["001_a.sql"] || done["002_b.sql"] || len(done) != 1 {
		t.Errorf("expected only 001_a.sql recorded, got %v", done)
	}
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE name = 'b'`).Scan(&n); err != nil || n != 0 {
		t.Errorf("expected table b rolled back, count=%d err=%v", n, err)
	}

	scripts["002_b.sql"] = &fstest.MapFile{Data: []byte(`CREATE TABLE b (id INTEGER);`)}
	if err := migrate(ctx, db, scripts); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if err := migrate(ctx, db, scripts); err != nil {
		t.Fatalf("third run should be a no-op: %v", err)
	}
	done, _ = appliedMigrations(ctx, db)
	if len(done) != 2 {
		t.Errorf("expected 2 recorded migrations, got %v", done)
	}
}
