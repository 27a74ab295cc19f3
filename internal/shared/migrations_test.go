package shared

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

func newMemoryDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	ConfigureDatabase(db, 1, 1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrationRunner(t *testing.T) {
	ctx := context.Background()

	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}

		if len(migrations) == 0 {
			t.Fatal("expected at least one migration")
		}

		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: version %d comes after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}

		for _, m := range migrations {
			if m.Up == "" || m.Down == "" {
				t.Errorf("migration version %d missing up or down SQL", m.Version)
			}
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db := newMemoryDB(t)

		if err := RunMigrations(ctx, db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		if _, err := db.Exec("SELECT 1 FROM kv_items LIMIT 1"); err != nil {
			t.Errorf("kv_items table should exist after migrations: %v", err)
		}

		if err := RollbackMigration(ctx, db); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}

		if _, err := db.Exec("SELECT 1 FROM kv_items LIMIT 1"); err == nil {
			t.Error("kv_items table should be gone after rollback")
		}

		if err := RollbackMigration(ctx, db); err == nil {
			t.Error("expected error when nothing is left to roll back")
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db := newMemoryDB(t)

		for i := 0; i < 2; i++ {
			if err := RunMigrations(ctx, db); err != nil {
				t.Fatalf("run %d failed: %v", i+1, err)
			}
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("failed to query schema_migrations: %v", err)
		}

		migrations, _ := loadMigrations()
		if count != len(migrations) {
			t.Errorf("expected %d migrations to be applied, got %d", len(migrations), count)
		}
	})

	t.Run("OpenStore", func(t *testing.T) {
		db, err := OpenStore(ctx, DatabaseConfig{Path: filepath.Join(t.TempDir(), "fintx.db"), MaxOpenConns: 1})
		if err != nil {
			t.Fatalf("failed to open store: %v", err)
		}
		defer db.Close()

		if _, err := db.Exec("INSERT INTO kv_items (key, value) VALUES ('k', 'v')"); err != nil {
			t.Errorf("expected kv_items to be writable: %v", err)
		}
	})
}

func TestRemoveComments(t *testing.T) {
	got := removeComments("-- heading\nSELECT 1; -- trailing\n\n")
	if got != "SELECT 1;" {
		t.Errorf("removeComments() = %q, want %q", got, "SELECT 1;")
	}
}
