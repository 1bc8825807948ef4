package shared

import (
	"testing"
)

func TestMigrationRunner(t *testing.T) {
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

		if migrations[0].Name != "create_session_values" {
			t.Errorf("expected first migration name create_session_values, got %q", migrations[0].Name)
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		if _, err := db.Exec("SELECT 1 FROM session_values LIMIT 1"); err != nil {
			t.Errorf("session_values table should exist after migrations: %v", err)
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}

		if _, err := db.Exec("SELECT 1 FROM session_values LIMIT 1"); err == nil {
			t.Error("session_values table should be dropped after rollback")
		}

		if err := RollbackMigration(db); err == nil {
			t.Error("expected error when nothing is left to roll back")
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		for i := 0; i < 2; i++ {
			if err := RunMigrations(db); err != nil {
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

	t.Run("splitStatements", func(t *testing.T) {
		script := "-- header\nCREATE TABLE a (x INT);\n\nCREATE TABLE b (y INT); -- trailing\n"
		got := splitStatements(script)
		if len(got) != 2 {
			t.Fatalf("expected 2 statements, got %d: %q", len(got), got)
		}
		if got[1] != "CREATE TABLE b (y INT)" {
			t.Errorf("unexpected second statement %q", got[1])
		}
	})
}
