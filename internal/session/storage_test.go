package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/desertthunder/tunemap/internal/shared"
)

func newSQLiteStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return NewSQLiteStorage(db)
}

func backends(t *testing.T) map[string]Storage {
	t.Helper()
	return map[string]Storage{
		"memory": NewMemoryStorage(),
		"file":   NewFileStorage(filepath.Join(t.TempDir(), "nested", "session.json")),
		"sqlite": newSQLiteStorage(t),
	}
}

func TestStorage(t *testing.T) {
	for name, storage := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("missing key", func(t *testing.T) {
				v, ok, err := storage.Get("absent")
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if ok || v != "" {
					t.Errorf("expected missing key, got %q, %v", v, ok)
				}
			})

			t.Run("set get overwrite", func(t *testing.T) {
				if err := storage.Set("k", "one"); err != nil {
					t.Fatalf("set failed: %v", err)
				}
				if err := storage.Set("k", "two"); err != nil {
					t.Fatalf("overwrite failed: %v", err)
				}
				v, ok, err := storage.Get("k")
				if err != nil || !ok || v != "two" {
					t.Errorf("expected two, got %q, %v, %v", v, ok, err)
				}
			})

			t.Run("set many", func(t *testing.T) {
				if err := storage.SetMany(map[string]string{"x": "1", "y": "2"}); err != nil {
					t.Fatalf("set many failed: %v", err)
				}
				for k, want := range map[string]string{"x": "1", "y": "2"} {
					if v, ok, err := storage.Get(k); err != nil || !ok || v != want {
						t.Errorf("%s: expected %q, got %q, %v, %v", k, want, v, ok, err)
					}
				}
			})

			t.Run("delete is idempotent", func(t *testing.T) {
				storage.Set("a", "1")
				storage.Set("b", "2")
				if err := storage.Delete("a", "b", "never-set"); err != nil {
					t.Fatalf("delete failed: %v", err)
				}
				if err := storage.Delete("a"); err != nil {
					t.Fatalf("second delete failed: %v", err)
				}
				if _, ok, _ := storage.Get("a"); ok {
					t.Error("expected a to be deleted")
				}
			})
		})
	}
}

func TestFileStorage(t *testing.T) {
	t.Run("file is owner only", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		storage := NewFileStorage(path)
		if err := storage.Set("k", "v"); err != nil {
			t.Fatalf("set failed: %v", err)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat failed: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("expected mode 0600, got %o", perm)
		}
	})

	t.Run("separate instances share the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		NewFileStorage(path).Set("k", "shared")

		v, ok, err := NewFileStorage(path).Get("k")
		if err != nil || !ok || v != "shared" {
			t.Errorf("expected shared, got %q, %v, %v", v, ok, err)
		}
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		os.WriteFile(path, []byte("{not json"), 0600)

		if _, _, err := NewFileStorage(path).Get("k"); err == nil {
			t.Error("expected error for corrupt file")
		}
	})
}
