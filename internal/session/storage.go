package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Storage is a string key/value backend.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	// SetMany writes every pair or none of them.
	SetMany(values map[string]string) error
	Delete(keys ...string) error
}

var (
	_ Storage = (*MemoryStorage)(nil)
	_ Storage = (*FileStorage)(nil)
	_ Storage = (*SQLiteStorage)(nil)
)

// MemoryStorage keeps values in process memory.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStorage creates an empty [MemoryStorage].
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) SetMany(values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

func (m *MemoryStorage) Delete(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// FileStorage keeps values in a JSON object on disk, readable only by the owner.
//
// Every call re-reads the file so separate processes (CLI and server) see each other's writes.
type FileStorage struct {
	mu   sync.Mutex
	path string
}

// NewFileStorage creates a [FileStorage] at path; the file is created on first write.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Path returns the backing file path.
func (f *FileStorage) Path() string { return f.path }

func (f *FileStorage) read() (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse session file %s: %w", f.path, err)
	}
	return values, nil
}

func (f *FileStorage) write(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return os.Rename(tmp, f.path)
}

func (f *FileStorage) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.read()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (f *FileStorage) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.read()
	if err != nil {
		return err
	}
	values[key] = value
	return f.write(values)
}

// SetMany applies every pair in a single rewrite of the file.
func (f *FileStorage) SetMany(pairs map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.read()
	if err != nil {
		return err
	}
	for k, v := range pairs {
		values[k] = v
	}
	return f.write(values)
}

func (f *FileStorage) Delete(keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.read()
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(values, k)
	}
	return f.write(values)
}

// SQLiteStorage keeps values in the session_values table.
//
// The schema comes from shared.RunMigrations.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates a [SQLiteStorage] on a migrated database.
func NewSQLiteStorage(db *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{db: db}
}

func (s *SQLiteStorage) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM session_values WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query session value: %w", err)
	}
	return value, true, nil
}

const upsertSessionValue = `
	INSERT INTO session_values (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
`

func (s *SQLiteStorage) Set(key, value string) error {
	if _, err := s.db.Exec(upsertSessionValue, key, value); err != nil {
		return fmt.Errorf("failed to store session value: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) SetMany(values map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for k, v := range values {
		if _, err := tx.Exec(upsertSessionValue, k, v); err != nil {
			return fmt.Errorf("failed to store session value: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStorage) Delete(keys ...string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, k := range keys {
		if _, err := tx.Exec("DELETE FROM session_values WHERE key = ?", k); err != nil {
			return fmt.Errorf("failed to delete session value: %w", err)
		}
	}
	return tx.Commit()
}
