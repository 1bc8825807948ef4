package session

import (
	"database/sql"
	"fmt"
	"io"

	"github.com/desertthunder/tunemap/internal/shared"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the [Storage] selected by config.Session.Backend.
//
// The returned closer releases the database for the sqlite backend and is a no-op otherwise.
func Open(config *shared.Config) (Storage, io.Closer, error) {
	switch config.Session.Backend {
	case "", "file":
		path := shared.ExpandPath(config.Session.Path)
		if path == "" {
			return nil, nil, fmt.Errorf("%w: session.path is required for the file backend", shared.ErrInvalidConfig)
		}
		return NewFileStorage(path), nopCloser{}, nil
	case "memory":
		return NewMemoryStorage(), nopCloser{}, nil
	case "sqlite":
		db, err := openDatabase(config.Database)
		if err != nil {
			return nil, nil, err
		}
		return NewSQLiteStorage(db), db, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown session backend %q", shared.ErrInvalidConfig, config.Session.Backend)
	}
}

func openDatabase(cfg shared.DatabaseConfig) (*sql.DB, error) {
	db, err := shared.NewDatabase(cfg.Path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate session database: %w", err)
	}
	return db, nil
}
