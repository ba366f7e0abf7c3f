package recorder

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"codeberg.org/helvik/tapowatt/internal/errors"
	"codeberg.org/helvik/tapowatt/internal/logger"

	_ "github.com/mattn/go-sqlite3"
)

const defaultDirPerm = 0o755

type Repository interface {
	Store(ctx context.Context, reading *Reading) error
	Close() error
}

type sqliteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

func NewRepository(cfg Config) (Repository, error) {
	if cfg.DBPath == "" {
		return nil, errors.New(ErrInvalidDBPath)
	}

	logger.Debug().Msgf("Initializing reading repository at: %s", cfg.DBPath)

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errors.Wrap(ErrStorageInit, err)
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal=WAL")
	if err != nil {
		return nil, errors.Wrap(ErrStorageInit, err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, errors.Wrap(ErrStorageInit, err)
	}

	return &sqliteRepository{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS readings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            timestamp INTEGER NOT NULL,
            watts REAL NOT NULL,
            mode TEXT NOT NULL
        );
        CREATE INDEX IF NOT EXISTS readings_timestamp ON readings (timestamp)
    `)

	return err
}

func (r *sqliteRepository) Store(ctx context.Context, reading *Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `
        INSERT INTO readings (timestamp, watts, mode) VALUES (?, ?, ?)
    `,
		reading.Timestamp.Unix(),
		reading.Watts,
		string(reading.Mode),
	)
	if err != nil {
		return errors.Wrap(ErrStorageAccess, err)
	}

	return nil
}

func (r *sqliteRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.db.Close(); err != nil {
		return errors.Wrap(ErrStorageClose, err)
	}

	return nil
}
