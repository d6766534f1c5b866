// Package store implements the on-device durable layer of the sync core:
// the cached read mirror, the pending-change queue, the media-blob queue,
// and the persisted auth session, all inside a single versioned sqlite
// database migrated with goose.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/avoskov/archivemind/internal/config"
	"github.com/avoskov/archivemind/internal/logger"
	"github.com/avoskov/archivemind/migrations"
)

// DB wraps the sqlite handle shared by all repositories.
type DB struct {
	*sql.DB
	logger *logger.Logger
}

// Open connects to the local sqlite database, creating the file on first
// run, and brings the schema up to date. The same DSN always maps to the
// same single database; callers should share the handle via SharedDB.
func Open(ctx context.Context, cfg config.Storage, log *logger.Logger) (*DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = ":memory:"
	}

	if dsn != ":memory:" {
		if err := createLocalDBFileIfNotExists(dsn); err != nil {
			log.Err(err).Str("func", "store.Open").Msg("error creating database file")
			return nil, fmt.Errorf("error creating database file: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		log.Err(err).Str("func", "store.Open").Msg("error connecting database")
		return nil, fmt.Errorf("error opening connection to local DB: %w", err)
	}

	// A single connection keeps :memory: databases alive across calls and
	// sidesteps sqlite writer contention.
	conn.SetMaxOpenConns(1)

	if err = conn.PingContext(ctx); err != nil {
		log.Err(err).Str("func", "store.Open").Msg("error connecting database (ping)")
		return nil, err
	}

	if err = migrations.Migrate(conn); err != nil {
		log.Err(err).Str("func", "store.Open").Msg("error migrating local database")
		return nil, err
	}

	log.Debug().Str("func", "store.Open").Str("dsn", dsn).Msg("local database ready")

	return &DB{DB: conn, logger: log}, nil
}

// SharedDB is a lazily-opened, process-wide database handle. Opening is
// idempotent and safe to call concurrently: every caller gets the same
// handle (or the same open error).
type SharedDB struct {
	cfg config.Storage
	log *logger.Logger

	once sync.Once
	db   *DB
	err  error
}

func NewSharedDB(cfg config.Storage, log *logger.Logger) *SharedDB {
	return &SharedDB{cfg: cfg, log: log}
}

// Get opens the database on first use and returns the shared handle after.
func (s *SharedDB) Get(ctx context.Context) (*DB, error) {
	s.once.Do(func() {
		s.db, s.err = Open(ctx, s.cfg, s.log)
	})
	return s.db, s.err
}

func createLocalDBFileIfNotExists(dbFile string) error {
	if _, err := os.Stat(dbFile); os.IsNotExist(err) {
		f, err := os.Create(dbFile)
		if err != nil {
			return fmt.Errorf("error creating DB file: %w", err)
		}
		f.Close()
	}

	return nil
}
