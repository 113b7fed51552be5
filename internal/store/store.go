// Package store is the durable entity store backing the sync daemon: an
// embedded SQLite replica of users, rooms and messages with single-writer
// transactions and live query subscriptions.
package store

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const (
	tableUsers    = "users"
	tableRooms    = "rooms"
	tableMessages = "messages"
)

// Store owns the three entity tables. The reconciler and the realtime
// channel are its only writers; all mutations go through Tx.
type Store struct {
	db        *sqlx.DB
	writeMu   sync.Mutex
	observers *observerRegistry
}

// Open opens (creating if necessary) the SQLite replica at path and
// applies migrations. The caller must Close the store when done.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	// WAL keeps readers off the writer's back; foreign keys guard the
	// message -> room relation.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, observers: newObserverRegistry()}, nil
}

// Close releases the underlying database and cancels every live
// subscription.
func (s *Store) Close() error {
	s.observers.closeAll()
	return s.db.Close()
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL,
            profile_picture_url TEXT,
            token TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS rooms (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            type TEXT NOT NULL,
            expiry_time INTEGER NOT NULL DEFAULT 0,
            created_at INTEGER NOT NULL DEFAULT 0,
            updated_at INTEGER NOT NULL DEFAULT 0,
            last_message_timestamp INTEGER NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS messages (
            id TEXT PRIMARY KEY,
            text TEXT NOT NULL,
            timestamp INTEGER NOT NULL,
            room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
            sender_id TEXT NOT NULL,
            sender_name TEXT NOT NULL,
            media_type TEXT,
            media_link TEXT
        );`,
		`CREATE INDEX IF NOT EXISTS idx_messages_room_id ON messages(room_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_room_ts ON messages(room_id, timestamp DESC);`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("store migrations applied")
	return nil
}

// Tx runs fn inside a single write transaction. Writers are serialized;
// a pending transaction gets the lock as soon as the current one
// finishes. Any error from fn discards every write in the batch, and
// subscriptions are notified only after a successful commit.
func (s *Store) Tx(ctx context.Context, fn func(*Txn) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	txn := &Txn{tx: tx, touched: make(map[string]bool)}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(txn); err != nil {
		return mapConstraintErr(err)
	}
	if err := tx.Commit(); err != nil {
		return mapConstraintErr(err)
	}
	committed = true

	s.observers.notify(txn.touched)
	return nil
}
