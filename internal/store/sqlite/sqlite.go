// Package sqlite persists the in-memory record store to a single SQLite table
// as JSON buckets, snapshotting after every mutation.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/stokapp/stok/internal/store"
	"github.com/stokapp/stok/internal/store/memory"
)

var buckets = []string{"materials", "cases", "history", "checklist", "lookups"}

type Store struct {
	mem  *memory.DB
	db   *sql.DB
	mu   sync.Mutex
	path string
}

func Open(path string) (*Store, error) {
	if path == "" {
		path = "stok.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{mem: memory.New(), db: db, path: path}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.mem.OnWrite(s.persist)
	return s, nil
}

// Store returns the record store view; every write is snapshotted to disk.
func (s *Store) Store() store.Store { return s.mem.Store() }

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snap memory.Snapshot
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		var target any
		switch bucket {
		case "materials":
			target = &snap.Materials
		case "cases":
			target = &snap.Cases
		case "history":
			target = &snap.History
		case "checklist":
			target = &snap.Checklist
		case "lookups":
			target = &snap.Lookups
		default:
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return fmt.Errorf("decode %s: %w", bucket, err)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	s.mem.Import(snap)
	return nil
}

func (s *Store) persist(snap memory.Snapshot) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range buckets {
		var data []byte
		switch bucket {
		case "materials":
			data, err = json.Marshal(snap.Materials)
		case "cases":
			data, err = json.Marshal(snap.Cases)
		case "history":
			data, err = json.Marshal(snap.History)
		case "checklist":
			data, err = json.Marshal(snap.Checklist)
		case "lookups":
			data, err = json.Marshal(snap.Lookups)
		}
		if err != nil {
			return err
		}
		if _, err = tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	return tx.Commit()
}
