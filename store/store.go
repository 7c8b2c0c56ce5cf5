// Package store keeps named hook programs in a SQLite database so manifests
// and tooling can refer to bytecode by name instead of shipping files
// around. Programs are content-hashed on the way in.
package store

import (
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrProgramNotFound indicates the requested program doesn't exist.
var ErrProgramNotFound = errors.New("store: program not found")

// ProgramInfo describes one stored program.
type ProgramInfo struct {
	Name      string
	Size      int
	Hash      [32]byte
	CreatedAt time.Time
}

// Store is a SQLite-backed table of named bytecode programs.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (creating if needed) a program store at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		name TEXT PRIMARY KEY,
		code BLOB NOT NULL,
		hash BLOB NOT NULL,
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Put stores a program under a name, replacing any previous program with
// that name.
func (s *Store) Put(name string, code []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := sha256.Sum256(code)
	_, err := s.db.Exec(
		`INSERT INTO programs (name, code, hash, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET code=excluded.code, hash=excluded.hash, created_at=excluded.created_at`,
		name, code, hash[:], time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("storing program %q: %w", name, err)
	}
	return nil
}

// Get returns the bytecode stored under a name. Satisfies
// manifest.ProgramSource.
func (s *Store) Get(name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var code []byte
	err := s.db.QueryRow(`SELECT code FROM programs WHERE name = ?`, name).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrProgramNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("loading program %q: %w", name, err)
	}
	return code, nil
}

// List returns info for every stored program, ordered by name.
func (s *Store) List() ([]ProgramInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT name, code, hash, created_at FROM programs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing programs: %w", err)
	}
	defer rows.Close()

	var out []ProgramInfo
	for rows.Next() {
		var (
			info    ProgramInfo
			code    []byte
			hash    []byte
			created string
		)
		if err := rows.Scan(&info.Name, &code, &hash, &created); err != nil {
			return nil, fmt.Errorf("scanning program row: %w", err)
		}
		info.Size = len(code)
		copy(info.Hash[:], hash)
		if t, err := time.Parse(time.RFC3339, created); err == nil {
			info.CreatedAt = t
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes a program by name. Deleting a missing program is not an
// error.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM programs WHERE name = ?`, name); err != nil {
		return fmt.Errorf("deleting program %q: %w", name, err)
	}
	return nil
}
