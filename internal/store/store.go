// Package store persists walk results as snapshots in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/dlovans/formwalk/pkg/formwalk"
)

//go:embed schema.sql
var schema string

// timeLayout is fixed width so created_at sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var (
	// ErrNotFound is returned when a snapshot does not exist.
	ErrNotFound = errors.New("snapshot not found")
	// ErrLocked is returned when another process holds the store.
	ErrLocked = errors.New("store is locked by another process")
)

// Snapshot is one persisted evaluation of a form.
type Snapshot struct {
	ID        string           `json:"id"`
	FormID    string           `json:"form_id"`
	CreatedAt time.Time        `json:"created_at"`
	Answers   formwalk.Answers `json:"answers"`
	Result    *formwalk.Result `json:"result"`
	Required  []string         `json:"required"`
}

// Store is a single-writer snapshot database.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
	path string
}

// Open opens (creating if needed) the store at path. A lock file next to the
// database keeps a second process from writing concurrently.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	lock := flock.New(path + ".lock")
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to try lock on %s: %w", path, err)
	}
	if !acquired {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, lock: lock, path: path}, nil
}

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// Close closes the database and releases the lock.
func (s *Store) Close() error {
	dbErr := s.db.Close()
	lockErr := s.lock.Unlock()
	return errors.Join(dbErr, lockErr)
}

// Save stores a walk result and the required paths computed for answers.
func (s *Store) Save(ctx context.Context, formID string, answers formwalk.Answers, result *formwalk.Result, required []string) (*Snapshot, error) {
	snap := &Snapshot{
		ID:        uuid.NewString(),
		FormID:    formID,
		CreatedAt: time.Now().UTC(),
		Answers:   answers,
		Result:    result,
		Required:  required,
	}

	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("marshal answers: %w", err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	requiredJSON, err := json.Marshal(required)
	if err != nil {
		return nil, fmt.Errorf("marshal required: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, form_id, created_at, answers, result, required) VALUES (?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.FormID, snap.CreatedAt.Format(timeLayout),
		string(answersJSON), string(resultJSON), string(requiredJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return snap, nil
}

// Get returns the snapshot with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, form_id, created_at, answers, result, required FROM snapshots WHERE id = ?`, id)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return snap, err
}

// List returns snapshots, newest first. An empty formID lists every form;
// limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, formID string, limit int) ([]*Snapshot, error) {
	query := `SELECT id, form_id, created_at, answers, result, required FROM snapshots`
	var args []any
	if formID != "" {
		query += ` WHERE form_id = ?`
		args = append(args, formID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(sc scanner) (*Snapshot, error) {
	var snap Snapshot
	var created, answers, result, req string
	if err := sc.Scan(&snap.ID, &snap.FormID, &created, &answers, &result, &req); err != nil {
		return nil, err
	}

	var err error
	if snap.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("snapshot %s: bad timestamp: %w", snap.ID, err)
	}
	if err := json.Unmarshal([]byte(answers), &snap.Answers); err != nil {
		return nil, fmt.Errorf("snapshot %s: decode answers: %w", snap.ID, err)
	}
	if err := json.Unmarshal([]byte(result), &snap.Result); err != nil {
		return nil, fmt.Errorf("snapshot %s: decode result: %w", snap.ID, err)
	}
	if err := json.Unmarshal([]byte(req), &snap.Required); err != nil {
		return nil, fmt.Errorf("snapshot %s: decode required: %w", snap.ID, err)
	}
	return &snap, nil
}
