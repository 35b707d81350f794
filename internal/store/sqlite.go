package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/firmly/dvr/internal/domain"
)

// indexKey is the single kv row holding the recent-sessions index.
const indexKey = "recent_sessions"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db         *sql.DB
	maxIndexed int

	// indexMu serializes the load-modify-store of the recent-sessions row;
	// concurrent writers would otherwise drop each other's insert.
	indexMu sync.Mutex
}

// NewSQLiteStore creates a new SQLite store. maxIndexed caps the
// recent-sessions index; entries beyond it are evicted oldest-first.
func NewSQLiteStore(dsn string, maxIndexed int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	s := &SQLiteStore{db: db, maxIndexed: maxIndexed}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS session_events (
			session_id TEXT PRIMARY KEY,
			events TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS session_metadata (
			session_id TEXT PRIMARY KEY,
			metadata TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// WriteEvents stores the full event log for a session with overwrite
// semantics.
func (s *SQLiteStore) WriteEvents(ctx context.Context, sessionID string, events []domain.Event) (int, error) {
	if events == nil {
		events = []domain.Event{}
	}
	data, err := json.Marshal(events)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal events: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO session_events (session_id, events, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
		sessionID, string(data))
	if err != nil {
		return 0, fmt.Errorf("failed to write events: %w", err)
	}
	return len(events), nil
}

// GetEvents returns the stored event log, or nil if the session is unknown.
func (s *SQLiteStore) GetEvents(ctx context.Context, sessionID string) ([]domain.Event, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT events FROM session_events WHERE session_id = ?`, sessionID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	var events []domain.Event
	if err := json.Unmarshal([]byte(data), &events); err != nil {
		return nil, fmt.Errorf("failed to unmarshal events: %w", err)
	}
	if events == nil {
		events = []domain.Event{}
	}
	return events, nil
}

// CreateMetadata stores metadata for a session and inserts it into the
// recent-sessions index. Index maintenance failures are logged and swallowed;
// they never fail the primary write.
func (s *SQLiteStore) CreateMetadata(ctx context.Context, sessionID string, md *domain.SessionMetadata) error {
	data, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO session_metadata (session_id, metadata) VALUES (?, ?)`,
		sessionID, string(data))
	if err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	if err := s.insertIntoIndex(ctx, md); err != nil {
		log.Printf("WARN: failed to update sessions index for %s: %v", sessionID, err)
	}
	return nil
}

// GetMetadata returns stored metadata, or nil if the session is unknown.
func (s *SQLiteStore) GetMetadata(ctx context.Context, sessionID string) (*domain.SessionMetadata, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT metadata FROM session_metadata WHERE session_id = ?`, sessionID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	var md domain.SessionMetadata
	if err := json.Unmarshal([]byte(data), &md); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &md, nil
}

// ListMetadata returns a page of the recent-sessions index.
func (s *SQLiteStore) ListMetadata(ctx context.Context, limit, offset int) ([]domain.SessionMetadata, error) {
	index, err := s.loadIndex(ctx)
	if err != nil {
		return nil, err
	}
	if offset >= len(index) {
		return []domain.SessionMetadata{}, nil
	}
	end := offset + limit
	if end > len(index) {
		end = len(index)
	}
	return index[offset:end], nil
}

// insertIntoIndex prepends md to the recent-sessions index, skipping the
// insert when the session is already present and truncating to the cap.
func (s *SQLiteStore) insertIntoIndex(ctx context.Context, md *domain.SessionMetadata) error {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	index, err := s.loadIndex(ctx)
	if err != nil {
		return err
	}
	for _, entry := range index {
		if entry.SessionID == md.SessionID {
			return nil
		}
	}
	index = append([]domain.SessionMetadata{*md}, index...)
	if len(index) > s.maxIndexed {
		index = index[:s.maxIndexed]
	}
	data, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)`, indexKey, string(data))
	if err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}

// loadIndex reads the recent-sessions index, dropping malformed entries.
func (s *SQLiteStore) loadIndex(ctx context.Context) ([]domain.SessionMetadata, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE key = ?`, indexKey).Scan(&data)
	if err == sql.ErrNoRows {
		return []domain.SessionMetadata{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		log.Printf("WARN: sessions index corrupted, resetting: %v", err)
		return []domain.SessionMetadata{}, nil
	}
	index := make([]domain.SessionMetadata, 0, len(raw))
	for _, entry := range raw {
		var md domain.SessionMetadata
		if err := json.Unmarshal(entry, &md); err != nil || md.SessionID == "" {
			continue
		}
		index = append(index, md)
	}
	return index, nil
}
