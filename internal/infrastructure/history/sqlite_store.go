// Package history persists the durable append-only log of completed analyses.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/archway-dev/archway/internal/domain"
	"github.com/archway-dev/archway/internal/ports"
)

// SQLiteStore keeps analysis records in a SQLite database. Deletion is a
// logical tombstone: List excludes deleted records, Get on a deleted id fails
// with domain.ErrNotFound, and the row itself is never overwritten.
type SQLiteStore struct {
	db            *sql.DB
	path          string
	mu            sync.Mutex
	retentionDays int
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema exists.
func NewSQLiteStore(settings domain.HistorySettings) (*SQLiteStore, error) {
	path := settings.Path
	if path == "" {
		path = filepath.Join(userHome(), ".archway", "analyses.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	store := &SQLiteStore{db: db, path: path, retentionDays: settings.RetentionDays}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		kind TEXT NOT NULL,
		file_paths TEXT NOT NULL,
		summary TEXT,
		payload TEXT,
		deleted INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_analyses_timestamp ON analyses(timestamp);
	CREATE INDEX IF NOT EXISTS idx_analyses_file_paths ON analyses(file_paths);`)
	return err
}

// Append inserts a new record. It fails only on a storage fault.
func (s *SQLiteStore) Append(ctx context.Context, record domain.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths, err := json.Marshal(record.FilePaths)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO analyses
		(id, timestamp, kind, file_paths, summary, payload, deleted)
		VALUES (?, ?, ?, ?, ?, ?, 0)`,
		record.AnalysisID,
		record.Timestamp.UTC().Format(time.RFC3339Nano),
		string(record.Kind),
		string(paths),
		record.Summary,
		record.Payload,
	)
	if err != nil {
		return fmt.Errorf("append history record: %w", err)
	}
	if s.retentionDays > 0 {
		return s.pruneOlderThan(ctx, s.retentionDays)
	}
	return nil
}

// Get looks up a record by analysis id, treating tombstones as absent.
func (s *SQLiteStore) Get(ctx context.Context, id string) (domain.HistoryRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, timestamp, kind, file_paths, summary, payload
		FROM analyses WHERE id = ? AND deleted = 0`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return domain.HistoryRecord{}, domain.ErrNotFound
	}
	return rec, err
}

// List returns non-deleted records ordered by timestamp descending.
func (s *SQLiteStore) List(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryRecord, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT id, timestamp, kind, file_paths, summary, payload
		FROM analyses WHERE deleted = 0`)
	var args []interface{}
	if filter.FilePath != "" {
		// file_paths is a JSON array of strings; matching the quoted element
		// keeps "auth.py" from matching "oauth.py".
		builder.WriteString(" AND file_paths LIKE ?")
		args = append(args, `%"`+filter.FilePath+`"%`)
	}
	if !filter.Since.IsZero() {
		builder.WriteString(" AND timestamp >= ?")
		args = append(args, filter.Since.UTC().Format(time.RFC3339Nano))
	}
	builder.WriteString(" ORDER BY timestamp DESC")
	if filter.Limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.HistoryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete tombstones a record. Unknown and already-deleted ids both fail with
// domain.ErrNotFound.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE analyses SET deleted = 1 WHERE id = ? AND deleted = 0`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ExportJSON writes the visible records to dest as JSONL.
func (s *SQLiteStore) ExportJSON(ctx context.Context, dest string) error {
	records, err := s.List(ctx, domain.HistoryFilter{})
	if err != nil {
		return err
	}
	file, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer file.Close()
	for _, rec := range records {
		b, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if _, err := file.Write(append(b, '\n')); err != nil {
			return err
		}
	}
	return nil
}

// Path returns the sqlite database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) pruneOlderThan(ctx context.Context, days int) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM analyses WHERE datetime(timestamp) < datetime('now', ?)",
		fmt.Sprintf("-%d days", days))
	return err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (domain.HistoryRecord, error) {
	var rec domain.HistoryRecord
	var ts, kind, paths string
	if err := row.Scan(&rec.AnalysisID, &ts, &kind, &paths, &rec.Summary, &rec.Payload); err != nil {
		return domain.HistoryRecord{}, err
	}
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		rec.Timestamp = t
	}
	rec.Kind = domain.AnalysisKind(kind)
	if err := json.Unmarshal([]byte(paths), &rec.FilePaths); err != nil {
		return domain.HistoryRecord{}, err
	}
	return rec, nil
}

func userHome() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

var _ ports.HistoryStore = (*SQLiteStore)(nil)
