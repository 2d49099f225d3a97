package history

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/euca-validator/internal/domain"
	"github.com/doeshing/euca-validator/internal/ports"
)

// SQLiteStore persists validation runs in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// NewSQLiteStore creates (or opens) the database at path. When SQLite cannot
// be opened the store falls back to a JSONL file next to it.
func NewSQLiteStore(path string) *SQLiteStore {
	_ = os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return &SQLiteStore{path: path}
	}
	store := &SQLiteStore{db: db, path: path}
	if err := store.init(); err != nil {
		_ = db.Close()
		return &SQLiteStore{path: path}
	}
	return store
}

func (s *SQLiteStore) init() error {
	if s.db == nil {
		return os.ErrInvalid
	}
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT,
		stage TEXT,
		role TEXT,
		traverse INTEGER,
		failed INTEGER,
		failure_count INTEGER,
		duration_ms INTEGER,
		result TEXT
	);`)
	return err
}

func (s *SQLiteStore) fallback() *FileStore {
	return NewFileStore(strings.TrimSuffix(s.path, filepath.Ext(s.path)) + ".jsonl")
}

// Save inserts a new record.
func (s *SQLiteStore) Save(record domain.RunRecord) error {
	if s.db == nil {
		return s.fallback().Save(record)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO runs
		(timestamp, stage, role, traverse, failed, failure_count, duration_ms, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Timestamp.UTC().Format(time.RFC3339Nano),
		record.Stage,
		record.Role,
		boolToInt(record.Traverse),
		boolToInt(record.Failed),
		record.FailureCount,
		record.DurationMS,
		string(record.Result),
	)
	return err
}

// Records returns runs newest first. limit <= 0 means no limit.
func (s *SQLiteStore) Records(limit int, failedOnly bool) ([]domain.RunRecord, error) {
	if s.db == nil {
		return s.fallback().Records(limit, failedOnly)
	}
	builder := strings.Builder{}
	builder.WriteString("SELECT timestamp, stage, role, traverse, failed, failure_count, duration_ms, result FROM runs")
	var args []interface{}
	if failedOnly {
		builder.WriteString(" WHERE failed = 1")
	}
	builder.WriteString(" ORDER BY id DESC")
	if limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	rows, err := s.db.Query(builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []domain.RunRecord
	for rows.Next() {
		var rec domain.RunRecord
		var ts, result string
		var traverse, failed int
		if err := rows.Scan(&ts, &rec.Stage, &rec.Role, &traverse, &failed, &rec.FailureCount, &rec.DurationMS, &result); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rec.Timestamp = t
		}
		rec.Traverse = traverse == 1
		rec.Failed = failed == 1
		if result != "" {
			rec.Result = []byte(result)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Clear deletes all recorded runs.
func (s *SQLiteStore) Clear() error {
	if s.db == nil {
		return s.fallback().Clear()
	}
	_, err := s.db.Exec("DELETE FROM runs")
	return err
}

// Path returns the sqlite database path, or the fallback file in use.
func (s *SQLiteStore) Path() string {
	if s.db == nil {
		return s.fallback().Path()
	}
	return s.path
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ ports.HistoryRepository = (*SQLiteStore)(nil)
