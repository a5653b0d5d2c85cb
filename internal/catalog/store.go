package catalog

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store provides SQLite-backed persistence for session summaries.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database at dbPath and creates tables if they don't exist.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		segment_count INTEGER NOT NULL DEFAULT 0,
		preview TEXT NOT NULL DEFAULT '',
		transcript TEXT NOT NULL DEFAULT '',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS sessions_name ON sessions(name);
	`
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	return addTranscriptColumn(db)
}

// addTranscriptColumn upgrades catalogs created before the transcript column
// existed. Their rows stay empty until the next refresh or reindex.
func addTranscriptColumn(db *sql.DB) error {
	rows, err := db.Query(`PRAGMA table_info(sessions)`)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return err
		}
		if name == "transcript" {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	_ = rows.Close()

	_, err = db.Exec(`ALTER TABLE sessions ADD COLUMN transcript TEXT NOT NULL DEFAULT ''`)
	return err
}

const upsertSQL = `INSERT INTO sessions (id, name, created_at, segment_count, preview, transcript, updated_at)
	 VALUES (?, ?, ?, ?, ?, ?, ?)
	 ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		created_at = excluded.created_at,
		segment_count = excluded.segment_count,
		preview = excluded.preview,
		transcript = excluded.transcript,
		updated_at = excluded.updated_at`

// Upsert inserts or replaces the summary for sum.ID.
func (s *Store) Upsert(sum Summary) error {
	if sum.UpdatedAt.IsZero() {
		sum.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(upsertSQL,
		sum.ID, sum.Name, sum.CreatedAt, sum.SegmentCount, sum.Preview, sum.Transcript, sum.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// Get retrieves a summary by session id. Returns nil, nil when absent.
func (s *Store) Get(id string) (*Summary, error) {
	row := s.db.QueryRow(
		`SELECT id, name, created_at, segment_count, preview, transcript, updated_at
		 FROM sessions WHERE id = ?`,
		id,
	)

	var sum Summary
	err := row.Scan(&sum.ID, &sum.Name, &sum.CreatedAt, &sum.SegmentCount, &sum.Preview, &sum.Transcript, &sum.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}

	return &sum, nil
}

// Search returns sessions whose id, name or transcript contains query
// (case-insensitive), oldest first. An empty query matches everything.
// limit <= 0 means no limit.
func (s *Store) Search(query string, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = -1
	}
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"

	rows, err := s.db.Query(
		`SELECT id, name, created_at, segment_count, preview, transcript, updated_at
		 FROM sessions
		 WHERE lower(id) LIKE ? ESCAPE '\'
		    OR lower(name) LIKE ? ESCAPE '\'
		    OR lower(transcript) LIKE ? ESCAPE '\'
		 ORDER BY id ASC
		 LIMIT ?`,
		pattern, pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.CreatedAt, &sum.SegmentCount, &sum.Preview, &sum.Transcript, &sum.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return summaries, nil
}

// Delete removes a session's row. Deleting a missing row is not an error.
func (s *Store) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Rebuild replaces the whole catalog with entries in one transaction.
func (s *Store) Rebuild(entries []Summary) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin rebuild: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM sessions`); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	now := time.Now().UTC()
	for _, sum := range entries {
		if sum.UpdatedAt.IsZero() {
			sum.UpdatedAt = now
		}
		if _, err := tx.Exec(upsertSQL,
			sum.ID, sum.Name, sum.CreatedAt, sum.SegmentCount, sum.Preview, sum.Transcript, sum.UpdatedAt); err != nil {
			return fmt.Errorf("insert %s: %w", sum.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rebuild: %w", err)
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
