package mockserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	_ "modernc.org/sqlite"

	"github.com/iksnae/medisnap/internal"
)

// ErrNotFound is returned for unknown interpretation ids.
var ErrNotFound = errors.New("interpretation not found")

const schema = `
CREATE TABLE IF NOT EXISTS interpretations (
	id            TEXT PRIMARY KEY,
	document_type TEXT NOT NULL,
	language      TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	body          TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS chat_messages (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	result_id  TEXT NOT NULL REFERENCES interpretations(id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS chat_messages_result ON chat_messages(result_id, seq);
`

// Store persists interpretations and chat threads in SQLite. Result reads go
// through an in-process cache.
type Store struct {
	db    *sql.DB
	cache *cache.Cache
}

// OpenStore opens (and migrates) the database at path. ":memory:" keeps
// everything in process.
func OpenStore(path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// an in-memory database lives on a single connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &Store{
		db: db,
		// no janitor goroutine; expired entries are dropped on read
		cache: cache.New(5*time.Minute, 0),
	}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	s.cache.Flush()
	return s.db.Close()
}

// SaveResult inserts or replaces a result.
func (s *Store) SaveResult(ctx context.Context, res *internal.InterpretationResult) error {
	body, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode interpretation: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO interpretations (id, document_type, language, created_at, body) VALUES (?, ?, ?, ?, ?)`,
		res.ID, res.DocumentType, res.Language, res.CreatedAt, string(body))
	if err != nil {
		return fmt.Errorf("insert interpretation: %w", err)
	}
	s.cache.Set(res.ID, *res, cache.DefaultExpiration)
	return nil
}

// GetResult returns a copy of the stored result.
func (s *Store) GetResult(ctx context.Context, id string) (*internal.InterpretationResult, error) {
	if x, found := s.cache.Get(id); found {
		res := x.(internal.InterpretationResult)
		return &res, nil
	}

	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM interpretations WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query interpretation: %w", err)
	}
	var res internal.InterpretationResult
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		return nil, fmt.Errorf("decode interpretation: %w", err)
	}
	s.cache.Set(id, res, cache.DefaultExpiration)
	return &res, nil
}

// ListFilter narrows ListResults. Page is 1-based.
type ListFilter struct {
	Type   string
	Search string
	Page   int
	Limit  int
}

func (f ListFilter) normalized() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	return f
}

// ListResults returns one page of results, newest first, and the total count
// matching the filter.
func (s *Store) ListResults(ctx context.Context, filter ListFilter) ([]internal.InterpretationResult, int, error) {
	filter = filter.normalized()

	var where []string
	var args []any
	if filter.Type != "" {
		where = append(where, "document_type = ? COLLATE NOCASE")
		args = append(args, filter.Type)
	}
	if filter.Search != "" {
		where = append(where, "body LIKE ?")
		args = append(args, "%"+filter.Search+"%")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM interpretations"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count interpretations: %w", err)
	}

	query := "SELECT body FROM interpretations" + clause + " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, append(args, filter.Limit, (filter.Page-1)*filter.Limit)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	items := []internal.InterpretationResult{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, 0, fmt.Errorf("scan failed: %w", err)
		}
		var res internal.InterpretationResult
		if err := json.Unmarshal([]byte(body), &res); err != nil {
			return nil, 0, fmt.Errorf("decode interpretation: %w", err)
		}
		items = append(items, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}
	return items, total, nil
}

// DeleteResult removes a result and its chat thread.
func (s *Store) DeleteResult(ctx context.Context, id string) error {
	s.cache.Delete(id)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_messages WHERE result_id = ?`, id); err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM interpretations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete interpretation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// AppendMessage adds a message to the thread of resultID.
func (s *Store) AppendMessage(ctx context.Context, resultID string, entry internal.HistoryEntry) error {
	if entry.CreatedAt == "" {
		entry.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, result_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, resultID, entry.Role, entry.Content, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

// History returns the thread of resultID in insertion order.
func (s *Store) History(ctx context.Context, resultID string) ([]internal.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, created_at FROM chat_messages WHERE result_id = ? ORDER BY seq`, resultID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	entries := []internal.HistoryEntry{}
	for rows.Next() {
		var e internal.HistoryEntry
		if err := rows.Scan(&e.ID, &e.Role, &e.Content, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
