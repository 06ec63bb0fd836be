package preference

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/ZaguanLabs/chatlai"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteMigrations = "migrations/sqlite"

// SQLiteStore persists preferences in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	q  queries
}

// OpenSQLite opens the database at dsn, applies pending migrations and
// returns a store that owns the connection. Use ":memory:" for a private
// in-memory database.
func OpenSQLite(dsn string) (*SQLiteStore, error) {
	inMemory := dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
	if !inMemory && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("make db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if inMemory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	if err := applySQLiteMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewSQLiteStore(db), nil
}

// NewSQLiteStore wraps an already migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, q: queries{sb: sq.StatementBuilder}}
}

func applySQLiteMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT NOT NULL UNIQUE,
        applied_at TEXT NOT NULL
    )`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	entries, err := fs.ReadDir(migrationsFS, sqliteMigrations)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	for _, name := range files {
		var n int
		err := db.QueryRow(`SELECT 1 FROM schema_migrations WHERE name = ?`, name).Scan(&n)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		b, err := migrationsFS.ReadFile(path.Join(sqliteMigrations, name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(b)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_migrations(name, applied_at) VALUES (?, ?)`, name, time.Now().UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}
	return nil
}

// Set validates pref and inserts or overwrites its record.
func (s *SQLiteStore) Set(ctx context.Context, pref chatlai.UserLanguage) (chatlai.UserLanguage, error) {
	pref, err := normalize(pref)
	if err != nil {
		return chatlai.UserLanguage{}, err
	}
	pref.UpdatedAt = now()

	query, args, err := s.q.upsert(pref, pref.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return chatlai.UserLanguage{}, fmt.Errorf("build upsert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return chatlai.UserLanguage{}, fmt.Errorf("set preference: %w", err)
	}
	return pref, nil
}

// Get returns the chat-scoped record, else the global one, else chatlai.ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, userID int64, chat chatlai.ChatID) (chatlai.UserLanguage, error) {
	query, args, err := s.q.get(userID, chat)
	if err != nil {
		return chatlai.UserLanguage{}, fmt.Errorf("build select: %w", err)
	}

	var (
		pref    chatlai.UserLanguage
		hasChat bool
		id      int64
		source  sql.NullString
		updated string
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&pref.UserID,
		&hasChat,
		&id,
		&pref.TargetLanguage,
		&source,
		&updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return chatlai.UserLanguage{}, chatlai.ErrNotFound
	}
	if err != nil {
		return chatlai.UserLanguage{}, fmt.Errorf("get preference: %w", err)
	}

	pref.ChatID = chatID(hasChat, id)
	pref.SourceLanguage = sourceLang(source)
	pref.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return chatlai.UserLanguage{}, fmt.Errorf("get preference: parse updated_at: %w", err)
	}
	return pref, nil
}

// Clear deletes the exact (userID, chat) record.
func (s *SQLiteStore) Clear(ctx context.Context, userID int64, chat chatlai.ChatID) error {
	query, args, err := s.q.clear(userID, chat)
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear preference: %w", err)
	}
	return nil
}

// ClearUser deletes every record of userID.
func (s *SQLiteStore) ClearUser(ctx context.Context, userID int64) error {
	query, args, err := s.q.clearUser(userID)
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear user preferences: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ chatlai.PreferenceStore = (*SQLiteStore)(nil)
