package preference

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/ZaguanLabs/chatlai"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists preferences in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
	q    queries
}

// OpenPostgres runs pending migrations against dsn, then connects a pool.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if err := MigratePostgres(dsn); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStore(pool), nil
}

// NewPostgresStore wraps an existing pool. The schema must already exist.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		pool: pool,
		q:    queries{sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)},
	}
}

// MigratePostgres applies all pending embedded migrations.
func MigratePostgres(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations/postgres")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("migration init: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up: %w", err)
	}
	return nil
}

// Set validates pref and inserts or overwrites its record.
func (s *PostgresStore) Set(ctx context.Context, pref chatlai.UserLanguage) (chatlai.UserLanguage, error) {
	pref, err := normalize(pref)
	if err != nil {
		return chatlai.UserLanguage{}, err
	}
	pref.UpdatedAt = now()

	query, args, err := s.q.upsert(pref, pref.UpdatedAt)
	if err != nil {
		return chatlai.UserLanguage{}, fmt.Errorf("build upsert: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return chatlai.UserLanguage{}, fmt.Errorf("set preference: %w", err)
	}
	return pref, nil
}

// Get returns the chat-scoped record, else the global one, else chatlai.ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, userID int64, chat chatlai.ChatID) (chatlai.UserLanguage, error) {
	query, args, err := s.q.get(userID, chat)
	if err != nil {
		return chatlai.UserLanguage{}, fmt.Errorf("build select: %w", err)
	}

	var (
		pref    chatlai.UserLanguage
		hasChat bool
		id      int64
		source  sql.NullString
	)
	err = s.pool.QueryRow(ctx, query, args...).Scan(
		&pref.UserID,
		&hasChat,
		&id,
		&pref.TargetLanguage,
		&source,
		&pref.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return chatlai.UserLanguage{}, chatlai.ErrNotFound
	}
	if err != nil {
		return chatlai.UserLanguage{}, fmt.Errorf("get preference: %w", err)
	}

	pref.ChatID = chatID(hasChat, id)
	pref.SourceLanguage = sourceLang(source)
	pref.UpdatedAt = pref.UpdatedAt.UTC()
	return pref, nil
}

// Clear deletes the exact (userID, chat) record.
func (s *PostgresStore) Clear(ctx context.Context, userID int64, chat chatlai.ChatID) error {
	query, args, err := s.q.clear(userID, chat)
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("clear preference: %w", err)
	}
	return nil
}

// ClearUser deletes every record of userID.
func (s *PostgresStore) ClearUser(ctx context.Context, userID int64) error {
	query, args, err := s.q.clearUser(userID)
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("clear user preferences: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

var _ chatlai.PreferenceStore = (*PostgresStore)(nil)
