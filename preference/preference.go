// Package preference stores per-user, per-chat language preferences.
//
// Every store implements chatlai.PreferenceStore: a record scoped to a chat
// takes precedence over the user's global record (unset chat), and Set
// validates and canonicalizes language codes before anything is written.
package preference

import (
	"context"
	"fmt"
	"time"

	"github.com/ZaguanLabs/chatlai"
)

// normalize validates pref and returns it with canonical language codes.
func normalize(pref chatlai.UserLanguage) (chatlai.UserLanguage, error) {
	target, err := chatlai.ParseLanguageCode(pref.TargetLanguage)
	if err != nil {
		return chatlai.UserLanguage{}, err
	}
	source, err := chatlai.ParseSourceLang(pref.SourceLanguage)
	if err != nil {
		return chatlai.UserLanguage{}, err
	}

	pref.TargetLanguage = target
	pref.SourceLanguage = source
	return pref, nil
}

// storeKey identifies one record.
type storeKey struct {
	userID int64
	chat   chatlai.ChatID
}

func now() time.Time {
	return time.Now().UTC()
}

// Store is a PreferenceStore that owns resources.
type Store interface {
	chatlai.PreferenceStore
	Close() error
}

// Open creates the store for driver: "memory", "sqlite" or "postgres".
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite", "sqlite3":
		if dsn == "" {
			dsn = ":memory:"
		}
		return OpenSQLite(dsn)
	case "postgres", "postgresql":
		if dsn == "" {
			return nil, fmt.Errorf("postgres preference store requires a dsn")
		}
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown preference driver %q", driver)
	}
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
