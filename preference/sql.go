package preference

import (
	"database/sql"
	"embed"

	sq "github.com/Masterminds/squirrel"
	"github.com/ZaguanLabs/chatlai"
)

//go:embed migrations
var migrationsFS embed.FS

const table = "user_languages"

var columns = []string{
	"user_id",
	"has_chat",
	"chat_id",
	"target_language",
	"source_language",
	"updated_at",
}

// queries builds the statements shared by the SQL stores. An unset chat is
// stored as has_chat = false, chat_id = 0 so that the primary key never
// involves NULL.
type queries struct {
	sb sq.StatementBuilderType
}

func chatColumns(chat chatlai.ChatID) (bool, int64) {
	id, ok := chat.Get()
	return ok, id
}

func sourceValue(l chatlai.Lang) sql.NullString {
	code, ok := l.Get()
	return sql.NullString{String: code, Valid: ok}
}

func sourceLang(v sql.NullString) chatlai.Lang {
	if !v.Valid {
		return chatlai.AutoDetect()
	}
	return chatlai.LangCode(v.String)
}

func chatID(hasChat bool, id int64) chatlai.ChatID {
	if !hasChat {
		return chatlai.NoChat()
	}
	return chatlai.Chat(id)
}

// upsert takes updatedAt pre-encoded for the driver.
func (q queries) upsert(pref chatlai.UserLanguage, updatedAt any) (string, []any, error) {
	hasChat, id := chatColumns(pref.ChatID)
	return q.sb.
		Insert(table).
		Columns(columns...).
		Values(
			pref.UserID,
			hasChat,
			id,
			pref.TargetLanguage,
			sourceValue(pref.SourceLanguage),
			updatedAt,
		).
		Suffix("ON CONFLICT (user_id, has_chat, chat_id) DO UPDATE SET " +
			"target_language = excluded.target_language, " +
			"source_language = excluded.source_language, " +
			"updated_at = excluded.updated_at").
		ToSql()
}

// get selects the chat-scoped row first and the global row second.
func (q queries) get(userID int64, chat chatlai.ChatID) (string, []any, error) {
	scope := sq.Or{sq.Eq{"has_chat": false}}
	if id, ok := chat.Get(); ok {
		scope = append(scope, sq.And{sq.Eq{"has_chat": true}, sq.Eq{"chat_id": id}})
	}
	return q.sb.
		Select(columns...).
		From(table).
		Where(sq.Eq{"user_id": userID}).
		Where(scope).
		OrderBy("has_chat DESC").
		Limit(1).
		ToSql()
}

func (q queries) clear(userID int64, chat chatlai.ChatID) (string, []any, error) {
	hasChat, id := chatColumns(chat)
	return q.sb.
		Delete(table).
		Where(sq.Eq{"user_id": userID, "has_chat": hasChat, "chat_id": id}).
		ToSql()
}

func (q queries) clearUser(userID int64) (string, []any, error) {
	return q.sb.
		Delete(table).
		Where(sq.Eq{"user_id": userID}).
		ToSql()
}
