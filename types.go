package chatlai

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Lang is an optional language code. The zero value is unset, which means the
// source language is detected by the translator at translation time.
// A set empty code is distinct from an unset one.
type Lang struct {
	code string
	set  bool
}

// AutoDetect returns an unset Lang.
func AutoDetect() Lang {
	return Lang{}
}

// LangCode returns a Lang holding code.
func LangCode(code string) Lang {
	return Lang{code: code, set: true}
}

// Get returns the code and whether it is set.
func (l Lang) Get() (string, bool) {
	return l.code, l.set
}

// IsSet reports whether a code is present.
func (l Lang) IsSet() bool {
	return l.set
}

// Or returns the code, or def when unset.
func (l Lang) Or(def string) string {
	if !l.set {
		return def
	}
	return l.code
}

// String returns the code, or "auto" when unset.
func (l Lang) String() string {
	return l.Or("auto")
}

// MarshalJSON encodes an unset Lang as null.
func (l Lang) MarshalJSON() ([]byte, error) {
	if !l.set {
		return []byte("null"), nil
	}
	return json.Marshal(l.code)
}

// UnmarshalJSON decodes null as unset.
func (l *Lang) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = Lang{}
		return nil
	}
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}
	*l = LangCode(code)
	return nil
}

// ChatID optionally scopes a preference to a conversation.
// The zero value is unset: the preference is the user's global default.
type ChatID struct {
	id  int64
	set bool
}

// NoChat returns an unset ChatID.
func NoChat() ChatID {
	return ChatID{}
}

// Chat returns a ChatID holding id.
func Chat(id int64) ChatID {
	return ChatID{id: id, set: true}
}

// Get returns the id and whether it is set.
func (c ChatID) Get() (int64, bool) {
	return c.id, c.set
}

// IsSet reports whether an id is present.
func (c ChatID) IsSet() bool {
	return c.set
}

func (c ChatID) String() string {
	if !c.set {
		return "none"
	}
	return strconv.FormatInt(c.id, 10)
}

// MarshalJSON encodes an unset ChatID as null.
func (c ChatID) MarshalJSON() ([]byte, error) {
	if !c.set {
		return []byte("null"), nil
	}
	return json.Marshal(c.id)
}

// UnmarshalJSON decodes null as unset.
func (c *ChatID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = ChatID{}
		return nil
	}
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	*c = Chat(id)
	return nil
}

// UserLanguage is a user's language preference, either global or scoped to a chat.
type UserLanguage struct {
	UserID         int64     `json:"user_id"`
	ChatID         ChatID    `json:"chat_id"`
	TargetLanguage string    `json:"target_language"`
	SourceLanguage Lang      `json:"source_language"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Key identifies a cache entry. Text is compared byte for byte.
type Key struct {
	Text   string `json:"text"`
	Source Lang   `json:"source_lang"`
	Target string `json:"target_lang"`
}

// NewKey builds a Key from its parts without normalizing any of them.
func NewKey(text string, source Lang, target string) Key {
	return Key{Text: text, Source: source, Target: target}
}

// Entry is a memoized translation.
type Entry struct {
	Key
	Translated string    `json:"translated"`
	Timestamp  time.Time `json:"timestamp"`
}

// Origin tells where a resolved translation came from.
type Origin int

const (
	// OriginFetched means this caller invoked the fetcher.
	OriginFetched Origin = iota
	// OriginCache means a live local entry answered the request.
	OriginCache
	// OriginBackend means the second-level backend answered the request.
	OriginBackend
	// OriginShared means the caller waited on another caller's fetch.
	OriginShared
)

func (o Origin) String() string {
	switch o {
	case OriginCache:
		return "cache"
	case OriginBackend:
		return "backend"
	case OriginShared:
		return "shared"
	default:
		return "fetched"
	}
}

// Cached reports whether no fetch was issued on behalf of this caller.
func (o Origin) Cached() bool {
	return o != OriginFetched
}

// Resolution is the outcome of resolving a key through a Cache.
type Resolution struct {
	Text   string
	Origin Origin
}

// TextNode is a translatable segment of a message.
type TextNode struct {
	ID       string            // Position-derived identifier
	Text     string            // Segment text (trimmed)
	NodeType string            // Content type: "html_text", ...
	Metadata map[string]string // Additional info (parent tag, ...)
}

// ProcessedContent is the result of translating a formatted message.
type ProcessedContent struct {
	Content         string `json:"content"`          // Translated content
	TargetLang      string `json:"target_language"`
	SourceLang      Lang   `json:"source_language"`
	Direction       string `json:"direction"`        // "ltr" or "rtl"
	TranslatedCount int    `json:"translated_count"` // Segments fetched from the provider
	CachedCount     int    `json:"cached_count"`     // Segments answered without a fetch
	TotalNodes      int    `json:"total_nodes"`      // Unique translatable segments found
}

// Result is the result of translating a plain text message.
type Result struct {
	Text       string `json:"text"`
	TargetLang string `json:"target_language"`
	SourceLang Lang   `json:"source_language"`
	Direction  string `json:"direction"`
	Cached     bool   `json:"cached"`
	Bypassed   bool   `json:"bypassed"` // Source is written like the target (same base and script)
}

// RTLLanguages contains base language codes that use right-to-left text direction.
var RTLLanguages = map[string]bool{
	"ar": true, // Arabic
	"he": true, // Hebrew
	"fa": true, // Persian/Farsi
	"ur": true, // Urdu
	"ps": true, // Pashto
	"sd": true, // Sindhi
	"ug": true, // Uyghur
}

// IgnoredTags contains HTML tags whose content should not be translated.
var IgnoredTags = map[string]bool{
	"script":   true,
	"style":    true,
	"code":     true,
	"pre":      true,
	"textarea": true,
	"noscript": true,
}
