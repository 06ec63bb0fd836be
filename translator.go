package chatlai

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Fetcher is the external translator. It is called at most once per distinct
// key per miss window when used behind a Cache.
type Fetcher interface {
	Fetch(ctx context.Context, text string, source Lang, target string) (string, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, text string, source Lang, target string) (string, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, text string, source Lang, target string) (string, error) {
	return f(ctx, text, source, target)
}

// PreferenceStore maps (user, chat) to a language preference.
type PreferenceStore interface {
	// Set inserts or overwrites the record for (UserID, ChatID) and returns the stored record.
	Set(ctx context.Context, pref UserLanguage) (UserLanguage, error)
	// Get returns the chat-scoped record, else the user's global record, else ErrNotFound.
	Get(ctx context.Context, userID int64, chat ChatID) (UserLanguage, error)
	// Clear deletes the exact (userID, chat) record. Deleting a missing record is not an error.
	Clear(ctx context.Context, userID int64, chat ChatID) error
	// ClearUser deletes every record of userID.
	ClearUser(ctx context.Context, userID int64) error
}

// Cache memoizes translations by Key.
type Cache interface {
	Lookup(key Key) (string, error)
	Resolve(ctx context.Context, key Key, fetcher Fetcher) (Resolution, error)
}

// ContentProcessor is the interface for formatted message processing.
type ContentProcessor interface {
	Extract(content string) (interface{}, []TextNode, error)
	Apply(parsed interface{}, nodes []TextNode, translations map[string]string) (string, error)
	ContentType() string
}

// Translator resolves a user's preference, then the cache, and fetches on a miss.
type Translator struct {
	prefs         PreferenceStore
	cache         Cache
	fetcher       Fetcher
	defaultTarget string
	concurrency   int
	processors    map[string]ContentProcessor
	logger        *zap.Logger
}

// TranslatorOption is a functional option for configuring the Translator.
type TranslatorOption func(*Translator)

// WithDefaultTarget sets the target language used when a user has no preference.
// Without it, Translate returns ErrNotFound for such users.
func WithDefaultTarget(lang string) TranslatorOption {
	return func(t *Translator) {
		t.defaultTarget = lang
	}
}

// WithProcessor registers a content processor.
func WithProcessor(processor ContentProcessor) TranslatorOption {
	return func(t *Translator) {
		t.processors[processor.ContentType()] = processor
	}
}

// WithConcurrency bounds the number of segments of one message resolved at once.
func WithConcurrency(n int) TranslatorOption {
	return func(t *Translator) {
		if n > 0 {
			t.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) TranslatorOption {
	return func(t *Translator) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTranslator creates a Translator. cache may be nil, in which case every
// request goes to the fetcher.
func NewTranslator(prefs PreferenceStore, cache Cache, fetcher Fetcher, opts ...TranslatorOption) *Translator {
	t := &Translator{
		prefs:       prefs,
		cache:       cache,
		fetcher:     fetcher,
		concurrency: 4,
		processors:  make(map[string]ContentProcessor),
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Translate translates plain text into the language preferred by the user in chat.
func (t *Translator) Translate(ctx context.Context, userID int64, chat ChatID, text string) (*Result, error) {
	pref, err := t.resolvePreference(ctx, userID, chat)
	if err != nil {
		return nil, err
	}

	result := &Result{
		TargetLang: pref.TargetLanguage,
		SourceLang: pref.SourceLanguage,
		Direction:  GetDirection(pref.TargetLanguage),
	}

	if isSourceLang(pref) || strings.TrimSpace(text) == "" {
		result.Text = text
		result.Bypassed = true
		return result, nil
	}

	res, err := t.resolve(ctx, NewKey(text, pref.SourceLanguage, pref.TargetLanguage))
	if err != nil {
		return nil, err
	}

	result.Text = res.Text
	result.Cached = res.Origin.Cached()
	return result, nil
}

// TranslateMessage translates formatted content segment by segment, keeping
// its markup. Each unique segment is resolved through the cache.
func (t *Translator) TranslateMessage(ctx context.Context, userID int64, chat ChatID, content, contentType string) (*ProcessedContent, error) {
	processor, ok := t.processors[contentType]
	if !ok {
		return nil, &ProcessorError{
			Message:     "no processor registered for content type",
			ContentType: contentType,
		}
	}

	pref, err := t.resolvePreference(ctx, userID, chat)
	if err != nil {
		return nil, err
	}

	out := &ProcessedContent{
		Content:    content,
		TargetLang: pref.TargetLanguage,
		SourceLang: pref.SourceLanguage,
		Direction:  GetDirection(pref.TargetLanguage),
	}

	if isSourceLang(pref) {
		return out, nil
	}

	parsed, nodes, err := processor.Extract(content)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return out, nil
	}

	resolutions := make([]Resolution, len(nodes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.concurrency)
	for i, node := range nodes {
		g.Go(func() error {
			res, err := t.resolve(gctx, NewKey(node.Text, pref.SourceLanguage, pref.TargetLanguage))
			if err != nil {
				return err
			}
			resolutions[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	translations := make(map[string]string, len(nodes))
	for i, node := range nodes {
		translations[node.Text] = resolutions[i].Text
		if resolutions[i].Origin.Cached() {
			out.CachedCount++
		} else {
			out.TranslatedCount++
		}
	}

	result, err := processor.Apply(parsed, nodes, translations)
	if err != nil {
		return nil, err
	}

	out.Content = result
	out.TotalNodes = len(nodes)
	return out, nil
}

// Preferences returns the preference store.
func (t *Translator) Preferences() PreferenceStore {
	return t.prefs
}

// DefaultTarget returns the fallback target language, if any.
func (t *Translator) DefaultTarget() string {
	return t.defaultTarget
}

func (t *Translator) resolvePreference(ctx context.Context, userID int64, chat ChatID) (UserLanguage, error) {
	pref, err := t.prefs.Get(ctx, userID, chat)
	if err == nil {
		return pref, nil
	}
	if errors.Is(err, ErrNotFound) && t.defaultTarget != "" {
		t.logger.Debug("no language preference, using default target",
			zap.Int64("user_id", userID),
			zap.Stringer("chat_id", chat),
			zap.String("target", t.defaultTarget),
		)
		return UserLanguage{UserID: userID, ChatID: chat, TargetLanguage: t.defaultTarget}, nil
	}
	return UserLanguage{}, err
}

func (t *Translator) resolve(ctx context.Context, key Key) (Resolution, error) {
	if t.cache == nil {
		text, err := t.fetcher.Fetch(ctx, key.Text, key.Source, key.Target)
		if err != nil {
			return Resolution{}, AsProviderError(err)
		}
		return Resolution{Text: text, Origin: OriginFetched}, nil
	}

	res, err := t.cache.Resolve(ctx, key, t.fetcher)
	if err != nil {
		t.logger.Warn("translation failed",
			zap.String("target", key.Target),
			zap.Stringer("source", key.Source),
			zap.Error(err),
		)
		return Resolution{}, err
	}

	t.logger.Debug("translation resolved",
		zap.String("target", key.Target),
		zap.Stringer("source", key.Source),
		zap.Stringer("origin", res.Origin),
	)
	return res, nil
}

// isSourceLang checks if a known source is written like the target (no
// translation needed).
func isSourceLang(pref UserLanguage) bool {
	source, ok := pref.SourceLanguage.Get()
	if !ok {
		return false
	}
	return SameWrittenLanguage(source, pref.TargetLanguage)
}
