package preference

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ZaguanLabs/chatlai"
)

// testStore runs the behavior every PreferenceStore must share.
// newStore must return an empty store.
func testStore(t *testing.T, newStore func(t *testing.T) chatlai.PreferenceStore) {
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		s := newStore(t)

		stored, err := s.Set(ctx, chatlai.UserLanguage{UserID: 1, TargetLanguage: "es"})
		if err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if stored.UpdatedAt.IsZero() {
			t.Error("Set should stamp UpdatedAt")
		}

		got, err := s.Get(ctx, 1, chatlai.NoChat())
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.UserID != 1 || got.TargetLanguage != "es" || got.ChatID.IsSet() || got.SourceLanguage.IsSet() {
			t.Errorf("unexpected record: %+v", got)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		s := newStore(t)

		if _, err := s.Get(ctx, 99, chatlai.NoChat()); !errors.Is(err, chatlai.ErrNotFound) {
			t.Errorf("Get = %v, want ErrNotFound", err)
		}
		if _, err := s.Get(ctx, 99, chatlai.Chat(5)); !errors.Is(err, chatlai.ErrNotFound) {
			t.Errorf("Get with chat = %v, want ErrNotFound", err)
		}
	})

	t.Run("ChatFallback", func(t *testing.T) {
		s := newStore(t)

		mustSet(t, s, chatlai.UserLanguage{UserID: 1, TargetLanguage: "es"})

		got, err := s.Get(ctx, 1, chatlai.Chat(42))
		if err != nil || got.TargetLanguage != "es" {
			t.Fatalf("fallback Get = %+v, %v; want es", got, err)
		}
		if got.ChatID.IsSet() {
			t.Errorf("fallback record should be global, got chat %v", got.ChatID)
		}

		mustSet(t, s, chatlai.UserLanguage{UserID: 1, ChatID: chatlai.Chat(42), TargetLanguage: "fr"})

		got, err = s.Get(ctx, 1, chatlai.Chat(42))
		if err != nil || got.TargetLanguage != "fr" {
			t.Errorf("chat Get = %+v, %v; want fr", got, err)
		}
		if id, ok := got.ChatID.Get(); !ok || id != 42 {
			t.Errorf("chat record has ChatID %v", got.ChatID)
		}

		got, err = s.Get(ctx, 1, chatlai.Chat(7))
		if err != nil || got.TargetLanguage != "es" {
			t.Errorf("other chat Get = %+v, %v; want es", got, err)
		}

		got, err = s.Get(ctx, 1, chatlai.NoChat())
		if err != nil || got.TargetLanguage != "es" {
			t.Errorf("global Get = %+v, %v; want es", got, err)
		}
	})

	t.Run("ChatOnly", func(t *testing.T) {
		s := newStore(t)

		mustSet(t, s, chatlai.UserLanguage{UserID: 2, ChatID: chatlai.Chat(0), TargetLanguage: "de"})

		if _, err := s.Get(ctx, 2, chatlai.NoChat()); !errors.Is(err, chatlai.ErrNotFound) {
			t.Errorf("chat 0 must not act as the global record, got %v", err)
		}
		if got, err := s.Get(ctx, 2, chatlai.Chat(0)); err != nil || got.TargetLanguage != "de" {
			t.Errorf("Get chat 0 = %+v, %v", got, err)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		s := newStore(t)

		mustSet(t, s, chatlai.UserLanguage{UserID: 1, TargetLanguage: "es", SourceLanguage: chatlai.LangCode("en")})
		mustSet(t, s, chatlai.UserLanguage{UserID: 1, TargetLanguage: "ja"})

		got, err := s.Get(ctx, 1, chatlai.NoChat())
		if err != nil {
			t.Fatal(err)
		}
		if got.TargetLanguage != "ja" || got.SourceLanguage.IsSet() {
			t.Errorf("overwrite kept old fields: %+v", got)
		}
	})

	t.Run("Canonicalizes", func(t *testing.T) {
		s := newStore(t)

		stored := mustSet(t, s, chatlai.UserLanguage{UserID: 1, TargetLanguage: "es_es", SourceLanguage: chatlai.LangCode("EN")})
		if stored.TargetLanguage != "es-ES" {
			t.Errorf("TargetLanguage = %q, want es-ES", stored.TargetLanguage)
		}

		got, err := s.Get(ctx, 1, chatlai.NoChat())
		if err != nil {
			t.Fatal(err)
		}
		if src, _ := got.SourceLanguage.Get(); src != "en" || got.TargetLanguage != "es-ES" {
			t.Errorf("stored record not canonical: %+v", got)
		}
	})

	t.Run("InvalidCodes", func(t *testing.T) {
		s := newStore(t)
		mustSet(t, s, chatlai.UserLanguage{UserID: 1, TargetLanguage: "es"})

		invalid := []chatlai.UserLanguage{
			{UserID: 1, TargetLanguage: ""},
			{UserID: 1, TargetLanguage: "not a code!"},
			{UserID: 1, TargetLanguage: "und"},
			{UserID: 1, TargetLanguage: "fr", SourceLanguage: chatlai.LangCode("")},
			{UserID: 1, TargetLanguage: "fr", SourceLanguage: chatlai.LangCode("??")},
		}
		for _, pref := range invalid {
			_, err := s.Set(ctx, pref)
			if !errors.Is(err, chatlai.ErrInvalidLanguageCode) {
				t.Errorf("Set(%q, %v) = %v, want ErrInvalidLanguageCode", pref.TargetLanguage, pref.SourceLanguage, err)
			}
		}

		got, err := s.Get(ctx, 1, chatlai.NoChat())
		if err != nil || got.TargetLanguage != "es" {
			t.Errorf("rejected Set changed state: %+v, %v", got, err)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		s := newStore(t)

		mustSet(t, s, chatlai.UserLanguage{UserID: 1, TargetLanguage: "es"})
		mustSet(t, s, chatlai.UserLanguage{UserID: 1, ChatID: chatlai.Chat(42), TargetLanguage: "fr"})

		if err := s.Clear(ctx, 1, chatlai.Chat(42)); err != nil {
			t.Fatalf("Clear failed: %v", err)
		}
		got, err := s.Get(ctx, 1, chatlai.Chat(42))
		if err != nil || got.TargetLanguage != "es" {
			t.Errorf("after Clear, Get = %+v, %v; want global es", got, err)
		}

		if err := s.Clear(ctx, 1, chatlai.Chat(42)); err != nil {
			t.Errorf("second Clear should be a no-op, got %v", err)
		}
		if err := s.Clear(ctx, 1, chatlai.NoChat()); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Get(ctx, 1, chatlai.Chat(42)); !errors.Is(err, chatlai.ErrNotFound) {
			t.Errorf("Get = %v, want ErrNotFound", err)
		}
	})

	t.Run("ClearUser", func(t *testing.T) {
		s := newStore(t)

		mustSet(t, s, chatlai.UserLanguage{UserID: 1, TargetLanguage: "es"})
		mustSet(t, s, chatlai.UserLanguage{UserID: 1, ChatID: chatlai.Chat(42), TargetLanguage: "fr"})
		mustSet(t, s, chatlai.UserLanguage{UserID: 2, TargetLanguage: "de"})

		if err := s.ClearUser(ctx, 1); err != nil {
			t.Fatalf("ClearUser failed: %v", err)
		}
		if _, err := s.Get(ctx, 1, chatlai.Chat(42)); !errors.Is(err, chatlai.ErrNotFound) {
			t.Errorf("user 1 still has records: %v", err)
		}
		if got, err := s.Get(ctx, 2, chatlai.NoChat()); err != nil || got.TargetLanguage != "de" {
			t.Errorf("user 2 affected: %+v, %v", got, err)
		}
		if err := s.ClearUser(ctx, 1); err != nil {
			t.Errorf("second ClearUser should be a no-op, got %v", err)
		}
	})

	t.Run("ConcurrentWrites", func(t *testing.T) {
		s := newStore(t)
		langs := []string{"es", "fr", "de", "it"}

		var wg sync.WaitGroup
		for _, lang := range langs {
			wg.Add(1)
			go func(lang string) {
				defer wg.Done()
				if _, err := s.Set(ctx, chatlai.UserLanguage{UserID: 3, TargetLanguage: lang}); err != nil {
					t.Errorf("Set %s: %v", lang, err)
				}
			}(lang)
		}
		wg.Wait()

		got, err := s.Get(ctx, 3, chatlai.NoChat())
		if err != nil {
			t.Fatal(err)
		}
		found := false
		for _, lang := range langs {
			found = found || got.TargetLanguage == lang
		}
		if !found {
			t.Errorf("unexpected winner %q", got.TargetLanguage)
		}
	})
}

func mustSet(t *testing.T, s chatlai.PreferenceStore, pref chatlai.UserLanguage) chatlai.UserLanguage {
	t.Helper()
	stored, err := s.Set(context.Background(), pref)
	if err != nil {
		t.Fatalf("Set(%+v) failed: %v", pref, err)
	}
	return stored
}

func TestMemoryStore(t *testing.T) {
	testStore(t, func(t *testing.T) chatlai.PreferenceStore {
		return NewMemoryStore()
	})
}

func TestMemoryStore_Len(t *testing.T) {
	s := NewMemoryStore()
	mustSet(t, s, chatlai.UserLanguage{UserID: 1, TargetLanguage: "es"})
	mustSet(t, s, chatlai.UserLanguage{UserID: 1, TargetLanguage: "fr"})
	mustSet(t, s, chatlai.UserLanguage{UserID: 1, ChatID: chatlai.Chat(1), TargetLanguage: "fr"})

	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	for _, driver := range []string{"", "memory", "sqlite"} {
		s, err := Open(ctx, driver, "")
		if err != nil {
			t.Errorf("Open(%q) failed: %v", driver, err)
			continue
		}
		s.Close()
	}

	if _, err := Open(ctx, "postgres", ""); err == nil {
		t.Error("postgres without dsn should fail")
	}
	if _, err := Open(ctx, "mongo", "x"); err == nil {
		t.Error("unknown driver should fail")
	}
}
