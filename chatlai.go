// Package chatlai translates chat messages into each user's preferred
// language and memoizes the results.
//
// A Translator looks up the user's preference for a chat (falling back to
// the user's global preference), then resolves the text through a Cache
// keyed by (text, source language, target language). Concurrent misses on
// the same key share one call to the Fetcher.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "time"
//
//	    "github.com/ZaguanLabs/chatlai"
//	    "github.com/ZaguanLabs/chatlai/cache"
//	    "github.com/ZaguanLabs/chatlai/preference"
//	    "github.com/ZaguanLabs/chatlai/provider"
//	)
//
//	func main() {
//	    prefs := preference.NewMemoryStore()
//	    prefs.Set(ctx, chatlai.UserLanguage{UserID: 42, TargetLanguage: "es"})
//
//	    t := chatlai.NewTranslator(prefs,
//	        cache.New(cache.Config{TTL: time.Hour, MaxEntries: 10000}),
//	        provider.NewOpenAIProvider(provider.OpenAIConfig{APIKey: key}),
//	    )
//
//	    res, err := t.Translate(ctx, 42, chatlai.NoChat(), "Hello World")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(res.Text) // Hola Mundo
//	}
package chatlai
