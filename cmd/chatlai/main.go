// Command chatlai serves and manages the chat translation cache and
// per-user language preferences.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ZaguanLabs/chatlai"
	"github.com/ZaguanLabs/chatlai/cache"
	"github.com/ZaguanLabs/chatlai/internal/config"
	chatlog "github.com/ZaguanLabs/chatlai/internal/log"
	"github.com/ZaguanLabs/chatlai/internal/notice"
	"github.com/ZaguanLabs/chatlai/internal/server"
	"go.uber.org/zap"
)

// Build-time variables (can be overridden with ldflags)
var (
	version   = chatlai.Version
	commit    = chatlai.GitCommit
	buildDate = chatlai.BuildDate
)

const usage = `usage: chatlai [-config file] <command> [flags]

commands:
  serve                         run the HTTP API
  translate [flags] [text]      translate text (stdin when no text is given)
  lang set|get|clear [flags]    manage a user's language preference
  cache stats|export|import     inspect or move cached translations
  version                       print the version
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("chatlai", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }

	configPath := fs.String("config", "", "Config file (default: ./chatlai.yaml when present)")
	showVersion := fs.Bool("version", false, "Show version")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVersion || fs.Arg(0) == "version" {
		printVersion(stdout)
		return nil
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("a command is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger, err := chatlog.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "serve":
		return runServe(ctx, a)
	case "translate":
		return runTranslate(ctx, a, rest, stdin, stdout, stderr)
	case "lang":
		return runLang(ctx, a, rest, stdout, stderr)
	case "cache":
		return runCache(a, rest, stdout, stderr)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "%s %s\n", chatlai.Name, version)
	if commit != "unknown" && commit != "" {
		fmt.Fprintf(w, "  commit:  %s\n", commit)
	}
	if buildDate != "unknown" && buildDate != "" {
		fmt.Fprintf(w, "  built:   %s\n", buildDate)
	}
}

func runServe(ctx context.Context, a *app) error {
	go a.cache.RunJanitor(ctx, a.cfg.Cache.JanitorInterval())

	srv := server.New(a.translator, a.cache, a.notices, a.logger.Named("http"))
	if a.backend != nil {
		srv.AddCheck("redis", a.backend.Ping)
	}
	return srv.Run(ctx, a.cfg.Server.Addr, a.cfg.Server.Mode)
}

// scopeFlags registers the -user and -chat flags shared by several commands.
func scopeFlags(fs *flag.FlagSet) (*int64, *chatlai.ChatID) {
	userID := fs.Int64("user", 0, "User ID")
	chat := new(chatlai.ChatID)
	fs.Func("chat", "Chat ID (default: the user's global preference)", func(s string) error {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid chat id %q", s)
		}
		*chat = chatlai.Chat(id)
		return nil
	})
	return userID, chat
}

func sourceFlag(fs *flag.FlagSet) *chatlai.Lang {
	source := new(chatlai.Lang)
	fs.Func("source", "Source language code (default: detected by the provider)", func(s string) error {
		*source = chatlai.LangCode(s)
		return nil
	})
	return source
}

func runTranslate(ctx context.Context, a *app, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	userID, chat := scopeFlags(fs)
	lang := fs.String("lang", "", "Store this target language for the user before translating")
	source := sourceFlag(fs)
	contentType := fs.String("type", "text", "Content type: text, html or markdown")
	cacheFile := fs.String("cache-file", "", "Load cached translations from this file and save them back")
	jsonOutput := fs.Bool("json", false, "Output result as JSON")
	quiet := fs.Bool("quiet", false, "Suppress progress output")

	if err := fs.Parse(args); err != nil {
		return err
	}

	input := strings.Join(fs.Args(), " ")
	if fs.NArg() == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		input = string(data)
	}

	if *lang != "" {
		if _, err := a.prefs.Set(ctx, chatlai.UserLanguage{
			UserID:         *userID,
			ChatID:         *chat,
			TargetLanguage: *lang,
			SourceLanguage: *source,
		}); err != nil {
			return err
		}
	}

	if *cacheFile != "" {
		if err := loadCacheFile(a, *cacheFile, stderr, *quiet); err != nil {
			return err
		}
	}

	start := time.Now()
	var out any
	switch *contentType {
	case "", "text":
		res, err := a.translator.Translate(ctx, *userID, *chat, input)
		if err != nil {
			return translateError(err, *userID)
		}
		out = res
		if !*jsonOutput {
			fmt.Fprintln(stdout, res.Text)
		}
		if !*quiet {
			fmt.Fprintf(stderr, "%s -> %s (cached: %t) in %v\n",
				res.SourceLang, res.TargetLang, res.Cached, time.Since(start).Round(time.Millisecond))
		}
	default:
		res, err := a.translator.TranslateMessage(ctx, *userID, *chat, input, *contentType)
		if err != nil {
			return translateError(err, *userID)
		}
		out = res
		if !*jsonOutput {
			fmt.Fprint(stdout, res.Content)
		}
		if !*quiet {
			fmt.Fprintf(stderr, "\nDone in %v\n", time.Since(start).Round(time.Millisecond))
			fmt.Fprintf(stderr, "  Segments:     %d\n", res.TotalNodes)
			fmt.Fprintf(stderr, "  Translated:   %d\n", res.TranslatedCount)
			fmt.Fprintf(stderr, "  From cache:   %d\n", res.CachedCount)
		}
	}

	if *jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	}

	if *cacheFile != "" {
		meta := map[string]string{"source": "chatlai translate"}
		if err := cache.NewExporter(a.cache).ExportToFile(*cacheFile, meta); err != nil {
			return fmt.Errorf("saving cache: %w", err)
		}
	}
	return nil
}

func translateError(err error, userID int64) error {
	if errors.Is(err, chatlai.ErrNotFound) {
		return fmt.Errorf("user %d has no language preference (use -lang or `chatlai lang set`): %w", userID, err)
	}
	return fmt.Errorf("translation failed: %w", err)
}

func loadCacheFile(a *app, path string, stderr io.Writer, quiet bool) error {
	res, err := cache.NewImporter(a.cache).ImportFromFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading cache: %w", err)
	}
	if !quiet {
		fmt.Fprintf(stderr, "Loaded %d cached translations (%d skipped)\n", res.Imported, res.Skipped)
	}
	return nil
}

func runLang(ctx context.Context, a *app, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("lang: expected set, get or clear")
	}
	action := args[0]

	fs := flag.NewFlagSet("lang "+action, flag.ContinueOnError)
	fs.SetOutput(stderr)
	userID, chat := scopeFlags(fs)
	source := sourceFlag(fs)
	all := fs.Bool("all", false, "clear: remove every record of the user")

	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	switch action {
	case "set":
		if fs.NArg() != 1 {
			return fmt.Errorf("lang set: expected exactly one language code")
		}
		pref, err := a.prefs.Set(ctx, chatlai.UserLanguage{
			UserID:         *userID,
			ChatID:         *chat,
			TargetLanguage: fs.Arg(0),
			SourceLanguage: *source,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, a.notices.Saved(pref))
		return nil

	case "get":
		pref, err := a.prefs.Get(ctx, *userID, *chat)
		if errors.Is(err, chatlai.ErrNotFound) {
			fmt.Fprintln(stdout, a.notices.Message("", notice.PreferenceMissing, nil))
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s (%s) source=%s chat=%s\n",
			pref.TargetLanguage, notice.LanguageName(pref.TargetLanguage), pref.SourceLanguage, pref.ChatID)
		return nil

	case "clear":
		var err error
		if *all {
			err = a.prefs.ClearUser(ctx, *userID)
		} else {
			err = a.prefs.Clear(ctx, *userID, *chat)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, a.notices.Message("", notice.PreferenceCleared, nil))
		return nil

	default:
		return fmt.Errorf("lang: unknown action %q", action)
	}
}

func runCache(a *app, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("cache: expected stats, export or import")
	}
	action := args[0]

	fs := flag.NewFlagSet("cache "+action, flag.ContinueOnError)
	fs.SetOutput(stderr)
	cacheFile := fs.String("cache-file", "", "Cache file")
	output := fs.String("o", "", "export: output file (default: stdout)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	if *cacheFile != "" {
		if err := loadCacheFile(a, *cacheFile, stderr, true); err != nil {
			return err
		}
	}

	switch action {
	case "stats":
		stats := a.cache.Stats()
		fmt.Fprintln(stdout, a.notices.Count("", notice.CachedEntries, stats.Entries))
		fmt.Fprintf(stdout, "  ttl:        %v\n", a.cache.TTL())
		fmt.Fprintf(stdout, "  max:        %d\n", a.cfg.Cache.MaxEntries)
		fmt.Fprintf(stdout, "  expired:    %d\n", stats.Expired)
		return nil

	case "export":
		exporter := cache.NewExporter(a.cache)
		meta := map[string]string{"source": "chatlai cache export"}
		if *output != "" {
			return exporter.ExportToFile(*output, meta)
		}
		return exporter.Export(stdout, meta)

	case "import":
		if fs.NArg() != 1 {
			return fmt.Errorf("cache import: expected a file")
		}
		res, err := cache.NewImporter(a.cache).ImportFromFile(fs.Arg(0))
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "imported %d, skipped %d\n", res.Imported, res.Skipped)
		if *cacheFile != "" {
			return cache.NewExporter(a.cache).ExportToFile(*cacheFile, map[string]string{"source": "chatlai cache import"})
		}
		return nil

	default:
		return fmt.Errorf("cache: unknown action %q", action)
	}
}
