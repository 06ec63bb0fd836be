package cache

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ZaguanLabs/chatlai"
)

// ExportVersion is the snapshot format written by Exporter.
const ExportVersion = "2.0"

// ExportFormat represents the JSON structure for cache export/import.
type ExportFormat struct {
	Version    string            `json:"version"`
	ExportedAt string            `json:"exported_at"`
	Entries    []chatlai.Entry   `json:"entries"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// EntrySource lists the live entries of a cache.
type EntrySource interface {
	Entries() []chatlai.Entry
}

// EntrySink accepts restored entries, reporting false for rejected ones.
type EntrySink interface {
	Restore(entry chatlai.Entry) bool
}

// Exporter provides cache export functionality.
type Exporter struct {
	source EntrySource
	now    func() time.Time
}

// NewExporter creates a new cache exporter.
func NewExporter(source EntrySource) *Exporter {
	return &Exporter{source: source, now: time.Now}
}

// Export writes the live cache entries to w in JSON format, least recently
// used first, so that importing them in order preserves recency.
func (e *Exporter) Export(w io.Writer, metadata map[string]string) error {
	entries := e.source.Entries()
	if entries == nil {
		entries = []chatlai.Entry{}
	}

	export := ExportFormat{
		Version:    ExportVersion,
		ExportedAt: e.now().UTC().Format(time.RFC3339),
		Entries:    entries,
		Metadata:   metadata,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}

	return nil
}

// ExportToFile exports the cache to a file.
// The path is provided by the caller and is intentionally user-controlled.
func (e *Exporter) ExportToFile(path string, metadata map[string]string) error {
	f, err := os.Create(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}

	if err := e.Export(f, metadata); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Importer provides cache import functionality.
type Importer struct {
	sink EntrySink
}

// NewImporter creates a new cache importer.
func NewImporter(sink EntrySink) *Importer {
	return &Importer{sink: sink}
}

// Import reads a snapshot from r and restores its entries with their
// original timestamps. Stale entries are skipped.
func (i *Importer) Import(r io.Reader) (*ImportResult, error) {
	var export ExportFormat
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}
	if export.Version != ExportVersion {
		return nil, fmt.Errorf("unsupported snapshot version %q", export.Version)
	}

	result := &ImportResult{
		Version:  export.Version,
		Metadata: export.Metadata,
	}

	for _, entry := range export.Entries {
		if entry.Target == "" || !i.sink.Restore(entry) {
			result.Skipped++
			continue
		}
		result.Imported++
	}

	return result, nil
}

// ImportFromFile imports cache entries from a file.
// The path is provided by the caller and is intentionally user-controlled.
func (i *Importer) ImportFromFile(path string) (*ImportResult, error) {
	f, err := os.Open(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	return i.Import(f)
}

// ImportResult contains statistics about the import operation.
type ImportResult struct {
	Version  string
	Metadata map[string]string
	Imported int
	Skipped  int
}

var (
	_ EntrySource = (*TranslationCache)(nil)
	_ EntrySink   = (*TranslationCache)(nil)
)
