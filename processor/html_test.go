package processor

import (
	"errors"
	"strings"
	"testing"

	"github.com/ZaguanLabs/chatlai"
)

func TestHTMLProcessor_Extract_Basic(t *testing.T) {
	p := NewHTMLProcessor()

	html := `<div><h1>Hello World</h1><p>Welcome to our site.</p></div>`
	parsed, nodes, err := p.Extract(html)

	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if parsed == nil {
		t.Fatal("parsed should not be nil")
	}

	if len(nodes) != 2 {
		t.Fatalf("Expected 2 nodes, got %d", len(nodes))
	}

	// Check first node
	if nodes[0].Text != "Hello World" {
		t.Errorf("Expected 'Hello World', got %q", nodes[0].Text)
	}
	if nodes[0].Metadata["parent_tag"] != "h1" {
		t.Errorf("Expected parent_tag h1, got %q", nodes[0].Metadata["parent_tag"])
	}
	if nodes[0].NodeType != "html_text" {
		t.Errorf("Expected node type 'html_text', got %q", nodes[0].NodeType)
	}

	// Check second node
	if nodes[1].Text != "Welcome to our site." {
		t.Errorf("Expected 'Welcome to our site.', got %q", nodes[1].Text)
	}
}

func TestHTMLProcessor_Extract_IgnoredTags(t *testing.T) {
	p := NewHTMLProcessor()

	html := `<div>
		<p>Translate me</p>
		<script>doNotTranslate();</script>
		<style>.class { color: red; }</style>
		<code>const x = 1;</code>
		<pre>preformatted</pre>
		<textarea>form input</textarea>
	</div>`

	_, nodes, err := p.Extract(html)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	// Only "Translate me" should be extracted
	if len(nodes) != 1 {
		t.Fatalf("Expected 1 node (only 'Translate me'), got %d", len(nodes))
	}

	if nodes[0].Text != "Translate me" {
		t.Errorf("Expected 'Translate me', got %q", nodes[0].Text)
	}
}

func TestHTMLProcessor_Extract_DataNoTranslate(t *testing.T) {
	p := NewHTMLProcessor()

	html := `<div>
		<p data-no-translate>Keep this</p>
		<p>Translate this</p>
	</div>`

	_, nodes, err := p.Extract(html)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(nodes) != 1 {
		t.Fatalf("Expected 1 node, got %d", len(nodes))
	}

	if nodes[0].Text != "Translate this" {
		t.Errorf("Expected 'Translate this', got %q", nodes[0].Text)
	}
}

func TestHTMLProcessor_Extract_Deduplication(t *testing.T) {
	p := NewHTMLProcessor()

	html := `<div>
		<p>Hello</p>
		<p>Hello</p>
		<p>Hello</p>
	</div>`

	_, nodes, err := p.Extract(html)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	// Should only have one unique node
	if len(nodes) != 1 {
		t.Fatalf("Expected 1 unique node, got %d", len(nodes))
	}
}

func TestHTMLProcessor_Extract_ChatFormatting(t *testing.T) {
	p := NewHTMLProcessor()

	msg := `Deploy <b>finished</b>, see <a href="https://example.com/run/1">the logs</a> or run <code>make retry</code>`
	_, nodes, err := p.Extract(msg)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	var texts []string
	for _, n := range nodes {
		texts = append(texts, n.Text)
	}
	want := []string{"Deploy", "finished", ", see", "the logs", "or run"}
	if strings.Join(texts, "|") != strings.Join(want, "|") {
		t.Errorf("texts = %q, want %q", texts, want)
	}
}

func TestHTMLProcessor_Apply(t *testing.T) {
	p := NewHTMLProcessor()

	html := `<div><p>Hello</p><p>World</p></div>`
	parsed, nodes, err := p.Extract(html)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	translations := map[string]string{
		"Hello": "Hola",
		"World": "Mundo",
	}

	result, err := p.Apply(parsed, nodes, translations)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if !strings.Contains(result, "Hola") {
		t.Error("Result should contain 'Hola'")
	}
	if !strings.Contains(result, "Mundo") {
		t.Error("Result should contain 'Mundo'")
	}
	if strings.Contains(result, "Hello") {
		t.Error("Result should not contain 'Hello'")
	}
	if result != `<div><p>Hola</p><p>Mundo</p></div>` {
		t.Errorf("Result should be the translated fragment only, got: %s", result)
	}
}

func TestHTMLProcessor_Apply_KeepsMarkup(t *testing.T) {
	p := NewHTMLProcessor()

	msg := `Hello <b>World</b> <code>Hello</code>`
	parsed, nodes, err := p.Extract(msg)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	result, err := p.Apply(parsed, nodes, map[string]string{"Hello": "Hola", "World": "Mundo"})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if result != `Hola <b>Mundo</b> <code>Hello</code>` {
		t.Errorf("unexpected result: %s", result)
	}
}

func TestHTMLProcessor_Apply_PreservesWhitespace(t *testing.T) {
	p := NewHTMLProcessor()

	html := `<p>  Hello  </p>`
	parsed, nodes, err := p.Extract(html)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	translations := map[string]string{
		nodes[0].Text: "Hola",
	}

	result, err := p.Apply(parsed, nodes, translations)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	// Should preserve the whitespace pattern
	if !strings.Contains(result, "  Hola  ") {
		t.Errorf("Result should preserve whitespace, got: %s", result)
	}
}

func TestHTMLProcessor_Apply_DuplicateTexts(t *testing.T) {
	p := NewHTMLProcessor()

	html := `<div><p>Hello</p><p>Hello</p></div>`
	parsed, nodes, err := p.Extract(html)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	// Only one node due to deduplication
	if len(nodes) != 1 {
		t.Fatalf("Expected 1 node, got %d", len(nodes))
	}

	translations := map[string]string{
		nodes[0].Text: "Hola",
	}

	result, err := p.Apply(parsed, nodes, translations)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	// Both instances should be translated
	count := strings.Count(result, "Hola")
	if count != 2 {
		t.Errorf("Expected 2 instances of 'Hola', got %d in: %s", count, result)
	}
}

func TestHTMLProcessor_ContentType(t *testing.T) {
	p := NewHTMLProcessor()
	if p.ContentType() != "html" {
		t.Errorf("Expected 'html', got %q", p.ContentType())
	}
}

func TestPreserveWhitespace(t *testing.T) {
	tests := []struct {
		original   string
		translated string
		expected   string
	}{
		{"Hello", "Hola", "Hola"},
		{"  Hello", "Hola", "  Hola"},
		{"Hello  ", "Hola", "Hola  "},
		{"  Hello  ", "Hola", "  Hola  "},
		{"\n\tHello\n", "Hola", "\n\tHola\n"},
	}

	for _, tt := range tests {
		result := preserveWhitespace(tt.original, tt.translated)
		if result != tt.expected {
			t.Errorf("preserveWhitespace(%q, %q) = %q, want %q",
				tt.original, tt.translated, result, tt.expected)
		}
	}
}

func TestHTMLProcessor_EmptyContent(t *testing.T) {
	p := NewHTMLProcessor()

	html := `<div></div>`
	_, nodes, err := p.Extract(html)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(nodes) != 0 {
		t.Errorf("Expected 0 nodes for empty content, got %d", len(nodes))
	}
}

func TestHTMLProcessor_WhitespaceOnlyContent(t *testing.T) {
	p := NewHTMLProcessor()

	html := `<div>   </div>`
	_, nodes, err := p.Extract(html)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(nodes) != 0 {
		t.Errorf("Expected 0 nodes for whitespace-only content, got %d", len(nodes))
	}
}

func TestHTMLProcessor_ApplyInvalidParsed(t *testing.T) {
	p := NewHTMLProcessor()

	_, err := p.Apply("not parsed", nil, nil)
	var procErr *chatlai.ProcessorError
	if !errors.As(err, &procErr) {
		t.Fatalf("expected ProcessorError, got %v", err)
	}
	if procErr.ContentType != "html" {
		t.Errorf("ContentType = %q", procErr.ContentType)
	}
}

func TestHTMLProcessor_CustomIgnoredTags(t *testing.T) {
	p := NewHTMLProcessorWithIgnoredTags([]string{"SPAN"})

	_, nodes, err := p.Extract(`<span>skip</span><code>keep</code>`)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Text != "keep" {
		t.Errorf("unexpected nodes: %+v", nodes)
	}
}
