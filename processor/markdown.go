package processor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ZaguanLabs/chatlai"
)

// linePrefix matches block markers that stay untranslated: indentation,
// quotes, list bullets, ordered list numbers and headings.
var linePrefix = regexp.MustCompile(`^\s*(?:(?:>\s*)|(?:[-*+]\s+)|(?:\d+[.)]\s+)|(?:#{1,6}\s+))*`)

// inlineCodeOnly matches a line consisting of a single inline code span.
var inlineCodeOnly = regexp.MustCompile("^`[^`]*`$")

// MarkdownProcessor translates chat messages written in Markdown line by
// line. Fenced code blocks, block markers and lines holding only inline
// code are left as they are.
type MarkdownProcessor struct{}

// NewMarkdownProcessor creates a new Markdown processor.
func NewMarkdownProcessor() *MarkdownProcessor {
	return &MarkdownProcessor{}
}

type markdownLine struct {
	index  int
	prefix string
	body   string
}

type parsedMarkdown struct {
	lines    []string
	segments []markdownLine
}

// fenceMarker returns the run of backticks or tildes opening a code fence,
// or "" when line does not open one.
func fenceMarker(line string) string {
	if !strings.HasPrefix(line, "```") && !strings.HasPrefix(line, "~~~") {
		return ""
	}
	n := len(line) - len(strings.TrimLeft(line, line[:1]))
	return line[:n]
}

// Extract splits content into lines and returns one node per distinct
// trimmed line body.
func (p *MarkdownProcessor) Extract(content string) (interface{}, []chatlai.TextNode, error) {
	parsed := &parsedMarkdown{lines: strings.Split(content, "\n")}
	var nodes []chatlai.TextNode
	seen := make(map[string]bool)
	fence := ""

	for i, line := range parsed.lines {
		trimmed := strings.TrimSpace(line)
		if fence != "" {
			// Only a bare run of the opening marker, at least as long, closes.
			if strings.HasPrefix(trimmed, fence) && strings.Trim(trimmed, fence[:1]) == "" {
				fence = ""
			}
			continue
		}
		if marker := fenceMarker(trimmed); marker != "" {
			fence = marker
			continue
		}
		if trimmed == "" {
			continue
		}

		prefix := linePrefix.FindString(line)
		body := line[len(prefix):]
		text := strings.TrimSpace(body)
		if text == "" || inlineCodeOnly.MatchString(text) {
			continue
		}

		parsed.segments = append(parsed.segments, markdownLine{index: i, prefix: prefix, body: body})
		if seen[text] {
			continue
		}
		seen[text] = true

		nodes = append(nodes, chatlai.TextNode{
			ID:       fmt.Sprintf("line-%d", i),
			Text:     text,
			NodeType: "markdown_line",
			Metadata: map[string]string{"prefix": strings.TrimSpace(prefix)},
		})
	}

	if fence != "" {
		return nil, nil, &chatlai.ProcessorError{
			Message:     "unterminated code fence",
			ContentType: "markdown",
		}
	}

	return parsed, nodes, nil
}

// Apply rebuilds the message with each translated line body.
func (p *MarkdownProcessor) Apply(parsed interface{}, nodes []chatlai.TextNode, translations map[string]string) (string, error) {
	pm, ok := parsed.(*parsedMarkdown)
	if !ok {
		return "", &chatlai.ProcessorError{
			Message:     "invalid parsed content type",
			ContentType: "markdown",
		}
	}

	lines := make([]string, len(pm.lines))
	copy(lines, pm.lines)

	for _, seg := range pm.segments {
		if translated, ok := translations[strings.TrimSpace(seg.body)]; ok {
			lines[seg.index] = seg.prefix + preserveWhitespace(seg.body, translated)
		}
	}

	return strings.Join(lines, "\n"), nil
}

// ContentType returns "markdown".
func (p *MarkdownProcessor) ContentType() string {
	return "markdown"
}

var _ ContentProcessor = (*MarkdownProcessor)(nil)
