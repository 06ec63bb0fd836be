package processor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/chatlai"
	"golang.org/x/net/html"
)

// HTMLProcessor translates the text of HTML-formatted messages, leaving
// markup, ignored tags and data-no-translate elements untouched.
type HTMLProcessor struct {
	ignoredTags map[string]bool
}

// NewHTMLProcessor creates a new HTML processor with default ignored tags.
func NewHTMLProcessor() *HTMLProcessor {
	return &HTMLProcessor{
		ignoredTags: chatlai.IgnoredTags,
	}
}

// NewHTMLProcessorWithIgnoredTags creates a new HTML processor with custom ignored tags.
func NewHTMLProcessorWithIgnoredTags(tags []string) *HTMLProcessor {
	ignored := make(map[string]bool)
	for _, tag := range tags {
		ignored[strings.ToLower(tag)] = true
	}
	return &HTMLProcessor{
		ignoredTags: ignored,
	}
}

// parsedHTML holds the parsed message body.
type parsedHTML struct {
	body *goquery.Selection
}

// Extract parses an HTML fragment and returns one node per distinct
// trimmed text.
func (p *HTMLProcessor) Extract(content string) (interface{}, []chatlai.TextNode, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, nil, &chatlai.ProcessorError{
			Message:     "failed to parse HTML",
			Cause:       err,
			ContentType: "html",
		}
	}

	body := doc.Find("body")
	var nodes []chatlai.TextNode
	seen := make(map[string]bool)

	p.walk(body, func(n *html.Node, trimmed string) {
		if seen[trimmed] {
			return
		}
		seen[trimmed] = true

		node := chatlai.TextNode{
			ID:       fmt.Sprintf("node-%d", len(nodes)),
			Text:     trimmed,
			NodeType: "html_text",
			Metadata: map[string]string{},
		}
		if n.Parent != nil && n.Parent.Type == html.ElementNode {
			node.Metadata["parent_tag"] = n.Parent.Data
		}
		nodes = append(nodes, node)
	})

	return &parsedHTML{body: body}, nodes, nil
}

// Apply replaces every translatable text with its translation, keyed by the
// trimmed original, and returns the serialized fragment.
func (p *HTMLProcessor) Apply(parsed interface{}, nodes []chatlai.TextNode, translations map[string]string) (string, error) {
	ph, ok := parsed.(*parsedHTML)
	if !ok {
		return "", &chatlai.ProcessorError{
			Message:     "invalid parsed content type",
			ContentType: "html",
		}
	}

	p.walk(ph.body, func(n *html.Node, trimmed string) {
		if translated, ok := translations[trimmed]; ok {
			n.Data = preserveWhitespace(n.Data, translated)
		}
	})

	out, err := ph.body.Html()
	if err != nil {
		return "", &chatlai.ProcessorError{
			Message:     "failed to serialize HTML",
			Cause:       err,
			ContentType: "html",
		}
	}

	return out, nil
}

// ContentType returns "html".
func (p *HTMLProcessor) ContentType() string {
	return "html"
}

// walk calls fn for every non-blank text node outside skipped elements.
func (p *HTMLProcessor) walk(sel *goquery.Selection, fn func(n *html.Node, trimmed string)) {
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && p.skip(n) {
			return
		}

		if n.Type == html.TextNode {
			if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
				fn(n, trimmed)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}

	for _, n := range sel.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
}

func (p *HTMLProcessor) skip(n *html.Node) bool {
	if p.ignoredTags[strings.ToLower(n.Data)] {
		return true
	}
	for _, attr := range n.Attr {
		if attr.Key == "data-no-translate" {
			return true
		}
	}
	return false
}

// preserveWhitespace preserves the original leading/trailing whitespace.
func preserveWhitespace(original, translated string) string {
	leadingLen := len(original) - len(strings.TrimLeft(original, " \t\n\r"))
	leading := original[:leadingLen]

	trailingLen := len(original) - len(strings.TrimRight(original, " \t\n\r"))
	trailing := ""
	if trailingLen > 0 && trailingLen < len(original) {
		trailing = original[len(original)-trailingLen:]
	}

	return leading + translated + trailing
}

// Verify HTMLProcessor implements ContentProcessor
var _ ContentProcessor = (*HTMLProcessor)(nil)
