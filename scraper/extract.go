package scraper

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// CollectLinks parses rendered HTML and returns every anchor's resolved
// absolute URL, in document order. Only http/https values survive, and any
// URL containing a deny-list entry is dropped. No deduplication or
// normalization happens here; downstream consumers own that.
func CollectLinks(rawHTML string, sourceURL string, deny []string) []string {
	links := []string{}

	base, err := url.Parse(sourceURL)
	if err != nil {
		return links
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return links
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return
		}

		// Resolve relative URLs against the base.
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}

		// Skip fragments, javascript:, mailto:, tel: etc.
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}

		absURL := resolved.String()
		for _, pattern := range deny {
			if pattern != "" && strings.Contains(absURL, pattern) {
				return
			}
		}

		links = append(links, absURL)
	})

	return links
}

// headingSelectors are tried in order; the first non-trivial text wins.
var headingSelectors = []string{"h1", "h2"}

// PickTitle returns the first non-trivial heading of the document, falling
// back to the document title. "Non-trivial" means the trimmed text is longer
// than minLen runes, which filters out icon glyphs and decorative headings.
func PickTitle(rawHTML string, docTitle string, minLen int) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return strings.TrimSpace(docTitle)
	}

	for _, selector := range headingSelectors {
		sel, err := cascadia.Parse(selector)
		if err != nil {
			continue
		}
		for _, node := range cascadia.QueryAll(doc, sel) {
			text := strings.TrimSpace(nodeText(node))
			if len([]rune(text)) > minLen {
				return text
			}
		}
	}

	return strings.TrimSpace(docTitle)
}

// VisibleTextFallback recovers page text from raw HTML when the live page
// cannot report its rendered text. Readability runs first; if it errs or
// finds nothing, a plain DOM text walk is the floor.
func VisibleTextFallback(rawHTML string, sourceURL string) string {
	if parsedURL, err := url.Parse(sourceURL); err == nil {
		article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
		if err == nil && strings.TrimSpace(article.TextContent) != "" {
			return strings.TrimSpace(article.TextContent)
		}
		if err != nil {
			slog.Debug("readability fallback failed, using DOM text walk", "error", err)
		}
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	var sb strings.Builder
	walkText(doc, &sb)
	return strings.TrimSpace(sb.String())
}

// skippedTextContainers never contribute visible text.
var skippedTextContainers = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"template": {},
	"head":     {},
}

func walkText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode {
		if _, skip := skippedTextContainers[n.Data]; skip {
			return
		}
	}
	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(text)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, sb)
	}
}

// nodeText concatenates all text beneath a node.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		} else {
			sb.WriteString(nodeText(c))
		}
	}
	return sb.String()
}

// newMarkdownConverter creates a reusable, goroutine-safe Converter for the
// markdown text format:
//
//   - base plugin: strips script, style, iframe, noscript, head, meta, link,
//     input, textarea, HTML comments.
//   - commonmark plugin: standard Markdown rendering.
//   - table plugin: preserves table structure with minimal cell padding.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}

// renderMarkdown converts rendered HTML to Markdown. The domain resolves
// relative URLs in anchors and images so the output is self-contained.
func renderMarkdown(conv *converter.Converter, htmlContent string, domain string) (string, error) {
	return conv.ConvertString(htmlContent, converter.WithDomain(domain))
}
