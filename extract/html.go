package extract

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	htmlNoise  = "script, style, noscript, template, nav, footer, aside, iframe, svg"
	htmlBlocks = "p, div, br, li, tr, pre, blockquote, section, article, header, h1, h2, h3, h4, h5, h6, dt, dd"
)

// HTML returns an extractor that keeps the visible text of the body,
// one line per block element.
func HTML() Extractor {
	return ExtractorFunc(func(_ context.Context, data []byte) (string, error) {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
		if err != nil {
			return "", err
		}

		doc.Find(htmlNoise).Remove()
		doc.Find(htmlBlocks).Each(func(_ int, s *goquery.Selection) {
			s.AppendHtml("\n")
		})

		body := doc.Find("body")
		raw := body.Text()
		if strings.TrimSpace(raw) == "" {
			raw = doc.Text()
		}
		return collapseLines(raw), nil
	})
}

// collapseLines squeezes runs of whitespace inside each line and drops
// blank lines.
func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
