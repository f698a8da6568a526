package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/webcapsule/webcapsule/internal/common"
)

// chromeSelectors match page furniture that is stripped before scoring.
var chromeSelectors = []string{
	"script", "style", "noscript", "template",
	"nav", "header", "footer", "aside", "form",
	"[role=navigation]", "[role=banner]", "[role=complementary]",
}

// candidateSelectors are tried in order when picking the main content
// container; the first match with enough text wins.
var candidateSelectors = []string{
	"article", "main", "[role=main]", "#content", ".content", ".post", ".article",
}

// minReadableTextLen is the minimum text length for a candidate container to
// be preferred over the whole body.
const minReadableTextLen = 140

// ExtractReadable reduces a page to its readable content: page chrome
// stripped, the densest content container selected, and the result
// sanitized to a safe HTML fragment wrapped in a minimal document.
func ExtractReadable(rawHTML, title string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", common.WrapError(err, "failed to parse HTML for readable extraction")
	}

	for _, sel := range chromeSelectors {
		doc.Find(sel).Remove()
	}

	container := pickContentContainer(doc)
	inner, err := container.Html()
	if err != nil {
		return "", common.WrapError(err, "failed to serialize readable content")
	}

	sanitized := bluemonday.UGCPolicy().Sanitize(inner)

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	if title != "" {
		sb.WriteString(fmt.Sprintf("<title>%s</title>\n", title))
	}
	sb.WriteString("</head>\n<body>\n")
	sb.WriteString(sanitized)
	sb.WriteString("\n</body>\n</html>\n")
	return sb.String(), nil
}

// pickContentContainer returns the first candidate selector holding a
// meaningful amount of text, falling back to the densest top-level block and
// finally the body itself.
func pickContentContainer(doc *goquery.Document) *goquery.Selection {
	for _, sel := range candidateSelectors {
		candidate := doc.Find(sel).First()
		if candidate.Length() > 0 && textLen(candidate) >= minReadableTextLen {
			return candidate
		}
	}

	var best *goquery.Selection
	bestLen := 0
	doc.Find("body > div, body > section").Each(func(_ int, s *goquery.Selection) {
		if l := textLen(s); l > bestLen {
			best = s
			bestLen = l
		}
	})
	if best != nil && bestLen >= minReadableTextLen {
		return best
	}

	return doc.Find("body").First()
}

func textLen(s *goquery.Selection) int {
	return len(strings.TrimSpace(s.Text()))
}
