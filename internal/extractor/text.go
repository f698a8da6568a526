package extractor

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/webcapsule/webcapsule/internal/common"
)

// skippedElements never contribute to the extracted text.
var skippedElements = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"template": {},
	"iframe":   {},
}

// blockElements force a line break in the extracted text.
var blockElements = map[string]struct{}{
	"p": {}, "div": {}, "section": {}, "article": {}, "li": {}, "tr": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"br": {}, "blockquote": {}, "pre": {}, "header": {}, "footer": {},
}

// ExtractText converts raw page markup into plain text: script/style content
// dropped, block elements separated by newlines, runs of whitespace
// collapsed.
func ExtractText(rawHTML string) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", common.WrapError(err, "failed to parse HTML for text extraction")
	}

	var sb strings.Builder
	walkText(doc, &sb)
	return collapseBlankLines(sb.String()), nil
}

func walkText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode {
		if _, skip := skippedElements[n.Data]; skip {
			return
		}
	}

	if n.Type == html.TextNode {
		text := strings.Join(strings.Fields(n.Data), " ")
		if text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walkText(child, sb)
	}

	if n.Type == html.ElementNode {
		if _, block := blockElements[n.Data]; block {
			sb.WriteString("\n")
		}
	}
}

func collapseBlankLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
