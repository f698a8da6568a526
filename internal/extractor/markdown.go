package extractor

import (
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/webcapsule/webcapsule/internal/common"
)

// MarkdownConverter turns page markup into CommonMark. The underlying
// converter is safe for concurrent use, so one instance is shared across
// captures.
type MarkdownConverter struct {
	converter *converter.Converter
}

// NewMarkdownConverter creates a converter with the commonmark and table
// plugins enabled.
func NewMarkdownConverter() *MarkdownConverter {
	return &MarkdownConverter{
		converter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Convert renders the page HTML as markdown. pageURL resolves relative links.
func (mc *MarkdownConverter) Convert(rawHTML, pageURL string) (string, error) {
	markdown, err := mc.converter.ConvertString(rawHTML, converter.WithDomain(pageURL))
	if err != nil {
		return "", common.WrapError(err, "failed to convert HTML to markdown")
	}
	return markdown, nil
}
