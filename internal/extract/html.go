package extract

import (
	"html"
	"regexp"
)

var (
	htmlTag        = regexp.MustCompile(`<[^>]+>`)
	htmlScriptLike = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
)

// extractHTML replaces every tag with a space and decodes entities. Script and style
// bodies are dropped first so their source does not leak into the text.
func extractHTML(content []byte) (string, error) {
	text, err := extractPlain(content)
	if err != nil {
		return "", err
	}
	text = htmlScriptLike.ReplaceAllString(text, " ")
	text = htmlTag.ReplaceAllString(text, " ")
	return html.UnescapeString(text), nil
}
