package render

import (
	"bytes"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// HighlightMarkdown renders raw markdown source as highlighted HTML for
// the editor's source pane. On tokenizer errors the plain source is
// returned alongside the error.
func HighlightMarkdown(source string, theme string) (string, error) {
	lexer := lexers.Get("markdown")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get(theme)
	if style == nil {
		style = styles.Fallback
	}

	formatter := html.New(
		html.WithClasses(true),
		html.WithLineNumbers(false),
		html.PreventSurroundingPre(true),
	)

	var buf bytes.Buffer
	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return source, err
	}

	err = formatter.Format(&buf, style, iterator)
	if err != nil {
		return source, err
	}

	result := `<div class="markdown-source">` + buf.String() + `</div>`

	// Line breaks are significant in the source pane.
	result = strings.ReplaceAll(result, "\n", "<br>\n")

	return result, nil
}
