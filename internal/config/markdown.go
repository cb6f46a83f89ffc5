package config

import "regexp"

var (
	RegexCallout = regexp.MustCompile(`//\s*<<(\d+)>>`)
)

// MarkdownRenderer selects the rich text rendering backend.
// "classic" is gomarkdown with our hooks; "mmark" adds title blocks and
// indexes for long-form news posts.
const MarkdownRenderer = "classic"
