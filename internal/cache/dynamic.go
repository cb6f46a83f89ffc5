package cache

import "strings"

// RenderedContent represents cached rendered output with extra data.
type RenderedContent struct {
	HTML  []byte
	Extra interface{}
}

var renderedMarkdownCache = NewCache[string, *RenderedContent]()

func GetRenderedMarkdown(contentHash, syntaxTheme string) (*RenderedContent, bool) {
	key := contentHash + ":" + syntaxTheme
	return renderedMarkdownCache.Get(key)
}

func SetRenderedMarkdown(contentHash, syntaxTheme string, html []byte, extra interface{}) {
	key := contentHash + ":" + syntaxTheme
	renderedMarkdownCache.Set(key, &RenderedContent{
		HTML:  html,
		Extra: extra,
	})
}

func ClearRenderedMarkdownCache() {
	renderedMarkdownCache.Clear()
}

// Dynamic content: resolved page elements (draft or published), keyed by
// "pageKey:elementKey:variant" where variant folds in language and theme.
// Invalidation is per (pageKey, elementKey) tag or family-wide.
var dynamicContentCache = NewCache[string, *RenderedContent]()

func dynamicKey(pageKey, elementKey, variant string) string {
	return pageKey + ":" + elementKey + ":" + variant
}

func GetDynamicContent(pageKey, elementKey, variant string) (*RenderedContent, bool) {
	return dynamicContentCache.Get(dynamicKey(pageKey, elementKey, variant))
}

func SetDynamicContent(pageKey, elementKey, variant string, html []byte, extra interface{}) {
	dynamicContentCache.Set(dynamicKey(pageKey, elementKey, variant), &RenderedContent{
		HTML:  html,
		Extra: extra,
	})
}

func InvalidateDynamicContent(pageKey, elementKey string) {
	prefix := pageKey + ":" + elementKey + ":"
	dynamicContentCache.DeleteWhere(func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

func InvalidateAllDynamicContent() {
	dynamicContentCache.Clear()
}

func DynamicContentLen() int {
	return dynamicContentCache.Len()
}

// DynamicInvalidator adapts the package-level dynamic content cache to
// the relay's invalidation surface.
type DynamicInvalidator struct{}

func (DynamicInvalidator) InvalidateDynamicContent(pageKey, elementKey string) {
	InvalidateDynamicContent(pageKey, elementKey)
}

func (DynamicInvalidator) InvalidateAllDynamicContent() {
	InvalidateAllDynamicContent()
}
