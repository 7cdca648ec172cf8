// Package richtext normalizes model and user supplied content into the
// sanitized HTML the journal editor stores.
package richtext

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	md = goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Linkify))

	// 编辑器允许的标签集合
	editorPolicy = bluemonday.UGCPolicy()
	stripPolicy  = bluemonday.StrictPolicy()

	leadingTag = regexp.MustCompile(`^\s*<(p|h[1-6]|ul|ol|blockquote|pre|div|img|br|hr)[\s>/]`)
	blockEnd   = regexp.MustCompile(`(?i)</(p|h[1-6]|li|blockquote|pre|div)>|<br\s*/?>`)
	spaces     = regexp.MustCompile(`[ \t]+`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// LooksLikeHTML reports whether content already starts with a block element.
func LooksLikeHTML(content string) bool {
	return leadingTag.MatchString(content)
}

// ToEditorHTML converts markdown (or passes HTML through) and sanitizes the result.
func ToEditorHTML(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}
	if LooksLikeHTML(content) {
		return Sanitize(content), nil
	}

	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return Sanitize(buf.String()), nil
}

// Sanitize drops scripts, event handlers and anything else the editor cannot hold.
func Sanitize(htmlContent string) string {
	return strings.TrimSpace(editorPolicy.Sanitize(htmlContent))
}

// PlainText renders HTML as readable text, one block per line.
func PlainText(htmlContent string) string {
	withBreaks := blockEnd.ReplaceAllStringFunc(htmlContent, func(s string) string { return s + "\n" })
	text := html.UnescapeString(stripPolicy.Sanitize(withBreaks))

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(spaces.ReplaceAllString(l, " "))
	}
	return strings.TrimSpace(blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}
