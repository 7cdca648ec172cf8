// Package linediff computes line-level differences between two versions of
// journal content, used to preview an edit proposal against the editor.
package linediff

import (
	"regexp"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Kind classifies a diff line.
type Kind string

const (
	KindContext Kind = "context"
	KindAdd     Kind = "add"
	KindRemove  Kind = "remove"
)

// Line is one aligned output line.
type Line struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

// Lines aligns old against new and reports every line exactly once, in
// document order. Removals of a replaced region precede its additions.
func Lines(oldLines, newLines []string) []Line {
	if len(oldLines) == 0 && len(newLines) == 0 {
		return []Line{}
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(joinLines(oldLines), joinLines(newLines))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	out := make([]Line, 0, len(oldLines)+len(newLines))
	for _, d := range diffs {
		kind := KindContext
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			kind = KindRemove
		case diffmatchpatch.DiffInsert:
			kind = KindAdd
		}
		for _, text := range splitChunk(d.Text) {
			out = append(out, Line{Kind: kind, Text: text})
		}
	}
	return out
}

// Stats counts added and removed lines.
func Stats(lines []Line) (added, removed int) {
	for _, l := range lines {
		switch l.Kind {
		case KindAdd:
			added++
		case KindRemove:
			removed++
		}
	}
	return added, removed
}

var blockBoundary = regexp.MustCompile(`(?i)(</(p|h[1-6]|li|ul|ol|blockquote|pre|div)>|<br\s*/?>|<hr\s*/?>)`)

// SplitHTML breaks editor HTML into one line per block element so that a
// change inside one paragraph does not mark the whole document as changed.
func SplitHTML(html string) []string {
	marked := blockBoundary.ReplaceAllString(html, "$1\n")
	raw := strings.Split(marked, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}
	return lines
}

// HTML is SplitHTML on both sides followed by Lines.
func HTML(oldHTML, newHTML string) []Line {
	return Lines(SplitHTML(oldHTML), SplitHTML(newHTML))
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, l := range lines {
		// embedded newlines would shift the alignment
		sb.WriteString(strings.ReplaceAll(l, "\n", " "))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func splitChunk(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
