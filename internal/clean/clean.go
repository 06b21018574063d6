// Package clean normalizes user-supplied text before it enters payloads:
// metadata strings are stripped of any markup, property descriptions are
// rendered from markdown to sanitized HTML.
package clean

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

type Cleaner struct {
	strict *bluemonday.Policy
	ugc    *bluemonday.Policy
	md     goldmark.Markdown
}

func New() *Cleaner {
	return &Cleaner{
		strict: bluemonday.StrictPolicy(),
		ugc:    bluemonday.UGCPolicy(),
		md: goldmark.New(
			goldmark.WithExtensions(extension.Strikethrough),
		),
	}
}

// Text strips all markup from a metadata string (alt text, titles, display
// names) and trims surrounding whitespace.
func (c *Cleaner) Text(s string) string {
	return strings.TrimSpace(c.strict.Sanitize(s))
}

// DescriptionHTML renders a markdown property description to HTML and
// sanitizes the result for embedding in listing pages.
func (c *Cleaner) DescriptionHTML(description string) (string, error) {
	var buf bytes.Buffer
	if err := c.md.Convert([]byte(description), &buf); err != nil {
		return "", err
	}
	return c.ugc.Sanitize(buf.String()), nil
}
