package main

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Raw HTML in descriptions is left out of the output (goldmark's default).
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

func renderMarkdown(src string) (string, error) {
	if src == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// withDescriptionHTML fills DescriptionHTML for markdown descriptions.
func withDescriptionHTML(c Card) (Card, error) {
	if !c.DescriptionIsMD {
		return c, nil
	}
	html, err := renderMarkdown(c.Description)
	if err != nil {
		return c, err
	}
	c.DescriptionHTML = html
	return c, nil
}
