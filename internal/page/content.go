// Package page fetches external documents and reduces them to plain text.
package page

import "unicode/utf8"

// Content is the plain text of one loaded document.
type Content struct {
	Title          string `json:"title,omitempty"`
	TextContent    string `json:"textContent"`
	CharacterCount int    `json:"characterCount"`
}

// NewContent wraps text, counting characters as Unicode code points.
func NewContent(title, text string) *Content {
	return &Content{
		Title:          title,
		TextContent:    text,
		CharacterCount: utf8.RuneCountInString(text),
	}
}
