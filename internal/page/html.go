package page

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// HTMLParser extracts the visible text of an HTML page, roughly what a
// browser reports as the body's innerText.
type HTMLParser struct{}

// Elements that never contribute visible text.
const hiddenSelector = "script, style, noscript, template, iframe, svg, canvas, object"

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"dd": true, "details": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "figcaption": true, "figure": true, "footer": true,
	"form": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "header": true, "hr": true, "li": true, "main": true,
	"nav": true, "ol": true, "p": true, "pre": true, "section": true,
	"summary": true, "table": true, "tr": true, "ul": true, "caption": true,
}

func (p *HTMLParser) Parse(r io.Reader) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", "", fmt.Errorf("parse html: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find(hiddenSelector).Remove()
	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	var buf strings.Builder
	for _, n := range root.Nodes {
		writeVisibleText(&buf, n)
	}
	return title, normalizeLines(buf.String()), nil
}

func writeVisibleText(buf *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		buf.WriteString(collapseSpaces(n.Data))
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if n.Data == "br" {
			buf.WriteByte('\n')
			return
		}
		if n.Data == "td" || n.Data == "th" {
			buf.WriteByte('\t')
		}
		if n.Data == "head" {
			return
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		buf.WriteString("\n\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeVisibleText(buf, c)
	}
	if block {
		buf.WriteString("\n\n")
	}
}

// collapseSpaces folds every whitespace run, newlines included, into one space.
func collapseSpaces(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s == "" {
			return ""
		}
		return " "
	}
	out := strings.Join(fields, " ")
	if strings.TrimLeft(s, " \t\r\n\f") != s {
		out = " " + out
	}
	if strings.TrimRight(s, " \t\r\n\f") != s {
		out += " "
	}
	return out
}

// normalizeLines trims every line and keeps at most one blank line between
// runs of text.
func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
