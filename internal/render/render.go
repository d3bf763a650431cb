// Package render turns chat messages into HTML.
package render

import (
	"bytes"
	"html/template"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.Linkify),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
	),
)

// Message converts one chat message to HTML. Bold, emphasis and links are
// rendered; single newlines become <br>. Raw HTML in the message is omitted.
func Message(text string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTMLEscapeString(text)
	}
	return strings.TrimSpace(buf.String())
}

// Role distinguishes the two sides of the conversation.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Entry is one message of a transcript export.
type Entry struct {
	Role Role
	Text string
	At   time.Time
}

type pageEntry struct {
	Class string
	At    string
	Body  template.HTML
}

type pageData struct {
	Dark    bool
	Entries []pageEntry
}

var pageTmpl = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Policy Chat</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; background: #fff; color: #222; }
body.dark-mode { background: #1e1e1e; color: #ddd; }
.user-message, .bot-message { padding: .75rem 1rem; margin: .5rem 0; border-radius: .5rem; }
.user-message { background: #e3f2fd; margin-left: 4rem; }
.bot-message { background: #f1f1f1; margin-right: 4rem; }
body.dark-mode .user-message { background: #2b4257; }
body.dark-mode .bot-message { background: #333; }
time { display: block; font-size: .75rem; opacity: .6; }
</style>
</head>
<body{{if .Dark}} class="dark-mode"{{end}}>
<div id="chat-box">
{{- range .Entries}}
<div class="{{.Class}}"><time>{{.At}}</time>{{.Body}}</div>
{{- end}}
</div>
</body>
</html>
`))

// Transcript renders a standalone HTML page of the conversation. The body
// carries the dark-mode class when dark is set.
func Transcript(entries []Entry, dark bool) (string, error) {
	data := pageData{Dark: dark, Entries: make([]pageEntry, 0, len(entries))}
	for _, e := range entries {
		class := "bot-message"
		if e.Role == RoleUser {
			class = "user-message"
		}
		data.Entries = append(data.Entries, pageEntry{
			Class: class,
			At:    e.At.Format("2006-01-02 15:04:05"),
			Body:  template.HTML(Message(e.Text)),
		})
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
