package page

import (
	"io"
	"mime"
	"path"
	"strings"
)

// Parser extracts readable text from a document body.
type Parser interface {
	Parse(r io.Reader) (title, text string, err error)
}

var mediaTypeParsers = map[string]func() Parser{
	"text/html":             func() Parser { return &HTMLParser{} },
	"application/xhtml+xml": func() Parser { return &HTMLParser{} },
	"application/pdf":       func() Parser { return &PDFParser{} },
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": func() Parser { return &DOCXParser{} },
	"text/markdown":   func() Parser { return &MarkdownParser{} },
	"text/x-markdown": func() Parser { return &MarkdownParser{} },
	"text/csv":        func() Parser { return &CSVParser{} },
	"text/plain":      func() Parser { return &TextParser{} },
}

var extensionParsers = map[string]func() Parser{
	".html":     func() Parser { return &HTMLParser{} },
	".htm":      func() Parser { return &HTMLParser{} },
	".pdf":      func() Parser { return &PDFParser{} },
	".docx":     func() Parser { return &DOCXParser{} },
	".md":       func() Parser { return &MarkdownParser{} },
	".markdown": func() Parser { return &MarkdownParser{} },
	".csv":      func() Parser { return &CSVParser{} },
	".txt":      func() Parser { return &TextParser{} },
}

// ForDocument picks a parser from the Content-Type header, then from the URL
// path extension. Anything unrecognized is treated as HTML.
func ForDocument(contentType, urlPath string) Parser {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		if p, ok := mediaTypeParsers[strings.ToLower(mt)]; ok {
			return p()
		}
	}
	if p, ok := extensionParsers[strings.ToLower(path.Ext(urlPath))]; ok {
		return p()
	}
	return &HTMLParser{}
}
