package page

import (
	"bufio"
	"io"
	"strings"
)

// TextParser keeps plain text paragraphs, normalizing blank-line runs.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader) (string, string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			paragraphs = append(paragraphs, current.String())
			current.Reset()
		}
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return "", "", err
	}
	flush()

	return "", strings.Join(paragraphs, "\n\n"), nil
}
