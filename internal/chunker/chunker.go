package chunker

import (
	"regexp"
	"strings"
)

// Sentence is one sentence of loaded page text with its lowercase words.
type Sentence struct {
	Text  string   `json:"text"`
	Words []string `json:"words"`
}

var (
	sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+`)
	wordRe     = regexp.MustCompile(`\w+`)
)

// Sentences splits text at terminal punctuation. Text without any
// terminator becomes a single sentence. Trailing text after the last
// terminator is dropped.
func Sentences(text string) []Sentence {
	parts := sentenceRe.FindAllString(text, -1)
	if len(parts) == 0 {
		parts = []string{text}
	}
	out := make([]Sentence, 0, len(parts))
	for _, p := range parts {
		words := wordRe.FindAllString(strings.ToLower(p), -1)
		if words == nil {
			words = []string{}
		}
		out = append(out, Sentence{
			Text:  strings.TrimSpace(p),
			Words: words,
		})
	}
	return out
}

// Truncate keeps leading paragraphs, then leading sentences, of text until
// the token budget is reached. Text within the budget is returned unchanged.
func Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 || EstimateTokens(text) <= maxTokens {
		return text
	}

	var out strings.Builder
	used := 0
	for _, para := range splitByParagraphs(text) {
		paraTokens := EstimateTokens(para)
		if used+paraTokens <= maxTokens {
			if out.Len() > 0 {
				out.WriteString("\n\n")
			}
			out.WriteString(para)
			used += paraTokens
			continue
		}

		// Fill the remainder sentence by sentence.
		for _, sent := range splitSentences(para) {
			sentTokens := EstimateTokens(sent)
			if used+sentTokens > maxTokens {
				break
			}
			if out.Len() > 0 {
				out.WriteString(" ")
			}
			out.WriteString(sent)
			used += sentTokens
		}
		break
	}

	if out.Len() == 0 {
		// A single oversized sentence: fall back to a word cut.
		words := strings.Fields(text)
		n := int(float64(maxTokens) / 1.33)
		if n < 1 {
			n = 1
		}
		if n > len(words) {
			n = len(words)
		}
		return strings.Join(words[:n], " ")
	}
	return out.String()
}

// splitByParagraphs splits on double-newlines.
func splitByParagraphs(text string) []string {
	parts := strings.Split(text, "\n\n")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// splitSentences does basic sentence splitting.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, strings.TrimSpace(current.String()))
	}

	return sentences
}
