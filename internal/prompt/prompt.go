package prompt

import (
	"regexp"
	"strings"
)

// Instructions is the fixed block that opens every question prompt.
const Instructions = `Analyze the following and provide a clear answer focusing specifically on:
1. Policies and rules
2. Entitlements and benefits
3. Time periods, deadlines, and timing requirements
4. Costs, fees, and financial aspects

Format the response with:
- Use **bold** for all important information
- Organize using bullet points
- Group similar information together
- Be direct and specific
`

// SimplifyInstructions is appended when the user asks for plain language.
const SimplifyInstructions = `
Please provide the response in very simple, easy-to-understand language:
- Use short, simple sentences
- Avoid technical terms and jargon
- Explain concepts as if speaking to someone with no background knowledge
- Use everyday examples where helpful
- Keep explanations straightforward and basic
- Break down complex ideas into simple steps
`

const SuggestInstructions = `Read the following document and suggest exactly 3 short questions a reader is likely to ask about it.
Focus on policies, entitlements, deadlines and costs where the document covers them.
Return only the 3 questions, one per line, with no numbering, bullets or other text.`

// Build assembles the prompt sent upstream for a user question.
func Build(question, content string, simplify bool) string {
	var sb strings.Builder
	sb.WriteString(Instructions)
	if simplify {
		sb.WriteString(SimplifyInstructions)
	}
	if content != "" {
		sb.WriteString("\nContent: ")
		sb.WriteString(content)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Question: ")
	sb.WriteString(question)
	return sb.String()
}

// BuildSuggest creates the prompt asking for follow-up questions about content.
func BuildSuggest(content string) string {
	var sb strings.Builder
	sb.WriteString(SuggestInstructions)
	sb.WriteString("\n\n---\n")
	sb.WriteString(content)
	return sb.String()
}

var listMarker = regexp.MustCompile(`^(?:[-*•·]+|\d+[.):]|[a-zA-Z][.)])\s*`)

// ParseQuestions extracts up to n questions from a suggestion reply, one per
// line. List markers, emphasis and wrapping quotes are stripped and blank
// lines dropped. When the reply has at least n lines ending in "?", only
// those count, so a preamble such as "Here are 3 questions:" is skipped.
func ParseQuestions(reply string, n int) []string {
	var lines, questions []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		line = listMarker.ReplaceAllString(line, "")
		line = strings.Trim(line, "*_\"` ")
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if strings.HasSuffix(line, "?") {
			questions = append(questions, line)
		}
	}
	if len(questions) >= n {
		lines = questions
	}
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines
}
