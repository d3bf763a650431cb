// Package chatclient drives a policy chat session against the proxy.
package chatclient

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dgallion1/policychat/internal/chunker"
	"github.com/dgallion1/policychat/internal/config"
	"github.com/dgallion1/policychat/internal/page"
	"github.com/dgallion1/policychat/internal/render"
)

// State is the dispatcher's single-flight guard.
type State int

const (
	Idle State = iota
	Sending
	Loading
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	case Loading:
		return "loading"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Policy selects one of the fixed policy documents.
type Policy int

const (
	PolicyNone Policy = iota
	PolicyCFTDTI
	PolicyCBI
)

func (p Policy) String() string {
	switch p {
	case PolicyCFTDTI:
		return "cftdti"
	case PolicyCBI:
		return "cbi"
	}
	return "none"
}

// DefaultQuestions are shown when no document is loaded or suggestion
// generation fails.
var DefaultQuestions = []string{
	"Can you summarize this document?",
	"What are the main points?",
	"What are the key requirements?",
}

// Backend is the proxy surface the dispatcher needs.
type Backend interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
	Suggest(ctx context.Context, content string) ([]string, error)
	CBI(ctx context.Context) (string, error)
}

// Fetcher loads a document by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*page.Content, error)
}

// Dispatcher owns the chat session state. Every operation that talks to the
// network is single-flight: while one runs, the others return false without
// doing anything.
type Dispatcher struct {
	backend Backend
	fetcher Fetcher
	timeout time.Duration
	log     *slog.Logger

	transcript *Transcript

	mu          sync.Mutex
	state       State
	policy      Policy
	simplify    bool
	dark        bool
	url         string
	content     string
	hasContent  bool
	sentences   []chunker.Sentence
	suggestions []string
}

func NewDispatcher(backend Backend, fetcher Fetcher, timeout time.Duration, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		backend:     backend,
		fetcher:     fetcher,
		timeout:     timeout,
		log:         log,
		transcript:  NewTranscript(),
		suggestions: defaultQuestions(),
	}
}

func defaultQuestions() []string {
	return append([]string(nil), DefaultQuestions...)
}

// begin moves Idle to next. It reports false if another operation is running.
func (d *Dispatcher) begin(next State) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != Idle {
		return false
	}
	d.state = next
	return true
}

func (d *Dispatcher) end() {
	d.mu.Lock()
	d.state = Idle
	d.mu.Unlock()
}

func (d *Dispatcher) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.timeout)
}

func (d *Dispatcher) appendError(err error) {
	d.transcript.Append(render.RoleBot, "Error: "+err.Error())
}

// SendMessage posts text as a question, with the loaded document and the
// active URL as context, and appends the answer or the error.
func (d *Dispatcher) SendMessage(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || !d.begin(Sending) {
		return false
	}
	defer d.end()

	d.transcript.Append(render.RoleUser, text)

	d.mu.Lock()
	req := ChatRequest{
		Question: text,
		Content:  d.content,
		URL:      d.activeURLLocked(),
		Simplify: d.simplify,
	}
	d.mu.Unlock()

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	answer, err := d.backend.Chat(ctx, req)
	if err != nil {
		d.log.Error("chat request failed", "error", err)
		d.appendError(err)
		return true
	}
	d.transcript.Append(render.RoleBot, answer)
	return true
}

func (d *Dispatcher) activeURLLocked() string {
	if d.policy != PolicyNone {
		return policyURL(d.policy)
	}
	return strings.TrimSpace(d.url)
}

func policyURL(p Policy) string {
	switch p {
	case PolicyCFTDTI:
		return config.CFTDTIURL
	case PolicyCBI:
		return config.CBIURL
	}
	return ""
}

// LoadURL fetches the document in the URL field and makes it the session
// context. A free-form URL field is cleared once the load starts. Loading a
// URL other than the active policy's link turns the policy off.
func (d *Dispatcher) LoadURL(ctx context.Context) bool {
	d.mu.Lock()
	url := strings.TrimSpace(d.url)
	if url == "" || d.state != Idle {
		d.mu.Unlock()
		return false
	}
	d.state = Loading
	if d.policy != PolicyNone && url != policyURL(d.policy) {
		d.policy = PolicyNone
	}
	if d.policy == PolicyNone {
		d.url = ""
	}
	d.mu.Unlock()
	defer d.end()

	d.loadPage(ctx, url)
	return true
}

func (d *Dispatcher) loadPage(ctx context.Context, url string) {
	d.transcript.Append(render.RoleUser, fmt.Sprintf("Loading content from %s...", url))

	fetchCtx, cancel := d.withTimeout(ctx)
	content, err := d.fetcher.Fetch(fetchCtx, url)
	cancel()
	if err != nil {
		d.log.Error("content load failed", "url", url, "error", err)
		d.appendError(err)
		return
	}

	d.setContent(content.TextContent)
	d.setSuggestions(d.GenerateSuggestions(ctx, content.TextContent))
	d.transcript.Append(render.RoleBot, fmt.Sprintf(
		"Content loaded successfully. %d characters parsed. You can now ask questions.",
		content.CharacterCount))
}

func (d *Dispatcher) loadCBI(ctx context.Context) {
	d.transcript.Append(render.RoleUser, "Loading CBI content...")

	cbiCtx, cancel := d.withTimeout(ctx)
	text, err := d.backend.CBI(cbiCtx)
	cancel()
	if err != nil {
		d.log.Error("cbi load failed", "error", err)
		d.appendError(err)
		return
	}

	d.setContent(text)
	d.setSuggestions(d.GenerateSuggestions(ctx, text))
	d.transcript.Append(render.RoleBot, fmt.Sprintf(
		"CBI content loaded successfully. %d characters parsed. You can now ask questions.",
		utf8.RuneCountInString(text)))
}

// SetCFTDTI switches the travel instructions toggle. Turning it on turns CBI
// off and loads the document; turning it off drops the loaded document.
func (d *Dispatcher) SetCFTDTI(ctx context.Context, on bool) bool {
	return d.setPolicy(ctx, PolicyCFTDTI, on)
}

// SetCBI switches the compensation and benefits toggle. The document is
// loaded through the proxy.
func (d *Dispatcher) SetCBI(ctx context.Context, on bool) bool {
	return d.setPolicy(ctx, PolicyCBI, on)
}

func (d *Dispatcher) setPolicy(ctx context.Context, p Policy, on bool) bool {
	d.mu.Lock()
	if d.state != Idle {
		d.mu.Unlock()
		return false
	}

	if !on {
		if d.policy != p {
			d.mu.Unlock()
			return false
		}
		d.policy = PolicyNone
		d.url = ""
		d.clearContentLocked()
		d.suggestions = defaultQuestions()
		d.mu.Unlock()
		return true
	}

	if d.policy == p {
		d.mu.Unlock()
		return false
	}
	d.policy = p
	d.state = Loading
	d.url = policyURL(p)
	d.mu.Unlock()
	defer d.end()

	if p == PolicyCBI {
		d.loadCBI(ctx)
	} else {
		d.loadPage(ctx, config.CFTDTIURL)
	}
	return true
}

// GenerateSuggestions asks the proxy for three questions about content. Any
// failure falls back to DefaultQuestions.
func (d *Dispatcher) GenerateSuggestions(ctx context.Context, content string) []string {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	questions, err := d.backend.Suggest(ctx, content)
	if err != nil {
		d.log.Warn("suggested questions unavailable", "error", err)
		return defaultQuestions()
	}
	if len(questions) != len(DefaultQuestions) {
		d.log.Warn("unexpected number of suggested questions", "count", len(questions))
		return defaultQuestions()
	}
	return questions
}

func (d *Dispatcher) setContent(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.content = text
	d.hasContent = true
	d.sentences = chunker.Sentences(text)
}

func (d *Dispatcher) clearContentLocked() {
	d.content = ""
	d.hasContent = false
	d.sentences = nil
}

func (d *Dispatcher) setSuggestions(q []string) {
	d.mu.Lock()
	d.suggestions = q
	d.mu.Unlock()
}

func (d *Dispatcher) ToggleSimplify() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.simplify = !d.simplify
	return d.simplify
}

func (d *Dispatcher) ToggleDarkMode() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dark = !d.dark
	return d.dark
}

// SetURL sets the free-form URL field.
func (d *Dispatcher) SetURL(url string) {
	d.mu.Lock()
	d.url = url
	d.mu.Unlock()
}

func (d *Dispatcher) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}

func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Dispatcher) Policy() Policy {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.policy
}

func (d *Dispatcher) Simplify() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.simplify
}

func (d *Dispatcher) DarkMode() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dark
}

// Content returns the loaded document text and whether one is loaded.
func (d *Dispatcher) Content() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.content, d.hasContent
}

func (d *Dispatcher) Sentences() []chunker.Sentence {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]chunker.Sentence(nil), d.sentences...)
}

func (d *Dispatcher) Suggestions() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.suggestions...)
}

func (d *Dispatcher) Transcript() *Transcript {
	return d.transcript
}

// ExportHTML renders the transcript using the current dark mode setting.
func (d *Dispatcher) ExportHTML() (string, error) {
	return d.transcript.HTML(d.DarkMode())
}
