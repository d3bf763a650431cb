package chatclient

import (
	"sync"
	"time"

	"github.com/dgallion1/policychat/internal/render"
	"github.com/google/uuid"
)

// Message is one transcript entry.
type Message struct {
	ID   uuid.UUID
	Role render.Role
	Text string
	At   time.Time
}

// Transcript is the append-only list of chat messages.
type Transcript struct {
	mu       sync.Mutex
	messages []Message
	onAppend func(Message)
	now      func() time.Time
}

func NewTranscript() *Transcript {
	return &Transcript{now: time.Now}
}

// OnAppend registers fn to be called after every append. fn runs outside the
// transcript lock and may read the transcript.
func (t *Transcript) OnAppend(fn func(Message)) {
	t.mu.Lock()
	t.onAppend = fn
	t.mu.Unlock()
}

func (t *Transcript) Append(role render.Role, text string) Message {
	t.mu.Lock()
	m := Message{ID: uuid.New(), Role: role, Text: text, At: t.now()}
	t.messages = append(t.messages, m)
	fn := t.onAppend
	t.mu.Unlock()

	if fn != nil {
		fn(m)
	}
	return m
}

// Messages returns a copy of the transcript in append order.
func (t *Transcript) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

// HTML renders the transcript as a standalone page.
func (t *Transcript) HTML(dark bool) (string, error) {
	msgs := t.Messages()
	entries := make([]render.Entry, len(msgs))
	for i, m := range msgs {
		entries[i] = render.Entry{Role: m.Role, Text: m.Text, At: m.At}
	}
	return render.Transcript(entries, dark)
}
