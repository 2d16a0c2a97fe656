package assistant

import (
	"context"
	"time"

	"github.com/google/uuid"

	"voxmail/internal/compose"
)

// Entry is one line of the chat transcript. Preview entries show the draft
// and are never spoken.
type Entry struct {
	ID            string         `json:"id"`
	Text          string         `json:"text"`
	Preview       *compose.Draft `json:"preview,omitempty"`
	FromAssistant bool           `json:"from_assistant"`
	Timestamp     time.Time      `json:"timestamp"`
}

// Sink receives every appended entry. Publish must not block for long; it runs
// on the turn goroutine.
type Sink interface {
	Publish(ctx context.Context, e Entry)
}

type SinkFunc func(ctx context.Context, e Entry)

func (f SinkFunc) Publish(ctx context.Context, e Entry) { f(ctx, e) }

func (c *Controller) AddSink(s Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sinks = append(c.sinks, s)
}

// Transcript returns a copy of the entries so far.
func (c *Controller) Transcript() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Entry(nil), c.transcript...)
}

func (c *Controller) appendEntry(ctx context.Context, e Entry) Entry {
	e.ID = uuid.NewString()
	e.Timestamp = c.now()

	c.mu.Lock()
	c.transcript = append(c.transcript, e)
	sinks := append([]Sink(nil), c.sinks...)
	c.mu.Unlock()

	for _, s := range sinks {
		s.Publish(ctx, e)
	}
	return e
}

func (c *Controller) userSaid(ctx context.Context, text string) {
	c.appendEntry(ctx, Entry{Text: text})
}

func (c *Controller) showPreview(ctx context.Context, r compose.Reply) {
	d := *r.Preview
	c.appendEntry(ctx, Entry{Text: r.Text, Preview: &d, FromAssistant: true})
}
