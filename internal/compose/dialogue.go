package compose

import (
	"context"
	"fmt"
)

const (
	PromptRecipient     = "Of course. Who is the recipient?"
	PromptSubject       = "Got it. What's the subject?"
	PromptBody          = "Great. And what message would you like to send?"
	PromptConfirm       = "Here is a preview. You can say 'send', 'make a change', or 'cancel'."
	PromptChangeField   = "What would you like to change: the recipient, subject, or body?"
	PromptNotUnderstood = "Sorry, I didn't understand. Please say recipient, subject, or body."
	PromptUpdated       = "I've updated the draft. Here is the new preview."
	PromptCanceled      = "Okay, I've canceled this email."
)

// Delivery is what the mail side reports back after a send.
type Delivery struct {
	OK      bool
	Message string
}

type Sender interface {
	SendDraft(ctx context.Context, d Draft) Delivery
}

// Reply is one assistant turn produced by the dialogue. Preview is set for
// display entries that show the draft.
type Reply struct {
	Text    string
	Preview *Draft
}

type Outcome struct {
	Replies []Reply
	// Sent is set when the send operation was invoked.
	Sent     bool
	Delivery Delivery
}

func (o *Outcome) say(text string) {
	o.Replies = append(o.Replies, Reply{Text: text})
}

func (o *Outcome) preview(d Draft) {
	o.Replies = append(o.Replies, Reply{Text: d.Preview(), Preview: &d})
}

// Dialogue walks one compose conversation. It is not safe for concurrent use;
// the owning controller serialises turns.
type Dialogue struct {
	sender Sender
	state  State
	draft  Draft
}

func NewDialogue(sender Sender) *Dialogue {
	return &Dialogue{sender: sender, state: Inactive{}}
}

func (d *Dialogue) State() State { return d.state }

func (d *Dialogue) Draft() Draft { return d.draft }

func (d *Dialogue) Active() bool {
	_, idle := d.state.(Inactive)
	return !idle
}

// Start clears the draft and asks for the recipient.
func (d *Dialogue) Start() Outcome {
	d.draft = Draft{}
	d.state = AwaitingRecipient{}

	var out Outcome
	out.say(PromptRecipient)
	return out
}

func (d *Dialogue) Abandon() {
	d.draft = Draft{}
	d.state = Inactive{}
}

// Advance consumes one utterance and performs exactly one transition.
// Calling it while inactive is a no-op.
func (d *Dialogue) Advance(ctx context.Context, utterance string) Outcome {
	var out Outcome

	switch st := d.state.(type) {
	case Inactive:
		return out

	case AwaitingRecipient:
		d.draft.Recipient = ParseRecipient(utterance)
		d.state = AwaitingSubject{}
		out.say(PromptSubject)

	case AwaitingSubject:
		d.draft.Subject = utterance
		d.state = AwaitingBody{}
		out.say(PromptBody)

	case AwaitingBody:
		d.draft.Body = utterance
		d.state = AwaitingConfirmation{}
		out.preview(d.draft)
		out.say(PromptConfirm)

	case AwaitingConfirmation:
		switch {
		case containsFold(utterance, "send"):
			draft := d.draft
			d.Abandon()
			out.Sent = true
			out.Delivery = d.sender.SendDraft(ctx, draft)
			out.say(out.Delivery.Message)
		case containsFold(utterance, "change"):
			d.state = AwaitingChangeSelection{}
			out.say(PromptChangeField)
		default:
			d.Abandon()
			out.say(PromptCanceled)
		}

	case AwaitingChangeSelection:
		field, ok := selectField(utterance)
		if !ok {
			out.say(PromptNotUnderstood)
			return out
		}
		d.state = AwaitingChangeValue{field: field}
		out.say(fmt.Sprintf("Okay, what should the new %s be?", field))

	case AwaitingChangeValue:
		value := utterance
		if st.field == FieldRecipient {
			value = SpokenAddress(utterance)
		}
		d.draft.set(st.field, value)
		d.state = AwaitingConfirmation{}
		out.preview(d.draft)
		out.say(PromptUpdated)
	}

	return out
}

func selectField(utterance string) (Field, bool) {
	for _, f := range []Field{FieldRecipient, FieldSubject, FieldBody} {
		if containsFold(utterance, f.String()) {
			return f, true
		}
	}
	return 0, false
}

// Snapshot is the serialisable form of a dialogue.
type Snapshot struct {
	State string `json:"state"`
	Field string `json:"field,omitempty"`
	Draft Draft  `json:"draft"`
}

func (d *Dialogue) Snapshot() Snapshot {
	s := Snapshot{State: d.state.Name(), Draft: d.draft}
	if cv, ok := d.state.(AwaitingChangeValue); ok {
		s.Field = cv.field.String()
	}
	return s
}

func (d *Dialogue) Restore(s Snapshot) error {
	if s.State == (AwaitingChangeValue{}).Name() {
		f, ok := parseField(s.Field)
		if !ok {
			return fmt.Errorf("restore dialogue: invalid field %q", s.Field)
		}
		d.state = AwaitingChangeValue{field: f}
		d.draft = s.Draft
		return nil
	}

	st, ok := stateByName(s.State)
	if !ok {
		return fmt.Errorf("restore dialogue: unknown state %q", s.State)
	}
	d.state = st
	d.draft = s.Draft
	if _, idle := st.(Inactive); idle {
		d.draft = Draft{}
	}
	return nil
}
