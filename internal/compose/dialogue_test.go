package compose

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	calls    int
	last     Draft
	delivery Delivery
}

func (f *fakeSender) SendDraft(_ context.Context, d Draft) Delivery {
	f.calls++
	f.last = d
	return f.delivery
}

func fillDraft(t *testing.T, d *Dialogue) {
	t.Helper()
	ctx := context.Background()
	d.Start()
	d.Advance(ctx, "alice at example dot com")
	d.Advance(ctx, "Lunch?")
	out := d.Advance(ctx, "Are you free Friday?")
	require.Len(t, out.Replies, 2)
	require.IsType(t, AwaitingConfirmation{}, d.State())
}

func TestDialogue_RoundTrip(t *testing.T) {
	d := NewDialogue(&fakeSender{})
	fillDraft(t, d)

	require.Equal(t, Draft{
		Recipient: "alice@example.com",
		Subject:   "Lunch?",
		Body:      "Are you free Friday?",
	}, d.Draft())
}

func TestDialogue_StepsInOrder(t *testing.T) {
	ctx := context.Background()
	d := NewDialogue(&fakeSender{})
	require.False(t, d.Active())

	out := d.Start()
	require.Equal(t, []Reply{{Text: PromptRecipient}}, out.Replies)
	require.IsType(t, AwaitingRecipient{}, d.State())

	out = d.Advance(ctx, "bob")
	require.Equal(t, PromptSubject, out.Replies[0].Text)
	require.IsType(t, AwaitingSubject{}, d.State())
	require.Equal(t, "bob", d.Draft().Recipient)

	out = d.Advance(ctx, "  Hello  ")
	require.Equal(t, PromptBody, out.Replies[0].Text)
	require.IsType(t, AwaitingBody{}, d.State())
	require.Equal(t, "  Hello  ", d.Draft().Subject)

	out = d.Advance(ctx, "Body text")
	require.Len(t, out.Replies, 2)
	require.NotNil(t, out.Replies[0].Preview)
	require.Equal(t, d.Draft(), *out.Replies[0].Preview)
	require.Equal(t, PromptConfirm, out.Replies[1].Text)
}

func TestDialogue_SendReturnsToInactive(t *testing.T) {
	sender := &fakeSender{delivery: Delivery{OK: true, Message: "Email sent successfully!"}}
	d := NewDialogue(sender)
	fillDraft(t, d)

	out := d.Advance(context.Background(), "Please SEND it")
	require.True(t, out.Sent)
	require.Equal(t, 1, sender.calls)
	require.Equal(t, "alice@example.com", sender.last.Recipient)
	require.Equal(t, []Reply{{Text: "Email sent successfully!"}}, out.Replies)
	require.IsType(t, Inactive{}, d.State())
	require.True(t, d.Draft().IsEmpty())

	// a second "send" cannot resend the same draft
	out = d.Advance(context.Background(), "send")
	require.False(t, out.Sent)
	require.Empty(t, out.Replies)
	require.Equal(t, 1, sender.calls)
}

func TestDialogue_SendFailureStillResets(t *testing.T) {
	sender := &fakeSender{delivery: Delivery{OK: false, Message: "Could not save"}}
	d := NewDialogue(sender)
	fillDraft(t, d)

	out := d.Advance(context.Background(), "send")
	require.True(t, out.Sent)
	require.False(t, out.Delivery.OK)
	require.Equal(t, "Could not save", out.Replies[0].Text)
	require.IsType(t, Inactive{}, d.State())
}

func TestDialogue_SendWinsOverChange(t *testing.T) {
	sender := &fakeSender{delivery: Delivery{OK: true, Message: "ok"}}
	d := NewDialogue(sender)
	fillDraft(t, d)

	out := d.Advance(context.Background(), "don't change anything, just send")
	require.True(t, out.Sent)
	require.Equal(t, 1, sender.calls)
}

func TestDialogue_ChangeSubject(t *testing.T) {
	ctx := context.Background()
	d := NewDialogue(&fakeSender{})
	fillDraft(t, d)

	out := d.Advance(ctx, "I want to change the subject")
	require.Equal(t, PromptChangeField, out.Replies[0].Text)
	require.IsType(t, AwaitingChangeSelection{}, d.State())

	// the selection sentence mentions "subject" only
	d.Abandon()
	fillDraft(t, d)
	d.Advance(ctx, "change")
	out = d.Advance(ctx, "I want to change the subject")
	cv, ok := d.State().(AwaitingChangeValue)
	require.True(t, ok)
	require.Equal(t, FieldSubject, cv.Field())
	require.Equal(t, "Okay, what should the new subject be?", out.Replies[0].Text)

	out = d.Advance(ctx, "Rescheduled lunch")
	require.IsType(t, AwaitingConfirmation{}, d.State())
	require.Equal(t, Draft{
		Recipient: "alice@example.com",
		Subject:   "Rescheduled lunch",
		Body:      "Are you free Friday?",
	}, d.Draft())
	require.Len(t, out.Replies, 2)
	require.NotNil(t, out.Replies[0].Preview)
	require.Equal(t, PromptUpdated, out.Replies[1].Text)
}

func TestDialogue_ChangeRecipientAlwaysSubstitutes(t *testing.T) {
	ctx := context.Background()
	d := NewDialogue(&fakeSender{})
	fillDraft(t, d)

	d.Advance(ctx, "make a change")
	d.Advance(ctx, "the recipient please")
	d.Advance(ctx, "Bob at")
	require.Equal(t, "bob@", d.Draft().Recipient)
}

func TestDialogue_ChangeSelectionPriority(t *testing.T) {
	ctx := context.Background()
	d := NewDialogue(&fakeSender{})
	fillDraft(t, d)

	d.Advance(ctx, "change")
	d.Advance(ctx, "body and subject and recipient")
	cv, ok := d.State().(AwaitingChangeValue)
	require.True(t, ok)
	require.Equal(t, FieldRecipient, cv.Field())
}

func TestDialogue_UnmatchedSelectionReprompts(t *testing.T) {
	ctx := context.Background()
	d := NewDialogue(&fakeSender{})
	fillDraft(t, d)
	before := d.Draft()

	d.Advance(ctx, "change")
	out := d.Advance(ctx, "I don't know")
	require.Equal(t, []Reply{{Text: PromptNotUnderstood}}, out.Replies)
	require.IsType(t, AwaitingChangeSelection{}, d.State())
	require.Equal(t, before, d.Draft())
}

func TestDialogue_CancelClearsDraft(t *testing.T) {
	sender := &fakeSender{}
	d := NewDialogue(sender)
	fillDraft(t, d)

	out := d.Advance(context.Background(), "forget it")
	require.Equal(t, []Reply{{Text: PromptCanceled}}, out.Replies)
	require.IsType(t, Inactive{}, d.State())
	require.True(t, d.Draft().IsEmpty())
	require.Zero(t, sender.calls)
}

func TestDialogue_StartThenAbandonNeverSends(t *testing.T) {
	sender := &fakeSender{}
	d := NewDialogue(sender)
	d.Start()
	require.True(t, d.Draft().IsEmpty())

	d.Abandon()
	require.False(t, d.Active())
	d.Advance(context.Background(), "send")
	require.Zero(t, sender.calls)
}

func TestDialogue_EveryActiveUtteranceMovesOrReprompts(t *testing.T) {
	ctx := context.Background()
	d := NewDialogue(&fakeSender{delivery: Delivery{Message: "x"}})

	inputs := []string{"a", "b", "c", "change", "body", "new body", "cancel"}
	want := []string{
		"awaiting_subject",
		"awaiting_body",
		"awaiting_confirmation",
		"awaiting_change_selection",
		"awaiting_change_value",
		"awaiting_confirmation",
		"inactive",
	}

	d.Start()
	for i, in := range inputs {
		out := d.Advance(ctx, in)
		require.NotEmpty(t, out.Replies, "input %q", in)
		require.Equal(t, want[i], d.State().Name(), "input %q", in)
	}
}

func TestDialogue_SnapshotRestore(t *testing.T) {
	ctx := context.Background()
	d := NewDialogue(&fakeSender{})
	fillDraft(t, d)
	d.Advance(ctx, "change")
	d.Advance(ctx, "body")

	snap := d.Snapshot()
	require.Equal(t, "awaiting_change_value", snap.State)
	require.Equal(t, "body", snap.Field)

	restored := NewDialogue(&fakeSender{})
	require.NoError(t, restored.Restore(snap))
	require.Equal(t, d.State(), restored.State())
	require.Equal(t, d.Draft(), restored.Draft())

	restored.Advance(ctx, "Can we do Saturday?")
	require.Equal(t, "Can we do Saturday?", restored.Draft().Body)
}

func TestDialogue_RestoreRejectsBadSnapshots(t *testing.T) {
	d := NewDialogue(&fakeSender{})
	require.Error(t, d.Restore(Snapshot{State: "awaiting_change_value"}))
	require.Error(t, d.Restore(Snapshot{State: "awaiting_change_value", Field: "cc"}))
	require.Error(t, d.Restore(Snapshot{State: "drafting"}))
	require.False(t, d.Active())

	require.NoError(t, d.Restore(Snapshot{State: "inactive", Draft: Draft{Body: "stale"}}))
	require.True(t, d.Draft().IsEmpty())
}
