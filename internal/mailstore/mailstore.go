package mailstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")

type Folder string

const (
	Inbox Folder = "Inbox"
	Sent  Folder = "Sent"
	Spam  Folder = "Spam"
	Trash Folder = "Trash"
)

var Folders = []Folder{Inbox, Sent, Spam, Trash}

// ParseFolder accepts folder names in any case.
func ParseFolder(s string) (Folder, error) {
	for _, f := range Folders {
		if strings.EqualFold(strings.TrimSpace(s), string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown folder %q", s)
}

type Email struct {
	ID          string    `json:"id"`
	ThreadID    string    `json:"thread_id,omitempty"`
	Sender      string    `json:"sender"`
	SenderEmail string    `json:"sender_email"`
	Recipient   string    `json:"recipient"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	Timestamp   time.Time `json:"timestamp"`
	Read        bool      `json:"read"`
	Folder      Folder    `json:"folder"`
}

// Outgoing is a composed message on its way out.
type Outgoing struct {
	ThreadID    string
	Sender      string
	SenderEmail string
	Recipient   string
	Subject     string
	Body        string
}

type SendResult struct {
	Success bool
	Message string
}

// Profile is the stored user document.
type Profile struct {
	UID      string
	Email    string
	Username string
}

type Store interface {
	// ListEmails returns the folder newest first.
	ListEmails(ctx context.Context, uid string, folder Folder) ([]Email, error)
	UpdateFolder(ctx context.Context, uid, emailID string, folder Folder) error
	MarkRead(ctx context.Context, uid, emailID string) error
	Send(ctx context.Context, uid string, msg Outgoing) SendResult
	// UnreadCount reports zero when the count cannot be computed.
	UnreadCount(ctx context.Context, uid string, folder Folder) int
	SetupUser(ctx context.Context, p Profile) error
	SeedEmails(ctx context.Context, uid string) error
}

const (
	msgSentCopyFailed = "Could not save the email to your Sent folder. Please check your connection or permissions."
	msgSavedOnly      = "Email saved to Sent folder."
	msgSentToSelf     = "Email sent successfully to yourself!"
	msgSent           = "Email sent successfully!"
	msgDeliveryFailed = "Email delivery failed due to a database error. Your email has been saved in 'Sent'."
)

func msgUnknownRecipient(r string) string {
	return fmt.Sprintf("Email saved to Sent, but recipient %q was not found in VoxMail.", r)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// mailbox is the backend surface the shared send flow runs against.
type mailbox interface {
	add(ctx context.Context, uid string, e Email) error
	uidByEmail(ctx context.Context, email string) (string, error)
	uidByUsername(ctx context.Context, username string) (string, error)
}

// send always stores the Sent copy first, then tries to deliver a copy into
// the recipient's inbox. A failed delivery keeps the Sent copy.
func send(ctx context.Context, mb mailbox, uid string, msg Outgoing) SendResult {
	base := Email{
		ThreadID:    msg.ThreadID,
		Sender:      msg.Sender,
		SenderEmail: msg.SenderEmail,
		Recipient:   msg.Recipient,
		Subject:     msg.Subject,
		Body:        msg.Body,
	}

	sent := base
	sent.Folder = Sent
	sent.Read = true
	if err := mb.add(ctx, uid, sent); err != nil {
		return SendResult{Message: msgSentCopyFailed}
	}

	if strings.TrimSpace(msg.Recipient) == "" {
		return SendResult{Success: true, Message: msgSavedOnly}
	}

	ident := strings.TrimSpace(msg.Recipient)
	var (
		rcpt string
		err  error
	)
	if strings.Contains(ident, "@") {
		rcpt, err = mb.uidByEmail(ctx, ident)
	} else {
		rcpt, err = mb.uidByUsername(ctx, ident)
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return SendResult{Message: msgUnknownRecipient(msg.Recipient)}
	case err != nil:
		return SendResult{Message: msgDeliveryFailed}
	}

	inbox := base
	inbox.Folder = Inbox
	inbox.Read = false
	if err := mb.add(ctx, rcpt, inbox); err != nil {
		return SendResult{Message: msgDeliveryFailed}
	}

	if rcpt == uid {
		return SendResult{Success: true, Message: msgSentToSelf}
	}
	return SendResult{Success: true, Message: msgSent}
}
