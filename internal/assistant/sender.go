package assistant

import (
	"context"

	"voxmail/internal/compose"
	"voxmail/internal/identity"
	"voxmail/internal/mailstore"
)

const msgSignedOut = "You need to be signed in to send email."

// mailSender sends finished drafts as the signed-in user.
type mailSender struct {
	store mailstore.Store
	ident identity.Provider
}

func (s mailSender) SendDraft(ctx context.Context, d compose.Draft) compose.Delivery {
	u, err := s.ident.Current(ctx)
	if err != nil {
		return compose.Delivery{Message: msgSignedOut}
	}

	res := s.store.Send(ctx, u.UID, mailstore.Outgoing{
		Sender:      u.DisplayName(),
		SenderEmail: u.Email,
		Recipient:   d.Recipient,
		Subject:     d.Subject,
		Body:        d.Body,
	})
	return compose.Delivery{OK: res.Success, Message: res.Message}
}
