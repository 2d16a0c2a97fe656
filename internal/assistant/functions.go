package assistant

import (
	"context"
	"fmt"
	log "log/slog"
	"regexp"

	"voxmail/internal/mailstore"
	"voxmail/internal/nlu"
)

const msgDone = "Done."

var tagRe = regexp.MustCompile(`<[^>]*>?`)

// call runs one resolved function against the mailbox. The returned text is
// spoken together with the rest of the turn; functions that speak on their
// own return "".
func (c *Controller) call(ctx context.Context, fc nlu.FunctionCall) (string, error) {
	switch fc.Name {
	case nlu.FnOpenFolder:
		return c.openFolder(ctx, fc)
	case nlu.FnStartCompose:
		c.emit(ctx, c.dialogue.Start().Replies)
		return "", nil
	case nlu.FnSelectEmail:
		return c.selectEmail(fc), nil
	case nlu.FnReadEmailByIndex:
		return c.readByIndex(ctx, fc), nil
	case nlu.FnStopReading:
		c.out.Stop()
		return "Stopped.", nil
	case nlu.FnDeleteSelected:
		return c.moveSelected(ctx, mailstore.Trash)
	case nlu.FnMarkSpam:
		return c.moveSelected(ctx, mailstore.Spam)
	case nlu.FnChangeLanguage:
		return c.changeLanguage(fc), nil
	case nlu.FnLogout:
		return c.logout(ctx), nil
	default:
		log.Warn("Unknown function call", "name", fc.Name)
		return fmt.Sprintf("Function %s not recognized.", fc.Name), nil
	}
}

func (c *Controller) openFolder(ctx context.Context, fc nlu.FunctionCall) (string, error) {
	folder, err := mailstore.ParseFolder(fc.String("folder_name"))
	if err != nil {
		log.Debug("Ignoring folder", "err", err)
		return msgDone, nil
	}

	count := 0
	if u, ok := c.user(ctx); ok {
		if err := c.loadFolder(ctx, u.UID, folder); err != nil {
			return "", err
		}
		count = c.store.UnreadCount(ctx, u.UID, folder)
	} else {
		c.setFolder(folder, nil)
	}
	return fmt.Sprintf("Opening %s. You have %d unread messages.", folder, count), nil
}

func (c *Controller) loadFolder(ctx context.Context, uid string, folder mailstore.Folder) error {
	emails, err := c.store.ListEmails(ctx, uid, folder)
	if err != nil {
		return fmt.Errorf("list %s: %w", folder, err)
	}
	c.setFolder(folder, emails)
	return nil
}

func (c *Controller) setFolder(folder mailstore.Folder, emails []mailstore.Email) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.folder = folder
	c.view.emails = emails
	c.view.selected = nil
}

func (c *Controller) selectByID(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.view.emails {
		if c.view.emails[i].ID == id {
			e := c.view.emails[i]
			c.view.selected = &e
			return true
		}
	}
	return false
}

func (c *Controller) selectEmail(fc nlu.FunctionCall) string {
	id := fc.String("email_id")
	if id == "" || !c.selectByID(id) {
		return fmt.Sprintf("Sorry, I can't find an email with id %s.", id)
	}
	return msgDone
}

func (c *Controller) readByIndex(ctx context.Context, fc nlu.FunctionCall) string {
	idx, ok := fc.Int("index")

	c.mu.Lock()
	if !ok || idx < 1 || idx > len(c.view.emails) {
		c.mu.Unlock()
		return fmt.Sprintf("Sorry, I can't find an email at position %s.", fc.String("index"))
	}
	e := c.view.emails[idx-1]
	wasUnread := !e.Read
	c.view.emails[idx-1].Read = true
	e.Read = true
	c.view.selected = &e
	c.mu.Unlock()

	if wasUnread {
		if u, ok := c.user(ctx); ok {
			if err := c.store.MarkRead(ctx, u.UID, e.ID); err != nil {
				log.Error("Failed to mark email as read", "id", e.ID, "err", err)
			}
		}
	}

	body := tagRe.ReplaceAllString(e.Body, "\n")
	c.say(ctx, fmt.Sprintf("Reading email from %s. Subject: %s. Body starts now. %s", e.Sender, e.Subject, body))
	return ""
}

func (c *Controller) moveSelected(ctx context.Context, folder mailstore.Folder) (string, error) {
	u, ok := c.user(ctx)
	sel, has := c.Selected()
	if !ok || !has {
		return msgDone, nil
	}

	if err := c.store.UpdateFolder(ctx, u.UID, sel.ID, folder); err != nil {
		return "", fmt.Errorf("move %s to %s: %w", sel.ID, folder, err)
	}

	c.mu.Lock()
	kept := c.view.emails[:0:0]
	for _, e := range c.view.emails {
		if e.ID != sel.ID {
			kept = append(kept, e)
		}
	}
	c.view.emails = kept
	c.view.selected = nil
	c.mu.Unlock()
	return msgDone, nil
}

func (c *Controller) changeLanguage(fc nlu.FunctionCall) string {
	lang, ok := nlu.LanguageByCode(fc.String("language_code"))
	if !ok {
		return "Sorry, I can't switch to that language."
	}

	c.mu.Lock()
	c.view.lang = lang
	c.mu.Unlock()
	return fmt.Sprintf("Okay, switching to %s.", lang.Name)
}

func (c *Controller) logout(ctx context.Context) string {
	if err := c.ident.Logout(ctx); err != nil {
		log.Error("Logout failed", "err", err)
	}
	c.dialogue.Abandon()

	c.mu.Lock()
	c.view.emails = nil
	c.view.selected = nil
	c.mu.Unlock()
	return "Signing you out."
}
