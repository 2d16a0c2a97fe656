package assistant

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"

	"voxmail/internal/compose"
	"voxmail/internal/mailstore"
	"voxmail/internal/nlu"
)

var ErrNoSnapshot = errors.New("no snapshot")

// Snapshot is the session state that survives a daemon restart.
type Snapshot struct {
	Dialogue   compose.Snapshot `json:"dialogue"`
	Folder     mailstore.Folder `json:"folder"`
	Language   string           `json:"language"`
	SelectedID string           `json:"selected_id,omitempty"`
}

type SnapshotStore interface {
	Save(ctx context.Context, uid string, s Snapshot) error
	// Load returns ErrNoSnapshot when nothing was saved for uid.
	Load(ctx context.Context, uid string) (Snapshot, error)
}

func (c *Controller) snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Dialogue: c.dialogue.Snapshot(),
		Folder:   c.view.folder,
		Language: c.view.lang.Code,
	}
	if c.view.selected != nil {
		s.SelectedID = c.view.selected.ID
	}
	return s
}

func (c *Controller) save(ctx context.Context) {
	if c.snapshots == nil {
		return
	}
	u, ok := c.user(ctx)
	if !ok {
		return
	}
	if err := c.snapshots.Save(ctx, u.UID, c.snapshot()); err != nil {
		log.Warn("Failed to save session", "err", err)
	}
}

// Resume restores the last saved session, if any, and loads the current
// folder. It runs before the first turn.
func (c *Controller) Resume(ctx context.Context) error {
	c.turn.Lock()
	defer c.turn.Unlock()

	u, ok := c.user(ctx)
	if !ok {
		return nil
	}

	selectedID := ""
	if c.snapshots != nil {
		s, err := c.snapshots.Load(ctx, u.UID)
		switch {
		case errors.Is(err, ErrNoSnapshot):
		case err != nil:
			log.Warn("Failed to load session", "err", err)
		default:
			if err := c.restore(s); err != nil {
				log.Warn("Ignoring saved session", "err", err)
			} else {
				selectedID = s.SelectedID
				log.Info("Session resumed", "state", s.Dialogue.State, "folder", s.Folder)
			}
		}
	}

	if err := c.loadFolder(ctx, u.UID, c.folder()); err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	if selectedID != "" {
		c.selectByID(selectedID)
	}
	return nil
}

func (c *Controller) restore(s Snapshot) error {
	folder, err := mailstore.ParseFolder(string(s.Folder))
	if err != nil {
		return err
	}
	lang, ok := nlu.LanguageByCode(s.Language)
	if !ok {
		return fmt.Errorf("unsupported language %q", s.Language)
	}
	if err := c.dialogue.Restore(s.Dialogue); err != nil {
		return err
	}

	c.mu.Lock()
	c.view.folder = folder
	c.view.lang = lang
	c.mu.Unlock()
	return nil
}
