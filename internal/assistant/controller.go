package assistant

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync"
	"time"

	"voxmail/internal/compose"
	"voxmail/internal/identity"
	"voxmail/internal/mailstore"
	"voxmail/internal/nlu"
	"voxmail/internal/speech"
)

const (
	msgWelcome = "Welcome to your VoxMail Assistant! To get started, you can say 'Open my inbox', " +
		"'Compose a new email', or 'Check my sent folder'. What would you like to do?"
	msgError            = "Sorry, I encountered an error."
	msgUnsupported      = "Voice recognition is not supported on this device."
	msgRecognitionError = "Sorry, there was a recognition error."
)

type Options struct {
	Store     mailstore.Store
	Resolver  nlu.Resolver
	Identity  identity.Provider
	Output    speech.Output
	Input     speech.Input
	Snapshots SnapshotStore

	// Language is the initial BCP 47 tag, en-US when empty.
	Language string
	// ResolveTimeout bounds each resolver call. Zero means no limit.
	ResolveTimeout time.Duration
	Clock          func() time.Time
}

type view struct {
	folder   mailstore.Folder
	emails   []mailstore.Email
	selected *mailstore.Email
	lang     nlu.Language
	muted    bool
}

// Controller is the single owner of the dialogue, the mailbox view and the
// transcript. Turns run one at a time; Stop and SetMuted may be called from
// any goroutine while a turn is speaking.
type Controller struct {
	store          mailstore.Store
	resolver       nlu.Resolver
	ident          identity.Provider
	out            speech.Output
	in             speech.Input
	snapshots      SnapshotStore
	resolveTimeout time.Duration
	now            func() time.Time

	// turn serialises ProcessUtterance, Welcome, Listen and Resume.
	turn     sync.Mutex
	dialogue *compose.Dialogue
	turns    uint64
	welcomed bool
	noMic    bool

	mu         sync.Mutex
	view       view
	transcript []Entry
	sinks      []Sink
}

func New(opt Options) (*Controller, error) {
	if opt.Store == nil || opt.Resolver == nil || opt.Identity == nil {
		return nil, errors.New("assistant: store, resolver and identity are required")
	}

	lang := nlu.SupportedLanguages[0]
	if opt.Language != "" {
		l, ok := nlu.LanguageByCode(opt.Language)
		if !ok {
			return nil, fmt.Errorf("assistant: unsupported language %q", opt.Language)
		}
		lang = l
	}

	c := &Controller{
		store:          opt.Store,
		resolver:       opt.Resolver,
		ident:          opt.Identity,
		out:            opt.Output,
		in:             opt.Input,
		snapshots:      opt.Snapshots,
		resolveTimeout: opt.ResolveTimeout,
		now:            opt.Clock,
		view:           view{folder: mailstore.Inbox, lang: lang},
	}
	if c.out == nil {
		c.out = speech.Silent{}
	}
	if c.in == nil {
		c.in = speech.Unavailable{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.dialogue = compose.NewDialogue(mailSender{store: c.store, ident: c.ident})
	return c, nil
}

// ProcessUtterance runs one turn. Empty input is ignored and failures end up
// as a spoken apology, never as a returned error. text reaches the dialogue
// and the transcript as given.
func (c *Controller) ProcessUtterance(ctx context.Context, text string) {
	if text == "" {
		return
	}

	c.turn.Lock()
	defer c.turn.Unlock()

	c.turns++
	l := log.With("turn", c.turns)

	c.userSaid(ctx, text)
	if c.dialogue.Active() {
		c.advance(ctx, l, text)
	} else {
		c.resolve(ctx, l, text)
	}
	c.save(ctx)
}

func (c *Controller) advance(ctx context.Context, l *log.Logger, text string) {
	before := c.dialogue.State().Name()
	out := c.dialogue.Advance(ctx, text)
	l.Debug("Compose step", "from", before, "to", c.dialogue.State().Name())

	c.emit(ctx, out.Replies)

	if out.Sent {
		l.Info("Draft sent", "ok", out.Delivery.OK)
		if out.Delivery.OK {
			if u, ok := c.user(ctx); ok {
				if err := c.loadFolder(ctx, u.UID, mailstore.Sent); err != nil {
					l.Error("Failed to open Sent", "err", err)
				}
			}
		}
	}
}

func (c *Controller) resolve(ctx context.Context, l *log.Logger, text string) {
	rctx := ctx
	if c.resolveTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, c.resolveTimeout)
		defer cancel()
	}

	res, err := c.resolver.Resolve(rctx, text, c.nluContext())
	if err != nil {
		l.Error("Failed to resolve utterance", "err", err)
		c.say(ctx, msgError)
		return
	}

	var parts []string
	for _, fc := range res.Calls {
		l.Info("Function call", "name", fc.Name, "args", fc.Args)
		result, err := c.call(ctx, fc)
		if err != nil {
			l.Error("Failed to execute function", "name", fc.Name, "err", err)
			c.say(ctx, msgError)
			return
		}
		if result != "" {
			parts = append(parts, result)
		}
	}
	if t := strings.TrimSpace(res.Text); t != "" {
		parts = append(parts, t)
	}

	if final := strings.TrimSpace(strings.Join(parts, " ")); final != "" {
		c.say(ctx, final)
	}
}

// emit appends dialogue replies in order and speaks the non-preview ones.
func (c *Controller) emit(ctx context.Context, replies []compose.Reply) {
	for _, r := range replies {
		switch {
		case r.Preview != nil:
			c.showPreview(ctx, r)
		case strings.TrimSpace(r.Text) != "":
			c.say(ctx, r.Text)
		}
	}
}

// say appends the assistant entry and then plays it. The entry is written
// once even when playback fails or the output is muted.
func (c *Controller) say(ctx context.Context, text string) {
	c.appendEntry(ctx, Entry{Text: text, FromAssistant: true})

	c.mu.Lock()
	muted, lang := c.view.muted, c.view.lang.Code
	c.mu.Unlock()
	if muted {
		return
	}

	if err := c.out.Speak(ctx, text, lang); err != nil {
		log.Warn("Failed to speak", "err", err)
	}
}

// Welcome greets the user once per controller.
func (c *Controller) Welcome(ctx context.Context) {
	c.turn.Lock()
	defer c.turn.Unlock()

	if c.welcomed {
		return
	}
	c.welcomed = true
	c.say(ctx, msgWelcome)
}

// Listen captures one spoken turn and processes it. When speech input is not
// available the user hears a notice once and later calls do nothing.
func (c *Controller) Listen(ctx context.Context) {
	c.turn.Lock()
	if c.noMic {
		c.turn.Unlock()
		log.Debug("Speech input disabled for this session")
		return
	}
	c.turn.Unlock()

	c.out.Stop()
	text, err := c.in.Listen(ctx)
	switch {
	case errors.Is(err, speech.ErrUnsupported):
		c.turn.Lock()
		if !c.noMic {
			c.noMic = true
			c.say(ctx, msgUnsupported)
		}
		c.turn.Unlock()
		return
	case errors.Is(err, context.Canceled):
		return
	case err != nil:
		log.Error("Failed to listen", "err", err)
		c.turn.Lock()
		c.say(ctx, msgRecognitionError)
		c.turn.Unlock()
		return
	}

	c.ProcessUtterance(ctx, text)
}

// Stop cuts off whatever is being spoken. State changes already applied by
// the running turn stay.
func (c *Controller) Stop() {
	c.out.Stop()
}

func (c *Controller) SetMuted(on bool) {
	c.mu.Lock()
	c.view.muted = on
	c.mu.Unlock()

	if on {
		c.out.Stop()
	}
}

func (c *Controller) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.muted
}

// Language returns the current BCP 47 tag.
func (c *Controller) Language() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.lang.Code
}

func (c *Controller) Folder() mailstore.Folder {
	return c.folder()
}

// ComposeState names the dialogue state. Only safe between turns.
func (c *Controller) ComposeState() compose.State {
	c.turn.Lock()
	defer c.turn.Unlock()
	return c.dialogue.State()
}

func (c *Controller) Emails() []mailstore.Email {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]mailstore.Email(nil), c.view.emails...)
}

func (c *Controller) Selected() (mailstore.Email, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view.selected == nil {
		return mailstore.Email{}, false
	}
	return *c.view.selected, true
}

func (c *Controller) folder() mailstore.Folder {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.folder
}

func (c *Controller) user(ctx context.Context) (identity.User, bool) {
	u, err := c.ident.Current(ctx)
	if err != nil {
		return identity.User{}, false
	}
	return u, true
}

func (c *Controller) nluContext() nlu.Context {
	c.mu.Lock()
	defer c.mu.Unlock()

	nc := nlu.Context{Folder: string(c.view.folder), Language: c.view.lang}
	for _, e := range c.view.emails {
		nc.Emails = append(nc.Emails, nlu.EmailRef{ID: e.ID, Sender: e.Sender, Subject: e.Subject})
	}
	if s := c.view.selected; s != nil {
		nc.Selected = &nlu.EmailRef{ID: s.ID, Sender: s.Sender, Subject: s.Subject}
	}
	return nc
}
