package speech

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync"
	"time"
)

var ErrUnsupported = errors.New("speech input not supported")

// ErrPlaybackStarted marks an output failure after audio already reached the
// speaker. Fallback does not replay such an utterance.
var ErrPlaybackStarted = errors.New("playback interrupted")

// Output turns assistant text into audio. lang is a BCP 47 tag such as "en-US".
type Output interface {
	Speak(ctx context.Context, text, lang string) error
	Stop()
}

// Input captures one spoken turn and returns its transcript.
type Input interface {
	Listen(ctx context.Context) (string, error)
}

type Mode string

const (
	ModeText   Mode = "text"
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeText, ModeLocal, ModeRemote:
		return m, nil
	case "":
		return ModeText, nil
	default:
		return "", fmt.Errorf("unknown speech mode %q (want text, local or remote)", s)
	}
}

// Silent is the text-only output.
type Silent struct{}

func (Silent) Speak(context.Context, string, string) error { return nil }
func (Silent) Stop()                                       {}

// Fallback speaks through Secondary when Primary fails before any audio was
// played.
type Fallback struct {
	Primary   Output
	Secondary Output
}

func (f Fallback) Speak(ctx context.Context, text, lang string) error {
	err := f.Primary.Speak(ctx, text, lang)
	if err == nil || ctx.Err() != nil || errors.Is(err, ErrPlaybackStarted) {
		return err
	}

	log.Warn("Primary speech output failed, falling back", "err", err)
	if err2 := f.Secondary.Speak(ctx, text, lang); err2 != nil {
		return fmt.Errorf("fallback speech: %w", errors.Join(err, err2))
	}
	return nil
}

func (f Fallback) Stop() {
	f.Primary.Stop()
	f.Secondary.Stop()
}

type Chime interface {
	Beep() error
}

// earcon plays a short chime once an utterance finished, signalling that the
// assistant is listening again.
type earcon struct {
	Output
	chime Chime
}

func WithEarcon(out Output, chime Chime) Output {
	return &earcon{Output: out, chime: chime}
}

func (e *earcon) Speak(ctx context.Context, text, lang string) error {
	err := e.Output.Speak(ctx, text, lang)
	if ctx.Err() != nil {
		return err
	}
	if berr := e.chime.Beep(); berr != nil {
		log.Debug("Failed to beep", "err", berr)
	}
	return err
}

type Ducker interface {
	DuckOthers(ctx context.Context, factor float64, duration time.Duration) error
	UnduckOthers(ctx context.Context, duration time.Duration) error
}

type ducked struct {
	Output
	ducker Ducker
	factor float64
	fade   time.Duration
}

// WithDucking lowers other audio streams while out is speaking.
func WithDucking(out Output, d Ducker, factor float64, fade time.Duration) Output {
	return &ducked{Output: out, ducker: d, factor: factor, fade: fade}
}

func (d *ducked) Speak(ctx context.Context, text, lang string) error {
	if err := d.ducker.DuckOthers(ctx, d.factor, d.fade); err != nil {
		log.Debug("Failed to duck", "err", err)
	}
	defer func() {
		// restore even when ctx was cancelled mid-utterance
		if err := d.ducker.UnduckOthers(context.Background(), d.fade); err != nil {
			log.Debug("Failed to unduck", "err", err)
		}
	}()
	return d.Output.Speak(ctx, text, lang)
}

// Cancellable runs each Speak under its own context so Stop interrupts
// whatever is playing, whichever strategy sits underneath.
type Cancellable struct {
	out Output

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

func NewCancellable(out Output) *Cancellable {
	return &Cancellable{out: out}
}

func (c *Cancellable) Speak(ctx context.Context, text, lang string) error {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen := c.gen
	c.cancel = cancel
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		if c.gen == gen {
			c.cancel = nil
		}
		c.mu.Unlock()
	}()

	err := c.out.Speak(ctx, text, lang)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *Cancellable) Stop() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
	c.out.Stop()
}
