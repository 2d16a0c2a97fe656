package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

const playbackRate beep.SampleRate = 44100

// Player owns the speaker. Every stream is resampled to one output rate so
// the speaker is initialised only once.
type Player struct {
	beepPath string

	initOnce sync.Once
	initErr  error
}

func NewPlayer(beepPath string) *Player {
	return &Player{beepPath: beepPath}
}

func (p *Player) init() error {
	p.initOnce.Do(func() {
		p.initErr = speaker.Init(playbackRate, playbackRate.N(time.Second/10))
	})
	return p.initErr
}

// Beep plays the earcon file. A missing file is reported, not fatal.
func (p *Player) Beep() error {
	if p.beepPath == "" {
		return nil
	}
	f, err := os.Open(p.beepPath)
	if err != nil {
		return fmt.Errorf("open earcon: %w", err)
	}
	return p.PlayMP3(context.Background(), f)
}

// PlayMP3 decodes and plays rc, blocking until playback ends or ctx is
// cancelled. rc is closed in both cases.
func (p *Player) PlayMP3(ctx context.Context, rc io.ReadCloser) error {
	streamer, format, err := mp3.Decode(rc)
	if err != nil {
		rc.Close()
		return fmt.Errorf("decode mp3: %w", err)
	}
	defer streamer.Close()

	if err := p.init(); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	var s beep.Streamer = streamer
	if format.SampleRate != playbackRate {
		s = beep.Resample(4, format.SampleRate, playbackRate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

// Stop drops everything queued on the speaker.
func (p *Player) Stop() {
	if p.init() == nil {
		speaker.Clear()
	}
}
