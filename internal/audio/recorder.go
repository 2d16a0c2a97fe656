package audio

import (
	"context"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	sampleRate = 16000
	frameSize  = 320 // 20ms
)

type RecorderOptions struct {
	SilenceRMS float64       // frames below this level count as silence
	Silence    time.Duration // trailing silence that ends a turn
	MaxLength  time.Duration
}

func (o RecorderOptions) withDefaults() RecorderOptions {
	if o.SilenceRMS <= 0 {
		o.SilenceRMS = 0.015
	}
	if o.Silence <= 0 {
		o.Silence = 600 * time.Millisecond
	}
	if o.MaxLength <= 0 {
		o.MaxLength = 15 * time.Second
	}
	return o
}

type Recorder struct {
	opt RecorderOptions
}

func NewRecorder(opt RecorderOptions) *Recorder {
	return &Recorder{opt: opt.withDefaults()}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// RecordAuto captures one spoken turn: leading silence is skipped and the
// turn ends after the configured trailing silence, at MaxLength, or when ctx
// is cancelled. Audio captured before cancellation is returned.
func (r *Recorder) RecordAuto(ctx context.Context) ([]float32, error) {
	buf := make([]float32, frameSize)
	out := make([]float32, 0, sampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, sampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	var (
		speaking      bool
		silenceFrames int
	)

	frameDur := time.Second * frameSize / sampleRate
	maxFrames := int(r.opt.MaxLength / frameDur)
	endFrames := int(r.opt.Silence / frameDur)

	for range maxFrames {
		if ctx.Err() != nil {
			break
		}
		if err := stream.Read(); err != nil {
			return nil, err
		}

		if frameRMS(buf) > r.opt.SilenceRMS {
			speaking = true
			silenceFrames = 0
			out = append(out, buf...)
			continue
		}
		if speaking {
			silenceFrames++
			if silenceFrames >= endFrames {
				break
			}
			out = append(out, buf...)
		}
	}

	return out, nil
}

func frameRMS(f []float32) float64 {
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
