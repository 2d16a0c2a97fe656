package audioconv

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

const TargetRate = 16000

// Decoder converts uploaded clips into mono float32 PCM at 16 kHz, the
// format the transcriber expects.
type Decoder struct {
	// MaxSamples truncates the output; 0 keeps everything.
	MaxSamples int
}

// Decode picks the codec from format ("wav", "mp3", "ogg", "opus", or a MIME
// type such as "audio/ogg") and falls back to sniffing the header.
func (d Decoder) Decode(data []byte, format string) ([]float32, error) {
	if len(data) == 0 {
		return nil, errors.New("empty clip")
	}

	switch normalizeFormat(format) {
	case "wav":
		return d.wav(data)
	case "mp3":
		return d.mp3(data)
	case "ogg":
		return d.ogg(data)
	}

	switch {
	case bytes.HasPrefix(data, []byte("RIFF")):
		return d.wav(data)
	case bytes.HasPrefix(data, []byte("OggS")):
		return d.ogg(data)
	case bytes.HasPrefix(data, []byte("ID3")), len(data) > 1 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return d.mp3(data)
	}
	return nil, fmt.Errorf("unsupported format %q (supported: wav/mp3/ogg-vorbis/ogg-opus)", format)
}

func normalizeFormat(f string) string {
	f = strings.ToLower(strings.TrimSpace(f))
	f = strings.TrimPrefix(f, "audio/")
	f = strings.TrimPrefix(f, ".")
	if i := strings.IndexByte(f, ';'); i >= 0 {
		f = f[:i]
	}
	switch f {
	case "wav", "wave", "x-wav":
		return "wav"
	case "mp3", "mpeg":
		return "mp3"
	case "ogg", "oga", "opus", "vorbis":
		return "ogg"
	}
	return ""
}

func (d Decoder) finish(x []float32, channels, rate int) []float32 {
	if channels > 1 {
		x = downmixInterleaved(x, channels)
	}
	if rate != TargetRate {
		x = resampleLinear(x, rate, TargetRate)
	}
	if d.MaxSamples > 0 && len(x) > d.MaxSamples {
		x = x[:d.MaxSamples]
	}
	return x
}

func (d Decoder) wav(data []byte) ([]float32, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav")
	}
	pb, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read wav: %w", err)
	}
	if pb == nil || len(pb.Data) == 0 {
		return nil, errors.New("empty wav")
	}

	bd := int(dec.BitDepth)
	if bd == 0 {
		bd = 16
	}

	ch, sr := 1, 44100
	if pb.Format != nil {
		if pb.Format.NumChannels > 0 {
			ch = pb.Format.NumChannels
		}
		if pb.Format.SampleRate > 0 {
			sr = pb.Format.SampleRate
		}
	}
	return d.finish(intSliceToFloat32(pb.Data, bd), ch, sr), nil
}

func (d Decoder) mp3(data []byte) ([]float32, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open mp3: %w", err)
	}
	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, fmt.Errorf("read mp3: %w", err)
	}
	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &ints); err != nil {
		return nil, err
	}

	sr := dec.SampleRate()
	if sr <= 0 {
		sr = 44100
	}
	// go-mp3 always yields interleaved stereo
	return d.finish(int16SliceToFloat32(ints), 2, sr), nil
}

// ogg tries Vorbis first, then Opus.
func (d Decoder) ogg(data []byte) ([]float32, error) {
	pcm, f, verr := oggvorbis.ReadAll(bytes.NewReader(data))
	if verr == nil && f != nil && f.Channels > 0 && f.SampleRate > 0 {
		return d.finish(pcm, f.Channels, f.SampleRate), nil
	}

	pcm48, ch, oerr := decodeOpus(bytes.NewReader(data))
	if oerr != nil {
		return nil, fmt.Errorf("cannot decode ogg as Vorbis (%v) or Opus (%w)", verr, oerr)
	}
	return d.finish(pcm48, ch, 48000), nil
}
