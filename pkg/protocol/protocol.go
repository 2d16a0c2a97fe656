package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type FrameType string

// Server to client.
const (
	TypeConnected FrameType = "connected"
	TypeEntry     FrameType = "entry"
	TypeError     FrameType = "error"
)

// Client to server.
const (
	TypeUtterance FrameType = "utterance"
	TypeAudio     FrameType = "audio"
	TypeStop      FrameType = "stop"
	TypeMute      FrameType = "mute"
)

type Preview struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Entry struct {
	ID            string    `json:"id"`
	Text          string    `json:"text"`
	Preview       *Preview  `json:"preview,omitempty"`
	FromAssistant bool      `json:"from_assistant"`
	Timestamp     time.Time `json:"timestamp"`
}

// Frame is one websocket text message.
type Frame struct {
	Type FrameType `json:"type"`

	Session string  `json:"session,omitempty"`
	History []Entry `json:"history,omitempty"`
	Entry   *Entry  `json:"entry,omitempty"`

	Text string `json:"text,omitempty"`
	On   bool   `json:"on,omitempty"`

	// Format names the clip container ("wav", "mp3", "ogg", "opus").
	Format string `json:"format,omitempty"`
	Data   []byte `json:"data,omitempty"`
}

func Utterance(text string) Frame { return Frame{Type: TypeUtterance, Text: text} }

func Audio(format string, data []byte) Frame {
	return Frame{Type: TypeAudio, Format: format, Data: data}
}

func Stop() Frame { return Frame{Type: TypeStop} }

func Mute(on bool) Frame { return Frame{Type: TypeMute, On: on} }

func Error(text string) Frame { return Frame{Type: TypeError, Text: text} }

func Encode(f Frame) ([]byte, error) {
	if f.Type == "" {
		return nil, errors.New("frame type is empty")
	}
	return json.Marshal(f)
}

func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}

	switch f.Type {
	case TypeConnected, TypeError, TypeStop, TypeMute:
	case TypeEntry:
		if f.Entry == nil {
			return Frame{}, errors.New("entry frame without entry")
		}
	case TypeUtterance:
		if f.Text == "" {
			return Frame{}, errors.New("utterance frame without text")
		}
	case TypeAudio:
		if len(f.Data) == 0 {
			return Frame{}, errors.New("audio frame without data")
		}
	default:
		return Frame{}, fmt.Errorf("unknown frame type %q", f.Type)
	}
	return f, nil
}
