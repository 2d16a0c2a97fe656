package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"

	openai "github.com/openai/openai-go/v3"

	"voxmail/internal/speech"
)

type Player interface {
	PlayMP3(ctx context.Context, rc io.ReadCloser) error
	Stop()
}

// Remote synthesises speech with the OpenAI audio API and plays the mp3.
type Remote struct {
	client openai.Client
	model  openai.SpeechModel
	voice  string
	player Player
}

func NewRemote(client openai.Client, voice string, player Player) *Remote {
	if voice == "" {
		voice = "alloy"
	}
	return &Remote{
		client: client,
		model:  openai.SpeechModelGPT4oMiniTTS,
		voice:  voice,
		player: player,
	}
}

func (r *Remote) Speak(ctx context.Context, text, lang string) error {
	if text == "" {
		return nil
	}

	params := openai.AudioSpeechNewParams{
		Input:          text,
		Model:          r.model,
		Voice:          openai.AudioSpeechNewParamsVoice(r.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	}
	if lang != "" {
		params.Instructions = openai.String(fmt.Sprintf("Speak naturally in the language with tag %s.", lang))
	}

	resp, err := r.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return fmt.Errorf("speech request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("speech request: status %d", resp.StatusCode)
	}

	if err := r.player.PlayMP3(ctx, resp.Body); err != nil {
		return fmt.Errorf("%w: %w", speech.ErrPlaybackStarted, err)
	}
	return nil
}

func (r *Remote) Stop() {
	r.player.Stop()
}
