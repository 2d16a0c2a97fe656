package main

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"voxmail/internal/audio"
	"voxmail/internal/config"
	"voxmail/internal/mailstore"
	"voxmail/internal/nlu"
	"voxmail/internal/notify"
	"voxmail/internal/secrets"
	"voxmail/internal/speech"
	"voxmail/internal/tts"
	"voxmail/pkg/audioconv"
	"voxmail/pkg/stt"
)

const (
	duckFactor = 0.3
	duckFade   = 200 * time.Millisecond
)

func newSecretSource(ctx context.Context, cfg config.Config) (secrets.Source, error) {
	src := secrets.Source{Getenv: os.Getenv, Prefix: cfg.SSMPrefix}
	if cfg.SSMPrefix == "" {
		return src, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return secrets.Source{}, fmt.Errorf("load aws config: %w", err)
	}
	params, err := secrets.NewParamStore(ssm.NewFromConfig(awsCfg))
	if err != nil {
		return secrets.Source{}, err
	}
	src.Params = params
	return src, nil
}

func newStore(ctx context.Context, cfg config.Config) (mailstore.Store, func(), error) {
	switch cfg.MailBackend {
	case "firestore":
		fs, err := mailstore.NewFirestore(ctx, cfg.GCPProject)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() { fs.Close() }, nil
	default:
		return mailstore.NewMemory(), func() {}, nil
	}
}

func newOpenAI(ctx context.Context, keys secrets.Source, httpClient *http.Client) (openai.Client, error) {
	apiKey, err := keys.Get(ctx, "OPENAI_API_KEY", "openai_api_key")
	if err != nil {
		return openai.Client{}, err
	}
	return openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
	), nil
}

func newResolver(ctx context.Context, cfg config.Config, keys secrets.Source, httpClient *http.Client) (nlu.Resolver, error) {
	switch cfg.Resolver {
	case "openai":
		client, err := newOpenAI(ctx, keys, httpClient)
		if err != nil {
			return nil, err
		}
		return nlu.NewOpenAI(client, cfg.OpenAIModel), nil
	default:
		apiKey, err := keys.Get(ctx, "GEMINI_API_KEY", "gemini_api_key")
		if err != nil && !errors.Is(err, secrets.ErrMissing) {
			return nil, err
		}
		return nlu.NewGemini(ctx, nlu.GeminiConfig{
			APIKey:     apiKey,
			Project:    cfg.GCPProject,
			Location:   cfg.GCPLocation,
			Model:      cfg.GeminiModel,
			HTTPClient: httpClient,
		})
	}
}

type speechKit struct {
	Output speech.Output
	Input  speech.Input
	Clips  *speech.Clips

	closers []func()
}

func (k *speechKit) Close() {
	for i := len(k.closers) - 1; i >= 0; i-- {
		k.closers[i]()
	}
}

// newSpeech picks the input and output strategies for cfg.Speech. lang
// reports the controller's current language to the microphone.
func newSpeech(ctx context.Context, cfg config.Config, keys secrets.Source, httpClient *http.Client, lang func() string) (*speechKit, error) {
	kit := &speechKit{Input: speech.Unavailable{}}
	player := notify.NewPlayer(cfg.EarconPath)

	var out speech.Output
	switch cfg.Speech {
	case speech.ModeText:
		out = speech.Silent{}

	case speech.ModeLocal:
		es, err := tts.NewEspeak()
		if err != nil {
			return nil, err
		}
		out = es

	case speech.ModeRemote:
		client, err := newOpenAI(ctx, keys, httpClient)
		if err != nil {
			return nil, err
		}
		var local speech.Output = speech.Silent{}
		if es, err := tts.NewEspeak(); err != nil {
			log.Warn("Local synthesis unavailable, remote speech has no fallback", "err", err)
		} else {
			local = es
		}
		out = speech.Fallback{Primary: tts.NewRemote(client, cfg.TTSVoice, player), Secondary: local}
	}

	if cfg.Speech != speech.ModeText {
		if cfg.EarconPath != "" {
			out = speech.WithEarcon(out, player)
		}
		if cfg.Ducking {
			out = speech.WithDucking(out, audio.NewDucker([]string{"voxmail", "espeak"}, 10), duckFactor, duckFade)
		}
	}
	kit.Output = speech.NewCancellable(out)

	if cfg.WhisperModel == "" {
		log.Info("No whisper model configured, speech input disabled")
		return kit, nil
	}

	whisper, err := stt.NewTranscriber(cfg.WhisperModel, "")
	if err != nil {
		return nil, fmt.Errorf("load whisper: %w", err)
	}
	kit.closers = append(kit.closers, func() { whisper.Close() })
	kit.Clips = &speech.Clips{Decoder: audioconv.Decoder{}, Transcriber: whisper}

	if cfg.Speech == speech.ModeText {
		return kit, nil
	}

	rec := audio.NewRecorder(audio.RecorderOptions{})
	if err := rec.Init(); err != nil {
		log.Warn("Failed to init audio, microphone disabled", "err", err)
		return kit, nil
	}
	kit.closers = append(kit.closers, rec.Close)
	kit.Input = &speech.Microphone{Recorder: rec, Transcriber: whisper, Lang: lang}
	return kit, nil
}
