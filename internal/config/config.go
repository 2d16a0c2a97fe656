package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"voxmail/internal/nlu"
	"voxmail/internal/speech"
)

type Error struct {
	Key    string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Key, e.Reason)
}

type Config struct {
	UserUID   string
	UserName  string
	UserEmail string
	Username  string

	// MailBackend is "memory" or "firestore".
	MailBackend string
	GCPProject  string
	GCPLocation string

	// Resolver is "gemini" or "openai".
	Resolver    string
	GeminiModel string
	OpenAIModel string

	Speech       speech.Mode
	TTSVoice     string
	EarconPath   string
	WhisperModel string
	Ducking      bool
	Language     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SessionTTL    time.Duration

	ListenAddr     string
	AllowedOrigins []string

	SSMPrefix   string
	TurnTimeout time.Duration
}

// Load reads VOXMAIL_* variables through getenv, usually os.Getenv after the
// env file was loaded.
func Load(getenv func(string) string) (Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	c := Config{
		UserUID:       env("VOXMAIL_USER_UID", "local"),
		UserName:      env("VOXMAIL_USER_NAME", ""),
		UserEmail:     env("VOXMAIL_USER_EMAIL", ""),
		Username:      env("VOXMAIL_USERNAME", ""),
		MailBackend:   strings.ToLower(env("VOXMAIL_MAIL_BACKEND", "memory")),
		GCPProject:    env("VOXMAIL_GCP_PROJECT", ""),
		GCPLocation:   env("VOXMAIL_GCP_LOCATION", ""),
		Resolver:      strings.ToLower(env("VOXMAIL_RESOLVER", "gemini")),
		GeminiModel:   env("VOXMAIL_GEMINI_MODEL", nlu.DefaultGeminiModel),
		OpenAIModel:   env("VOXMAIL_OPENAI_MODEL", ""),
		TTSVoice:      env("VOXMAIL_TTS_VOICE", "alloy"),
		EarconPath:    env("VOXMAIL_EARCON", ""),
		WhisperModel:  env("VOXMAIL_WHISPER_MODEL", ""),
		Language:      env("VOXMAIL_LANGUAGE", "en-US"),
		RedisAddr:     env("VOXMAIL_REDIS_ADDR", ""),
		RedisPassword: env("VOXMAIL_REDIS_PASSWORD", ""),
		ListenAddr:    env("VOXMAIL_LISTEN", ""),
		SSMPrefix:     env("VOXMAIL_SSM_PREFIX", ""),
	}

	var err error
	if c.Speech, err = speech.ParseMode(env("VOXMAIL_SPEECH", "text")); err != nil {
		return Config{}, &Error{Key: "VOXMAIL_SPEECH", Reason: err.Error()}
	}
	if c.Ducking, err = parseBool("VOXMAIL_DUCKING", env("VOXMAIL_DUCKING", "false")); err != nil {
		return Config{}, err
	}
	if c.RedisDB, err = parseInt("VOXMAIL_REDIS_DB", env("VOXMAIL_REDIS_DB", "0")); err != nil {
		return Config{}, err
	}
	if c.SessionTTL, err = parseDuration("VOXMAIL_SESSION_TTL", env("VOXMAIL_SESSION_TTL", "24h")); err != nil {
		return Config{}, err
	}
	if c.TurnTimeout, err = parseDuration("VOXMAIL_TURN_TIMEOUT", env("VOXMAIL_TURN_TIMEOUT", "60s")); err != nil {
		return Config{}, err
	}
	for _, o := range strings.Split(env("VOXMAIL_ALLOWED_ORIGINS", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			c.AllowedOrigins = append(c.AllowedOrigins, o)
		}
	}

	return c, c.Validate()
}

func (c Config) Validate() error {
	switch c.MailBackend {
	case "memory":
	case "firestore":
		if c.GCPProject == "" {
			return &Error{Key: "VOXMAIL_GCP_PROJECT", Reason: "required for the firestore backend"}
		}
	default:
		return &Error{Key: "VOXMAIL_MAIL_BACKEND", Reason: fmt.Sprintf("unknown backend %q", c.MailBackend)}
	}

	switch c.Resolver {
	case "gemini", "openai":
	default:
		return &Error{Key: "VOXMAIL_RESOLVER", Reason: fmt.Sprintf("unknown resolver %q", c.Resolver)}
	}

	if _, ok := nlu.LanguageByCode(c.Language); !ok {
		return &Error{Key: "VOXMAIL_LANGUAGE", Reason: fmt.Sprintf("unsupported language %q", c.Language)}
	}
	if c.UserUID == "" {
		return &Error{Key: "VOXMAIL_USER_UID", Reason: "must not be empty"}
	}
	return nil
}

func parseBool(key, v string) (bool, error) {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, &Error{Key: key, Reason: err.Error()}
	}
	return b, nil
}

func parseInt(key, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, &Error{Key: key, Reason: fmt.Sprintf("want a non-negative integer, got %q", v)}
	}
	return n, nil
}

func parseDuration(key, v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, &Error{Key: key, Reason: fmt.Sprintf("want a positive duration, got %q", v)}
	}
	return d, nil
}
