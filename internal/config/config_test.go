package config

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"voxmail/internal/speech"
)

func mapEnv(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(mapEnv(nil))
	require.NoError(t, err)
	require.Equal(t, "local", c.UserUID)
	require.Equal(t, "memory", c.MailBackend)
	require.Equal(t, "gemini", c.Resolver)
	require.Equal(t, speech.ModeText, c.Speech)
	require.Equal(t, "en-US", c.Language)
	require.Equal(t, 24*time.Hour, c.SessionTTL)
	require.Equal(t, time.Minute, c.TurnTimeout)
	require.Empty(t, c.AllowedOrigins)
}

func TestLoad_FromProcessEnv(t *testing.T) {
	t.Setenv("VOXMAIL_MAIL_BACKEND", "Firestore")
	t.Setenv("VOXMAIL_GCP_PROJECT", "voxmail-dev")
	t.Setenv("VOXMAIL_SPEECH", "remote")
	t.Setenv("VOXMAIL_ALLOWED_ORIGINS", "http://localhost:3000, https://mail.example.com ,")
	t.Setenv("VOXMAIL_LANGUAGE", "kn-IN")

	c, err := Load(os.Getenv)
	require.NoError(t, err)
	require.Equal(t, "firestore", c.MailBackend)
	require.Equal(t, speech.ModeRemote, c.Speech)
	require.Equal(t, []string{"http://localhost:3000", "https://mail.example.com"}, c.AllowedOrigins)
	require.Equal(t, "kn-IN", c.Language)
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		env map[string]string
		key string
	}{
		{map[string]string{"VOXMAIL_MAIL_BACKEND": "firestore"}, "VOXMAIL_GCP_PROJECT"},
		{map[string]string{"VOXMAIL_MAIL_BACKEND": "dynamo"}, "VOXMAIL_MAIL_BACKEND"},
		{map[string]string{"VOXMAIL_RESOLVER": "llama"}, "VOXMAIL_RESOLVER"},
		{map[string]string{"VOXMAIL_SPEECH": "duplex"}, "VOXMAIL_SPEECH"},
		{map[string]string{"VOXMAIL_LANGUAGE": "fr-FR"}, "VOXMAIL_LANGUAGE"},
		{map[string]string{"VOXMAIL_SESSION_TTL": "-1h"}, "VOXMAIL_SESSION_TTL"},
		{map[string]string{"VOXMAIL_REDIS_DB": "x"}, "VOXMAIL_REDIS_DB"},
		{map[string]string{"VOXMAIL_DUCKING": "maybe"}, "VOXMAIL_DUCKING"},
	}
	for _, tc := range cases {
		_, err := Load(mapEnv(tc.env))
		require.Error(t, err, "env=%v", tc.env)

		var cerr *Error
		require.True(t, errors.As(err, &cerr), "env=%v", tc.env)
		require.Equal(t, tc.key, cerr.Key)
	}
}
