package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"voxmail/pkg/protocol"
)

func TestParseLine(t *testing.T) {
	f, quit, err := parseLine("  open my inbox ")
	require.NoError(t, err)
	require.False(t, quit)
	require.Equal(t, protocol.Utterance("open my inbox"), *f)

	f, _, _ = parseLine("/mute")
	require.Equal(t, protocol.Mute(true), *f)
	f, _, _ = parseLine("/unmute")
	require.Equal(t, protocol.Mute(false), *f)
	f, _, _ = parseLine("/stop")
	require.Equal(t, protocol.TypeStop, f.Type)

	f, quit, _ = parseLine("/quit")
	require.Nil(t, f)
	require.True(t, quit)

	f, _, err = parseLine("")
	require.NoError(t, err)
	require.Nil(t, f)

	_, _, err = parseLine("/dance")
	require.Error(t, err)
}

func TestParseLine_Audio(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o600))

	f, _, err := parseLine("/audio " + path)
	require.NoError(t, err)
	require.Equal(t, protocol.TypeAudio, f.Type)
	require.Equal(t, "wav", f.Format)
	require.Equal(t, []byte("RIFF"), f.Data)

	_, _, err = parseLine("/audio /does/not/exist.wav")
	require.Error(t, err)
}
