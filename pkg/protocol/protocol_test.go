package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecode_Validation(t *testing.T) {
	cases := map[string]string{
		"not json":           `{`,
		"unknown type":       `{"type":"shout"}`,
		"empty utterance":    `{"type":"utterance"}`,
		"audio without data": `{"type":"audio","format":"wav"}`,
		"entry without body": `{"type":"entry"}`,
	}
	for name, in := range cases {
		_, err := Decode([]byte(in))
		require.Error(t, err, name)
	}
}

func TestAudioFrameCarriesBase64(t *testing.T) {
	data, err := Encode(Audio("wav", []byte{0x52, 0x49, 0x46, 0x46}))
	require.NoError(t, err)
	require.Contains(t, string(data), `"data":"UklGRg=="`)

	f, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, []byte("RIFF"), f.Data)
	require.Equal(t, "wav", f.Format)
}

func TestEncode_RequiresType(t *testing.T) {
	_, err := Encode(Frame{Text: "hi"})
	require.Error(t, err)
}

func TestMuteFrame(t *testing.T) {
	data, err := Encode(Mute(true))
	require.NoError(t, err)

	f, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, TypeMute, f.Type)
	require.True(t, f.On)
}
