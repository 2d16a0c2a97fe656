package audio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const pactlOutput = `Sink Input #41
	Driver: protocol-native.c
	Volume: front-left: 52428 /  80% / -5.81 dB,   front-right: 52428 /  80% / -5.81 dB
	Properties:
		application.name = "Firefox"
Sink Input #57
	Driver: protocol-native.c
	Volume: mono: 65536 / 100% / 0.00 dB
	Properties:
		application.name = "voxmail"
Sink Input #broken
	Volume: mono: 65536 / 100% / 0.00 dB
`

func TestParseSinkInputs(t *testing.T) {
	streams := parseSinkInputs(pactlOutput)
	require.Equal(t, []streamInfo{
		{ID: 41, Volume: 80, AppName: "Firefox"},
		{ID: 57, Volume: 100, AppName: "voxmail"},
	}, streams)

	require.Empty(t, parseSinkInputs(""))
}

func TestDucker_SelfStreams(t *testing.T) {
	d := NewDucker([]string{"voxmail"}, -5)
	require.Equal(t, 0, d.minVolume)
	require.True(t, d.isSelfStream(streamInfo{AppName: "voxmail"}))
	require.False(t, d.isSelfStream(streamInfo{AppName: "Firefox"}))
}

func TestClampVolume(t *testing.T) {
	require.Equal(t, 0, clampVolume(-3))
	require.Equal(t, 150, clampVolume(400))
	require.Equal(t, 70, clampVolume(70))
}
