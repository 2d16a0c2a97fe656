package ipc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func shortSocket(t *testing.T) string {
	t.Helper()
	// unix socket paths are limited to ~100 bytes, t.TempDir can exceed that
	dir, err := os.MkdirTemp("", "vm")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "ctl.sock")
}

func TestSendAndServe(t *testing.T) {
	path := shortSocket(t)

	var (
		mu  sync.Mutex
		got []ControlMessage
	)
	srv, err := Listen(path, func(_ context.Context, msg ControlMessage) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, msg)
		if msg.Cmd == "bogus" {
			return errors.New("unknown command")
		}
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	require.NoError(t, Send(context.Background(), path, ControlMessage{Cmd: CmdSay, Text: "open my inbox"}))
	require.NoError(t, Send(context.Background(), path, ControlMessage{Cmd: CmdStop}))
	require.EqualError(t, Send(context.Background(), path, ControlMessage{Cmd: "bogus"}), "unknown command")

	mu.Lock()
	require.Equal(t, []ControlMessage{
		{Cmd: CmdSay, Text: "open my inbox"},
		{Cmd: CmdStop},
		{Cmd: "bogus"},
	}, got)
	mu.Unlock()

	cancel()
	require.NoError(t, <-done)
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestSend_NoDaemon(t *testing.T) {
	err := Send(context.Background(), shortSocket(t), ControlMessage{Cmd: CmdTrigger})
	require.Error(t, err)
}

func TestListen_ReplacesStaleSocket(t *testing.T) {
	path := shortSocket(t)
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	srv, err := Listen(path, func(context.Context, ControlMessage) error { return nil })
	require.NoError(t, err)
	require.NoError(t, srv.Close())
}
