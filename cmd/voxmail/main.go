package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"voxmail/pkg/protocol"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

const help = `Type to talk to the assistant. Commands:
  /stop          stop speaking
  /mute /unmute  toggle spoken replies
  /audio FILE    send a recorded clip (wav, mp3, ogg, opus)
  /quit          leave`

func main() {
	url := cli.StringP("url", "u", "ws://localhost:8093/ws", "Gateway url")
	origin := cli.String("origin", "", "Origin header to send")
	logLevel := cli.StringP("log", "l", "warn", "Log level")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := protocol.Dial(ctx, protocol.ClientConfig{
		URL:     *url,
		Origin:  *origin,
		Reconn:  2 * time.Second,
		OnFrame: printFrame,
	})
	if err != nil {
		log.Error("Failed to connect to gateway", "err", err)
		os.Exit(1)
	}
	defer client.Close()

	go func() {
		_ = client.Run(ctx)
	}()

	fmt.Println(help)
	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			f, quit, err := parseLine(line)
			if quit {
				return
			}
			if err != nil {
				fmt.Println("!", err)
				continue
			}
			if f == nil {
				continue
			}
			if err := client.Send(*f); err != nil {
				log.Error("Failed to send", "err", err)
			}
		}
	}
}

func parseLine(line string) (*protocol.Frame, bool, error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return nil, false, nil
	case line == "/quit":
		return nil, true, nil
	case line == "/stop":
		f := protocol.Stop()
		return &f, false, nil
	case line == "/mute", line == "/unmute":
		f := protocol.Mute(line == "/mute")
		return &f, false, nil
	case strings.HasPrefix(line, "/audio "):
		path := strings.TrimSpace(strings.TrimPrefix(line, "/audio "))
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, false, err
		}
		f := protocol.Audio(strings.TrimPrefix(filepath.Ext(path), "."), data)
		return &f, false, nil
	case strings.HasPrefix(line, "/"):
		return nil, false, fmt.Errorf("unknown command %s", line)
	default:
		f := protocol.Utterance(line)
		return &f, false, nil
	}
}

func printFrame(f protocol.Frame) {
	switch f.Type {
	case protocol.TypeConnected:
		fmt.Printf("-- connected (session %s)\n", f.Session)
		for _, e := range f.History {
			printEntry(e)
		}
	case protocol.TypeEntry:
		printEntry(*f.Entry)
	case protocol.TypeError:
		fmt.Println("!", f.Text)
	}
}

func printEntry(e protocol.Entry) {
	who := "you"
	if e.FromAssistant {
		who = "vox"
	}
	ts := e.Timestamp.Local().Format("15:04")

	if p := e.Preview; p != nil {
		fmt.Printf("[%s] %s: PREVIEW\n        To: %s\n        Subject: %s\n        %s\n", ts, who, p.To, p.Subject, p.Body)
		return
	}
	fmt.Printf("[%s] %s: %s\n", ts, who, e.Text)
}
