package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	cli "github.com/spf13/pflag"

	"voxmail/internal/ipc"
)

func main() {
	socket := cli.String("socket", "", "Control socket path")
	cli.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: voxmail-ctl [--socket PATH] trigger | say TEXT... | stop | mute | unmute")
		cli.PrintDefaults()
	}
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		cli.Usage()
		os.Exit(2)
	}

	msg := ipc.ControlMessage{Cmd: args[0]}
	if msg.Cmd == ipc.CmdSay {
		msg.Text = strings.Join(args[1:], " ")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := ipc.Send(ctx, *socket, msg); err != nil {
		fmt.Fprintln(os.Stderr, "voxmail-daemon:", err)
		os.Exit(1)
	}
}
