package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	cli "github.com/spf13/pflag"

	"murmur/internal/feed"
	"murmur/internal/ipc"
	"murmur/internal/message"
)

const usage = `usage: murmur-ctl [flags] <command> [args]

commands:
  ask <text>          send an utterance, print the replies
  listen [--file f]   capture from the microphone (or transcribe f) and ask
  stop                stop speaking
  clear               clear chat history
  voice               toggle voice output
  history             print the conversation
  watch               follow the live feed

flags:`

func main() {
	socket := cli.StringP("socket", "s", ipc.SocketPath, "Control socket path")
	feedAddr := cli.String("feed", "127.0.0.1:8093", "Feed address for watch")
	file := cli.StringP("file", "f", "", "Audio file for listen")
	cli.Usage = func() {
		fmt.Fprintln(os.Stderr, usage)
		cli.PrintDefaults()
	}
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		cli.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	if args[0] == "watch" {
		err = watch(ctx, "ws://"+*feedAddr+feed.Path)
	} else {
		err = send(ctx, *socket, args[0], strings.Join(args[1:], " "), *file)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "murmur-ctl:", err)
		os.Exit(1)
	}
}

func send(ctx context.Context, socket, cmd, text, file string) error {
	req := ipc.Request{Cmd: cmd, Text: text}
	if cmd == ipc.CmdListen {
		req.File = file
	}

	resp, err := ipc.Send(ctx, socket, req)
	if err != nil {
		return fmt.Errorf("murmur not running: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("%s", resp.Error)
	}

	if resp.Heard != "" {
		fmt.Println("you said: " + resp.Heard)
	}
	if resp.Voice != nil {
		if *resp.Voice {
			fmt.Println("🔊 voice on")
		} else {
			fmt.Println("🔇 voice off")
		}
	}
	for _, m := range resp.Messages {
		printMessage(m)
	}
	return nil
}

func watch(ctx context.Context, url string) error {
	c, err := feed.Dial(ctx, url)
	if err != nil {
		return err
	}
	defer c.Close()

	go func() {
		<-ctx.Done()
		c.Close()
	}()

	for {
		ev, err := c.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		switch ev.Type {
		case feed.EventSnapshot:
			for _, m := range ev.Messages {
				printMessage(m)
			}
		case feed.EventAppend:
			if ev.Message != nil {
				printMessage(*ev.Message)
			}
		case feed.EventClear:
			fmt.Println("── history cleared ──")
		case feed.EventBusy:
			if ev.Busy {
				fmt.Println("Assistant is typing...")
			}
		}
	}
}

func printMessage(m message.Message) {
	who := "murmur"
	if m.IsUser {
		who = "you"
	}
	fmt.Printf("%s › %s\n", who, message.Render(m))
}
