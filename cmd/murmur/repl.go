package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"murmur/internal/assistant"
	"murmur/internal/capture"
	"murmur/internal/message"
)

var errQuit = errors.New("quit")

// quick mirrors the shortcut buttons: each expands to a canned utterance.
var quick = map[string]string{
	"/weather": "Weather in Delhi",
	"/news":    "news",
	"/joke":    "tell me a joke",
	"/clock":   "Show me digital clock",
}

const help = `commands:
  /weather /news /joke /clock   quick requests
  /listen                       speak instead of typing
  /voice                        toggle voice output
  /stop                         stop speaking
  /clear                        clear chat history
  /history                      print the conversation
  /quit                         exit`

func repl(ctx context.Context, a *assistant.Assistant, l *capture.Listener, restored []message.Message) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "you › ",
		HistoryFile:     filepath.Join(os.TempDir(), "murmur.history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "/quit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("/weather"),
			readline.PcItem("/news"),
			readline.PcItem("/joke"),
			readline.PcItem("/clock"),
			readline.PcItem("/listen"),
			readline.PcItem("/voice"),
			readline.PcItem("/stop"),
			readline.PcItem("/clear"),
			readline.PcItem("/history"),
			readline.PcItem("/quit"),
		),
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	out := rl.Stdout()
	printAll(out, restored)
	fmt.Fprintln(out, "type /help for commands")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return errQuit
			}
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return errQuit
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := command(ctx, out, a, l, line); err != nil {
			return err
		}
	}
}

func command(ctx context.Context, out io.Writer, a *assistant.Assistant, l *capture.Listener, line string) error {
	if utterance, ok := quick[line]; ok {
		ask(ctx, out, a, utterance)
		return nil
	}

	switch line {
	case "/quit", "/exit":
		return errQuit
	case "/help":
		fmt.Fprintln(out, help)
	case "/voice":
		if a.ToggleVoice() {
			fmt.Fprintln(out, "🔊 voice on")
		} else {
			fmt.Fprintln(out, "🔇 voice off")
		}
	case "/stop":
		a.StopSpeaking()
	case "/clear":
		a.Clear()
		fmt.Fprintln(out, "history cleared")
	case "/history":
		printAll(out, a.History())
	case "/listen":
		if l == nil {
			fmt.Fprintln(out, "voice capture is not configured (set MURMUR_WHISPER_MODEL)")
			return nil
		}
		text, err := l.Listen(ctx)
		if err != nil {
			fmt.Fprintln(out, "⚠ "+err.Error())
			return nil
		}
		fmt.Fprintln(out, "you said: "+text)
		ask(ctx, out, a, text)
	default:
		if strings.HasPrefix(line, "/") {
			fmt.Fprintln(out, "unknown command, try /help")
			return nil
		}
		ask(ctx, out, a, line)
	}
	return nil
}

func ask(ctx context.Context, out io.Writer, a *assistant.Assistant, text string) {
	fmt.Fprintln(out, "Assistant is typing...")
	printAll(out, a.Handle(ctx, text))
}

func printAll(out io.Writer, msgs []message.Message) {
	for _, m := range msgs {
		who := "murmur"
		if m.IsUser {
			who = "you"
		}
		fmt.Fprintf(out, "%s › %s\n", who, message.Render(m))
	}
}
