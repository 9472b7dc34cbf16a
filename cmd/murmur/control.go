package main

import (
	"context"
	"errors"
	"fmt"

	"murmur/internal/assistant"
	"murmur/internal/capture"
	"murmur/internal/ipc"
)

type control struct {
	a        *assistant.Assistant
	listener *capture.Listener
}

func (c *control) handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Cmd {
	case ipc.CmdAsk:
		if req.Text == "" {
			return ipc.Fail(errors.New("nothing to ask"))
		}
		return ipc.Response{OK: true, Messages: c.a.Handle(ctx, req.Text)}

	case ipc.CmdListen:
		if c.listener == nil {
			return ipc.Fail(errors.New("voice capture is not configured"))
		}

		var (
			text string
			err  error
		)
		if req.File != "" {
			text, err = c.listener.FromFile(ctx, req.File)
		} else {
			text, err = c.listener.Listen(ctx)
		}
		if err != nil {
			return ipc.Fail(err)
		}
		return ipc.Response{OK: true, Heard: text, Messages: c.a.Handle(ctx, text)}

	case ipc.CmdStop:
		c.a.StopSpeaking()
		return ipc.Response{OK: true}

	case ipc.CmdClear:
		c.a.Clear()
		return ipc.Response{OK: true}

	case ipc.CmdVoice:
		on := c.a.ToggleVoice()
		return ipc.Response{OK: true, Voice: &on}

	case ipc.CmdHistory:
		return ipc.Response{OK: true, Messages: c.a.History()}
	}

	return ipc.Fail(fmt.Errorf("unknown command %q", req.Cmd))
}
