// Package ipc is the local control channel: one JSON request and one JSON
// response per unix socket connection.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"time"

	"murmur/internal/message"
)

const SocketPath = "/tmp/murmur.sock"

const (
	CmdAsk     = "ask"
	CmdListen  = "listen"
	CmdStop    = "stop"
	CmdClear   = "clear"
	CmdVoice   = "voice"
	CmdHistory = "history"
)

type Request struct {
	Cmd  string `json:"cmd"`
	Text string `json:"text,omitempty"`
	File string `json:"file,omitempty"`
}

type Response struct {
	OK       bool              `json:"ok"`
	Error    string            `json:"error,omitempty"`
	Heard    string            `json:"heard,omitempty"` // transcript of a listen request
	Messages []message.Message `json:"messages,omitempty"`
	Voice    *bool             `json:"voice,omitempty"`
}

func Fail(err error) Response {
	return Response{Error: err.Error()}
}

type Handler func(ctx context.Context, req Request) Response

// Serve accepts connections on path until ctx is done. A stale socket file
// from a previous run is removed first.
func Serve(ctx context.Context, path string, h Handler) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "unix", path)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	log.Info("Control socket listening", "path", path)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("Failed to accept control connection", "err", err)
			continue
		}
		go handleConn(ctx, conn, h)
	}
}

func handleConn(ctx context.Context, conn net.Conn, h Handler) {
	defer conn.Close()

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		log.Warn("Bad control request", "err", err)
		_ = json.NewEncoder(conn).Encode(Fail(fmt.Errorf("bad request: %w", err)))
		return
	}

	log.Debug("Control request", "cmd", req.Cmd)

	if err := json.NewEncoder(conn).Encode(h(ctx, req)); err != nil {
		log.Warn("Failed to write control response", "cmd", req.Cmd, "err", err)
	}
}

// Send delivers req to the daemon at path and waits for its response.
func Send(ctx context.Context, path string, req Request) (Response, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(5 * time.Minute))
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("send: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}
