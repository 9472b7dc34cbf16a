package ipc

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"murmur/internal/message"
)

func socketPath(t *testing.T) string {
	t.Helper()
	// unix socket paths are short; TempDir can exceed the limit
	dir, err := os.MkdirTemp("", "murmur")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "ctl.sock")
}

func serve(t *testing.T, path string, h Handler) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, path, h) }()

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	require.Eventually(t, func() bool {
		c, err := net.Dial("unix", path)
		if err != nil {
			return false
		}
		c.Close()
		return true
	}, time.Second, 5*time.Millisecond)
}

func TestRoundTrip(t *testing.T) {
	path := socketPath(t)
	serve(t, path, func(_ context.Context, req Request) Response {
		switch req.Cmd {
		case CmdAsk:
			return Response{OK: true, Messages: []message.Message{message.NewText("echo: " + req.Text)}}
		case CmdVoice:
			on := false
			return Response{OK: true, Voice: &on}
		}
		return Fail(errors.New("unknown command " + req.Cmd))
	})

	ctx := context.Background()

	resp, err := Send(ctx, path, Request{Cmd: CmdAsk, Text: "hello"})
	require.NoError(t, err)
	assert.True(t, resp.OK)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "echo: hello", resp.Messages[0].Text())

	resp, err = Send(ctx, path, Request{Cmd: CmdVoice})
	require.NoError(t, err)
	require.NotNil(t, resp.Voice)
	assert.False(t, *resp.Voice)

	resp, err = Send(ctx, path, Request{Cmd: "dance"})
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Equal(t, "unknown command dance", resp.Error)
}

func TestStaleSocketReplaced(t *testing.T) {
	path := socketPath(t)
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	serve(t, path, func(context.Context, Request) Response { return Response{OK: true} })

	resp, err := Send(context.Background(), path, Request{Cmd: CmdStop})
	require.NoError(t, err)
	assert.True(t, resp.OK)
}

func TestBadRequest(t *testing.T) {
	path := socketPath(t)
	serve(t, path, func(context.Context, Request) Response { return Response{OK: true} })

	conn, err := net.Dial("unix", path)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("not json\n"))
	require.NoError(t, err)

	buf := make([]byte, 256)
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Contains(t, string(buf[:n]), "bad request")
}

func TestSendNoDaemon(t *testing.T) {
	_, err := Send(context.Background(), socketPath(t), Request{Cmd: CmdStop})
	assert.Error(t, err)
}
