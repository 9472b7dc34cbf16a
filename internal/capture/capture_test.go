package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRecorder struct {
	pcm []float32
	err error
}

func (r stubRecorder) Record(context.Context) ([]float32, error) { return r.pcm, r.err }

type stubTranscriber struct {
	text string
	got  []float32
}

func (t *stubTranscriber) Transcribe(_ context.Context, pcm []float32) (string, error) {
	t.got = pcm
	return t.text, nil
}

func TestListen(t *testing.T) {
	tr := &stubTranscriber{text: "tell me a joke"}
	cued := false
	l := NewListener(stubRecorder{pcm: []float32{0.1, 0.2}}, tr, func(context.Context) error {
		cued = true
		return errors.New("no sound card")
	})

	text, err := l.Listen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tell me a joke", text)
	assert.True(t, cued)
	assert.Equal(t, []float32{0.1, 0.2}, tr.got)
}

func TestListenErrors(t *testing.T) {
	_, err := NewListener(nil, &stubTranscriber{}, nil).Listen(context.Background())
	assert.Error(t, err)

	boom := errors.New("device busy")
	_, err = NewListener(stubRecorder{err: boom}, &stubTranscriber{}, nil).Listen(context.Background())
	assert.ErrorIs(t, err, boom)

	_, err = NewListener(stubRecorder{pcm: []float32{1}}, &stubTranscriber{}, nil).Listen(context.Background())
	assert.ErrorIs(t, err, ErrNoSpeech)
}

func TestFromFileBadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memo.txt")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0o644))

	_, err := NewListener(nil, &stubTranscriber{text: "x"}, nil).FromFile(context.Background(), path)
	assert.ErrorContains(t, err, "convert")
}
