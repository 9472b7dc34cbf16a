// Package capture turns speech into an utterance string for the assistant.
package capture

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"murmur/pkg/audioconv"
)

var ErrNoSpeech = errors.New("no speech recognized")

type Recorder interface {
	Record(ctx context.Context) ([]float32, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, pcm []float32) (string, error)
}

type Listener struct {
	rec    Recorder
	tr     Transcriber
	cue    func(ctx context.Context) error
	maxLen time.Duration
}

// NewListener wires a microphone recorder and a transcriber. rec may be nil
// when only files are transcribed; cue plays before recording and may be nil.
func NewListener(rec Recorder, tr Transcriber, cue func(context.Context) error) *Listener {
	return &Listener{
		rec:    rec,
		tr:     tr,
		cue:    cue,
		maxLen: 30 * time.Second,
	}
}

// Listen records one utterance from the microphone and transcribes it.
func (l *Listener) Listen(ctx context.Context) (string, error) {
	if l.rec == nil {
		return "", errors.New("no microphone configured")
	}

	if l.cue != nil {
		if err := l.cue(ctx); err != nil {
			log.Warn("Failed to play listening cue", "err", err)
		}
	}

	log.Info("Listening")

	pcm, err := l.rec.Record(ctx)
	if err != nil {
		return "", fmt.Errorf("record: %w", err)
	}

	log.Debug("Recorded", "samples", len(pcm))
	return l.transcribe(ctx, pcm)
}

// FromFile transcribes a wav/mp3/ogg recording.
func (l *Listener) FromFile(ctx context.Context, path string) (string, error) {
	pcm, err := audioconv.File(ctx, path, int(l.maxLen.Seconds())*audioconv.TargetRate)
	if err != nil {
		return "", fmt.Errorf("convert: %w", err)
	}
	return l.transcribe(ctx, pcm)
}

func (l *Listener) transcribe(ctx context.Context, pcm []float32) (string, error) {
	text, err := l.tr.Transcribe(ctx, pcm)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	if text == "" {
		return "", ErrNoSpeech
	}

	log.Info("Transcribed", "text", text)
	return text, nil
}
