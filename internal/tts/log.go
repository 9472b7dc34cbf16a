package tts

import (
	"context"
	log "log/slog"
)

// LogEngine writes utterances to the log instead of a sound card.
type LogEngine struct {
	ready chan struct{}
}

func NewLogEngine() *LogEngine {
	ready := make(chan struct{})
	close(ready)
	return &LogEngine{ready: ready}
}

func (e *LogEngine) Voices() []Voice {
	return []Voice{{Name: "log"}}
}

func (e *LogEngine) Ready() <-chan struct{} {
	return e.ready
}

func (e *LogEngine) Say(ctx context.Context, v Voice, text string, _ Prosody) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Info("Speaking", "voice", v.Name, "text", text)
	return nil
}
