package notify

import (
	"context"
	"fmt"
	"os"

	"github.com/faiface/beep/mp3"

	"murmur/internal/audio"
)

// Beep plays the mp3 at path and waits for it to finish. An empty path is a
// no-op so the cue can be switched off from configuration.
func Beep(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open beep: %w", err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode beep: %w", err)
	}
	defer streamer.Close()

	return audio.Play(ctx, streamer, format)
}
