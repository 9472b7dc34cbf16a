package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// OutputRate is the rate the speaker runs at; streams in other rates are
// resampled on the way in.
const OutputRate beep.SampleRate = 44100

var (
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(OutputRate, OutputRate.N(time.Second/10))
	})
	return speakerErr
}

// Play blocks until s has been played out or ctx is cancelled. Cancelling
// silences only this stream; anything else on the speaker keeps going.
func Play(ctx context.Context, s beep.Streamer, format beep.Format) error {
	if err := initSpeaker(); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	if format.SampleRate != OutputRate {
		s = beep.Resample(4, format.SampleRate, OutputRate, s)
	}

	done := make(chan struct{})
	ctrl := &beep.Ctrl{Streamer: beep.Seq(s, beep.Callback(func() {
		close(done)
	}))}

	speaker.Play(ctrl)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Lock()
		ctrl.Streamer = nil
		speaker.Unlock()
		return ctx.Err()
	}
}
