package audio

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

// SampleRate is what the transcriber expects.
const SampleRate = 16000

type RecorderOptions struct {
	SilenceRMS float64       // frames below this count as silence
	Silence    time.Duration // trailing silence that ends an utterance
	MaxLength  time.Duration
}

func DefaultRecorderOptions() RecorderOptions {
	return RecorderOptions{
		SilenceRMS: 0.015,
		Silence:    600 * time.Millisecond,
		MaxLength:  10 * time.Second,
	}
}

type Recorder struct {
	opt RecorderOptions
}

func NewRecorder(opt RecorderOptions) *Recorder {
	return &Recorder{opt: opt}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Record captures one spoken utterance from the default input device: it
// waits for speech, then stops after a stretch of silence or MaxLength.
func (r *Recorder) Record(ctx context.Context) ([]float32, error) {
	const frameSize = 320 // 20ms at 16kHz
	frameDur := time.Second * frameSize / SampleRate

	buf := make([]float32, frameSize)
	out := make([]float32, 0, SampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	var (
		speaking bool
		silent   time.Duration
	)

	maxFrames := int(r.opt.MaxLength / frameDur)

	for i := 0; i < maxFrames; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil {
			return nil, err
		}

		if frameRMS(buf) > r.opt.SilenceRMS {
			speaking = true
			silent = 0
			out = append(out, buf...)
			continue
		}

		if speaking {
			silent += frameDur
			if silent >= r.opt.Silence {
				break
			}
			out = append(out, buf...)
		}
	}

	if len(out) == 0 {
		return nil, errors.New("no speech recorded")
	}

	return out, nil
}

func frameRMS(f []float32) float64 {
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
