package audio

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

const maxVolume = 150

type sinkInput struct {
	ID      int
	Volume  int
	AppName string
}

type fade struct {
	id       int
	from, to int
}

// Ducker lowers the volume of every PulseAudio sink input that does not
// belong to us while an utterance plays, and brings it back afterwards.
type Ducker struct {
	mu       sync.Mutex
	active   bool
	selfApps []string
	original map[int]int

	factor    float64
	minVolume int
	fadeTime  time.Duration

	pactl func(ctx context.Context, args ...string) ([]byte, error)
}

// DefaultDucker lowers everything but murmur itself to 30%, never below 10%.
func DefaultDucker() *Ducker {
	return NewDucker([]string{"murmur"}, 0.3, 10, 300*time.Millisecond)
}

func NewDucker(selfApps []string, factor float64, minVolume int, fadeTime time.Duration) *Ducker {
	if minVolume < 0 {
		minVolume = 0
	}
	if minVolume > maxVolume {
		minVolume = maxVolume
	}

	return &Ducker{
		selfApps:  append([]string(nil), selfApps...),
		original:  make(map[int]int),
		factor:    factor,
		minVolume: minVolume,
		fadeTime:  fadeTime,
		pactl:     runPactl,
	}
}

func runPactl(ctx context.Context, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, "pactl", args...).Output()
}

// Duck fades foreign streams down to factor of their volume. A second call
// before Restore is a no-op.
func (d *Ducker) Duck(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return nil
	}

	inputs, err := d.list(ctx)
	if err != nil {
		return err
	}

	d.original = make(map[int]int)
	var fades []fade

	for _, in := range inputs {
		if d.isSelf(in) {
			continue
		}
		to := int(math.Round(float64(in.Volume) * d.factor))
		to = max(to, d.minVolume)
		to = min(to, maxVolume)

		d.original[in.ID] = in.Volume
		fades = append(fades, fade{id: in.ID, from: in.Volume, to: to})
	}

	if err := d.apply(ctx, fades); err != nil {
		return err
	}

	d.active = true
	return nil
}

// Restore fades ducked streams back to the volume they had. Streams that
// appeared after Duck are left alone.
func (d *Ducker) Restore(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}

	inputs, err := d.list(ctx)
	if err != nil {
		return err
	}

	var fades []fade
	for _, in := range inputs {
		orig, ok := d.original[in.ID]
		if !ok || d.isSelf(in) {
			continue
		}
		fades = append(fades, fade{id: in.ID, from: in.Volume, to: orig})
	}

	if err := d.apply(ctx, fades); err != nil {
		return err
	}

	d.original = make(map[int]int)
	d.active = false
	return nil
}

func (d *Ducker) isSelf(in sinkInput) bool {
	for _, name := range d.selfApps {
		if strings.Contains(strings.ToLower(in.AppName), strings.ToLower(name)) {
			return true
		}
	}
	return false
}

func (d *Ducker) apply(ctx context.Context, fades []fade) error {
	if len(fades) == 0 {
		return nil
	}

	const minStep = 10 * time.Millisecond

	steps := int(d.fadeTime / minStep)
	if steps < 1 {
		steps = 1
	}
	stepDur := d.fadeTime / time.Duration(steps)

	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		frac := float64(i) / float64(steps)
		for _, f := range fades {
			v := int(math.Round(float64(f.from) + float64(f.to-f.from)*frac))
			if err := d.setVolume(ctx, f.id, v); err != nil {
				return fmt.Errorf("set volume id=%d: %w", f.id, err)
			}
		}

		if i < steps {
			time.Sleep(stepDur)
		}
	}

	return nil
}

func (d *Ducker) setVolume(ctx context.Context, id, percent int) error {
	percent = max(0, min(percent, maxVolume))
	_, err := d.pactl(ctx, "set-sink-input-volume", strconv.Itoa(id), fmt.Sprintf("%d%%", percent))
	return err
}

func (d *Ducker) list(ctx context.Context) ([]sinkInput, error) {
	out, err := d.pactl(ctx, "list", "sink-inputs")
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}
	return parseSinkInputs(string(out)), nil
}

func parseSinkInputs(text string) []sinkInput {
	blocks := strings.Split(text, "Sink Input #")
	var res []sinkInput

	for _, block := range blocks[1:] {
		nl := strings.IndexByte(block, '\n')
		if nl <= 0 {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(block[:nl]))
		if err != nil {
			continue
		}

		in := sinkInput{ID: id}
		for _, line := range strings.Split(block[nl+1:], "\n") {
			line = strings.TrimSpace(line)

			if strings.HasPrefix(line, "Volume:") && in.Volume == 0 {
				if m := percentRe.FindStringSubmatch(line); len(m) >= 2 {
					in.Volume, _ = strconv.Atoi(m[1])
				}
			}

			// application.name = "Firefox"
			if strings.HasPrefix(line, "application.name =") && in.AppName == "" {
				if _, rest, ok := strings.Cut(line, `"`); ok {
					in.AppName, _, _ = strings.Cut(rest, `"`)
				}
			}
		}

		if in.Volume == 0 && in.AppName == "" {
			continue
		}
		res = append(res, in)
	}

	return res
}
