// Package espeak voices text through the espeak-ng command line synthesizer.
package espeak

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	log "log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/faiface/beep/wav"

	"murmur/internal/audio"
	"murmur/internal/tts"
)

const (
	Binary = "espeak-ng"

	defaultPitch = 50  // espeak range is 0..99
	defaultSpeed = 175 // words per minute
)

type Engine struct {
	bin  string
	lang string

	mu     sync.Mutex
	voices []tts.Voice
	ready  chan struct{}
}

// New starts enumerating voices for lang in the background. The engine is
// usable immediately; Ready reports when the voice list is in.
func New(lang string) *Engine {
	e := &Engine{
		bin:   Binary,
		lang:  lang,
		ready: make(chan struct{}),
	}
	go e.loadVoices()
	return e
}

func (e *Engine) Voices() []tts.Voice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]tts.Voice(nil), e.voices...)
}

func (e *Engine) Ready() <-chan struct{} {
	return e.ready
}

func (e *Engine) Say(ctx context.Context, v tts.Voice, text string, p tts.Prosody) error {
	args := []string{
		"--stdout",
		"-p", strconv.Itoa(clamp(int(defaultPitch*p.Pitch), 0, 99)),
		"-s", strconv.Itoa(int(defaultSpeed * p.Rate)),
	}
	if v.ID != "" {
		args = append(args, "-v", v.ID)
	}

	cmd := exec.CommandContext(ctx, e.bin, args...)
	cmd.Stdin = strings.NewReader(text)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w: %s", e.bin, err, strings.TrimSpace(stderr.String()))
	}

	streamer, format, err := wav.Decode(bytes.NewReader(out))
	if err != nil {
		return fmt.Errorf("decode speech: %w", err)
	}
	defer streamer.Close()

	return audio.Play(ctx, streamer, format)
}

func (e *Engine) loadVoices() {
	defer close(e.ready)

	args := []string{"--voices"}
	if e.lang != "" {
		args = []string{"--voices=" + e.lang}
	}

	out, err := exec.Command(e.bin, args...).Output()
	if err != nil {
		log.Warn("Failed to list espeak voices", "err", err)
		return
	}

	voices := parseVoices(string(out))
	log.Debug("Loaded espeak voices", "count", len(voices))

	e.mu.Lock()
	e.voices = voices
	e.mu.Unlock()
}

// parseVoices reads the `espeak-ng --voices` table:
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  en-gb           --/M      English_(Great_Britain) gmw/en               (en 2)
//
// Every voice is followed by a female variant using the f3 modifier.
func parseVoices(out string) []tts.Voice {
	var base, female []tts.Voice

	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 || fields[0] == "Pty" {
			continue
		}

		lang := fields[1]
		name := strings.ReplaceAll(fields[3], "_", " ")

		base = append(base, tts.Voice{Name: name, ID: lang, Language: lang})
		female = append(female, tts.Voice{Name: name + " female", ID: lang + "+f3", Language: lang})
	}

	return append(base, female...)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
