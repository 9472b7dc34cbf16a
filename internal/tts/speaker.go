package tts

import (
	"context"
	"errors"
	log "log/slog"
	"sync"
)

// Engine synthesizes and plays speech.
//
// Voices may be empty until the engine has enumerated them; Ready is closed
// once that has happened. Say blocks until playback finishes and must return
// promptly once ctx is cancelled.
type Engine interface {
	Voices() []Voice
	Ready() <-chan struct{}
	Say(ctx context.Context, v Voice, text string, p Prosody) error
}

type Prosody struct {
	Pitch float64
	Rate  float64
}

func DefaultProsody() Prosody {
	return Prosody{Pitch: 1.1, Rate: 1.0}
}

// Ducker quiets other audio around an utterance.
type Ducker interface {
	Duck(ctx context.Context) error
	Restore(ctx context.Context) error
}

type Option func(*Speaker)

func WithProsody(p Prosody) Option {
	return func(s *Speaker) { s.prosody = p }
}

func WithDucker(d Ducker) Option {
	return func(s *Speaker) { s.ducker = d }
}

type utterance struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Speaker plays at most one utterance at a time. A new Speak cancels the
// current one and starts only after it has wound down.
type Speaker struct {
	engine  Engine
	prosody Prosody
	ducker  Ducker

	mu      sync.Mutex
	enabled bool
	current *utterance
	voice   *Voice
}

func NewSpeaker(engine Engine, opts ...Option) *Speaker {
	s := &Speaker{
		engine:  engine,
		prosody: DefaultProsody(),
		enabled: true,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Speak starts vocalizing text and returns immediately.
func (s *Speaker) Speak(text string) {
	if text == "" {
		return
	}

	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		return
	}

	prev := s.current
	if prev != nil {
		prev.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	u := &utterance{cancel: cancel, done: make(chan struct{})}
	s.current = u
	s.mu.Unlock()

	go s.run(ctx, u, prev, text)
}

// Stop cancels whatever is playing and returns once it has stopped.
func (s *Speaker) Stop() {
	s.mu.Lock()
	u := s.current
	s.current = nil
	s.mu.Unlock()

	if u == nil {
		return
	}
	u.cancel()
	<-u.done
}

func (s *Speaker) SetEnabled(on bool) {
	s.mu.Lock()
	s.enabled = on
	s.mu.Unlock()

	if !on {
		s.Stop()
	}
}

func (s *Speaker) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Voice returns the selected voice, if selection has happened yet.
func (s *Speaker) Voice() (Voice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.voice == nil {
		return Voice{}, false
	}
	return *s.voice, true
}

func (s *Speaker) run(ctx context.Context, u, prev *utterance, text string) {
	defer func() {
		s.mu.Lock()
		if s.current == u {
			s.current = nil
		}
		s.mu.Unlock()
		u.cancel()
		close(u.done)
	}()

	if prev != nil {
		<-prev.done
	}
	if ctx.Err() != nil {
		return
	}

	voice, err := s.selectVoice(ctx)
	if err != nil {
		return
	}

	if s.ducker != nil {
		if err := s.ducker.Duck(ctx); err != nil {
			log.Debug("Failed to duck audio", "err", err)
		}
		defer func() {
			if err := s.ducker.Restore(context.Background()); err != nil {
				log.Debug("Failed to restore audio", "err", err)
			}
		}()
	}

	err = s.engine.Say(ctx, voice, text, s.prosody)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Failed to voice out", "err", err)
	}
}

// selectVoice picks the voice once. With no voices yet it waits for the
// engine, without holding the lock.
func (s *Speaker) selectVoice(ctx context.Context) (Voice, error) {
	if v, ok := s.Voice(); ok {
		return v, nil
	}

	voices := s.engine.Voices()
	if len(voices) == 0 {
		select {
		case <-s.engine.Ready():
			voices = s.engine.Voices()
		case <-ctx.Done():
			return Voice{}, ctx.Err()
		}
	}

	chosen, ok := SelectVoice(voices)
	if !ok {
		log.Warn("Speech engine reported no voices, using its default")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.voice == nil {
		s.voice = &chosen
		log.Debug("Selected voice", "name", chosen.Name)
	}
	return *s.voice, nil
}
