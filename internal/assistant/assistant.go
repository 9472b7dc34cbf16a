// Package assistant runs one conversational cycle per utterance: route it,
// call the matching service, record the outcome and voice it.
package assistant

import (
	"context"
	"fmt"
	log "log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"murmur/internal/intent"
	"murmur/internal/message"
	"murmur/internal/service"
)

const (
	DefaultClockLayout = "15:04:05"

	GlobalNews = "global"
)

const (
	fetchingWeather = "Fetching weather..."
	fetchingNews    = "Fetching news..."
	fetchingJoke    = "Fetching a joke for you..."

	noNews       = "No news found. Try 'news about technology' or 'news in india'."
	noJoke       = "Couldn't find a joke right now. Try again!"
	jokePrefix   = "😂 "
	somethingBad = "⚠️ Something went wrong."
)

type Services interface {
	Weather(ctx context.Context, city string) (message.Weather, error)
	News(ctx context.Context, country, keyword string) ([]message.Article, error)
	Joke(ctx context.Context) (string, error)
}

type Replier interface {
	Reply(ctx context.Context, text string) (string, error)
}

type Speaker interface {
	Speak(text string)
	Stop()
	SetEnabled(on bool)
	Enabled() bool
}

type Store interface {
	Append(m message.Message)
	Clear()
	Messages() []message.Message
}

type Option func(*Assistant)

// WithClock replaces the time source and the layout used for clock replies.
func WithClock(now func() time.Time, layout string) Option {
	return func(a *Assistant) {
		if now != nil {
			a.now = now
		}
		if layout != "" {
			a.layout = layout
		}
	}
}

func WithRouter(r *intent.Router) Option {
	return func(a *Assistant) { a.router = r }
}

type Assistant struct {
	router  *intent.Router
	svc     Services
	replier Replier
	speaker Speaker
	store   Store

	now    func() time.Time
	layout string

	cycle sync.Mutex

	busyMu  sync.Mutex
	busy    bool
	busyObs []func(bool)
}

func New(svc Services, replier Replier, speaker Speaker, store Store, opts ...Option) *Assistant {
	a := &Assistant{
		router:  intent.NewRouter(),
		svc:     svc,
		replier: replier,
		speaker: speaker,
		store:   store,
		now:     time.Now,
		layout:  DefaultClockLayout,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// cycle carries the state of one Handle call.
type cycle struct {
	id      string
	replies []message.Message
}

// Handle processes one utterance and returns the messages it appended after
// the user's own. Concurrent calls queue behind each other. Failures never
// escape; they end up in history as error messages.
func (a *Assistant) Handle(ctx context.Context, utterance string) (replies []message.Message) {
	if strings.TrimSpace(utterance) == "" {
		return nil
	}

	a.cycle.Lock()
	defer a.cycle.Unlock()

	c := &cycle{id: uuid.NewString()}

	a.setBusy(true)
	defer a.setBusy(false)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Cycle panicked", "cycle", c.id, "panic", r)
			a.emit(c, message.NewError(somethingBad), false)
			replies = c.replies
		}
	}()

	a.store.Append(message.NewUserText(utterance))

	res := a.router.Classify(utterance)
	log.Info("Routed", "cycle", c.id, "handler", res.Handler, "params", res.Params)

	if err := a.dispatch(ctx, c, res); err != nil {
		log.Error("Cycle failed", "cycle", c.id, "handler", res.Handler, "err", err)
		a.emit(c, message.NewError(somethingBad), false)
	}

	return c.replies
}

func (a *Assistant) dispatch(ctx context.Context, c *cycle, res intent.Result) error {
	switch res.Handler {
	case intent.Weather:
		a.weather(ctx, c, res.Param(intent.ParamCity))
	case intent.News:
		a.news(ctx, c, res.Param(intent.ParamCountry), res.Param(intent.ParamKeyword))
	case intent.Joke:
		a.joke(ctx, c)
	case intent.Clock:
		a.emit(c, message.NewText(a.now().Format(a.layout)), true)
	case intent.Fallback:
		return a.fallback(ctx, c, res.Param(intent.ParamText))
	default:
		return fmt.Errorf("no handler %q", res.Handler)
	}
	return nil
}

func (a *Assistant) weather(ctx context.Context, c *cycle, city string) {
	a.emit(c, message.NewText(fetchingWeather), true)

	w, err := a.svc.Weather(ctx, city)
	if err != nil {
		log.Warn("Weather lookup failed", "cycle", c.id, "city", city, "err", err)
		a.emit(c, message.NewError("Weather Error: "+service.Message(err)), false)
		return
	}

	a.emit(c, message.NewWeather(w), false)
}

func (a *Assistant) news(ctx context.Context, c *cycle, country, keyword string) {
	a.emit(c, message.NewText(fetchingNews), true)

	articles, err := a.svc.News(ctx, country, keyword)
	if err != nil {
		log.Warn("News lookup failed", "cycle", c.id, "country", country, "keyword", keyword, "err", err)
		a.emit(c, message.NewError("Error loading news: "+service.Message(err)), false)
		return
	}

	if len(articles) == 0 {
		a.emit(c, message.NewText(noNews), true)
		return
	}

	if country == "" {
		country = GlobalNews
	}
	a.emit(c, message.NewNews(message.News{Country: country, Articles: articles}), false)
}

func (a *Assistant) joke(ctx context.Context, c *cycle) {
	a.emit(c, message.NewText(fetchingJoke), true)

	joke, err := a.svc.Joke(ctx)
	if err != nil {
		log.Warn("Joke lookup failed", "cycle", c.id, "err", err)
		a.emit(c, message.NewError("Joke Error: "+service.Message(err)), false)
		return
	}

	if joke == "" {
		a.emit(c, message.NewText(noJoke), true)
		return
	}

	a.emit(c, message.NewText(jokePrefix+joke), true)
}

func (a *Assistant) fallback(ctx context.Context, c *cycle, text string) error {
	if a.replier == nil {
		return fmt.Errorf("no reply backend configured")
	}

	reply, err := a.replier.Reply(ctx, text)
	if err != nil {
		return fmt.Errorf("generate reply: %w", err)
	}

	a.emit(c, message.NewText(reply), true)
	return nil
}

// emit appends m to history and voices its text when spoken is set.
func (a *Assistant) emit(c *cycle, m message.Message, spoken bool) {
	a.store.Append(m)
	c.replies = append(c.replies, m)

	if spoken && a.speaker != nil {
		a.speaker.Speak(m.Text())
	}
}

// Busy reports whether a cycle is in progress.
func (a *Assistant) Busy() bool {
	a.busyMu.Lock()
	defer a.busyMu.Unlock()
	return a.busy
}

// OnBusy registers fn to be called whenever Busy flips. Observers run
// synchronously and must not call back into Handle.
func (a *Assistant) OnBusy(fn func(bool)) {
	a.busyMu.Lock()
	defer a.busyMu.Unlock()
	a.busyObs = append(a.busyObs, fn)
}

func (a *Assistant) setBusy(on bool) {
	a.busyMu.Lock()
	a.busy = on
	obs := slices.Clone(a.busyObs)
	a.busyMu.Unlock()

	for _, fn := range obs {
		fn(on)
	}
}

// Clear silences the speaker and wipes the history, snapshot included.
func (a *Assistant) Clear() {
	if a.speaker != nil {
		a.speaker.Stop()
	}
	a.store.Clear()
	log.Info("Cleared chat history")
}

// StopSpeaking interrupts the current utterance, if any.
func (a *Assistant) StopSpeaking() {
	if a.speaker != nil {
		a.speaker.Stop()
	}
}

// ToggleVoice flips speech output and returns the new state.
func (a *Assistant) ToggleVoice() bool {
	if a.speaker == nil {
		return false
	}
	on := !a.speaker.Enabled()
	a.speaker.SetEnabled(on)
	log.Info("Voice output", "enabled", on)
	return on
}

func (a *Assistant) History() []message.Message {
	return a.store.Messages()
}
