package main

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/lmittmann/tint"
	cli "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"murmur/internal/assistant"
	"murmur/internal/audio"
	"murmur/internal/capture"
	"murmur/internal/config"
	"murmur/internal/feed"
	"murmur/internal/history"
	"murmur/internal/ipc"
	"murmur/internal/notify"
	"murmur/internal/proxy"
	"murmur/internal/service"
	"murmur/internal/tts"
	"murmur/internal/tts/espeak"
	"murmur/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address (overrides SOCKS_PROXY)")
	storeKind := cli.String("store", "", "History backend: file|sqlite")
	dataDir := cli.String("data", "", "Directory for history snapshots")
	feedAddr := cli.String("feed", "", "Feed listen address, empty string disables")
	socket := cli.String("socket", "", "Control socket path")
	engine := cli.String("tts", "", "Speech engine: espeak|log")
	headless := cli.Bool("headless", false, "No terminal chat, serve the socket and feed only")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	override(&cfg.SocksProxy, "proxy", *proxyAddr)
	override(&cfg.Store, "store", *storeKind)
	override(&cfg.DataDir, "data", *dataDir)
	override(&cfg.FeedAddr, "feed", *feedAddr)
	override(&cfg.Socket, "socket", *socket)
	override(&cfg.Voice.Engine, "tts", *engine)

	if err := cfg.Validate(); err != nil {
		log.Error("Invalid config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, !*headless); err != nil {
		log.Error("Exited with error", "err", err)
		os.Exit(1)
	}

	log.Info("Bye")
}

// override applies a flag value over the environment when it was given.
func override(dst *string, flag, val string) {
	if cli.CommandLine.Changed(flag) {
		*dst = val
	}
}

func run(ctx context.Context, cfg *config.Config, interactive bool) error {
	httpClient, err := proxy.NewHTTPClient(cfg.SocksProxy, cfg.HTTPTimeout)
	if err != nil {
		return fmt.Errorf("proxy %s: %w", cfg.SocksProxy, err)
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	restored := store.Load()
	log.Info("Loaded chat history", "messages", len(restored), "store", cfg.Store)

	speaker := newSpeaker(cfg)
	defer speaker.Stop()

	svc := service.NewClient(service.Options{
		HTTPClient:     httpClient,
		WeatherKey:     cfg.Services.WeatherKey,
		NewsKey:        cfg.Services.NewsKey,
		WeatherBaseURL: cfg.Services.WeatherBaseURL,
		NewsBaseURL:    cfg.Services.NewsBaseURL,
		JokeBaseURL:    cfg.Services.JokeBaseURL,
	})

	replier := service.NewReplier(newGenerator(cfg, httpClient))

	a := assistant.New(svc, replier, speaker, store,
		assistant.WithClock(nil, cfg.ClockLayout))

	listener, closeListener := newListener(cfg)
	defer closeListener()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.FeedAddr != "" {
		hub := feed.NewHub(store)
		defer hub.Close()
		a.OnBusy(hub.SetBusy)

		g.Go(func() error {
			return hub.Serve(ctx, cfg.FeedAddr)
		})
	}

	ctl := &control{a: a, listener: listener}
	g.Go(func() error {
		return ipc.Serve(ctx, cfg.Socket, ctl.handle)
	})

	log.Info("Boot up - successful")

	if interactive {
		g.Go(func() error {
			return repl(ctx, a, listener, restored)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, errQuit) && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openStore(cfg *config.Config) (*history.Store, func(), error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("data dir: %w", err)
	}

	switch cfg.Store {
	case config.StoreSQLite:
		snap, err := history.OpenSQLite(filepath.Join(cfg.DataDir, "murmur.db"))
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		return history.NewStore(snap), func() { snap.Close() }, nil

	default:
		snap, err := history.NewFileSnapshotter(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open history dir: %w", err)
		}
		return history.NewStore(snap), func() {}, nil
	}
}

func newSpeaker(cfg *config.Config) *tts.Speaker {
	var eng tts.Engine = tts.NewLogEngine()
	if cfg.Voice.Engine == config.EngineEspeak {
		eng = espeak.New(cfg.Voice.Language)
	}

	opts := []tts.Option{
		tts.WithProsody(tts.Prosody{Pitch: cfg.Voice.Pitch, Rate: cfg.Voice.Rate}),
	}
	if cfg.Voice.Duck {
		opts = append(opts, tts.WithDucker(audio.DefaultDucker()))
	}

	return tts.NewSpeaker(eng, opts...)
}

func newGenerator(cfg *config.Config, httpClient *http.Client) service.Generator {
	if cfg.GenAI.Provider == config.ProviderAnthropic {
		return service.NewAnthropic(cfg.GenAI.APIKey, cfg.GenAI.BaseURL, cfg.GenAI.Model, httpClient)
	}
	return service.NewOpenAI(cfg.GenAI.APIKey, cfg.GenAI.BaseURL, cfg.GenAI.Model, httpClient)
}

// newListener sets up voice capture. Without a whisper model the listener is
// nil and voice commands report that capture is unavailable.
func newListener(cfg *config.Config) (*capture.Listener, func()) {
	if cfg.WhisperModel == "" {
		log.Debug("No whisper model configured, voice capture disabled")
		return nil, func() {}
	}

	tr, err := stt.NewTranscriber(cfg.WhisperModel, stt.DefaultOptions())
	if err != nil {
		log.Warn("Failed to load whisper, voice capture disabled", "err", err)
		return nil, func() {}
	}

	var rec capture.Recorder
	mic := audio.NewRecorder(audio.DefaultRecorderOptions())
	if err := mic.Init(); err != nil {
		log.Warn("Failed to init microphone, only files can be transcribed", "err", err)
	} else {
		rec = mic
	}

	cue := func(ctx context.Context) error {
		return notify.Beep(ctx, cfg.Beep)
	}

	return capture.NewListener(rec, tr, cue), func() {
		if rec != nil {
			mic.Close()
		}
		tr.Close()
	}
}
