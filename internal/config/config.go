// Package config loads murmur's settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Services Services
	GenAI    GenAI
	Voice    Voice

	Store   string `env:"MURMUR_STORE" envDefault:"file"`
	DataDir string `env:"MURMUR_DATA_DIR" envDefault:".murmur"`

	FeedAddr string `env:"MURMUR_FEED_ADDR" envDefault:"127.0.0.1:8093"`
	Socket   string `env:"MURMUR_SOCKET" envDefault:"/tmp/murmur.sock"`

	WhisperModel string `env:"MURMUR_WHISPER_MODEL"`
	Beep         string `env:"MURMUR_BEEP"`
	ClockLayout  string `env:"MURMUR_CLOCK_LAYOUT" envDefault:"15:04:05"`

	SocksProxy  string        `env:"SOCKS_PROXY"`
	HTTPTimeout time.Duration `env:"MURMUR_HTTP_TIMEOUT" envDefault:"0s"`
}

type Services struct {
	WeatherKey     string `env:"WEATHER_API_KEY"`
	NewsKey        string `env:"NEWS_API_KEY"`
	WeatherBaseURL string `env:"WEATHER_BASE_URL"`
	NewsBaseURL    string `env:"NEWS_BASE_URL"`
	JokeBaseURL    string `env:"JOKE_BASE_URL"`
}

type GenAI struct {
	Provider string `env:"GENAI_PROVIDER" envDefault:"openai"`
	APIKey   string `env:"GENAI_API_KEY"`
	Model    string `env:"GENAI_MODEL"`
	BaseURL  string `env:"GENAI_BASE_URL"`
}

type Voice struct {
	Engine   string  `env:"MURMUR_TTS" envDefault:"espeak"`
	Language string  `env:"MURMUR_VOICE_LANG" envDefault:"en"`
	Pitch    float64 `env:"MURMUR_VOICE_PITCH" envDefault:"1.1"`
	Rate     float64 `env:"MURMUR_VOICE_RATE" envDefault:"1.0"`
	Duck     bool    `env:"MURMUR_DUCK"`
}

const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"

	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	EngineEspeak = "espeak"
	EngineLog    = "log"
)

// Load reads envFile into the process environment (a missing file is fine,
// existing variables win) and parses the result. Keys are not checked for
// presence; a missing key surfaces as an upstream error when used.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store {
	case StoreFile, StoreSQLite:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}

	switch c.GenAI.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("unknown generative provider %q", c.GenAI.Provider)
	}

	switch c.Voice.Engine {
	case EngineEspeak, EngineLog:
	default:
		return fmt.Errorf("unknown speech engine %q", c.Voice.Engine)
	}

	if c.Voice.Pitch <= 0 || c.Voice.Rate <= 0 {
		return errors.New("voice pitch and rate must be positive")
	}
	return nil
}
