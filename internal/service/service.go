// Package service holds the adapters for the third-party APIs the assistant
// talks to. Each adapter performs one network call and returns normalized
// data or an error carrying a human-readable message.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"net/url"
)

const (
	DefaultWeatherBaseURL = "https://api.openweathermap.org"
	DefaultNewsBaseURL    = "https://newsapi.org"
	DefaultJokeBaseURL    = "https://v2.jokeapi.dev"
)

// Error is an upstream failure. Message is what the user gets to see.
type Error struct {
	Service string
	Status  int
	Message string
	Err     error // transport cause, if any
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message extracts the text to show for err: the upstream message when there
// is one, the plain error text otherwise.
func Message(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}

type Options struct {
	HTTPClient *http.Client

	WeatherKey string
	NewsKey    string

	WeatherBaseURL string
	NewsBaseURL    string
	JokeBaseURL    string
}

// Client bundles the keyed HTTP adapters (weather, news, joke).
type Client struct {
	http *http.Client

	weatherKey string
	newsKey    string

	weatherBase string
	newsBase    string
	jokeBase    string
}

func NewClient(opt Options) *Client {
	c := &Client{
		http:        opt.HTTPClient,
		weatherKey:  opt.WeatherKey,
		newsKey:     opt.NewsKey,
		weatherBase: opt.WeatherBaseURL,
		newsBase:    opt.NewsBaseURL,
		jokeBase:    opt.JokeBaseURL,
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.weatherBase == "" {
		c.weatherBase = DefaultWeatherBaseURL
	}
	if c.newsBase == "" {
		c.newsBase = DefaultNewsBaseURL
	}
	if c.jokeBase == "" {
		c.jokeBase = DefaultJokeBaseURL
	}
	return c
}

// get performs a GET and returns the body whatever the status code; the
// APIs used here report failures inside the JSON body. Transport errors
// never carry the request URL, it holds the API key.
func (c *Client) get(ctx context.Context, service, base, path string, q url.Values) ([]byte, int, error) {
	u := base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "murmur/1.0")

	log.Debug("Calling upstream", "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		log.Debug("Upstream unreachable", "service", service, "path", path, "err", err)
		return nil, 0, &Error{Service: service, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}

	return body, resp.StatusCode, nil
}
