package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return NewClient(Options{
		HTTPClient:     srv.Client(),
		WeatherKey:     "wkey",
		NewsKey:        "nkey",
		WeatherBaseURL: srv.URL,
		NewsBaseURL:    srv.URL,
		JokeBaseURL:    srv.URL,
	})
}

func TestCityQuery(t *testing.T) {
	assert.Equal(t, "Delhi,IN", CityQuery("Delhi"))
	assert.Equal(t, "pune,IN", CityQuery("  pune "))
	assert.Equal(t, "london,gb", CityQuery("london,gb"))
	assert.Equal(t, "a, b", CityQuery("a, b"))
}

func TestWeather(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		assert.Equal(t, "Delhi,IN", r.URL.Query().Get("q"))
		assert.Equal(t, "wkey", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))

		fmt.Fprint(w, `{
			"cod": 200,
			"name": "Delhi",
			"sys": {"country": "IN"},
			"main": {"temp": 31.4, "temp_min": 30.1, "temp_max": 33.9, "humidity": 38},
			"weather": [{"description": "haze"}],
			"wind": {"speed": 2.57}
		}`)
	})

	w, err := c.Weather(context.Background(), "Delhi")
	require.NoError(t, err)
	assert.Equal(t, "Delhi", w.Location)
	assert.Equal(t, "IN", w.Country)
	assert.Equal(t, 31.4, w.Temp)
	assert.Equal(t, 30.1, w.TempMin)
	assert.Equal(t, 33.9, w.TempMax)
	assert.Equal(t, 38, w.Humidity)
	assert.Equal(t, "haze", w.Condition)
	assert.Equal(t, 2.57, w.WindSpeed)
}

func TestWeatherNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"cod":"404","message":"city not found"}`)
	})

	_, err := c.Weather(context.Background(), "atlantis")
	require.Error(t, err)

	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 404, se.Status)
	assert.Equal(t, "city not found", Message(err))
}

func TestWeatherGarbage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `<html>bad gateway</html>`)
	})

	_, err := c.Weather(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, "unexpected response (status 502)", Message(err))
}

func TestNewsKeywordWins(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/everything", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "cricket", q.Get("q"))
		assert.Equal(t, "publishedAt", q.Get("sortBy"))
		assert.Equal(t, "5", q.Get("pageSize"))
		assert.Equal(t, "en", q.Get("language"))
		assert.Equal(t, "nkey", q.Get("apiKey"))
		assert.False(t, q.Has("country"))

		fmt.Fprint(w, `{"status":"ok","articles":[
			{"title":"a","description":"da","url":"https://a","urlToImage":"https://a/i"},
			{"title":"b"},{"title":"c"},{"title":"d"},{"title":"e"},{"title":"f"}
		]}`)
	})

	arts, err := c.News(context.Background(), "in", "cricket")
	require.NoError(t, err)
	require.Len(t, arts, 5)
	assert.Equal(t, "a", arts[0].Title)
	assert.Equal(t, "da", arts[0].Description)
	assert.Equal(t, "https://a", arts[0].URL)
	assert.Equal(t, "https://a/i", arts[0].ImageURL)
}

func TestNewsTopHeadlines(t *testing.T) {
	var gotCountry []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/top-headlines", r.URL.Path)
		q := r.URL.Query()
		assert.False(t, q.Has("q"))
		if q.Has("country") {
			gotCountry = append(gotCountry, q.Get("country"))
		} else {
			gotCountry = append(gotCountry, "")
		}
		fmt.Fprint(w, `{"status":"ok","articles":[]}`)
	})

	arts, err := c.News(context.Background(), "jp", "")
	require.NoError(t, err)
	assert.Empty(t, arts)

	_, err = c.News(context.Background(), "", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"jp", ""}, gotCountry)
}

func TestNewsUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid."}`)
	})

	_, err := c.News(context.Background(), "", "")
	require.Error(t, err)
	assert.Equal(t, "Your API key is invalid.", Message(err))
}

func TestJoke(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/joke/Any", r.URL.Path)
		assert.Equal(t, "single", r.URL.Query().Get("type"))
		fmt.Fprint(w, `{"error":false,"type":"single","joke":"I would tell a UDP joke, but you might not get it."}`)
	})

	j, err := c.Joke(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "I would tell a UDP joke, but you might not get it.", j)
}

func TestJokeMissing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":true,"message":"No matching joke found"}`)
	})

	j, err := c.Joke(context.Background())
	require.NoError(t, err)
	assert.Empty(t, j)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(Options{JokeBaseURL: url})
	_, err := c.Joke(context.Background())
	require.Error(t, err)
	assert.NotEmpty(t, Message(err))
}

func TestTransportErrorHidesKeys(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := NewClient(Options{
		WeatherKey:     "weather-secret",
		NewsKey:        "news-secret",
		WeatherBaseURL: base,
		NewsBaseURL:    base,
	})

	_, err := c.Weather(context.Background(), "pune")
	require.Error(t, err)
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "weather", se.Service)
	assert.NotContains(t, Message(err), "weather-secret")
	assert.NotContains(t, err.Error(), "appid")

	_, err = c.News(context.Background(), "in", "")
	require.Error(t, err)
	assert.NotContains(t, Message(err), "news-secret")
	assert.NotContains(t, err.Error(), "apiKey")
}

func TestTransportErrorKeepsCause(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(Options{JokeBaseURL: srv.URL}).Joke(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
