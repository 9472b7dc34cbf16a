package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"murmur/internal/message"
)

// DefaultCountry is appended to a city that carries no country qualifier.
const DefaultCountry = "IN"

type owmResponse struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp     float64 `json:"temp"`
		TempMin  float64 `json:"temp_min"`
		TempMax  float64 `json:"temp_max"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// CityQuery builds the location query: a city without a comma gets the
// default country suffix.
func CityQuery(city string) string {
	q := strings.TrimSpace(city)
	if !strings.Contains(q, ",") {
		q += "," + DefaultCountry
	}
	return q
}

func (c *Client) Weather(ctx context.Context, city string) (message.Weather, error) {
	q := url.Values{}
	q.Set("q", CityQuery(city))
	q.Set("appid", c.weatherKey)
	q.Set("units", "metric")

	body, status, err := c.get(ctx, "weather", c.weatherBase, "/data/2.5/weather", q)
	if err != nil {
		return message.Weather{}, err
	}

	if !gjson.ValidBytes(body) {
		return message.Weather{}, &Error{Service: "weather", Status: status, Message: fmt.Sprintf("unexpected response (status %d)", status)}
	}

	// cod arrives as a number on success and as a string on failure
	if cod := gjson.GetBytes(body, "cod"); cod.Int() != 200 {
		msg := gjson.GetBytes(body, "message").String()
		if msg == "" {
			msg = fmt.Sprintf("upstream returned %s", cod.String())
		}
		return message.Weather{}, &Error{Service: "weather", Status: int(cod.Int()), Message: msg}
	}

	var r owmResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return message.Weather{}, fmt.Errorf("decode weather: %w", err)
	}

	w := message.Weather{
		Location:  r.Name,
		Country:   r.Sys.Country,
		Temp:      r.Main.Temp,
		TempMin:   r.Main.TempMin,
		TempMax:   r.Main.TempMax,
		Humidity:  r.Main.Humidity,
		WindSpeed: r.Wind.Speed,
	}
	if len(r.Weather) > 0 {
		w.Condition = r.Weather[0].Description
	}

	return w, nil
}
