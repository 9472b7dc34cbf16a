package message

import (
	"encoding/json"
	"fmt"
)

type Kind string

const (
	KindText    Kind = "text"
	KindError   Kind = "error"
	KindWeather Kind = "weather"
	KindNews    Kind = "news"
)

func (k Kind) Valid() bool {
	switch k {
	case KindText, KindError, KindWeather, KindNews:
		return true
	}
	return false
}

// Weather is the normalized payload of a weather message.
type Weather struct {
	Location  string  `json:"name"`
	Country   string  `json:"country"`
	Temp      float64 `json:"temp"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Condition string  `json:"description"`
	Humidity  int     `json:"humidity"`
	WindSpeed float64 `json:"wind_speed"`
}

type Article struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	ImageURL    string `json:"urlToImage,omitempty"`
}

// News is the normalized payload of a news message. Country is an ISO code
// or "global" when no country was requested.
type News struct {
	Country  string    `json:"countryCode"`
	Articles []Article `json:"articles"`
}

// Message is one immutable entry of conversation history. Exactly one of the
// payload fields is meaningful and it is selected by Kind.
type Message struct {
	Kind   Kind
	IsUser bool

	text    string
	weather *Weather
	news    *News
}

func NewUserText(text string) Message {
	return Message{Kind: KindText, IsUser: true, text: text}
}

func NewText(text string) Message {
	return Message{Kind: KindText, text: text}
}

func NewError(text string) Message {
	return Message{Kind: KindError, text: text}
}

func NewWeather(w Weather) Message {
	return Message{Kind: KindWeather, weather: &w}
}

func NewNews(n News) Message {
	arts := make([]Article, len(n.Articles))
	copy(arts, n.Articles)
	n.Articles = arts
	return Message{Kind: KindNews, news: &n}
}

// Text returns the payload of text and error messages.
func (m Message) Text() string {
	return m.text
}

func (m Message) Weather() (Weather, bool) {
	if m.Kind != KindWeather || m.weather == nil {
		return Weather{}, false
	}
	return *m.weather, true
}

func (m Message) News() (News, bool) {
	if m.Kind != KindNews || m.news == nil {
		return News{}, false
	}
	n := *m.news
	n.Articles = make([]Article, len(m.news.Articles))
	copy(n.Articles, m.news.Articles)
	return n, true
}

type wireMessage struct {
	Type    Kind            `json:"type"`
	IsUser  bool            `json:"isUser"`
	Content json.RawMessage `json:"content"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	var (
		content []byte
		err     error
	)

	switch m.Kind {
	case KindText, KindError:
		content, err = json.Marshal(m.text)
	case KindWeather:
		if m.weather == nil {
			return nil, fmt.Errorf("weather message without payload")
		}
		content, err = json.Marshal(m.weather)
	case KindNews:
		if m.news == nil {
			return nil, fmt.Errorf("news message without payload")
		}
		n := *m.news
		if n.Articles == nil {
			n.Articles = []Article{}
		}
		content, err = json.Marshal(n)
	default:
		return nil, fmt.Errorf("unknown message kind %q", m.Kind)
	}
	if err != nil {
		return nil, err
	}

	return json.Marshal(wireMessage{Type: m.Kind, IsUser: m.IsUser, Content: content})
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	out := Message{Kind: w.Type, IsUser: w.IsUser}

	switch w.Type {
	case KindText, KindError:
		if err := json.Unmarshal(w.Content, &out.text); err != nil {
			return fmt.Errorf("%s content: %w", w.Type, err)
		}
	case KindWeather:
		var wt Weather
		if err := decodeObject(w.Content, &wt); err != nil {
			return fmt.Errorf("weather content: %w", err)
		}
		out.weather = &wt
	case KindNews:
		var n News
		if err := decodeObject(w.Content, &n); err != nil {
			return fmt.Errorf("news content: %w", err)
		}
		if n.Articles == nil {
			n.Articles = []Article{}
		}
		out.news = &n
	default:
		return fmt.Errorf("unknown message kind %q", w.Type)
	}

	*m = out
	return nil
}

// decodeObject refuses anything but a JSON object so that a string payload
// never masquerades as a structured one.
func decodeObject(raw json.RawMessage, v any) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return err
	}
	if probe == nil {
		return fmt.Errorf("null payload")
	}
	return json.Unmarshal(raw, v)
}
