package message

import (
	"fmt"
	"math"
	"strings"
)

// Render formats a message for a plain terminal.
func Render(m Message) string {
	switch m.Kind {
	case KindText:
		return m.text
	case KindError:
		return "⚠ " + m.text
	case KindWeather:
		w, ok := m.Weather()
		if !ok {
			return ""
		}
		return renderWeather(w)
	case KindNews:
		n, ok := m.News()
		if !ok {
			return ""
		}
		return renderNews(n)
	}
	return ""
}

func renderWeather(w Weather) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s, %s\n", w.Location, w.Country)
	fmt.Fprintf(&b, "%.0f°C\n", math.Round(w.Temp))
	fmt.Fprintf(&b, "%s\n", w.Condition)
	fmt.Fprintf(&b, "Min: %.0f° | Max: %.0f°\n", math.Round(w.TempMin), math.Round(w.TempMax))
	fmt.Fprintf(&b, "💧 %d%% | 🌬 %g m/s", w.Humidity, w.WindSpeed)
	return b.String()
}

func renderNews(n News) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📰 Top Headlines (%s)", strings.ToUpper(n.Country))
	for _, a := range n.Articles {
		desc := a.Description
		if desc == "" {
			desc = "No description available."
		}
		fmt.Fprintf(&b, "\n\n%s\n%s", a.Title, desc)
		if a.URL != "" {
			fmt.Fprintf(&b, "\nRead more → %s", a.URL)
		}
	}
	return b.String()
}
