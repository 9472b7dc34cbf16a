package intent

import (
	"regexp"
	"strings"
)

type Handler string

const (
	Weather  Handler = "weather"
	News     Handler = "news"
	Joke     Handler = "joke"
	Clock    Handler = "clock"
	Fallback Handler = "fallback"
)

// Param keys filled by the extractors.
const (
	ParamCity    = "city"
	ParamCountry = "country"
	ParamKeyword = "keyword"
	ParamText    = "text"
)

const DefaultCity = "Delhi"

type Result struct {
	Handler Handler
	Params  map[string]string
}

func (r Result) Param(key string) string {
	return r.Params[key]
}

// Rule pairs a predicate over the lower-cased utterance with the extractor
// that fills the params once the rule wins.
type Rule struct {
	Handler Handler
	Match   func(lower string) bool
	Extract func(raw, lower string) map[string]string
}

var Countries = map[string]string{
	"india":     "in",
	"usa":       "us",
	"america":   "us",
	"uk":        "gb",
	"britain":   "gb",
	"canada":    "ca",
	"australia": "au",
	"germany":   "de",
	"france":    "fr",
	"japan":     "jp",
}

var (
	newsInRe    = regexp.MustCompile(`news in ([a-z]+)`)
	newsAboutRe = regexp.MustCompile(`news about (.+)`)
)

// DefaultRules is evaluated top to bottom; the first match wins.
var DefaultRules = []Rule{
	{Handler: Weather, Match: contains("weather"), Extract: extractCity},
	{Handler: News, Match: contains("news"), Extract: extractNews},
	{Handler: Joke, Match: contains("joke")},
	{Handler: Clock, Match: contains("clock")},
}

type Router struct {
	rules []Rule
}

func NewRouter(rules ...Rule) *Router {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Router{rules: rules}
}

// Classify picks the handler for an utterance. Anything no rule claims goes
// to Fallback with the raw utterance.
func (r *Router) Classify(utterance string) Result {
	lower := strings.ToLower(utterance)

	for _, rule := range r.rules {
		if !rule.Match(lower) {
			continue
		}
		params := map[string]string{}
		if rule.Extract != nil {
			params = rule.Extract(utterance, lower)
		}
		return Result{Handler: rule.Handler, Params: params}
	}

	return Result{
		Handler: Fallback,
		Params:  map[string]string{ParamText: utterance},
	}
}

// Classify runs the default rule list.
func Classify(utterance string) Result {
	return defaultRouter.Classify(utterance)
}

var defaultRouter = NewRouter()

func contains(word string) func(string) bool {
	return func(lower string) bool {
		return strings.Contains(lower, word)
	}
}

func extractCity(_, lower string) map[string]string {
	city := strings.Replace(lower, "weather in", "", 1)
	city = strings.Replace(city, "weather", "", 1)
	city = strings.TrimSpace(city)
	if city == "" {
		city = DefaultCity
	}
	return map[string]string{ParamCity: city}
}

func extractNews(_, lower string) map[string]string {
	params := map[string]string{
		ParamCountry: "",
		ParamKeyword: "",
	}

	if m := newsInRe.FindStringSubmatch(lower); m != nil {
		params[ParamCountry] = Countries[m[1]]
	}
	if m := newsAboutRe.FindStringSubmatch(lower); m != nil {
		params[ParamKeyword] = strings.TrimSpace(m[1])
	}

	return params
}
