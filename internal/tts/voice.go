package tts

import "strings"

type Voice struct {
	Name     string
	ID       string // engine specific identifier
	Language string
}

var voicePreference = []string{
	"female",
	"google uk english female",
	"google us english",
}

// SelectVoice applies the preference list to voice names (case-insensitive)
// and falls back to the first voice. It reports false for an empty list.
func SelectVoice(voices []Voice) (Voice, bool) {
	if len(voices) == 0 {
		return Voice{}, false
	}

	for _, want := range voicePreference {
		for _, v := range voices {
			if strings.Contains(strings.ToLower(v.Name), want) {
				return v, true
			}
		}
	}

	return voices[0], true
}
