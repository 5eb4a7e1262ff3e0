package domain

import "strings"

// Utterance is one recognized phrase, trimmed and lower-cased.
type Utterance string

func NormalizeUtterance(transcript string) (Utterance, bool) {
	u := strings.ToLower(strings.TrimSpace(transcript))
	if u == "" {
		return "", false
	}
	return Utterance(u), true
}

func (u Utterance) String() string {
	return string(u)
}
