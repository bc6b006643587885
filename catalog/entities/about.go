package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// About is the short plugin summary. It is stored either as a single string
// in whatever language the description was written, or as an ordered pair
// [english, localized].
type About struct {
	Text      string
	English   string
	Localized string
	Pair      bool
}

// NewAbout creates a single-string about.
func NewAbout(text string) About {
	return About{Text: text}
}

// NewAboutPair creates an [english, localized] about.
func NewAboutPair(english, localized string) About {
	return About{English: english, Localized: localized, Pair: true}
}

// MarshalJSON implements json.Marshaler.
func (a About) MarshalJSON() ([]byte, error) {
	if a.Pair {
		return json.Marshal([2]string{a.English, a.Localized})
	}
	return json.Marshal(a.Text)
}

// String returns the single text, or the localized half of a pair.
func (a About) String() string {
	if a.Pair {
		return a.Localized
	}
	return a.Text
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *About) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var pair []string
		if err := json.Unmarshal(data, &pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("about pair must have 2 elements, got %d", len(pair))
		}
		*a = NewAboutPair(pair[0], pair[1])
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*a = NewAbout(s)
	return nil
}
