package emotion

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidLabel        = errors.New("invalid emotion label")
	ErrInvalidDistribution = errors.New("invalid score distribution")
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// Label is one of the seven emotion tags the analyzer reports.
type Label string

const (
	Anger     Label = "anger"
	Disgust   Label = "disgust"
	Fear      Label = "fear"
	Happiness Label = "happiness"
	Neutral   Label = "neutral"
	Sadness   Label = "sadness"
	Surprise  Label = "surprise"
)

// Labels is the canonical order. Distributions, tables and ties all follow it.
var Labels = [...]Label{Anger, Disgust, Fear, Happiness, Neutral, Sadness, Surprise}

func (l Label) Valid() bool {
	return l.index() >= 0
}

func (l Label) index() int {
	for i, x := range Labels {
		if x == l {
			return i
		}
	}
	return -1
}

func ParseLabel(s string) (Label, error) {
	l := Label(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLabel, s)
	}
	return l, nil
}

// Style is display metadata for a label.
type Style struct {
	Color string
	Emoji string
}

var styles = map[Label]Style{
	Anger:     {Color: "#ef4444", Emoji: "😠"},
	Disgust:   {Color: "#22c55e", Emoji: "🤢"},
	Fear:      {Color: "#8b5cf6", Emoji: "😨"},
	Happiness: {Color: "#fbbf24", Emoji: "😊"},
	Neutral:   {Color: "#94a3b8", Emoji: "😐"},
	Sadness:   {Color: "#3b82f6", Emoji: "😢"},
	Surprise:  {Color: "#ec4899", Emoji: "😲"},
}

func (l Label) Style() Style { return styles[l] }
