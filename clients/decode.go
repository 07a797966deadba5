package clients

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/codexlabs/emotion-analyzer/emotion"
)

// Prediction is one ranked (label, score) pair as sent by the endpoint.
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// externalLabels maps the model vocabulary onto the analyzer's labels.
var externalLabels = map[string]emotion.Label{
	"anger":     emotion.Anger,
	"angry":     emotion.Anger,
	"ang":       emotion.Anger,
	"disgust":   emotion.Disgust,
	"disgusted": emotion.Disgust,
	"dis":       emotion.Disgust,
	"fear":      emotion.Fear,
	"fearful":   emotion.Fear,
	"fea":       emotion.Fear,
	"happiness": emotion.Happiness,
	"happy":     emotion.Happiness,
	"hap":       emotion.Happiness,
	"joy":       emotion.Happiness,
	"neutral":   emotion.Neutral,
	"neu":       emotion.Neutral,
	"sadness":   emotion.Sadness,
	"sad":       emotion.Sadness,
	"surprise":  emotion.Surprise,
	"surprised": emotion.Surprise,
	"sur":       emotion.Surprise,
}

func LookupLabel(external string) (emotion.Label, bool) {
	l, ok := externalLabels[strings.ToLower(strings.TrimSpace(external))]
	return l, ok
}

// DecodePredictions validates the response body against the expected shape:
// a non-empty array of {label: non-empty string, score: finite number >= 0}.
// A single-element batch wrapper ([[...]]) is unwrapped.
func DecodePredictions(body []byte) ([]Prediction, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedResponse, err)
	}
	if len(items) == 1 && bytes.HasPrefix(bytes.TrimSpace(items[0]), []byte("[")) {
		var inner []json.RawMessage
		if err := json.Unmarshal(items[0], &inner); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnrecognizedResponse, err)
		}
		items = inner
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no predictions", ErrUnrecognizedResponse)
	}

	out := make([]Prediction, 0, len(items))
	for i, raw := range items {
		var p struct {
			Label *string  `json:"label"`
			Score *float64 `json:"score"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrUnrecognizedResponse, i, err)
		}
		if p.Label == nil || strings.TrimSpace(*p.Label) == "" {
			return nil, fmt.Errorf("%w: item %d: missing label", ErrUnrecognizedResponse, i)
		}
		if p.Score == nil {
			return nil, fmt.Errorf("%w: item %d: missing score", ErrUnrecognizedResponse, i)
		}
		if *p.Score < 0 || math.IsNaN(*p.Score) || math.IsInf(*p.Score, 0) {
			return nil, fmt.Errorf("%w: item %d: score %v", ErrUnrecognizedResponse, i, *p.Score)
		}
		out = append(out, Prediction{Label: *p.Label, Score: *p.Score})
	}
	return out, nil
}

// ToDistribution maps predictions onto the label set and renormalises.
// Unknown labels are dropped with a warning.
func ToDistribution(preds []Prediction, log logrus.FieldLogger) (emotion.Distribution, error) {
	raw := make(map[emotion.Label]float64, len(emotion.Labels))
	recognized := 0
	for _, p := range preds {
		l, ok := LookupLabel(p.Label)
		if !ok {
			log.WithField("label", p.Label).Warn("dropping unrecognized emotion label")
			continue
		}
		raw[l] += p.Score
		recognized++
	}
	if recognized == 0 {
		return nil, fmt.Errorf("%w: no recognized emotion labels in %d predictions", ErrUnrecognizedResponse, len(preds))
	}
	d, err := emotion.Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnrecognizedResponse, err)
	}
	return d, nil
}
