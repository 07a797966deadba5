package emotion

import (
	"fmt"
	"math"
)

// DefaultTolerance bounds how far a distribution's sum may drift from 1.
const DefaultTolerance = 0.01

type Score struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Distribution holds one Score per label in canonical order.
type Distribution []Score

// Normalize rescales raw scores so they sum to 1 and fills absent labels with 0.
// Keys that are not valid labels are ignored.
func Normalize(raw map[Label]float64) (Distribution, error) {
	total := 0.0
	for l, v := range raw {
		if !l.Valid() {
			continue
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s has score %v", ErrInvalidDistribution, l, v)
		}
		total += v
	}
	if math.IsInf(total, 0) {
		return nil, fmt.Errorf("%w: scores overflow", ErrInvalidDistribution)
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: scores sum to zero", ErrInvalidDistribution)
	}
	d := make(Distribution, len(Labels))
	for i, l := range Labels {
		d[i] = Score{Label: l, Confidence: raw[l] / total}
	}
	if err := d.Validate(DefaultTolerance); err != nil {
		return nil, err
	}
	return d, nil
}

// FromConfidences builds a distribution from values given in canonical order.
func FromConfidences(values ...float64) Distribution {
	d := make(Distribution, len(Labels))
	for i, l := range Labels {
		d[i].Label = l
		if i < len(values) {
			d[i].Confidence = values[i]
		}
	}
	return d
}

func (d Distribution) Validate(tolerance float64) error {
	if len(d) != len(Labels) {
		return fmt.Errorf("%w: %d scores, want %d", ErrInvalidDistribution, len(d), len(Labels))
	}
	seen := make(map[Label]bool, len(d))
	sum := 0.0
	positive := false
	for _, s := range d {
		if !s.Label.Valid() {
			return fmt.Errorf("%w: %w: %q", ErrInvalidDistribution, ErrInvalidLabel, s.Label)
		}
		if seen[s.Label] {
			return fmt.Errorf("%w: duplicate label %s", ErrInvalidDistribution, s.Label)
		}
		seen[s.Label] = true
		if s.Confidence < 0 || s.Confidence > 1 || math.IsNaN(s.Confidence) {
			return fmt.Errorf("%w: %s confidence %v out of range", ErrInvalidDistribution, s.Label, s.Confidence)
		}
		if s.Confidence > 0 {
			positive = true
		}
		sum += s.Confidence
	}
	if !positive {
		return fmt.Errorf("%w: all confidences are zero", ErrInvalidDistribution)
	}
	if math.Abs(sum-1) > tolerance {
		return fmt.Errorf("%w: confidences sum to %.4f", ErrInvalidDistribution, sum)
	}
	return nil
}

func (d Distribution) Get(l Label) float64 {
	for _, s := range d {
		if s.Label == l {
			return s.Confidence
		}
	}
	return 0
}

// Dominant returns the highest scoring label. Ties go to the earlier label in canonical order.
func (d Distribution) Dominant() Score {
	var best Score
	found := false
	for _, l := range Labels {
		c := d.Get(l)
		if !found || c > best.Confidence {
			best = Score{Label: l, Confidence: c}
			found = true
		}
	}
	return best
}

// Canonical returns a copy reordered to canonical label order.
func (d Distribution) Canonical() Distribution {
	out := make(Distribution, len(Labels))
	for i, l := range Labels {
		out[i] = Score{Label: l, Confidence: d.Get(l)}
	}
	return out
}

func (d Distribution) Clone() Distribution {
	if d == nil {
		return nil
	}
	out := make(Distribution, len(d))
	copy(out, d)
	return out
}

func (d Distribution) Map() map[Label]float64 {
	m := make(map[Label]float64, len(d))
	for _, s := range d {
		m[s.Label] = s.Confidence
	}
	return m
}
