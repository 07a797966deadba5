package history

import (
	"fmt"
	"math"
	"time"

	"github.com/codexlabs/emotion-analyzer/emotion"
)

type Feedback struct {
	CorrectedLabel emotion.Label `json:"corrected_label"`
	Helpfulness    int           `json:"helpfulness"` // 1..5
	Comment        string        `json:"comment,omitempty"`
	IsCorrect      bool          `json:"is_correct"` // corrected label matches the prediction
	SubmittedAt    time.Time     `json:"submitted_at"`
}

// Meta is what the caller knows about a clip besides its audio.
type Meta struct {
	Prompt string
	// Intensity is the speaker's own rating in [0, 1]; 0 means unset.
	Intensity float64
}

func (m Meta) Validate() error {
	if math.IsNaN(m.Intensity) || m.Intensity < 0 || m.Intensity > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidIntensity, m.Intensity)
	}
	return nil
}

// Record is one completed classification.
type Record struct {
	ID           uint64               `json:"id"`
	CreatedAt    time.Time            `json:"created_at"`
	SourceLabel  string               `json:"source"`
	Language     emotion.Language     `json:"language"`
	Prompt       string               `json:"prompt,omitempty"`
	Intensity    float64              `json:"intensity,omitempty"`
	Distribution emotion.Distribution `json:"distribution"`
	Feedback     *Feedback            `json:"feedback,omitempty"`
}

func (r Record) Dominant() emotion.Score { return r.Distribution.Dominant() }

func (r Record) clone() Record {
	r.Distribution = r.Distribution.Clone()
	if r.Feedback != nil {
		fb := *r.Feedback
		r.Feedback = &fb
	}
	return r
}

// Filter selects records for List. Zero fields match everything; the time
// range is half-open [From, To).
type Filter struct {
	Language emotion.Language
	From     time.Time
	To       time.Time
}

func (f Filter) match(r Record) bool {
	if f.Language != "" && r.Language != f.Language {
		return false
	}
	if !f.From.IsZero() && r.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !r.CreatedAt.Before(f.To) {
		return false
	}
	return true
}

// Delta is the change of one label's confidence between two records.
type Delta struct {
	Label  emotion.Label `json:"label"`
	Change float64       `json:"change"`
}

type TrendPoint struct {
	ID         uint64        `json:"id"`
	At         time.Time     `json:"at"`
	Dominant   emotion.Label `json:"dominant"`
	Confidence float64       `json:"confidence"`
}

type FeedbackStats struct {
	Total          int     `json:"total"`
	Accuracy       float64 `json:"accuracy"` // share of feedback that confirmed the prediction
	AvgHelpfulness float64 `json:"avg_helpfulness"`
}

type Stats struct {
	Total         int                   `json:"total"`
	AvgConfidence float64               `json:"avg_confidence"`
	MostCommon    emotion.Label         `json:"most_common,omitempty"`
	Counts        map[emotion.Label]int `json:"counts"`
	Trend         []TrendPoint          `json:"trend"`
	Feedback      FeedbackStats         `json:"feedback"`
}
