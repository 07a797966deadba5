package orchestrator

import (
	"context"

	"github.com/codexlabs/emotion-analyzer/emotion"
	"github.com/codexlabs/emotion-analyzer/history"
)

// Classifier turns an audio clip into a score distribution.
type Classifier interface {
	Classify(ctx context.Context, audio []byte, lang emotion.Language) (emotion.Distribution, error)
}

type AnalyzeRequest struct {
	Source   string // filename or "live recording"
	Language emotion.Language
	Prompt   string
	// Intensity is the speaker's self-rating in [0, 1]; 0 means unset.
	Intensity float64
	Audio     []byte
}

// FileResult is the outcome for one path passed to AnalyzeFiles.
type FileResult struct {
	Path   string
	Record history.Record
	Err    error
}

// FeedbackEntry is one line of the feedback log.
type FeedbackEntry struct {
	SessionID   string        `json:"session_id"`
	RecordID    uint64        `json:"record_id"`
	Source      string        `json:"source"`
	Predicted   emotion.Label `json:"predicted_emotion"`
	Corrected   emotion.Label `json:"correct_emotion"`
	IsCorrect   bool          `json:"is_correct"`
	Comment     string        `json:"feedback_text,omitempty"`
	Helpfulness int           `json:"helpfulness"`
	Timestamp   string        `json:"timestamp"`
}
