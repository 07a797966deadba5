package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/codexlabs/emotion-analyzer/clients"
	cfg "github.com/codexlabs/emotion-analyzer/config"
	"github.com/codexlabs/emotion-analyzer/emotion"
	"github.com/codexlabs/emotion-analyzer/history"
)

const LiveRecording = "live recording"

// Session owns the history of one interactive session. Create it with
// NewSession and end it with Close.
type Session struct {
	ID        string
	StartedAt time.Time
	Store     *history.Store

	cfg      *cfg.Root
	cl       Classifier
	feedback *FeedbackLog
	lg       logrus.FieldLogger

	closeOnce sync.Once
}

func NewSession(c *cfg.Root, cl Classifier, lg logrus.FieldLogger) (*Session, error) {
	if lg == nil {
		lg = logrus.StandardLogger()
	}
	id := uuid.NewString()
	lg = lg.WithField("session_id", id)

	var fb *FeedbackLog
	if c.History.FeedbackLog != "" {
		var err error
		if fb, err = OpenFeedbackLog(c.History.FeedbackLog); err != nil {
			return nil, err
		}
	}

	s := &Session{
		ID:        id,
		StartedAt: time.Now(),
		Store:     history.NewStore(history.Options{Tolerance: c.History.Tolerance, Logger: lg}),
		cfg:       c,
		cl:        cl,
		feedback:  fb,
		lg:        lg,
	}
	lg.Info("session started")
	return s, nil
}

// Analyze classifies one clip and records the result. When ctx is cancelled
// before the record is stored, the result is dropped.
func (s *Session) Analyze(ctx context.Context, req AnalyzeRequest) (history.Record, error) {
	if req.Language == "" {
		req.Language = emotion.DefaultLanguage
	}
	if req.Source == "" {
		req.Source = LiveRecording
	}
	meta := history.Meta{Prompt: req.Prompt, Intensity: req.Intensity}
	if err := meta.Validate(); err != nil {
		return history.Record{}, fmt.Errorf("analyze %s: %w", req.Source, err)
	}
	dist, err := s.cl.Classify(ctx, req.Audio, req.Language)
	if err != nil {
		return history.Record{}, fmt.Errorf("analyze %s: %w", req.Source, err)
	}
	rec, err := s.Store.AppendContext(ctx, req.Source, req.Language, dist, meta)
	if err != nil {
		if ctx.Err() != nil {
			s.lg.WithField("source", req.Source).Warn("analysis abandoned, result discarded")
		}
		return history.Record{}, fmt.Errorf("analyze %s: %w", req.Source, err)
	}
	return rec, nil
}

// AnalyzeFiles reads and analyzes paths concurrently, bounded by
// inference.concurrency. Results keep the order of paths; a failing file
// does not stop the others.
func (s *Session) AnalyzeFiles(ctx context.Context, paths []string, lang emotion.Language, meta history.Meta) []FileResult {
	out := make([]FileResult, len(paths))
	var g errgroup.Group
	g.SetLimit(s.cfg.Inference.Concurrency)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			out[i].Path = p
			audio, _, err := clients.ReadAudioFile(p, s.cfg.Audio.Limit())
			if err != nil {
				out[i].Err = err
				return nil
			}
			out[i].Record, out[i].Err = s.Analyze(ctx, AnalyzeRequest{
				Source:    filepath.Base(p),
				Language:  lang,
				Prompt:    meta.Prompt,
				Intensity: meta.Intensity,
				Audio:     audio,
			})
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// SubmitFeedback stores the correction on the record and appends it to the feedback log.
func (s *Session) SubmitFeedback(id uint64, corrected string, helpfulness int, comment string) (history.Record, error) {
	label, err := emotion.ParseLabel(corrected)
	if err != nil {
		return history.Record{}, err
	}
	rec, err := s.Store.AttachFeedback(id, label, helpfulness, strings.TrimSpace(comment))
	if err != nil {
		return history.Record{}, err
	}
	if s.feedback != nil {
		entry := FeedbackEntry{
			SessionID:   s.ID,
			RecordID:    rec.ID,
			Source:      rec.SourceLabel,
			Predicted:   rec.Dominant().Label,
			Corrected:   rec.Feedback.CorrectedLabel,
			IsCorrect:   rec.Feedback.IsCorrect,
			Comment:     rec.Feedback.Comment,
			Helpfulness: rec.Feedback.Helpfulness,
			Timestamp:   rec.Feedback.SubmittedAt.Format(time.RFC3339),
		}
		if err := s.feedback.Append(entry); err != nil {
			// the record already carries the feedback
			s.lg.WithError(err).Warn("feedback log append failed")
		}
	}
	return rec, nil
}

// Export writes the session history under history.outputs and returns the bundle path.
func (s *Session) Export() (string, error) {
	return persist(s.cfg.History.Outputs, s)
}

func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.Store.Close()
		if s.feedback != nil {
			err = s.feedback.Close()
		}
		s.lg.WithField("records", s.Store.Len()).Info("session closed")
	})
	return err
}
