package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codexlabs/emotion-analyzer/emotion"
)

var (
	ErrNotFound           = errors.New("analysis not found")
	ErrEmptySelection     = errors.New("empty selection")
	ErrInvalidHelpfulness = errors.New("helpfulness must be between 1 and 5")
	ErrInvalidIntensity   = errors.New("intensity must be between 0 and 1")
	ErrSessionClosed      = errors.New("session closed")
)

type Options struct {
	// Tolerance bounds the distance of a distribution's sum from 1.
	Tolerance float64
	Now       func() time.Time
	Logger    logrus.FieldLogger
}

// Store is the append-only analysis log of one session. Records are kept
// in insertion order, which is also id order.
type Store struct {
	mu      sync.RWMutex
	records []Record
	byID    map[uint64]int // id -> index in records
	lastID  uint64
	closed  bool

	tolerance float64
	now       func() time.Time
	lg        logrus.FieldLogger
}

func NewStore(opts Options) *Store {
	if opts.Tolerance <= 0 {
		opts.Tolerance = emotion.DefaultTolerance
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Store{
		byID:      make(map[uint64]int),
		tolerance: opts.Tolerance,
		now:       opts.Now,
		lg:        opts.Logger.WithField("component", "history"),
	}
}

func (s *Store) Append(source string, lang emotion.Language, d emotion.Distribution) (Record, error) {
	return s.AppendContext(context.Background(), source, lang, d, Meta{})
}

// AppendContext appends unless ctx is already done. The check happens under
// the store lock, so once cancellation is observable no record is added.
func (s *Store) AppendContext(ctx context.Context, source string, lang emotion.Language, d emotion.Distribution, meta Meta) (Record, error) {
	if !lang.Valid() {
		return Record{}, fmt.Errorf("%w: %q", emotion.ErrUnsupportedLanguage, lang)
	}
	if err := meta.Validate(); err != nil {
		return Record{}, err
	}
	if err := d.Validate(s.tolerance); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Record{}, ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.lastID++
	rec := Record{
		ID:           s.lastID,
		CreatedAt:    s.now(),
		SourceLabel:  source,
		Language:     lang,
		Prompt:       meta.Prompt,
		Intensity:    meta.Intensity,
		Distribution: d.Canonical(),
	}
	s.byID[rec.ID] = len(s.records)
	s.records = append(s.records, rec)

	dom := rec.Dominant()
	s.lg.WithFields(logrus.Fields{
		"record_id":  rec.ID,
		"source":     source,
		"dominant":   string(dom.Label),
		"confidence": dom.Confidence,
	}).Info("analysis recorded")
	return rec.clone(), nil
}

func (s *Store) Get(id uint64) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return s.records[i].clone(), nil
}

func (s *Store) List(f Filter) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		if f.match(r) {
			out = append(out, r.clone())
		}
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// AttachFeedback overwrites any earlier feedback on the record.
func (s *Store) AttachFeedback(id uint64, corrected emotion.Label, helpfulness int, comment string) (Record, error) {
	if !corrected.Valid() {
		return Record{}, fmt.Errorf("%w: %q", emotion.ErrInvalidLabel, corrected)
	}
	if helpfulness < 1 || helpfulness > 5 {
		return Record{}, fmt.Errorf("%w: got %d", ErrInvalidHelpfulness, helpfulness)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Record{}, ErrSessionClosed
	}
	i, ok := s.byID[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	rec := &s.records[i]
	rec.Feedback = &Feedback{
		CorrectedLabel: corrected,
		Helpfulness:    helpfulness,
		Comment:        comment,
		IsCorrect:      corrected == rec.Dominant().Label,
		SubmittedAt:    s.now(),
	}
	s.lg.WithFields(logrus.Fields{
		"record_id":   id,
		"corrected":   string(corrected),
		"helpfulness": helpfulness,
	}).Info("feedback attached")
	return rec.clone(), nil
}

// Close ends the session; later appends and feedback fail with
// ErrSessionClosed. Reads keep working so the session can still be exported.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
