package history

import (
	"fmt"

	"github.com/codexlabs/emotion-analyzer/emotion"
)

// Aggregate returns the mean confidence of every label over the selected
// records, or over all records when ids is empty. Repeated ids count once.
func (s *Store) Aggregate(ids ...uint64) (emotion.Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sel []*Record
	if len(ids) == 0 {
		for i := range s.records {
			sel = append(sel, &s.records[i])
		}
	} else {
		seen := make(map[uint64]bool, len(ids))
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			i, ok := s.byID[id]
			if !ok {
				return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
			}
			sel = append(sel, &s.records[i])
		}
	}
	if len(sel) == 0 {
		return nil, ErrEmptySelection
	}

	sums := make([]float64, len(emotion.Labels))
	for _, r := range sel {
		for i, l := range emotion.Labels {
			sums[i] += r.Distribution.Get(l)
		}
	}
	n := float64(len(sel))
	out := make(emotion.Distribution, len(emotion.Labels))
	for i, l := range emotion.Labels {
		out[i] = emotion.Score{Label: l, Confidence: sums[i] / n}
	}
	return out, nil
}

// Compare returns confidence(b) - confidence(a) per label in canonical order.
func (s *Store) Compare(a, b uint64) ([]Delta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ia, ok := s.byID[a]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, a)
	}
	ib, ok := s.byID[b]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, b)
	}
	ra, rb := &s.records[ia], &s.records[ib]

	out := make([]Delta, len(emotion.Labels))
	for i, l := range emotion.Labels {
		out[i] = Delta{Label: l, Change: rb.Distribution.Get(l) - ra.Distribution.Get(l)}
	}
	return out, nil
}

// Stats summarises the session: dominant-emotion counts, confidence trend
// and feedback quality.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Total:  len(s.records),
		Counts: make(map[emotion.Label]int, len(emotion.Labels)),
		Trend:  make([]TrendPoint, 0, len(s.records)),
	}
	if len(s.records) == 0 {
		return st
	}

	confSum := 0.0
	helpSum := 0
	correct := 0
	for _, r := range s.records {
		dom := r.Dominant()
		st.Counts[dom.Label]++
		confSum += dom.Confidence
		st.Trend = append(st.Trend, TrendPoint{ID: r.ID, At: r.CreatedAt, Dominant: dom.Label, Confidence: dom.Confidence})
		if r.Feedback != nil {
			st.Feedback.Total++
			helpSum += r.Feedback.Helpfulness
			if r.Feedback.IsCorrect {
				correct++
			}
		}
	}
	st.AvgConfidence = confSum / float64(len(s.records))

	best := 0
	for _, l := range emotion.Labels {
		if c := st.Counts[l]; c > best {
			best = c
			st.MostCommon = l
		}
	}
	if st.Feedback.Total > 0 {
		st.Feedback.Accuracy = float64(correct) / float64(st.Feedback.Total)
		st.Feedback.AvgHelpfulness = float64(helpSum) / float64(st.Feedback.Total)
	}
	return st
}
