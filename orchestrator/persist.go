package orchestrator

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/codexlabs/emotion-analyzer/history"
)

type PersistBundle struct {
	SessionID   string           `json:"session_id"`
	StartedAt   time.Time        `json:"started_at"`
	GeneratedAt time.Time        `json:"generated_at"`
	Records     []history.Record `json:"records"`
	Stats       history.Stats    `json:"stats"`
}

func mkSessionDir(outputsRoot, sessionID string) (string, error) {
	ts := time.Now().Format("20060102-150405")
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	dir := filepath.Join(outputsRoot, "session_"+ts+"_"+short)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func persist(outputsRoot string, s *Session) (string, error) {
	dir, err := mkSessionDir(outputsRoot, s.ID)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "history.json")
	bundle := PersistBundle{
		SessionID:   s.ID,
		StartedAt:   s.StartedAt,
		GeneratedAt: time.Now(),
		Records:     s.Store.List(history.Filter{}),
		Stats:       s.Store.Stats(),
	}
	if err := writeJSON(path, bundle); err != nil {
		return "", err
	}
	s.lg.WithField("path", path).Info("session exported")
	return path, nil
}

// --- Feedback log (JSONL) ---
type FeedbackLog struct {
	mu sync.Mutex
	f  *os.File
}

func OpenFeedbackLog(path string) (*FeedbackLog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("feedback log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open feedback log: %w", err)
	}
	return &FeedbackLog{f: f}, nil
}

func (l *FeedbackLog) Append(e FeedbackEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.f.Write(append(b, '\n')); err != nil {
		return err
	}
	return l.f.Sync()
}

func (l *FeedbackLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

// ReadFeedbackLog loads every entry of a feedback log. Blank lines are skipped.
func ReadFeedbackLog(path string) ([]FeedbackEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []FeedbackEntry
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e FeedbackEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

// SummarizeFeedback computes accuracy and mean helpfulness over log entries.
func SummarizeFeedback(entries []FeedbackEntry) history.FeedbackStats {
	st := history.FeedbackStats{Total: len(entries)}
	if len(entries) == 0 {
		return st
	}
	correct, help := 0, 0
	for _, e := range entries {
		if e.IsCorrect {
			correct++
		}
		help += e.Helpfulness
	}
	st.Accuracy = float64(correct) / float64(len(entries))
	st.AvgHelpfulness = float64(help) / float64(len(entries))
	return st
}
