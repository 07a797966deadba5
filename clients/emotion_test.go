package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codexlabs/emotion-analyzer/emotion"
)

type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.waits = append(c.waits, d)
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

func (c *fakeClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

var wavClip = append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 64)...)

func newTestClient(t *testing.T, h http.HandlerFunc) (*EmotionClient, *fakeClock) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	clk := &fakeClock{now: time.Unix(1700000000, 0)}
	b := DefaultBackoff()
	b.Jitter = 0
	c := NewEmotionClient(EmotionOptions{
		Endpoint:      srv.URL,
		Model:         "test/model",
		APIKey:        "secret",
		Timeout:       2 * time.Second,
		MaxAudioBytes: 1024,
		Backoff:       b,
		Clock:         clk,
		HTTP:          NewHTTPWithClient(srv.Client()),
	}, quietLogger())
	return c, clk
}

func TestClassifyNeutralOnly(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "audio/wav" {
			t.Errorf("Content-Type = %q", got)
		}
		if r.URL.Path != "/test/model" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `[{"label":"neu","score":0.9}]`)
	})

	d, err := c.Classify(context.Background(), wavClip, "en")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	for _, s := range d {
		want := 0.0
		if s.Label == emotion.Neutral {
			want = 1.0
		}
		if s.Confidence != want {
			t.Errorf("%s = %v, want %v", s.Label, s.Confidence, want)
		}
	}
}

func TestClassifyDistributionIsWellFormed(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"label":"hap","score":0.41},{"label":"sad","score":0.22},{"label":"ang","score":0.17},{"label":"neu","score":0.11}]`)
	})
	d, err := c.Classify(context.Background(), wavClip, "fr")
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Validate(emotion.DefaultTolerance); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	sum := 0.0
	for _, s := range d {
		if s.Confidence < 0 {
			t.Errorf("%s negative: %v", s.Label, s.Confidence)
		}
		sum += s.Confidence
	}
	if math.Abs(sum-1) > 0.01 {
		t.Errorf("sum = %v", sum)
	}
	if d.Dominant().Label != emotion.Happiness {
		t.Errorf("dominant = %s", d.Dominant().Label)
	}
}

func TestClassifyRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	c, clk := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 3 {
			http.Error(w, `{"error":"Model is loading"}`, http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `[{"label":"angry","score":0.6},{"label":"fear","score":0.2}]`)
	})

	d, err := c.Classify(context.Background(), wavClip, "en")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if calls.Load() != 4 {
		t.Errorf("calls = %d, want 4", calls.Load())
	}
	if got := d.Get(emotion.Anger); math.Abs(got-0.75) > 1e-9 {
		t.Errorf("anger = %v, want 0.75", got)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	got := clk.Waits()
	if len(got) != len(want) {
		t.Fatalf("waits = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("wait[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestClassifyExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Classify(context.Background(), wavClip, "en")
	if !errors.Is(err, ErrInferenceUnavailable) {
		t.Fatalf("err = %v, want ErrInferenceUnavailable", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("last cause not preserved: %v", err)
	}
	if calls.Load() != 4 {
		t.Errorf("calls = %d, want 4", calls.Load())
	}
}

// hang blocks until the client gives up on the request.
func hang(r *http.Request) {
	select {
	case <-r.Context().Done():
	case <-time.After(5 * time.Second):
	}
}

func TestClassifyRetriesAfterTimeout(t *testing.T) {
	var calls atomic.Int32
	c, clk := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			hang(r)
			return
		}
		fmt.Fprint(w, `[{"label":"ang","score":1}]`)
	})
	c.timeout = 50 * time.Millisecond

	d, err := c.Classify(context.Background(), wavClip, "en")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if d.Get(emotion.Anger) != 1 {
		t.Errorf("anger = %v, want 1", d.Get(emotion.Anger))
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
	if n := len(clk.Waits()); n != 1 {
		t.Errorf("backoff waits = %d, want 1", n)
	}
}

func TestClassifyTimeoutsExhaustRetries(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		hang(r)
	})
	c.timeout = 50 * time.Millisecond

	_, err := c.Classify(context.Background(), wavClip, "en")
	if !errors.Is(err, ErrInferenceUnavailable) {
		t.Fatalf("err = %v, want ErrInferenceUnavailable", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("err = %v, want the timeout as last cause", err)
	}
	if calls.Load() != 4 {
		t.Errorf("calls = %d, want 4", calls.Load())
	}
}

func TestClassifyUnauthorizedNotRetried(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			var calls atomic.Int32
			c, clk := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				http.Error(w, `{"error":"Invalid credentials"}`, code)
			})
			_, err := c.Classify(context.Background(), wavClip, "en")
			if !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("err = %v, want ErrUnauthorized", err)
			}
			if calls.Load() != 1 {
				t.Errorf("calls = %d, want 1", calls.Load())
			}
			if len(clk.Waits()) != 0 {
				t.Errorf("unexpected waits %v", clk.Waits())
			}
		})
	}
}

func TestClassifyMissingKeyMakesNoRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()
	c := NewEmotionClient(EmotionOptions{Endpoint: srv.URL}, quietLogger())

	if _, err := c.Classify(context.Background(), wavClip, "en"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if calls.Load() != 0 {
		t.Errorf("calls = %d, want 0", calls.Load())
	}
}

func TestClassifyRateLimitHonoursRetryAfter(t *testing.T) {
	var calls atomic.Int32
	c, clk := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "5")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `[{"label":"surprise","score":1}]`)
	})
	if _, err := c.Classify(context.Background(), wavClip, "en"); err != nil {
		t.Fatal(err)
	}
	if waits := clk.Waits(); len(waits) != 1 || waits[0] != 5*time.Second {
		t.Errorf("waits = %v, want [5s]", waits)
	}
}

func TestClassifyRejectedNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad audio", http.StatusBadRequest)
	})
	_, err := c.Classify(context.Background(), wavClip, "en")
	if !errors.Is(err, ErrRequestRejected) {
		t.Fatalf("err = %v, want ErrRequestRejected", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestClassifyDropsUnknownLabels(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"label":"calm","score":0.5},{"label":"sad","score":0.5}]`)
	})
	d, err := c.Classify(context.Background(), wavClip, "en")
	if err != nil {
		t.Fatal(err)
	}
	if d.Get(emotion.Sadness) != 1 {
		t.Errorf("sadness = %v, want 1", d.Get(emotion.Sadness))
	}
}

func TestClassifyUnrecognizedResponses(t *testing.T) {
	for name, body := range map[string]string{
		"all unknown":   `[{"label":"calm","score":0.5},{"label":"LABEL_3","score":0.5}]`,
		"not json":      `<html>oops</html>`,
		"object":        `{"error":"something"}`,
		"empty":         `[]`,
		"missing score": `[{"label":"sad"}]`,
		"negative":      `[{"label":"sad","score":-1}]`,
		"zero sum":      `[{"label":"sad","score":0}]`,
		"overflow":      `[{"label":"sad","score":1e308},{"label":"hap","score":1e308}]`,
	} {
		t.Run(name, func(t *testing.T) {
			var calls atomic.Int32
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				fmt.Fprint(w, body)
			})
			_, err := c.Classify(context.Background(), wavClip, "en")
			if !errors.Is(err, ErrUnrecognizedResponse) {
				t.Fatalf("err = %v, want ErrUnrecognizedResponse", err)
			}
			if calls.Load() != 1 {
				t.Errorf("calls = %d, want 1", calls.Load())
			}
		})
	}
}

func TestClassifyBatchShape(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[[{"label":"disgust","score":0.3},{"label":"fear","score":0.3}]]`)
	})
	d, err := c.Classify(context.Background(), wavClip, "en")
	if err != nil {
		t.Fatal(err)
	}
	if d.Get(emotion.Disgust) != 0.5 || d.Get(emotion.Fear) != 0.5 {
		t.Errorf("got %+v", d)
	}
}

func TestClassifyInputValidation(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	if _, err := c.Classify(context.Background(), nil, "en"); !errors.Is(err, ErrEmptyAudio) {
		t.Errorf("empty: err = %v", err)
	}
	if _, err := c.Classify(context.Background(), make([]byte, 2048), "en"); !errors.Is(err, ErrAudioTooLarge) {
		t.Errorf("large: err = %v", err)
	}
	if _, err := c.Classify(context.Background(), wavClip, "xx"); !errors.Is(err, emotion.ErrUnsupportedLanguage) {
		t.Errorf("language: err = %v", err)
	}
}

func TestClassifyCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		cancel()
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.Classify(ctx, wavClip, "en")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestBackoffDelay(t *testing.T) {
	b := Backoff{BaseDelay: time.Second, MaxDelay: 8 * time.Second}
	for n, want := range []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 8 * time.Second} {
		if got := b.Delay(n); got != want {
			t.Errorf("Delay(%d) = %v, want %v", n, got, want)
		}
	}

	b.Jitter = 0.2
	b.Rand = func() float64 { return 0 }
	if got := b.Delay(1); got != 1600*time.Millisecond {
		t.Errorf("low jitter = %v, want 1.6s", got)
	}
	b.Rand = func() float64 { return 0.999999 }
	if got := b.Delay(3); got > 8*time.Second {
		t.Errorf("jitter exceeded cap: %v", got)
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := http.Header{}
	if got := retryAfter(h, now); got != 0 {
		t.Errorf("empty = %v", got)
	}
	h.Set("Retry-After", "3")
	if got := retryAfter(h, now); got != 3*time.Second {
		t.Errorf("seconds = %v", got)
	}
	h.Set("Retry-After", now.Add(10*time.Second).Format(http.TimeFormat))
	if got := retryAfter(h, now); got != 10*time.Second {
		t.Errorf("date = %v", got)
	}
}
