package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codexlabs/emotion-analyzer/emotion"
)

const (
	DefaultEndpoint = "https://router.huggingface.co/hf-inference/models"
	DefaultModel    = "jihedjabnoun/wavlm-base-emotion"
	DefaultTimeout  = 15 * time.Second
)

// --- Emotion (audio classification) ---
type EmotionOptions struct {
	Endpoint      string
	Model         string
	APIKey        string
	Timeout       time.Duration // per attempt
	MaxAudioBytes int64
	Backoff       Backoff
	Clock         Clock
	HTTP          *HTTP
}

// EmotionClient classifies audio clips through a hosted audio-classification model.
type EmotionClient struct {
	http     *HTTP
	url      string
	apiKey   string
	timeout  time.Duration
	maxAudio int64
	backoff  Backoff
	clock    Clock
	log      logrus.FieldLogger
}

func NewEmotionClient(opts EmotionOptions, log logrus.FieldLogger) *EmotionClient {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTP == nil {
		opts.HTTP = NewHTTP()
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	url := strings.TrimRight(opts.Endpoint, "/") + "/" + strings.TrimLeft(opts.Model, "/")
	return &EmotionClient{
		http:     opts.HTTP,
		url:      url,
		apiKey:   opts.APIKey,
		timeout:  opts.Timeout,
		maxAudio: opts.MaxAudioBytes,
		backoff:  opts.Backoff,
		clock:    opts.Clock,
		log:      log.WithField("component", "emotion_client"),
	}
}

func (c *EmotionClient) URL() string { return c.url }

// Classify sends audio to the endpoint and returns a normalised distribution.
// lang is validated but never sent; it only matters to whoever renders the result.
func (c *EmotionClient) Classify(ctx context.Context, audio []byte, lang emotion.Language) (emotion.Distribution, error) {
	if !lang.Valid() {
		return nil, fmt.Errorf("%w: %q", emotion.ErrUnsupportedLanguage, lang)
	}
	format, err := ValidateAudio(audio, c.maxAudio)
	if err != nil {
		return nil, err
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: no API key configured", ErrUnauthorized)
	}

	log := c.log.WithFields(logrus.Fields{"bytes": len(audio), "format": string(format)})
	start := c.clock.Now()

	var dist emotion.Distribution
	err = c.backoff.Run(ctx, c.clock, log, func(ctx context.Context, attempt int) error {
		d, err := c.attempt(ctx, audio, format)
		if err != nil {
			return err
		}
		dist = d
		log.WithField("attempt", attempt+1).Debug("classification succeeded")
		return nil
	})
	if err != nil {
		log.WithError(err).Error("classification failed")
		return nil, err
	}
	dom := dist.Dominant()
	log.WithFields(logrus.Fields{
		"dominant":   string(dom.Label),
		"confidence": dom.Confidence,
		"elapsed":    c.clock.Now().Sub(start).String(),
	}).Info("classification complete")
	return dist, nil
}

func (c *EmotionClient) attempt(ctx context.Context, audio []byte, format Format) (emotion.Distribution, error) {
	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.http.postAudio(actx, c.url, c.apiKey, format.ContentType(), audio)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, retryable(fmt.Errorf("emotion request timed out after %s", c.timeout), 0)
		}
		return nil, retryable(fmt.Errorf("emotion request: %w", err), 0)
	}

	switch code := resp.StatusCode; {
	case code == http.StatusOK:
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, &APIError{StatusCode: code, Body: string(resp.Body)})
	case code == http.StatusTooManyRequests || code >= 500:
		return nil, retryable(&APIError{StatusCode: code, Body: string(resp.Body)}, retryAfter(resp.Header, c.clock.Now()))
	default:
		return nil, fmt.Errorf("%w: %w", ErrRequestRejected, &APIError{StatusCode: code, Body: string(resp.Body)})
	}

	preds, err := DecodePredictions(resp.Body)
	if err != nil {
		return nil, err
	}
	return ToDistribution(preds, c.log)
}

func retryAfter(h http.Header, now time.Time) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
