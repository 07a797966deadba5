package clients

import (
	"errors"
	"fmt"
)

var (
	ErrInferenceUnavailable = errors.New("inference unavailable")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrUnrecognizedResponse = errors.New("unrecognized response")
	ErrRequestRejected      = errors.New("request rejected")
	ErrEmptyAudio           = errors.New("empty audio")
	ErrAudioTooLarge        = errors.New("audio too large")
	ErrUnsupportedFormat    = errors.New("unsupported audio format")
)

// APIError is a non-2xx answer from the inference endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 256 {
		body = body[:256] + "…"
	}
	return fmt.Sprintf("emotion api %d: %s", e.StatusCode, body)
}
