package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/codexlabs/emotion-analyzer/clients"
	"github.com/codexlabs/emotion-analyzer/emotion"
	"github.com/codexlabs/emotion-analyzer/history"
)

var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// classify maps an error to its HTTP status and kind. Order matters: an
// exhausted retry wraps the last APIError.
func classify(err error) (int, string) {
	var tooBig *http.MaxBytesError
	switch {
	case errors.Is(err, history.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, clients.ErrAudioTooLarge), errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge, "audio_too_large"
	case errors.Is(err, clients.ErrInferenceUnavailable):
		return http.StatusServiceUnavailable, "inference_unavailable"
	case errors.Is(err, clients.ErrUnauthorized):
		return http.StatusBadGateway, "unauthorized"
	case errors.Is(err, clients.ErrUnrecognizedResponse):
		return http.StatusBadGateway, "unrecognized_response"
	case errors.Is(err, clients.ErrRequestRejected):
		return http.StatusBadGateway, "request_rejected"
	case errors.Is(err, history.ErrSessionClosed):
		return http.StatusServiceUnavailable, "session_closed"
	case errors.Is(err, clients.ErrEmptyAudio):
		return http.StatusBadRequest, "empty_audio"
	case errors.Is(err, clients.ErrUnsupportedFormat):
		return http.StatusBadRequest, "unsupported_format"
	case errors.Is(err, emotion.ErrInvalidLabel):
		return http.StatusBadRequest, "invalid_label"
	case errors.Is(err, emotion.ErrUnsupportedLanguage):
		return http.StatusBadRequest, "unsupported_language"
	case errors.Is(err, emotion.ErrInvalidDistribution):
		return http.StatusBadRequest, "invalid_distribution"
	case errors.Is(err, history.ErrEmptySelection):
		return http.StatusBadRequest, "empty_selection"
	case errors.Is(err, history.ErrInvalidHelpfulness):
		return http.StatusBadRequest, "invalid_helpfulness"
	case errors.Is(err, history.ErrInvalidIntensity):
		return http.StatusBadRequest, "invalid_intensity"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	}
	return http.StatusInternalServerError, "internal"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	lg := s.lg.WithError(err).WithField("path", r.URL.Path)
	if status >= 500 {
		lg.Error("request failed")
	} else {
		lg.Debug("request rejected")
	}
	writeJSON(w, status, errorBody{Error: kind, Message: err.Error()})
}
