package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/codexlabs/emotion-analyzer/clients"
	"github.com/codexlabs/emotion-analyzer/emotion"
	"github.com/codexlabs/emotion-analyzer/history"
	"github.com/codexlabs/emotion-analyzer/orchestrator"
)

// multipart framing on top of the audio bound
const formOverhead = 64 << 10

type recordView struct {
	history.Record
	Dominant emotion.Score            `json:"dominant"`
	Display  map[emotion.Label]string `json:"display_labels"`
}

func view(rec history.Record, lang emotion.Language) recordView {
	if lang == "" {
		lang = rec.Language
	}
	display := make(map[emotion.Label]string, len(emotion.Labels))
	for _, l := range emotion.Labels {
		display[l] = lang.Translate(l)
	}
	return recordView{Record: rec, Dominant: rec.Dominant(), Display: display}
}

// displayLang reads ?lang=; empty means "the record's own language".
func displayLang(r *http.Request) (emotion.Language, error) {
	raw := r.URL.Query().Get("lang")
	if raw == "" {
		return "", nil
	}
	return emotion.ParseLanguage(raw)
}

func pathID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id %q", errBadRequest, mux.Vars(r)["id"])
	}
	return id, nil
}

func queryID(r *http.Request, key string) (uint64, error) {
	raw := r.URL.Query().Get(key)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", errBadRequest, key, raw)
	}
	return id, nil
}

func queryTime(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s=%q is not RFC 3339", errBadRequest, key, raw)
	}
	return t, nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"session_id": s.sess.ID,
		"records":    s.sess.Store.Len(),
	})
}

func (s *Server) listLanguages(w http.ResponseWriter, _ *http.Request) {
	type lang struct {
		Code emotion.Language `json:"code"`
		Name string           `json:"name"`
	}
	out := make([]lang, 0, len(emotion.Languages))
	for _, l := range emotion.Languages {
		out = append(out, lang{Code: l, Name: l.Name()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listLabels(w http.ResponseWriter, r *http.Request) {
	lang, err := emotion.ParseLanguage(r.URL.Query().Get("lang"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	type label struct {
		Label emotion.Label `json:"label"`
		Name  string        `json:"name"`
		Color string        `json:"color"`
		Emoji string        `json:"emoji"`
	}
	out := make([]label, 0, len(emotion.Labels))
	for _, l := range emotion.Labels {
		st := l.Style()
		out = append(out, label{Label: l, Name: lang.Translate(l), Color: st.Color, Emoji: st.Emoji})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listPrompts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, orchestrator.Prompts())
}

// createAnalysis accepts either a multipart form (file, language, prompt,
// intensity) or the raw clip as the body with ?source=&language=&prompt=&intensity=.
func (s *Server) createAnalysis(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.MaxUploadBytes
	if limit <= 0 {
		limit = s.audioMax + formOverhead
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	req, err := s.readAnalyzeRequest(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rec, err := s.sess.Analyze(r.Context(), req)
	if err != nil {
		if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
			// client went away; nothing to answer
			s.lg.WithField("source", req.Source).Info("client disconnected during analysis")
			return
		}
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view(rec, ""))
}

func (s *Server) readAnalyzeRequest(r *http.Request) (orchestrator.AnalyzeRequest, error) {
	var (
		req       orchestrator.AnalyzeRequest
		lang      string
		intensity string
		body      io.Reader
		name      string
	)
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "multipart/form-data" {
		if err := r.ParseMultipartForm(s.audioMax + formOverhead); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				return req, err
			}
			return req, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			return req, fmt.Errorf("%w: form field file: %v", errBadRequest, err)
		}
		defer f.Close()
		body, name = f, hdr.Filename
		lang = r.FormValue("language")
		req.Prompt = r.FormValue("prompt")
		intensity = r.FormValue("intensity")
	} else {
		q := r.URL.Query()
		body, name = r.Body, q.Get("source")
		lang = q.Get("language")
		req.Prompt = q.Get("prompt")
		intensity = q.Get("intensity")
	}
	if intensity != "" {
		v, err := strconv.ParseFloat(intensity, 64)
		if err != nil {
			return req, fmt.Errorf("%w: intensity %q", errBadRequest, intensity)
		}
		req.Intensity = v
	}

	l, err := emotion.ParseLanguage(lang)
	if err != nil {
		return req, err
	}
	audio, _, err := clients.ReadAudio(body, name, s.audioMax)
	if err != nil {
		return req, err
	}
	req.Language = l
	req.Source = name
	req.Audio = audio
	return req, nil
}

func (s *Server) listAnalyses(w http.ResponseWriter, r *http.Request) {
	var f history.Filter
	if raw := r.URL.Query().Get("language"); raw != "" {
		l, err := emotion.ParseLanguage(raw)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		f.Language = l
	}
	var err error
	if f.From, err = queryTime(r, "from"); err != nil {
		s.fail(w, r, err)
		return
	}
	if f.To, err = queryTime(r, "to"); err != nil {
		s.fail(w, r, err)
		return
	}
	lang, err := displayLang(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	recs := s.sess.Store.List(f)
	out := make([]recordView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, view(rec, lang))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	lang, err := displayLang(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rec, err := s.sess.Store.Get(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view(rec, lang))
}

type feedbackBody struct {
	CorrectedLabel string `json:"corrected_label"`
	Helpfulness    int    `json:"helpfulness"`
	Comment        string `json:"comment"`
}

func (s *Server) postFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body feedbackBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		s.fail(w, r, fmt.Errorf("%w: feedback body: %v", errBadRequest, err))
		return
	}
	rec, err := s.sess.SubmitFeedback(id, body.CorrectedLabel, body.Helpfulness, body.Comment)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view(rec, ""))
}

func (s *Server) aggregate(w http.ResponseWriter, r *http.Request) {
	var ids []uint64
	if raw := r.URL.Query().Get("ids"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
			if err != nil {
				s.fail(w, r, fmt.Errorf("%w: ids contains %q", errBadRequest, part))
				return
			}
			ids = append(ids, id)
		}
	}
	d, err := s.sess.Store.Aggregate(ids...)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ids":          ids,
		"distribution": d,
		"dominant":     d.Dominant(),
	})
}

func (s *Server) compare(w http.ResponseWriter, r *http.Request) {
	a, err := queryID(r, "a")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	b, err := queryID(r, "b")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	deltas, err := s.sess.Store.Compare(a, b)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"a": a, "b": b, "deltas": deltas})
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Store.Stats())
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	path, err := s.sess.Export()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": path})
}
