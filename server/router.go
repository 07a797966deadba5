// Package server exposes one analysis session over a JSON HTTP API.
package server

import (
	"io"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	cfg "github.com/codexlabs/emotion-analyzer/config"
	"github.com/codexlabs/emotion-analyzer/orchestrator"
)

type Options struct {
	Logger    logrus.FieldLogger
	AccessLog io.Writer // combined access log; defaults to stderr
}

type Server struct {
	sess      *orchestrator.Session
	cfg       cfg.Server
	audioMax  int64
	lg        logrus.FieldLogger
	accessLog io.Writer
}

func New(sess *orchestrator.Session, c *cfg.Root, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.AccessLog == nil {
		opts.AccessLog = os.Stderr
	}
	return &Server{
		sess:      sess,
		cfg:       c.Server,
		audioMax:  c.Audio.Limit(),
		lg:        opts.Logger.WithField("component", "server"),
		accessLog: opts.AccessLog,
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.health).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/languages", s.listLanguages).Methods("GET")
	api.HandleFunc("/labels", s.listLabels).Methods("GET")
	api.HandleFunc("/prompts", s.listPrompts).Methods("GET")
	api.HandleFunc("/analyses", s.createAnalysis).Methods("POST")
	api.HandleFunc("/analyses", s.listAnalyses).Methods("GET")
	api.HandleFunc("/analyses/{id:[0-9]+}", s.getAnalysis).Methods("GET")
	api.HandleFunc("/analyses/{id:[0-9]+}/feedback", s.postFeedback).Methods("POST")
	api.HandleFunc("/aggregate", s.aggregate).Methods("GET")
	api.HandleFunc("/compare", s.compare).Methods("GET")
	api.HandleFunc("/stats", s.stats).Methods("GET")
	api.HandleFunc("/export", s.export).Methods("POST")

	return r
}

// Handler is Router wrapped with panic recovery, CORS and access logging.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.Router()
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(s.lg),
		handlers.PrintRecoveryStack(true),
	)(h)
	if len(s.cfg.AllowedOrigins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(s.cfg.AllowedOrigins),
			handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
			handlers.AllowedHeaders([]string{"Content-Type"}),
		)(h)
	}
	return handlers.CombinedLoggingHandler(s.accessLog, h)
}
