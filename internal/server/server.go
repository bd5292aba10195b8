// Package server provides the HTTP API for skillrec.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/skillrec/internal/config"
	"github.com/hyperjump/skillrec/internal/index"
	"github.com/hyperjump/skillrec/internal/keyword"
	"github.com/hyperjump/skillrec/internal/models"
	"github.com/hyperjump/skillrec/internal/recommend"
)

// Recommender is the engine surface the handlers use.
type Recommender interface {
	Recommend(ctx context.Context, query string) (*models.Recommendation, error)
	Search(ctx context.Context, query string, k int) ([]index.Hit, error)
	Index() *index.Index
	State() recommend.State
}

// Server is the HTTP server for the skillrec API.
type Server struct {
	engine Recommender
	config *config.Config
	logger *zap.Logger
	server *http.Server

	lookupMu sync.Mutex
	lookup   *catalogLookup
}

// catalogLookup is the keyword index built for one engine index. The server holds
// one reference while it is current and each request holds one while it searches.
type catalogLookup struct {
	source  *index.Index
	index   *keyword.CatalogIndex
	speller *keyword.SpellChecker
	refs    atomic.Int32
}

func (l *catalogLookup) release() {
	if l.refs.Add(-1) == 0 {
		_ = l.index.Close()
	}
}

// NewServer creates a server with the given dependencies.
func NewServer(engine Recommender, cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine: engine,
		config: cfg,
		logger: logger,
	}
}

// Router returns the API handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Post("/recommend", s.handleRecommend)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/catalog", s.handleCatalog)
		r.Get("/assessments", s.handleAssessments)
		r.Get("/assessments/{id}", s.handleGetAssessment)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	s.lookupMu.Lock()
	defer s.lookupMu.Unlock()
	if s.lookup != nil {
		s.lookup.release()
		s.lookup = nil
	}
	return err
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("took", time.Since(start)))
	})
}

// catalogLookup returns the keyword index for the engine's current index, rebuilding
// it after the engine swaps indexes. The caller must release the returned lookup.
func (s *Server) catalogLookup() (*catalogLookup, error) {
	current := s.engine.Index()
	if current == nil {
		return nil, recommend.ErrNotReady
	}
	s.lookupMu.Lock()
	defer s.lookupMu.Unlock()
	if s.lookup == nil || s.lookup.source != current {
		kw, err := keyword.NewCatalogIndex(current.Entries())
		if err != nil {
			return nil, err
		}
		next := &catalogLookup{source: current, index: kw, speller: keyword.NewSpellChecker(kw)}
		next.refs.Store(1)
		if s.lookup != nil {
			s.lookup.release()
		}
		s.lookup = next
		s.logger.Debug("built keyword lookup", zap.Int("entries", current.Size()))
	}
	s.lookup.refs.Add(1)
	return s.lookup, nil
}
