package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/skillrec/internal/index"
	"github.com/hyperjump/skillrec/internal/keyword"
	"github.com/hyperjump/skillrec/internal/models"
	"github.com/hyperjump/skillrec/internal/recommend"
	"github.com/hyperjump/skillrec/internal/search"
	"github.com/hyperjump/skillrec/internal/storage"
	"github.com/hyperjump/skillrec/internal/vector"
)

const (
	defaultLookupLimit = 10
	maxLookupLimit     = 100

	modeKeyword = "keyword"
	modeHybrid  = "hybrid"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("recommend request", zap.String("query", req.Query))

	rec, err := s.engine.Recommend(r.Context(), req.Query)
	if err != nil {
		s.serverError(w, "recommend failed", err)
		return
	}
	hits, err := s.engine.Search(r.Context(), req.Query, s.config.Recommend.ResponseK)
	if err != nil {
		s.serverError(w, "search failed", err)
		return
	}
	assessments := make([]models.Assessment, len(hits))
	for i, h := range hits {
		assessments[i] = h.Entry.ToAssessment()
	}
	s.respondJSON(w, http.StatusOK, models.RecommendResponse{
		RecommendedAssessments: assessments,
		Explanation:            rec.Text,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"state":        s.engine.State().String(),
		"catalog_path": s.config.Catalog.Path,
		"index_dir":    s.config.Index.Dir,
	}
	if idx := s.engine.Index(); idx != nil {
		m := idx.Manifest()
		resp["index_size"] = idx.Size()
		resp["index_type"] = m.IndexType
		resp["dimensions"] = m.Dimensions
		resp["model_id"] = m.ModelID
		resp["built_at"] = m.CreatedAt
	}
	resp["faiss_available"] = vector.IsFAISSAvailable()
	diskBytes, err := storage.DiskUsageBytes(s.config.Catalog.Path, s.config.Index.Dir)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	} else {
		s.logger.Warn("status: disk usage failed", zap.Error(err))
	}
	resp["config"] = map[string]interface{}{
		"embedding_provider": s.config.Embedding.Provider,
		"llm_model":          s.config.LLM.Model,
		"generation_enabled": s.config.LLM.APIKey != "",
		"top_k":              s.config.Recommend.TopK,
		"response_k":         s.config.Recommend.ResponseK,
		"watch":              s.config.Catalog.Watch,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type lookupResponse struct {
	Query      string         `json:"query"`
	Mode       string         `json:"mode"`
	Total      int            `json:"total"`
	Results    []lookupResult `json:"results"`
	Suggestion string         `json:"suggestion,omitempty"`
}

type lookupResult struct {
	Score         float64              `json:"score"`
	KeywordScore  float64              `json:"keyword_score,omitempty"`
	SemanticScore float64              `json:"semantic_score,omitempty"`
	Entry         *models.CatalogEntry `json:"entry"`
}

func (s *Server) handleAssessments(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := defaultLookupLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxLookupLimit)
	}
	fuzzy := r.URL.Query().Get("fuzzy") == "true"
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = modeKeyword
	}
	if mode != modeKeyword && mode != modeHybrid {
		s.respondError(w, http.StatusBadRequest, "mode must be keyword or hybrid")
		return
	}

	lookup, err := s.catalogLookup()
	if err != nil {
		s.serverError(w, "keyword lookup unavailable", err)
		return
	}
	defer lookup.release()
	opts := &keyword.SearchOptions{}
	if fuzzy {
		opts.Fuzziness = 1
	}
	results, err := lookup.index.Search(r.Context(), q, limit, opts)
	if err != nil {
		s.serverError(w, "keyword lookup failed", err)
		return
	}

	resp := lookupResponse{Query: q, Mode: mode}
	if mode == modeHybrid {
		hits, err := s.engine.Search(r.Context(), q, limit)
		if err != nil {
			s.serverError(w, "semantic lookup failed", err)
			return
		}
		fused := search.Fuse(search.NormalizeKeywordScores(results), search.SemanticScores(hits),
			search.DefaultKeywordWeight, search.DefaultSemanticWeight, limit)
		resp.Results = make([]lookupResult, len(fused))
		for i, f := range fused {
			resp.Results[i] = lookupResult{Score: f.Score, KeywordScore: f.KeywordScore, SemanticScore: f.SemanticScore, Entry: f.Entry}
		}
	} else {
		resp.Results = make([]lookupResult, len(results))
		for i, res := range results {
			resp.Results[i] = lookupResult{Score: res.Score, Entry: res.Entry}
		}
	}
	resp.Total = len(resp.Results)
	if len(results) == 0 {
		resp.Suggestion = lookup.speller.SuggestedQuery(q)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type catalogPage struct {
	Offset  int                    `json:"offset"`
	Limit   int                    `json:"limit"`
	Total   int64                  `json:"total"`
	Entries []*models.CatalogEntry `json:"entries"`
}

// handleCatalog pages through the persisted catalog in index order.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	offset, err := intParam(r, "offset", 0)
	if err != nil || offset < 0 {
		s.respondError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	limit, err := intParam(r, "limit", defaultLookupLimit)
	if err != nil || limit <= 0 {
		s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	limit = min(limit, maxLookupLimit)

	store, err := index.OpenCatalog(s.config.Index.Dir)
	if err != nil {
		s.serverError(w, "open catalog store failed", err)
		return
	}
	defer store.Close()
	total, err := store.CountEntries(r.Context())
	if err != nil {
		s.serverError(w, "count entries failed", err)
		return
	}
	entries, err := store.ListEntries(r.Context(), offset, limit)
	if err != nil {
		s.serverError(w, "list entries failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, catalogPage{Offset: offset, Limit: limit, Total: total, Entries: entries})
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	store, err := index.OpenCatalog(s.config.Index.Dir)
	if err != nil {
		s.serverError(w, "open catalog store failed", err)
		return
	}
	defer store.Close()
	entry, err := store.GetEntry(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "assessment not found")
		return
	}
	if err != nil {
		s.serverError(w, "get assessment failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, entry)
}

func (s *Server) serverError(w http.ResponseWriter, msg string, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, recommend.ErrNotReady) || errors.Is(err, index.ErrIndexNotFound) {
		status = http.StatusServiceUnavailable
	}
	s.logger.Error(msg, zap.Error(err))
	s.respondJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
