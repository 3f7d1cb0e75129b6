package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/gigshield/internal/analytics"
	"github.com/ppiankov/gigshield/internal/knowledge"
	"github.com/ppiankov/gigshield/internal/model"
	"github.com/ppiankov/gigshield/internal/score"
)

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "GigShield API",
		"status":  "running",
		"version": s.opts.Version,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":             "healthy",
		"store":              s.opts.StoreBackend,
		"llm_provider":       s.opts.Assistant.ProviderName(),
		"llm_configured":     s.opts.Assistant.Enabled(),
		"vector_search":      s.opts.Knowledge.VectorEnabled(),
		"evidence_uploads":   s.opts.Evidence != nil,
		"knowledge_articles": len(s.opts.Knowledge.Documents()),
	})
}

func (s *Server) handleKnowledgeSearch(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		abort(c, http.StatusBadRequest, "query is required")
		return
	}
	topK := searchTopK
	if raw := c.Query("top_k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			abort(c, http.StatusBadRequest, "top_k must be a positive integer")
			return
		}
		topK = n
	}

	results := s.opts.Knowledge.Search(c.Request.Context(), query, topK, model.SearchFilters{})
	results = knowledge.FilterResults(results, model.SearchFilters{
		Category: c.Query("category"),
		State:    c.Query("state"),
		Platform: c.Query("platform"),
	})

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"results": results,
		"total":   len(results),
	})
}

func (s *Server) handleKnowledgeCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": s.opts.Knowledge.Categories()})
}

func (s *Server) handleKnowledgeStates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"states": s.opts.Knowledge.States()})
}

func (s *Server) handleKnowledgePlatforms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"platforms": s.opts.Knowledge.Platforms()})
}

func (s *Server) handleAnalyticsOverview(c *gin.Context) {
	cases, err := s.opts.Store.ListCases(c.Request.Context())
	if err != nil {
		slog.Error("Analytics failed", "error", err)
		abort(c, http.StatusInternalServerError, "Failed to fetch analytics: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, analytics.Overview(cases))
}

func (s *Server) handleCaseScore(c *gin.Context) {
	id := c.Param("id")
	found, err := s.opts.Store.GetCase(c.Request.Context(), id)
	if err != nil {
		if statusFor(err) == http.StatusNotFound {
			abort(c, http.StatusNotFound, "Case not found")
			return
		}
		abort(c, http.StatusInternalServerError, "Error computing score: "+err.Error())
		return
	}

	result := s.scorer.Calculate(score.SnapshotFromCase(*found), s.now())
	result.CaseID = id
	c.JSON(http.StatusOK, result)
}
