package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/looplj/lakegate/internal/authz"
	"github.com/looplj/lakegate/internal/build"
	"github.com/looplj/lakegate/internal/store"
)

// statusFromError maps the error taxonomy onto HTTP statuses.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, authz.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, store.ErrEmptyWindow):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFromError(err), gin.H{"error": err.Error()})
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": build.Version,
	})
}

func (s *Server) handleIngestRaw(c *gin.Context) {
	var rec store.RawRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stored, err := s.governance.IngestRaw(c.Request.Context(), rec)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, stored)
}

func (s *Server) handleListRaw(c *gin.Context) {
	var limit uint64

	if v := c.Query("limit"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}

		limit = n
	}

	recs, err := s.governance.ListRaw(c.Request.Context(), c.Query("company"), limit)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"records": recs})
}

func (s *Server) handleGetRaw(c *gin.Context) {
	rec, err := s.governance.GetRaw(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleDeriveCleaned(c *gin.Context) {
	rec, err := s.governance.DeriveCleaned(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rec)
}

func (s *Server) handleGetCleaned(c *gin.Context) {
	rec, err := s.governance.GetCleaned(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

type updateScoresRequest struct {
	SentimentScore *float64  `json:"sentiment_score"`
	Embedding      []float64 `json:"embedding"`
}

func (s *Server) handleUpdateScores(c *gin.Context) {
	var req updateScoresRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.governance.UpdateScores(c.Request.Context(), c.Param("id"), req.SentimentScore, req.Embedding)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type aggregateRequest struct {
	Company            string   `json:"company" binding:"required"`
	WeekStart          string   `json:"week_start" binding:"required"`
	TopThemes          []string `json:"top_themes"`
	GeneratedSummaries []string `json:"generated_summaries"`
}

func (s *Server) handleAggregateWeek(c *gin.Context) {
	var req aggregateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	weekStart, err := time.Parse(time.DateOnly, req.WeekStart)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "week_start must be YYYY-MM-DD"})
		return
	}

	rec, err := s.governance.AggregateWeek(c.Request.Context(), req.Company, weekStart,
		req.TopThemes, req.GeneratedSummaries)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

type aggregateRunRequest struct {
	WeekStart string `json:"week_start" binding:"required"`
}

func (s *Server) handleAggregateRun(c *gin.Context) {
	// The batch runner escalates to a system bypass internally, so only
	// privileged callers may trigger it.
	p, ok := authz.GetPrincipal(c.Request.Context())
	if !ok || !p.IsPrivileged() {
		abortWithError(c, authz.ErrAccessDenied)
		return
	}

	var req aggregateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	weekStart, err := time.Parse(time.DateOnly, req.WeekStart)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "week_start must be YYYY-MM-DD"})
		return
	}

	recs, err := s.governance.AggregateAllCompanies(c.Request.Context(), weekStart)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"aggregates": recs})
}

func (s *Server) handleGetAggregate(c *gin.Context) {
	weekStart, err := time.Parse(time.DateOnly, c.Param("week"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "week must be YYYY-MM-DD"})
		return
	}

	rec, err := s.governance.GetAggregate(c.Request.Context(), c.Param("company"), weekStart)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleListChecks(c *gin.Context) {
	var since *time.Time

	if v := c.Query("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
			return
		}

		since = &t
	}

	entries, err := s.ledger.ListChecks(c.Request.Context(), c.Query("table"), since)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"checks": entries})
}

func (s *Server) handleRunChecks(c *gin.Context) {
	entries, err := s.ledger.RunBuiltinChecks(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"checks": entries})
}
