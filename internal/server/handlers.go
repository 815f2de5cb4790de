package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/runnerr0/webpersona/internal/analysis"
	"github.com/runnerr0/webpersona/internal/config"
	"github.com/runnerr0/webpersona/internal/engagement"
	"github.com/runnerr0/webpersona/internal/history"
	"github.com/runnerr0/webpersona/internal/storage"
)

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "webpersona",
		"version": s.opts.Version,
	})
}

// fail records err on the context for the request log and writes a JSON
// error body.
func fail(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// decodeStatus maps a body decoding error to 413 or 400.
func decodeStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func (s *Server) handleEngagement(c *gin.Context) {
	var e engagement.Entry
	if err := c.ShouldBindJSON(&e); err != nil {
		fail(c, decodeStatus(err), fmt.Errorf("invalid engagement body: %w", err))
		return
	}

	stored, err := s.engagement.Log(c.Request.Context(), &e)
	if err != nil {
		if errors.Is(err, engagement.ErrInvalidEntry) {
			fail(c, http.StatusBadRequest, err)
			return
		}
		fail(c, http.StatusInternalServerError, err)
		return
	}

	if !stored {
		c.JSON(http.StatusOK, gin.H{"stored": false, "reason": "excluded"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"stored": true, "entry": e})
}

func (s *Server) handleEngagementSummary(c *gin.Context) {
	since, err := config.Since(c.DefaultQuery("since", "7d"), s.now())
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	d, err := s.engagement.Dashboard(c.Request.Context(), since)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// handleAnalyze scores a batch of extension history items and saves the
// result as the newest snapshot.
func (s *Server) handleAnalyze(c *gin.Context) {
	days := s.opts.TimeframeDays
	if q := c.Query("days"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			fail(c, http.StatusBadRequest, fmt.Errorf("invalid days: %q", q))
			return
		}
		days = n
	}

	items, err := history.DecodeItems(c.Request.Body)
	if err != nil {
		fail(c, decodeStatus(err), err)
		return
	}

	q := history.Query{Limit: s.opts.MaxResults}
	if days > 0 {
		q.Since = s.now().AddDate(0, 0, -days)
	}
	records := history.FromItems(items, q)

	ctx := c.Request.Context()
	snap := &storage.Snapshot{TimeframeDays: days, Result: s.analyzer.Analyze(records)}
	if err := s.store.SaveAnalysis(ctx, snap); err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	if err := s.store.Audit(ctx, storage.AuditAnalysis, fmt.Sprintf("source=daemon id=%s records=%d", snap.ID, len(records))); err != nil {
		s.log.WithError(err).Warn("audit analysis failed")
	}

	s.log.WithField("id", snap.ID).WithField("records", len(records)).Info("analysis saved")
	c.JSON(http.StatusCreated, snap)
}

func (s *Server) lastSnapshot(c *gin.Context) (*storage.Snapshot, bool) {
	snap, err := s.store.LastAnalysis(c.Request.Context())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fail(c, http.StatusNotFound, err)
			return nil, false
		}
		fail(c, http.StatusInternalServerError, err)
		return nil, false
	}
	return snap, true
}

func (s *Server) handleLastAnalysis(c *gin.Context) {
	if snap, ok := s.lastSnapshot(c); ok {
		c.JSON(http.StatusOK, snap)
	}
}

// handleLastSummary returns only the sanitized projection, never sites
// beyond domain and visit count.
func (s *Server) handleLastSummary(c *gin.Context) {
	if snap, ok := s.lastSnapshot(c); ok {
		c.JSON(http.StatusOK, analysis.Summarize(snap.Result, snap.TimeframeDays))
	}
}
