// Package api exposes the analyzer over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seo-optimizer/seolint/analyzer"
	"github.com/seo-optimizer/seolint/middleware"
	"github.com/seo-optimizer/seolint/stats"
)

// Server holds the dependencies of the HTTP handlers
type Server struct {
	analyzer    *analyzer.Analyzer
	stats       *stats.Storage
	rateLimiter *middleware.RateLimiter
}

// NewServer creates a Server. storage and limiter may be nil.
func NewServer(a *analyzer.Analyzer, storage *stats.Storage, limiter *middleware.RateLimiter) *Server {
	return &Server{analyzer: a, stats: storage, rateLimiter: limiter}
}

// Router builds the gin engine with every route and middleware.
func (s *Server) Router() *gin.Engine {
	r := gin.New()

	r.Use(middleware.ErrorHandler())
	var recorder middleware.RequestRecorder
	if s.stats != nil {
		recorder = s.stats
	}
	r.Use(middleware.StatsMiddleware(recorder))

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})

		analyze := api.Group("")
		if s.rateLimiter != nil {
			analyze.Use(s.rateLimiter.RateLimit())
		}
		analyze.POST("/analyze", s.analyzeURL)
		analyze.GET("/analyze/stream", s.streamAnalysis)

		api.GET("/statistics", s.statistics)
		api.GET("/statistics/months", s.statisticsMonths)
	}

	return r
}

// validURL reports whether raw is an absolute http(s) URL.
func validURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (s *Server) analyzeURL(c *gin.Context) {
	var request struct {
		URL string `json:"url" binding:"required,url"`
	}

	if err := c.ShouldBindJSON(&request); err != nil || !validURL(request.URL) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid URL provided",
		})
		return
	}

	slog.Info("Analyze request received", "client_ip", c.ClientIP(), "url", request.URL)
	report, err := s.analyzer.Analyze(c.Request.Context(), request.URL, nil)
	if err != nil {
		c.JSON(fetchErrorStatus(err), gin.H{
			"error": "Failed to analyze URL: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// streamAnalysis writes one JSON object per line: progress updates, then either
// {"result": report} or {"error": true, "msg": ...}.
func (s *Server) streamAnalysis(c *gin.Context) {
	rawURL := c.Query("url")

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	enc := json.NewEncoder(c.Writer)
	send := func(v interface{}) {
		if err := enc.Encode(v); err != nil {
			slog.Debug("Failed to write stream line", "error", err)
			return
		}
		c.Writer.Flush()
	}

	if !validURL(rawURL) {
		c.Status(http.StatusBadRequest)
		send(gin.H{"error": true, "msg": "Invalid URL: missing http(s)://"})
		return
	}

	c.Status(http.StatusOK)
	slog.Info("Stream analyze request received", "client_ip", c.ClientIP(), "url", rawURL)
	report, err := s.analyzer.Analyze(c.Request.Context(), rawURL, func(p analyzer.Progress) {
		send(p)
	})
	if err != nil {
		msg := "Failed to analyze URL: " + err.Error()
		if errors.Is(err, analyzer.ErrInvalidURL) {
			msg = "Invalid URL: " + err.Error()
		}
		send(gin.H{"error": true, "msg": msg})
		return
	}
	send(gin.H{"result": report})
}

// statistics returns the counters of the current month, or of the month given as
// ?month=YYYY-MM.
func (s *Server) statistics(c *gin.Context) {
	if s.stats == nil {
		c.JSON(http.StatusOK, stats.MonthlyStats{})
		return
	}

	month := c.Query("month")
	if month == "" {
		c.JSON(http.StatusOK, s.stats.GetCurrentStats())
		return
	}
	monthly, exists := s.stats.GetMonthlyStats(month)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No statistics for month " + month,
		})
		return
	}
	c.JSON(http.StatusOK, monthly)
}

func (s *Server) statisticsMonths(c *gin.Context) {
	months := []string{}
	if s.stats != nil {
		months = s.stats.GetAllMonths()
	}
	c.JSON(http.StatusOK, gin.H{"months": months})
}

func fetchErrorStatus(err error) int {
	switch {
	case errors.Is(err, analyzer.ErrInvalidURL):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
