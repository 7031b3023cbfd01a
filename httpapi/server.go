// Package httpapi exposes the analysis pipeline over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/poiesic/minutia/core"
	"github.com/poiesic/minutia/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultAddr matches the port the web client expects.
const DefaultAddr = ":3001"

// Analyzer runs the full pipeline.
type Analyzer interface {
	Run(ctx context.Context, transcript string) (*pipeline.Result, error)
}

// Indexer stores raw documents.
type Indexer interface {
	IndexTexts(ctx context.Context, texts []string, projectName, department string, date time.Time) (int, error)
}

// Retriever looks up prior context.
type Retriever interface {
	Retrieve(ctx context.Context, q core.RetrievalQuery) (string, error)
}

// Deps are the components served by the API.
type Deps struct {
	Analyzer  Analyzer
	Indexer   Indexer
	Retriever Retriever
	// Gatherer backs /metrics. Default is prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Server provides the HTTP endpoints.
type Server struct {
	echo   *echo.Echo
	deps   Deps
	now    func() time.Time
	logger *slog.Logger
}

// NewServer creates a server with its routes registered.
func NewServer(deps Deps) (*Server, error) {
	if deps.Analyzer == nil || deps.Indexer == nil || deps.Retriever == nil {
		return nil, errors.New("analyzer, indexer and retriever are required")
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.Info("http request",
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"status", c.Response().Status,
				"duration", time.Since(start),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)
			return nil
		}
	})

	s := &Server{
		echo:   e,
		deps:   deps,
		now:    time.Now,
		logger: logger,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))

	api := s.echo.Group("/api")
	api.POST("/analyze", s.handleAnalyze)
	api.POST("/embed-upsert", s.handleEmbedUpsert)
	api.POST("/retrieve", s.handleRetrieve)
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	s.logger.Info("starting http server", "addr", addr)
	err := s.echo.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	Transcript string `json:"transcript"`
}

func (s *Server) handleAnalyze(c echo.Context) error {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := core.ValidateTranscript(req.Transcript); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "transcript is required")
	}

	result, err := s.deps.Analyzer.Run(c.Request().Context(), req.Transcript)
	if err != nil {
		s.logger.Error("analysis failed", "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

// EmbedUpsertRequest is the body of POST /api/embed-upsert. Documents is
// kept raw so that a non-array value can be rejected with a clear message.
type EmbedUpsertRequest struct {
	Documents   json.RawMessage `json:"documents"`
	ProjectName string          `json:"projectName"`
	Department  string          `json:"department"`
	DateISO     string          `json:"dateISO"`
}

// EmbedUpsertResponse is the body returned by POST /api/embed-upsert.
type EmbedUpsertResponse struct {
	OK    bool `json:"ok"`
	Count int  `json:"count"`
}

func (s *Server) handleEmbedUpsert(c echo.Context) error {
	var req EmbedUpsertRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var documents []string
	if len(req.Documents) == 0 || json.Unmarshal(req.Documents, &documents) != nil || documents == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "documents must be an array of strings")
	}
	for _, doc := range documents {
		if strings.TrimSpace(doc) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "documents must be non-empty strings")
		}
	}

	project := orDefault(req.ProjectName, core.DefaultProjectName)
	department := orDefault(req.Department, core.DefaultDepartment)
	date := s.now()
	if req.DateISO != "" {
		parsed, err := time.Parse(time.RFC3339Nano, req.DateISO)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "dateISO must be an ISO-8601 timestamp")
		}
		date = parsed
	}

	n, err := s.deps.Indexer.IndexTexts(c.Request().Context(), documents, project, department, date)
	if err != nil {
		s.logger.Error("embed-upsert failed", "project", project, "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, EmbedUpsertResponse{OK: true, Count: n})
}

// RetrieveRequest is the body of POST /api/retrieve.
type RetrieveRequest struct {
	ProjectName string `json:"projectName"`
	Department  string `json:"department"`
	SearchQuery string `json:"searchQuery"`
	K           int    `json:"k"`
}

// RetrieveResponse is the body returned by POST /api/retrieve.
type RetrieveResponse struct {
	Context string `json:"context"`
}

func (s *Server) handleRetrieve(c echo.Context) error {
	var req RetrieveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	q := core.RetrievalQuery{
		ProjectName: req.ProjectName,
		Department:  req.Department,
		SearchQuery: req.SearchQuery,
		TopK:        req.K,
	}
	if err := core.ValidateQuery(q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	q.TopK = q.Limit()

	text, err := s.deps.Retriever.Retrieve(c.Request().Context(), q)
	if err != nil {
		s.logger.Error("retrieve failed", "project", q.ProjectName, "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, RetrieveResponse{Context: text})
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
