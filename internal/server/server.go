// Package server exposes the scanning pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"billscan/internal/common"
	"billscan/internal/ledger"
	"billscan/internal/pipeline"
	"billscan/internal/repository"
	"billscan/internal/rules"
)

// Server holds the session state and capabilities behind the HTTP API.
// The store may be nil; the session ledger then is the only backing.
type Server struct {
	cfg     *common.Config
	proc    *pipeline.Processor
	session *ledger.Session
	store   repository.Store
	rules   *rules.Compiled
	logger  *slog.Logger
	engine  *gin.Engine
}

func New(cfg *common.Config, proc *pipeline.Processor, session *ledger.Session,
	store repository.Store, rs *rules.Compiled, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		proc:    proc,
		session: session,
		store:   store,
		rules:   rs,
		logger:  logger,
	}
	s.engine = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.MaxMultipartMemory = s.cfg.Server.MaxUploadBytes

	r.GET("/healthz", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/documents", s.scanDocument)
		v1.POST("/records", s.confirmRecord)
		v1.GET("/records", s.listRecords)
		v1.GET("/records/summary", s.summarizeRecords)
		v1.GET("/records/export.csv", s.exportCSV)
		v1.GET("/records/export.xlsx", s.exportXLSX)
	}
	return r
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Server.Addr,
		Handler: s.engine,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http serving", "addr", s.cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}

// fail writes the uniform inline error shape: which stage failed and why.
func (s *Server) fail(c *gin.Context, err error) {
	c.JSON(common.HTTPStatus(err), gin.H{
		"stage": common.ErrorStage(err),
		"error": err.Error(),
	})
}
