// Package api exposes network inference, transition estimation and full
// analyses over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"regnet/app"
	"regnet/internal"
	"regnet/internal/config"
)

// Server wires the HTTP routes to the analysis service
type Server struct {
	router     *gin.Engine
	analysis   *app.AnalysisService
	defaults   config.AnalysisConfig
	logger     *internal.Logger
	httpServer *http.Server
}

// NewServer creates a server. defaults supply every option a request omits.
func NewServer(analysis *app.AnalysisService, defaults config.AnalysisConfig, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.NopLogger()
	}
	s := &Server{
		router:   gin.New(),
		analysis: analysis,
		defaults: defaults,
		logger:   logger,
	}
	s.router.Use(gin.Recovery(), s.requestLogger())
	s.routes()
	return s
}

// Router returns the underlying gin engine
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) routes() {
	s.router.GET("/healthz", s.handleHealth)

	v1 := s.router.Group("/v1")
	{
		v1.POST("/networks/infer", s.handleInfer)
		v1.POST("/transitions", s.handleTransition)
		v1.POST("/analyses", s.handleCreateAnalysis)
		v1.GET("/analyses", s.handleListAnalyses)
		v1.GET("/analyses/:id", s.handleGetAnalysis)
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
