package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"regnet/app"
	"regnet/domain/core"
	"regnet/internal/errors"
	"regnet/internal/inference"
	"regnet/internal/transition"
)

const defaultListLimit = 20

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": app.CodeVersion})
}

func (s *Server) handleInfer(c *gin.Context) {
	var req inferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	opts, err := req.Options.apply(s.defaults)
	if err != nil {
		s.respondError(c, err)
		return
	}
	opts.Logger = s.logger

	result, err := inference.Infer(c.Request.Context(), req.Motifs, req.Expression, opts)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleTransition(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	result, err := transition.Estimate(req.Baseline, req.Alternate, req.Options.apply(s.defaults))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleCreateAnalysis(c *gin.Context) {
	var req analysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	opts, err := req.Options.apply(s.defaults)
	if err != nil {
		s.respondError(c, err)
		return
	}
	null, err := req.Null.apply(s.defaults)
	if err != nil {
		s.respondError(c, err)
		return
	}
	randomization, err := randomizationOf(req.Randomization, s.defaults)
	if err != nil {
		s.respondError(c, err)
		return
	}

	report, err := s.analysis.Run(c.Request.Context(), app.AnalysisRequest{
		Edges:         req.Motifs,
		Baseline:      req.Baseline,
		Alternate:     req.Alternate,
		Inference:     opts,
		Transition:    req.Transition.apply(s.defaults),
		Null:          null,
		Randomization: randomization,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (s *Server) handleGetAnalysis(c *gin.Context) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		s.respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	report, err := s.analysis.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleListAnalyses(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil || limit < 0 {
		s.respondError(c, errors.InvalidInput("limit must be a non-negative integer"))
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		s.respondError(c, errors.InvalidInput("offset must be a non-negative integer"))
		return
	}
	summaries, err := s.analysis.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analyses": summaries})
}

// respondError maps an error code to its HTTP status
func (s *Server) respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func statusFor(code string) int {
	switch code {
	case errors.CodeValidationError, errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeConvergence:
		return http.StatusUnprocessableEntity
	case errors.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
