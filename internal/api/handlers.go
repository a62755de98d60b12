package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/infra/storage"
)

type bridgeRequest struct {
	Amount string `json:"amount" binding:"required"`
}

type statusResponse struct {
	Busy bool       `json:"busy"`
	Run  domain.Run `json:"run"`
}

type errorResponse struct {
	Error string      `json:"error"`
	Run   *domain.Run `json:"run,omitempty"`
}

// StartBridge starts a run with the connected accounts.
func (s *Server) StartBridge(c *gin.Context) {
	var req bridgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	run, err := s.runner.Start(s.runCtx, domain.Request{SourceAmount: req.Amount})
	switch {
	case errors.Is(err, domain.ErrBusy):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrPrecondition):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Run: &run})
	case err != nil:
		s.log.Error("Failed to start bridge run", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusAccepted, run)
	}
}

// Status returns the current run; busy mirrors whether a new run would be
// rejected.
func (s *Server) Status(c *gin.Context) {
	c.JSON(http.StatusOK, statusResponse{
		Busy: s.runner.Busy(),
		Run:  s.runner.Snapshot(),
	})
}

func (s *Server) Cancel(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cancelled": s.runner.Cancel()})
}

func (s *Server) Reset(c *gin.Context) {
	if err := s.runner.Reset(); err != nil {
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.runner.Snapshot())
}

func (s *Server) ListRuns(c *gin.Context) {
	if s.journal == nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: "run journal disabled"})
		return
	}

	limit := storage.DefaultListLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	runs, err := s.journal.List(c.Request.Context(), limit)
	if err != nil {
		s.log.Error("Failed to list runs", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if runs == nil {
		runs = []domain.Run{}
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) GetRun(c *gin.Context) {
	if s.journal == nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: "run journal disabled"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid run id"})
		return
	}

	run, err := s.journal.Get(c.Request.Context(), id)
	if errors.Is(err, storage.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		s.log.Error("Failed to get run", "run", id, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}

// Health reports dependency checks and RPC provider state. Any failing
// check turns the response into 503.
func (s *Server) Health(c *gin.Context) {
	status := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(c.Request.Context()); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	providers := make(map[string]any, len(s.providers))
	for chain, fn := range s.providers {
		providers[chain] = fn()
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":    state,
		"checks":    checks,
		"providers": providers,
	})
}
