package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/retailpulse/internal/pipeline"
	"github.com/smallbiznis/retailpulse/pkg/tenantctx"
	"go.uber.org/zap"
)

type eventRequest struct {
	TenantID    string            `json:"tenant_id"`
	Type        string            `json:"type" binding:"required"`
	OrderID     string            `json:"order_id"`
	CustomerID  string            `json:"customer_id"`
	CustomerIDs []string          `json:"customer_ids"`
	Metadata    map[string]string `json:"metadata"`
}

// handleIngestEvent accepts a retail event and queues it for asynchronous
// processing. 202 means queued, not processed.
func (s *Server) handleIngestEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.TenantID == "" {
		if tenantID, ok := tenantctx.TenantID(c.Request.Context()); ok {
			req.TenantID = tenantID
		}
	}

	kind := pipeline.EventKind(req.Type)
	targetID := req.OrderID
	if targetID == "" {
		targetID = req.CustomerID
	}

	job := pipeline.Job{
		ID:         s.genID.Generate().String(),
		TenantID:   req.TenantID,
		Kind:       kind,
		TargetID:   targetID,
		TargetIDs:  req.CustomerIDs,
		Metadata:   req.Metadata,
		EnqueuedAt: time.Now().UTC(),
	}

	if err := s.queue.Enqueue(c.Request.Context(), job); err != nil {
		var failure *pipeline.Failure
		if errors.As(err, &failure) && failure.Kind == pipeline.FailureValidation {
			abortWithError(c, http.StatusBadRequest, "invalid_event", failure.Err.Error())
			return
		}
		s.log.Error("enqueue failed", zap.String("job_id", job.ID), zap.Error(err))
		abortWithError(c, http.StatusServiceUnavailable, "queue_unavailable", "event could not be queued")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": job.ID,
		"status": "queued",
	})
}

type refreshRequest struct {
	TenantID    string   `json:"tenant_id" binding:"required"`
	CustomerIDs []string `json:"customer_ids" binding:"required,min=1"`
	ChunkSize   int      `json:"chunk_size"`

	// Omitted means full analysis; false limits the refresh to the
	// spend-derived fields.
	IncludeAdvancedAnalysis *bool `json:"include_advanced_analysis"`
}

// handleRefresh runs a bulk aggregate refresh synchronously and reports
// per-batch counts. Large batches should go through the queue instead.
func (s *Server) handleRefresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	advanced := true
	if req.IncludeAdvancedAnalysis != nil {
		advanced = *req.IncludeAdvancedAnalysis
	}
	result := s.coordinator.Refresh(c.Request.Context(), req.TenantID, req.CustomerIDs, req.ChunkSize, advanced)
	c.JSON(http.StatusOK, result)
}

func (s *Server) handlePipelineHealth(c *gin.Context) {
	snap := s.monitor.Snapshot()

	depth, err := s.queue.Depth(c.Request.Context())
	if err != nil {
		s.log.Warn("queue depth unavailable", zap.Error(err))
		depth = -1
	}

	c.JSON(http.StatusOK, gin.H{
		"pipeline":     snap,
		"queue_depth":  depth,
		"failed_count": s.runner.Failed().Len(),
	})
}

func (s *Server) handleFailedJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"failed": s.runner.Failed().Snapshot(),
	})
}
