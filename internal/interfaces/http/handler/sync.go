package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/commercedash/backend/internal/domain/commerce"
	"github.com/commercedash/backend/internal/interfaces/http/dto"
)

// SyncService is the application surface the sync endpoints drive.
type SyncService interface {
	RunSync(ctx context.Context, initial bool) (*commerce.SyncResult, error)
	LastRun() *commerce.SyncResult
}

// SyncHandler handles sync pipeline API endpoints
type SyncHandler struct {
	BaseHandler
	service SyncService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(service SyncService) *SyncHandler {
	return &SyncHandler{service: service}
}

// TriggerSyncRequest represents the manual sync trigger request body
type TriggerSyncRequest struct {
	// Initial selects the historical lookback window instead of the daily one
	Initial bool `json:"initial"`
}

// SyncResultResponse represents one completed sync run
type SyncResultResponse struct {
	RunID           string   `json:"run_id"`
	Initial         bool     `json:"initial"`
	Success         bool     `json:"success"`
	OrdersSynced    int      `json:"orders_synced"`
	ProductsSynced  int      `json:"products_synced"`
	CustomersSynced int      `json:"customers_synced"`
	TotalSynced     int      `json:"total_synced"`
	Errors          []string `json:"errors"`
	StartedAt       string   `json:"started_at"`
	FinishedAt      string   `json:"finished_at"`
}

func newSyncResultResponse(r *commerce.SyncResult) SyncResultResponse {
	errs := r.Errors
	if errs == nil {
		errs = []string{}
	}
	return SyncResultResponse{
		RunID:           r.RunID.String(),
		Initial:         r.Initial,
		Success:         r.Success(),
		OrdersSynced:    r.OrdersSynced,
		ProductsSynced:  r.ProductsSynced,
		CustomersSynced: r.CustomersSynced,
		TotalSynced:     r.TotalSynced(),
		Errors:          errs,
		StartedAt:       r.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt:      r.FinishedAt.UTC().Format(time.RFC3339),
	}
}

// TriggerSync godoc
// @ID           triggerSync
// @Summary      Trigger a sync run
// @Description  Runs a full pipeline pass over all configured platforms and returns the run summary. Only one run may be in flight at a time.
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        request body TriggerSyncRequest false "Run options"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Router       /sync [post]
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	var req TriggerSyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}

	result, err := h.service.RunSync(c.Request.Context(), req.Initial)
	if err != nil {
		if errors.Is(err, commerce.ErrSyncAlreadyRunning) {
			h.Conflict(c, dto.ErrCodeSyncRunning, "a sync run is already in progress")
			return
		}
		h.InternalError(c, err.Error())
		return
	}

	h.Success(c, newSyncResultResponse(result))
}

// GetLastRun godoc
// @ID           getLastSyncRun
// @Summary      Get the last sync run
// @Description  Returns the summary of the most recent completed sync run
// @Tags         sync
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /sync/last [get]
func (h *SyncHandler) GetLastRun(c *gin.Context) {
	last := h.service.LastRun()
	if last == nil {
		h.NotFound(c, "no sync run has completed yet")
		return
	}
	h.Success(c, newSyncResultResponse(last))
}

// RegisterRoutes registers all sync routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	{
		sync.POST("", h.TriggerSync)
		sync.GET("/last", h.GetLastRun)
	}
}
