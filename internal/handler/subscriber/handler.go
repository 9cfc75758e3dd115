package subscriber

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/internal/service/engagement"
	"github.com/lettermill/lettermill/internal/service/subscriber"
	"github.com/lettermill/lettermill/pkg/errors"
	"github.com/lettermill/lettermill/pkg/httputil"
)

// Handler exposes the admin subscriber surface: listing, CSV export/import,
// manual edits, and the engagement log.
type Handler struct {
	service       subscriber.Service
	engagementSvc engagement.Service
}

func NewHandler(service subscriber.Service, engagementSvc engagement.Service) *Handler {
	return &Handler{service: service, engagementSvc: engagementSvc}
}

// RegisterRoutes mounts the subscriber admin surface. Bulk import and GDPR
// deletion additionally require the admin flag.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	subscribers := r.Group("/subscribers")
	{
		subscribers.GET("", h.List)
		subscribers.GET("/stats", h.Stats)
		subscribers.GET("/export", h.Export)
		subscribers.POST("/import", adminOnly, h.Import)
		subscribers.GET("/:id", h.Get)
		subscribers.PUT("/:id", h.Update)
		subscribers.DELETE("/:id", adminOnly, h.Delete)
		subscribers.POST("/:id/bounce", h.MarkBounced)
		subscribers.POST("/:id/engagements", h.RecordEngagement)
		subscribers.GET("/:id/engagements", h.ListEngagements)
	}
}

func (h *Handler) List(c *gin.Context) {
	var filters model.SubscriberFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid filters", err))
		return
	}

	subs, total, err := h.service.List(c.Request.Context(), &filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithPagination(c, subs, filters.Page, filters.PageSize, total)
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, stats)
}

// Export streams the matching subscribers as a CSV download.
func (h *Handler) Export(c *gin.Context) {
	var filters model.SubscriberFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid filters", err))
		return
	}

	filename := fmt.Sprintf("subscribers-%s.csv", time.Now().Format("2006-01-02"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	c.Status(http.StatusOK)

	if err := h.service.ExportCSV(c.Request.Context(), &filters, c.Writer); err != nil {
		// Headers are already out; all we can do is log through gin.
		_ = c.Error(err)
	}
}

func (h *Handler) Import(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("missing CSV file", err))
		return
	}
	defer file.Close()

	result, err := h.service.ImportCSV(c.Request.Context(), file)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, result)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid subscriber ID", err))
		return
	}

	sub, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, sub)
}

type updateRequest struct {
	Email    string                 `json:"email" binding:"required,email"`
	Language string                 `json:"language" binding:"required"`
	Status   model.SubscriberStatus `json:"status" binding:"required"`
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid subscriber ID", err))
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid request body", err))
		return
	}

	sub, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	sub.Email = req.Email
	sub.Language = req.Language
	sub.Status = req.Status

	if err := h.service.Update(c.Request.Context(), sub); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, sub)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid subscriber ID", err))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "subscriber deleted")
}

func (h *Handler) MarkBounced(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid subscriber ID", err))
		return
	}

	if err := h.service.MarkBounced(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "subscriber marked as bounced")
}

func (h *Handler) RecordEngagement(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid subscriber ID", err))
		return
	}

	var req model.RecordEngagementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid request body", err))
		return
	}

	record, err := h.engagementSvc.Record(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, record)
}

func (h *Handler) ListEngagements(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid subscriber ID", err))
		return
	}

	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid pagination", err))
		return
	}
	p.Normalize()

	records, total, err := h.engagementSvc.ListForSubscriber(c.Request.Context(), id, p)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, records, p.Page, p.PageSize, total)
}
