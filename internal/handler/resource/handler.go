package resource

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/internal/service/resource"
	"github.com/lettermill/lettermill/pkg/errors"
	"github.com/lettermill/lettermill/pkg/httputil"
)

// Handler exposes resource uploads. Bytes never pass through the API;
// clients upload directly to storage using presigned URLs.
type Handler struct {
	service resource.Service
}

func NewHandler(service resource.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	resources := r.Group("/resources")
	{
		resources.POST("", h.CreateUpload)
		resources.GET("", h.List)
		resources.GET("/:id", h.Get)
		resources.DELETE("/:id", h.Delete)
		resources.POST("/:id/finish", h.FinishUpload)
		resources.GET("/:id/download-url", h.DownloadURL)

		resources.POST("/multipart", h.CreateMultipart)
		resources.GET("/:id/parts/:partNumber", h.PartURL)
		resources.POST("/:id/complete", h.CompleteMultipart)
		resources.POST("/:id/abort", h.AbortMultipart)
	}
}

func (h *Handler) CreateUpload(c *gin.Context) {
	var req model.CreateResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid request body", err))
		return
	}

	ticket, err := h.service.CreateUpload(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, ticket)
}

type finishRequest struct {
	Size int64 `json:"size"`
}

func (h *Handler) FinishUpload(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid resource ID", err))
		return
	}

	var req finishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid request body", err))
		return
	}

	res, err := h.service.FinishUpload(c.Request.Context(), id, req.Size)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, res)
}

func (h *Handler) CreateMultipart(c *gin.Context) {
	var req model.CreateMultipartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid request body", err))
		return
	}

	ticket, err := h.service.CreateMultipart(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, ticket)
}

func (h *Handler) PartURL(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid resource ID", err))
		return
	}

	partNumber, err := strconv.ParseInt(c.Param("partNumber"), 10, 32)
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid part number", err))
		return
	}

	url, err := h.service.PartURL(c.Request.Context(), id, int32(partNumber))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{
		"part_number": partNumber,
		"upload_url":  url,
	})
}

func (h *Handler) CompleteMultipart(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid resource ID", err))
		return
	}

	var req model.CompleteMultipartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid request body", err))
		return
	}

	res, err := h.service.CompleteMultipart(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, res)
}

func (h *Handler) AbortMultipart(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid resource ID", err))
		return
	}

	res, err := h.service.AbortMultipart(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, res)
}

func (h *Handler) DownloadURL(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid resource ID", err))
		return
	}

	url, err := h.service.DownloadURL(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"download_url": url})
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid resource ID", err))
		return
	}

	res, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, res)
}

func (h *Handler) List(c *gin.Context) {
	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid pagination", err))
		return
	}
	p.Normalize()

	resources, total, err := h.service.List(c.Request.Context(), p)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, resources, p.Page, p.PageSize, total)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid resource ID", err))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "resource deleted")
}
