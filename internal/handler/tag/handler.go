package tag

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/internal/service/tag"
	"github.com/lettermill/lettermill/pkg/errors"
	"github.com/lettermill/lettermill/pkg/httputil"
)

// Handler exposes the admin tag and segment surface.
type Handler struct {
	service tag.Service
}

func NewHandler(service tag.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	tags := r.Group("/tags")
	{
		tags.POST("", h.CreateTag)
		tags.GET("", h.ListTags)
		tags.GET("/:id", h.GetTag)
		tags.PUT("/:id", h.UpdateTag)
		tags.DELETE("/:id", h.DeleteTag)
		tags.POST("/:id/subscribers/:subscriberId", h.AssignTag)
		tags.DELETE("/:id/subscribers/:subscriberId", h.RemoveTag)
	}

	segments := r.Group("/segments")
	{
		segments.POST("", h.CreateSegment)
		segments.GET("", h.ListSegments)
		segments.GET("/:id", h.GetSegment)
		segments.PUT("/:id", h.UpdateSegment)
		segments.DELETE("/:id", h.DeleteSegment)
		segments.GET("/:id/members", h.ListSegmentMembers)
		segments.POST("/:id/members/:subscriberId", h.AddSegmentMember)
		segments.DELETE("/:id/members/:subscriberId", h.RemoveSegmentMember)
	}
}

type tagRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *Handler) CreateTag(c *gin.Context) {
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid request body", err))
		return
	}

	t := &model.Tag{Name: req.Name, Description: req.Description}
	if err := h.service.CreateTag(c.Request.Context(), t); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, t)
}

func (h *Handler) ListTags(c *gin.Context) {
	tags, err := h.service.ListTags(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, tags)
}

func (h *Handler) GetTag(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid tag ID", err))
		return
	}

	t, err := h.service.GetTag(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, t)
}

func (h *Handler) UpdateTag(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid tag ID", err))
		return
	}

	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid request body", err))
		return
	}

	t, err := h.service.GetTag(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	t.Name = req.Name
	t.Description = req.Description
	if err := h.service.UpdateTag(c.Request.Context(), t); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, t)
}

func (h *Handler) DeleteTag(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid tag ID", err))
		return
	}

	if err := h.service.DeleteTag(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "tag deleted")
}

func (h *Handler) AssignTag(c *gin.Context) {
	tagID, subscriberID, err := pairIDs(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.service.AssignTag(c.Request.Context(), tagID, subscriberID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "tag assigned")
}

func (h *Handler) RemoveTag(c *gin.Context) {
	tagID, subscriberID, err := pairIDs(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.service.RemoveTag(c.Request.Context(), tagID, subscriberID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "tag removed")
}

type segmentRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *Handler) CreateSegment(c *gin.Context) {
	var req segmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid request body", err))
		return
	}

	seg := &model.Segment{Name: req.Name, Description: req.Description}
	if err := h.service.CreateSegment(c.Request.Context(), seg); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, seg)
}

func (h *Handler) ListSegments(c *gin.Context) {
	segments, err := h.service.ListSegments(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, segments)
}

func (h *Handler) GetSegment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid segment ID", err))
		return
	}

	seg, err := h.service.GetSegment(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, seg)
}

func (h *Handler) UpdateSegment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid segment ID", err))
		return
	}

	var req segmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid request body", err))
		return
	}

	seg, err := h.service.GetSegment(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	seg.Name = req.Name
	seg.Description = req.Description
	if err := h.service.UpdateSegment(c.Request.Context(), seg); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, seg)
}

func (h *Handler) DeleteSegment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid segment ID", err))
		return
	}

	if err := h.service.DeleteSegment(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "segment deleted")
}

func (h *Handler) ListSegmentMembers(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid segment ID", err))
		return
	}

	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid pagination", err))
		return
	}
	p.Normalize()

	members, total, err := h.service.ListSegmentMembers(c.Request.Context(), id, p)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, members, p.Page, p.PageSize, total)
}

func (h *Handler) AddSegmentMember(c *gin.Context) {
	segmentID, subscriberID, err := pairIDs(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.service.AddSegmentMember(c.Request.Context(), segmentID, subscriberID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "member added")
}

func (h *Handler) RemoveSegmentMember(c *gin.Context) {
	segmentID, subscriberID, err := pairIDs(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.service.RemoveSegmentMember(c.Request.Context(), segmentID, subscriberID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "member removed")
}

func pairIDs(c *gin.Context) (uuid.UUID, uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, errors.BadRequest("invalid ID", err)
	}
	subscriberID, err := uuid.Parse(c.Param("subscriberId"))
	if err != nil {
		return uuid.Nil, uuid.Nil, errors.BadRequest("invalid subscriber ID", err)
	}
	return id, subscriberID, nil
}
