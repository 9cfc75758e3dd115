package article

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/internal/service/article"
	"github.com/lettermill/lettermill/pkg/errors"
	"github.com/lettermill/lettermill/pkg/httputil"
)

// Handler exposes article management for staff and the public read surface.
type Handler struct {
	service article.Service
}

func NewHandler(service article.Service) *Handler {
	return &Handler{service: service}
}

// RegisterAdminRoutes mounts the full editorial surface.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	articles := r.Group("/articles")
	{
		articles.POST("", h.Create)
		articles.GET("", h.List)
		articles.GET("/:id", h.Get)
		articles.PUT("/:id", h.Update)
		articles.DELETE("/:id", h.Delete)
		articles.POST("/:id/publish", h.Publish)
		articles.POST("/:id/unpublish", h.Unpublish)
		articles.GET("/:id/pages", h.ListPages)
		articles.PUT("/:id/pages/:page", h.SavePage)
		articles.GET("/:id/pages/:page", h.GetPage)
		articles.DELETE("/:id/pages/:page", h.DeletePage)
	}
}

// RegisterPublicRoutes mounts the read-only surface; only published
// articles are served here.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	articles := r.Group("/articles")
	{
		articles.GET("", h.ListPublished)
		articles.GET("/:slug", h.GetPublished)
		articles.GET("/:slug/pages/:page", h.GetPublishedPage)
	}
}

type articleRequest struct {
	Title    string `json:"title" binding:"required"`
	Slug     string `json:"slug"`
	Summary  string `json:"summary"`
	Language string `json:"language" binding:"required"`
}

func (h *Handler) Create(c *gin.Context) {
	var req articleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid request body", err))
		return
	}

	a := &model.Article{
		Title:    req.Title,
		Slug:     req.Slug,
		Summary:  req.Summary,
		Language: req.Language,
	}
	if err := h.service.Create(c.Request.Context(), a); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, a)
}

func (h *Handler) List(c *gin.Context) {
	var filters model.ArticleFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid filters", err))
		return
	}

	articles, total, err := h.service.List(c.Request.Context(), &filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, articles, filters.Page, filters.PageSize, total)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid article ID", err))
		return
	}

	a, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, a)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid article ID", err))
		return
	}

	var req articleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid request body", err))
		return
	}

	a, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	a.Title = req.Title
	a.Summary = req.Summary
	a.Language = req.Language
	if req.Slug != "" {
		a.Slug = req.Slug
	}
	if err := h.service.Update(c.Request.Context(), a); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, a)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid article ID", err))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "article deleted")
}

func (h *Handler) Publish(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid article ID", err))
		return
	}

	a, err := h.service.Publish(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, a)
}

func (h *Handler) Unpublish(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid article ID", err))
		return
	}

	a, err := h.service.Unpublish(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, a)
}

type pageRequest struct {
	Body string `json:"body" binding:"required"`
}

func (h *Handler) SavePage(c *gin.Context) {
	id, pageNumber, err := pageParams(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid request body", err))
		return
	}

	page, err := h.service.SavePage(c.Request.Context(), id, pageNumber, req.Body)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, page)
}

func (h *Handler) GetPage(c *gin.Context) {
	id, pageNumber, err := pageParams(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	page, err := h.service.GetPage(c.Request.Context(), id, pageNumber)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, page)
}

func (h *Handler) ListPages(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid article ID", err))
		return
	}

	pages, err := h.service.ListPages(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, pages)
}

func (h *Handler) DeletePage(c *gin.Context) {
	id, pageNumber, err := pageParams(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.service.DeletePage(c.Request.Context(), id, pageNumber); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "page deleted")
}

func (h *Handler) ListPublished(c *gin.Context) {
	var filters model.ArticleFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid filters", err))
		return
	}
	filters.Status = model.ArticleStatusPublished

	articles, total, err := h.service.List(c.Request.Context(), &filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, articles, filters.Page, filters.PageSize, total)
}

func (h *Handler) GetPublished(c *gin.Context) {
	a, err := h.service.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if a.Status != model.ArticleStatusPublished {
		httputil.RespondWithError(c, errors.NotFound("article", nil))
		return
	}
	httputil.RespondWithSuccess(c, a)
}

func (h *Handler) GetPublishedPage(c *gin.Context) {
	a, err := h.service.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if a.Status != model.ArticleStatusPublished {
		httputil.RespondWithError(c, errors.NotFound("article", nil))
		return
	}

	pageNumber, err := strconv.Atoi(c.Param("page"))
	if err != nil || pageNumber < 1 {
		httputil.RespondWithError(c, errors.BadRequest("invalid page number", err))
		return
	}

	page, err := h.service.GetPage(c.Request.Context(), a.ID, pageNumber)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{
		"article": a,
		"page":    page,
	})
}

func pageParams(c *gin.Context) (uuid.UUID, int, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, 0, errors.BadRequest("invalid article ID", err)
	}
	pageNumber, err := strconv.Atoi(c.Param("page"))
	if err != nil || pageNumber < 1 {
		return uuid.Nil, 0, errors.BadRequest("invalid page number", err)
	}
	return id, pageNumber, nil
}
