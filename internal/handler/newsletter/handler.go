package newsletter

import (
	"github.com/gin-gonic/gin"

	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/internal/service/subscriber"
	"github.com/lettermill/lettermill/pkg/errors"
	"github.com/lettermill/lettermill/pkg/httputil"
)

// Handler exposes the public newsletter surface: subscription intake and the
// token links embedded in confirmation and footer emails.
type Handler struct {
	service subscriber.Service
}

func NewHandler(service subscriber.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	newsletter := r.Group("/newsletter")
	{
		newsletter.POST("/subscribe", h.Subscribe)
		newsletter.GET("/confirm/:token", h.Confirm)
		newsletter.GET("/unsubscribe/:token", h.Unsubscribe)
		newsletter.POST("/unsubscribe/:token", h.Unsubscribe)
	}
}

func (h *Handler) Subscribe(c *gin.Context) {
	var req model.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid request body", err))
		return
	}

	sub, err := h.service.Subscribe(c.Request.Context(), &req, c.ClientIP())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{
		"email":   sub.Email,
		"status":  sub.Status,
		"message": "confirmation email sent",
	})
}

func (h *Handler) Confirm(c *gin.Context) {
	sub, err := h.service.Confirm(c.Request.Context(), c.Param("token"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{
		"email":        sub.Email,
		"status":       sub.Status,
		"confirmed_at": sub.ConfirmedAt,
	})
}

func (h *Handler) Unsubscribe(c *gin.Context) {
	sub, err := h.service.Unsubscribe(c.Request.Context(), c.Param("token"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{
		"email":  sub.Email,
		"status": sub.Status,
	})
}
