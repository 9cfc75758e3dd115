package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/internal/service/auth"
	"github.com/lettermill/lettermill/pkg/errors"
	"github.com/lettermill/lettermill/pkg/httputil"
)

type Handler struct {
	service auth.Service
}

func NewHandler(service auth.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/auth/login", h.Login)
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid request body", err))
		return
	}

	token, staff, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{
		"token": token,
		"staff": gin.H{
			"id":       staff.ID,
			"email":    staff.Email,
			"name":     staff.Name,
			"is_admin": staff.IsAdmin,
		},
	})
}
