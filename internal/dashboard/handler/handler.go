// Package handler exposes the dashboard aggregates over HTTP.
package handler

import (
	"github.com/gin-gonic/gin"

	"dentalcrm_backend/internal/dashboard/service"
	"dentalcrm_backend/platform/httpkit"
)

type Handler struct {
	service *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{service: svc}
}

func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/dashboard/stats", h.Stats)
}

func (h *Handler) Stats(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	stats, err := h.service.Stats(c.Request.Context(), identity.UserID())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, stats)
}
