// Package handler exposes notification routes over HTTP.
package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dentalcrm_backend/internal/notification/repository"
	"dentalcrm_backend/internal/notification/service"
	"dentalcrm_backend/platform/apperr"
	"dentalcrm_backend/platform/httpkit"
	"dentalcrm_backend/platform/validator"
)

type CreateNotificationRequest struct {
	LeadID       int64     `json:"leadId" validate:"required,gt=0"`
	Type         string    `json:"type" validate:"required,oneof=appointment_reminder follow_up custom"`
	Title        string    `json:"title" validate:"required,max=255"`
	Message      string    `json:"message,omitempty"`
	ScheduledFor time.Time `json:"scheduledFor" validate:"required"`
}

type NotificationResponse struct {
	ID           int64      `json:"id"`
	LeadID       int64      `json:"leadId"`
	UserID       int64      `json:"userId"`
	Type         string     `json:"type"`
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	ScheduledFor time.Time  `json:"scheduledFor"`
	Sent         bool       `json:"sent"`
	SentAt       *time.Time `json:"sentAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type Handler struct {
	service *service.Service
	val     *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{service: svc, val: val}
}

func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	notifications := group.Group("/notifications")
	{
		notifications.POST("", h.Create)
		notifications.GET("/lead/:leadId", h.GetByLead)
		notifications.GET("/pending", h.GetPending)
		notifications.PATCH("/:id/read", h.MarkAsRead)
	}
}

func (h *Handler) Create(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	var req CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	created, err := h.service.Create(c.Request.Context(), identity.UserID(), service.CreateInput{
		LeadID:       req.LeadID,
		Type:         req.Type,
		Title:        req.Title,
		Message:      req.Message,
		ScheduledFor: req.ScheduledFor,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.Created(c, toResponse(created))
}

func (h *Handler) GetByLead(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	leadID, err := strconv.ParseInt(c.Param("leadId"), 10, 64)
	if err != nil || leadID <= 0 {
		httpkit.HandleError(c, apperr.BadRequest("invalid lead id"))
		return
	}

	items, err := h.service.GetByLead(c.Request.Context(), leadID, identity.UserID())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, toResponses(items))
}

func (h *Handler) GetPending(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	items, err := h.service.GetPending(c.Request.Context(), identity.UserID())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, toResponses(items))
}

func (h *Handler) MarkAsRead(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httpkit.HandleError(c, apperr.BadRequest("invalid notification id"))
		return
	}

	updated, err := h.service.MarkAsRead(c.Request.Context(), id, identity.UserID())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, toResponse(updated))
}

func toResponse(n repository.Notification) NotificationResponse {
	return NotificationResponse{
		ID:           n.ID,
		LeadID:       n.LeadID,
		UserID:       n.UserID,
		Type:         n.Type,
		Title:        n.Title,
		Message:      n.Message,
		ScheduledFor: n.ScheduledFor,
		Sent:         n.Sent,
		SentAt:       n.SentAt,
		CreatedAt:    n.CreatedAt,
	}
}

func toResponses(items []repository.Notification) []NotificationResponse {
	resp := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toResponse(item))
	}
	return resp
}
