// Package handler exposes the lead lifecycle over HTTP. All routes require
// an authenticated identity; every lookup is scoped to the caller.
package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dentalcrm_backend/internal/leads/repository"
	"dentalcrm_backend/internal/leads/service"
	"dentalcrm_backend/internal/leads/transport"
	"dentalcrm_backend/platform/apperr"
	"dentalcrm_backend/platform/httpkit"
	"dentalcrm_backend/platform/validator"
)

type Handler struct {
	service *service.Service
	val     *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{service: svc, val: val}
}

func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	leads := group.Group("/leads")
	{
		leads.POST("", h.Create)
		leads.GET("", h.List)
		leads.GET("/appointments/tomorrow", h.TomorrowAppointments)
		leads.GET("/:id", h.Get)
		leads.PUT("/:id", h.Update)
		leads.DELETE("/:id", h.Delete)
		leads.PATCH("/:id/status", h.UpdateStatus)
		leads.PATCH("/:id/attended", h.MarkAttended)
		leads.PATCH("/:id/closed", h.MarkTreatmentClosed)
	}
}

func (h *Handler) Create(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	lead, err := h.service.Create(c.Request.Context(), identity.UserID(), req)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.Created(c, toResponse(lead))
}

func (h *Handler) Get(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	id, err := leadID(c)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	lead, err := h.service.Get(c.Request.Context(), id, identity.UserID())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, toResponse(lead))
}

func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	filters, limit, offset, err := parseListQuery(c)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	limit = service.ClampLimit(limit)
	if offset < 0 {
		offset = 0
	}

	items, total, err := h.service.List(c.Request.Context(), identity.UserID(), filters, limit, offset)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	resp := transport.LeadListResponse{
		Leads:  make([]transport.LeadResponse, 0, len(items)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for _, item := range items {
		resp.Leads = append(resp.Leads, toResponse(item))
	}

	httpkit.OK(c, resp)
}

func (h *Handler) Update(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	id, err := leadID(c)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	var req transport.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	lead, err := h.service.Update(c.Request.Context(), id, identity.UserID(), req)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, toResponse(lead))
}

func (h *Handler) Delete(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	id, err := leadID(c)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, identity.UserID()); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"success": true})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	id, err := leadID(c)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	var req transport.UpdateLeadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	lead, err := h.service.UpdateStatus(c.Request.Context(), id, identity.UserID(), req.Status)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, toResponse(lead))
}

func (h *Handler) MarkAttended(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	id, err := leadID(c)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	var req transport.MarkAttendedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	lead, err := h.service.MarkAttended(c.Request.Context(), id, identity.UserID(), *req.Attended)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, toResponse(lead))
}

func (h *Handler) MarkTreatmentClosed(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	id, err := leadID(c)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	var req transport.MarkTreatmentClosedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	lead, err := h.service.MarkTreatmentClosed(c.Request.Context(), id, identity.UserID(), *req.Closed)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, toResponse(lead))
}

func (h *Handler) TomorrowAppointments(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	items, err := h.service.TomorrowAppointments(c.Request.Context(), identity.UserID())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	resp := make([]transport.LeadResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toResponse(item))
	}

	httpkit.OK(c, resp)
}

func leadID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.BadRequest("invalid lead id")
	}
	return id, nil
}

func parseListQuery(c *gin.Context) (repository.Filters, int, int, error) {
	filters := repository.Filters{
		Search:        c.Query("search"),
		Status:        c.Query("status"),
		TreatmentType: c.Query("treatmentType"),
	}

	for _, q := range []struct {
		name   string
		target **time.Time
	}{
		{"contactDateFrom", &filters.ContactDateFrom},
		{"contactDateTo", &filters.ContactDateTo},
		{"appointmentDateFrom", &filters.AppointmentDateFrom},
		{"appointmentDateTo", &filters.AppointmentDateTo},
	} {
		raw := c.Query(q.name)
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, 0, 0, apperr.BadRequest("invalid " + q.name + ", expected RFC 3339")
		}
		*q.target = &parsed
	}

	for _, q := range []struct {
		name   string
		target **bool
	}{
		{"attended", &filters.Attended},
		{"treatmentClosed", &filters.TreatmentClosed},
	} {
		raw := c.Query(q.name)
		if raw == "" {
			continue
		}
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return filters, 0, 0, apperr.BadRequest("invalid " + q.name + ", expected true or false")
		}
		*q.target = &parsed
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return filters, 0, 0, apperr.BadRequest("invalid limit")
		}
		limit = parsed
	}

	offset := 0
	if raw := c.Query("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return filters, 0, 0, apperr.BadRequest("invalid offset")
		}
		offset = parsed
	}

	return filters, limit, offset, nil
}

func toResponse(lead repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:              lead.ID,
		UserID:          lead.UserID,
		PatientName:     lead.PatientName,
		Phone:           lead.Phone,
		TreatmentType:   lead.TreatmentType,
		TreatmentValue:  lead.TreatmentValue,
		ContactDate:     lead.ContactDate,
		AppointmentDate: lead.AppointmentDate,
		Attended:        lead.Attended,
		TreatmentClosed: lead.TreatmentClosed,
		Status:          lead.Status,
		Observations:    lead.Observations,
		Origin:          lead.Origin,
		CreatedAt:       lead.CreatedAt,
		UpdatedAt:       lead.UpdatedAt,
	}
}
