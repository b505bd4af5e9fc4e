package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-scheduler-api/internal/middleware"
	"github.com/noah-isme/lab-scheduler-api/internal/models"
	"github.com/noah-isme/lab-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/lab-scheduler-api/pkg/errors"
	"github.com/noah-isme/lab-scheduler-api/pkg/response"
)

type scheduleService interface {
	CheckAvailability(ctx context.Context, labID, date, slot string) (*models.Availability, error)
	Create(ctx context.Context, actor models.ActingUser, req service.CreateScheduleRequest) (*models.ScheduleDetail, error)
	Update(ctx context.Context, actor models.ActingUser, id string, req service.UpdateScheduleRequest) (*models.ScheduleDetail, error)
	Cancel(ctx context.Context, actor models.ActingUser, id string) error
	Get(ctx context.Context, id string) (*models.ScheduleDetail, error)
	ListAll(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, *models.Pagination, error)
	ListMine(ctx context.Context, actor models.ActingUser, filter models.ScheduleFilter) ([]models.ScheduleDetail, *models.Pagination, error)
}

type scheduleExporter interface {
	Export(ctx context.Context, filter models.ScheduleFilter, format string) (*service.ExportResult, error)
}

// ScheduleHandler manages lab booking endpoints.
type ScheduleHandler struct {
	service  scheduleService
	exporter scheduleExporter
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc scheduleService, exporter scheduleExporter) *ScheduleHandler {
	return &ScheduleHandler{service: svc, exporter: exporter}
}

// CheckAvailability godoc
// @Summary Check whether a lab is free for a time slot
// @Tags Schedules
// @Produce json
// @Param labId query string true "Lab UUID or slug"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param time query string true "Time slot (HH:MM-HH:MM)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/check-availability [get]
func (h *ScheduleHandler) CheckAvailability(c *gin.Context) {
	availability, err := h.service.CheckAvailability(c.Request.Context(), c.Query("labId"), c.Query("date"), c.Query("time"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availability, nil)
}

// Create godoc
// @Summary Book a lab
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.CreateScheduleRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope "error.details lists the conflicting bookings"
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	schedule, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Set(middleware.AuditResourceIDKey, schedule.ID)
	response.Created(c, schedule)
}

// ListMine godoc
// @Summary List the caller's bookings
// @Tags Schedules
// @Produce json
// @Param labId query string false "Lab UUID or slug"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedules/my-schedules [get]
func (h *ScheduleHandler) ListMine(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter, err := scheduleFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	schedules, pagination, err := h.service.ListMine(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, pagination)
}

// List godoc
// @Summary List active bookings
// @Tags Schedules
// @Produce json
// @Param labId query string false "Lab UUID or slug"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	filter, err := scheduleFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	schedules, pagination, err := h.service.ListAll(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, pagination)
}

// Export godoc
// @Summary Export active bookings
// @Tags Schedules
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Param labId query string false "Lab UUID or slug"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {file} file
// @Router /schedules/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	filter, err := scheduleFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exporter.Export(c.Request.Context(), filter, c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}

// Get godoc
// @Summary Get a booking
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	schedule, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Update godoc
// @Summary Update an own booking
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body service.UpdateScheduleRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	schedule, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Cancel godoc
// @Summary Cancel an own booking
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope "already cancelled"
// @Failure 403 {object} response.Envelope
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Cancel(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id := c.Param("id")
	if err := h.service.Cancel(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"id": id, "status": models.ScheduleStatusCancelled}, nil)
}
