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

type labService interface {
	List(ctx context.Context) ([]models.Lab, error)
	Get(ctx context.Context, identifier string) (*models.Lab, error)
	Create(ctx context.Context, req service.CreateLabRequest) (*models.Lab, error)
	ListSchedules(ctx context.Context, identifier, date string) ([]models.ScheduleDetail, error)
}

// LabHandler serves the lab catalogue.
type LabHandler struct {
	service labService
}

// NewLabHandler constructs a LabHandler.
func NewLabHandler(svc labService) *LabHandler {
	return &LabHandler{service: svc}
}

// List godoc
// @Summary List labs
// @Tags Labs
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /labs [get]
func (h *LabHandler) List(c *gin.Context) {
	labs, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, labs, nil)
}

// Get godoc
// @Summary Get a lab by UUID or slug
// @Tags Labs
// @Produce json
// @Param id path string true "Lab UUID or slug"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /labs/{id} [get]
func (h *LabHandler) Get(c *gin.Context) {
	lab, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lab, nil)
}

// Schedules godoc
// @Summary List active bookings of a lab
// @Tags Labs
// @Produce json
// @Param id path string true "Lab UUID or slug"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /labs/{id}/schedules [get]
func (h *LabHandler) Schedules(c *gin.Context) {
	schedules, err := h.service.ListSchedules(c.Request.Context(), c.Param("id"), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// Create godoc
// @Summary Register a lab
// @Tags Labs
// @Accept json
// @Produce json
// @Param payload body service.CreateLabRequest true "Lab payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /labs [post]
func (h *LabHandler) Create(c *gin.Context) {
	var req service.CreateLabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	lab, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Set(middleware.AuditResourceIDKey, lab.ID)
	response.Created(c, lab)
}
