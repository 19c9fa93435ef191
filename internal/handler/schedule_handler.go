package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/staffly-dev/hr-attendance-api/internal/models"
	"github.com/staffly-dev/hr-attendance-api/internal/service"
	appErrors "github.com/staffly-dev/hr-attendance-api/pkg/errors"
	"github.com/staffly-dev/hr-attendance-api/pkg/response"
)

// ScheduleHandler exposes schedule definition and lookup endpoints.
type ScheduleHandler struct {
	service *service.ScheduleService
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// Define godoc
// @Summary Define or replace an employee's weekly schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.DefineScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) Define(c *gin.Context) {
	var req service.DefineScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid schedule payload"))
		return
	}
	template, err := h.service.DefineSchedule(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, template)
}

// DayPeriods godoc
// @Summary Resolve periods for an employee on a date
// @Tags Schedules
// @Produce json
// @Param id path string true "Employee ID"
// @Param date query string true "Date YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedules/employees/{id}/day [get]
func (h *ScheduleHandler) DayPeriods(c *gin.Context) {
	date, err := time.Parse(models.DateLayout, c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD"))
		return
	}
	periods, err := h.service.PeriodsFor(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, periods, nil)
}

// WeekTimetable godoc
// @Summary Weekly timetable for an employee
// @Tags Schedules
// @Produce json
// @Param id path string true "Employee ID"
// @Param date query string false "Reference date, defaults to today"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/employees/{id}/week [get]
func (h *ScheduleHandler) WeekTimetable(c *gin.Context) {
	onDate := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD"))
			return
		}
		onDate = parsed
	}
	entries, err := h.service.WeekTimetable(c.Request.Context(), c.Param("id"), onDate)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Assign godoc
// @Summary Assign an existing template to an employee
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body object true "Assignment payload"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedules/assign [post]
func (h *ScheduleHandler) Assign(c *gin.Context) {
	var payload struct {
		EmployeeID    string `json:"employee_id" binding:"required"`
		TemplateID    string `json:"template_id" binding:"required"`
		EffectiveFrom string `json:"effective_from" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assignment payload"))
		return
	}
	if err := h.service.AssignTemplate(c.Request.Context(), payload.EmployeeID, payload.TemplateID, payload.EffectiveFrom); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
