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

// AttendanceHandler exposes punch ingestion and ledger query endpoints.
type AttendanceHandler struct {
	service *service.AttendanceService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// Punch godoc
// @Summary Record a kiosk punch
// @Description Reconcile a time-in/time-out capture against the day's schedule
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.PunchRequest true "Punch payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /attendance/punch [post]
func (h *AttendanceHandler) Punch(c *gin.Context) {
	var req service.PunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid punch payload"))
		return
	}
	record, err := h.service.RecordPunch(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Corrections godoc
// @Summary Apply a manual correction batch
// @Description Reconcile and upsert corrected clock values per date; dates fail independently
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.CorrectionBatchRequest true "Correction batch"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance/corrections [post]
func (h *AttendanceHandler) Corrections(c *gin.Context) {
	var req service.CorrectionBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid correction payload"))
		return
	}
	results, err := h.service.CorrectBatch(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// Get godoc
// @Summary Get a ledger row
// @Tags Attendance
// @Produce json
// @Param id path string true "Employee ID"
// @Param date query string true "Date YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance/employees/{id} [get]
func (h *AttendanceHandler) Get(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), c.Param("id"), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// List godoc
// @Summary List ledger rows
// @Tags Attendance
// @Produce json
// @Param employee_id query string false "Employee filter"
// @Param status query string false "Status filter"
// @Param date_from query string false "Range start"
// @Param date_to query string false "Range end"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	req := service.ListRequest{
		EmployeeID: c.Query("employee_id"),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "page_size", 50),
		SortBy:     c.Query("sort_by"),
		SortOrder:  c.Query("sort_order"),
	}
	if status := c.Query("status"); status != "" {
		req.Status = &status
	}
	if raw := c.Query("date_from"); raw != "" {
		parsed, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date_from, expected YYYY-MM-DD"))
			return
		}
		req.DateFrom = &parsed
	}
	if raw := c.Query("date_to"); raw != "" {
		parsed, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date_to, expected YYYY-MM-DD"))
			return
		}
		req.DateTo = &parsed
	}
	records, pagination, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Summary godoc
// @Summary Attendance summary for an employee over a range
// @Tags Attendance
// @Produce json
// @Param id path string true "Employee ID"
// @Param date_from query string true "Range start"
// @Param date_to query string true "Range end"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance/employees/{id}/summary [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context(), c.Param("id"), c.Query("date_from"), c.Query("date_to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
