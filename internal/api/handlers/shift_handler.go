package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"shiftmarket/internal/domain"
	"shiftmarket/internal/services"
	"shiftmarket/pkg/logger"
)

type ShiftHandler struct {
	shifts *services.ShiftService
	log    logger.Logger
}

type CreateShiftRequest struct {
	CompanyID  string    `json:"company_id"`
	Title      string    `json:"title"`
	Location   string    `json:"location"`
	HourlyRate float64   `json:"hourly_rate"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
}

type ShiftResponse struct {
	ShiftID    string    `json:"shift_id"`
	CompanyID  string    `json:"company_id"`
	Title      string    `json:"title"`
	Location   string    `json:"location"`
	HourlyRate float64   `json:"hourly_rate"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Status     string    `json:"status"`
}

func NewShiftHandler(shifts *services.ShiftService, log logger.Logger) *ShiftHandler {
	return &ShiftHandler{
		shifts: shifts,
		log:    log,
	}
}

func (h *ShiftHandler) CreateShift(c echo.Context) error {
	var req CreateShiftRequest
	if err := c.Bind(&req); err != nil {
		h.log.Error("Failed to bind request", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	// Validation
	if req.CompanyID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Company id required"})
	}
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Title required"})
	}
	if req.StartTime.Before(time.Now()) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Start time must be in the future"})
	}
	if req.EndTime.Before(req.StartTime) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "End time must be after start time"})
	}
	if req.HourlyRate <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Hourly rate must be positive"})
	}

	shift, err := h.shifts.CreateShift(c.Request().Context(), req.CompanyID, req.Title,
		req.Location, req.HourlyRate, req.StartTime, req.EndTime)
	if err != nil {
		h.log.Error("Failed to create shift", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create shift"})
	}

	return c.JSON(http.StatusCreated, toShiftResponse(shift))
}

func (h *ShiftHandler) GetShift(c echo.Context) error {
	shiftID := c.Param("id")

	shift, err := h.shifts.GetShift(c.Request().Context(), shiftID)
	if err != nil {
		h.log.Error("Failed to load shift", "shift_id", shiftID, "error", err)
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Shift not found"})
	}

	return c.JSON(http.StatusOK, toShiftResponse(shift))
}

func (h *ShiftHandler) ListOpenShifts(c echo.Context) error {
	shifts, err := h.shifts.GetOpenShifts(c.Request().Context())
	if err != nil {
		h.log.Error("Failed to list open shifts", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list shifts"})
	}

	responses := make([]ShiftResponse, 0, len(shifts))
	for _, shift := range shifts {
		responses = append(responses, toShiftResponse(shift))
	}
	return c.JSON(http.StatusOK, responses)
}

func (h *ShiftHandler) ListCompanyShifts(c echo.Context) error {
	companyID := c.Param("companyID")

	shifts, err := h.shifts.GetShiftsForCompany(c.Request().Context(), companyID)
	if err != nil {
		h.log.Error("Failed to list company shifts", "company_id", companyID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list shifts"})
	}

	responses := make([]ShiftResponse, 0, len(shifts))
	for _, shift := range shifts {
		responses = append(responses, toShiftResponse(shift))
	}
	return c.JSON(http.StatusOK, responses)
}

func (h *ShiftHandler) CancelShift(c echo.Context) error {
	shiftID := c.Param("id")

	if err := h.shifts.CancelShift(c.Request().Context(), shiftID); err != nil {
		h.log.Error("Failed to cancel shift", "shift_id", shiftID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to cancel shift"})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Shift cancelled"})
}

func toShiftResponse(shift *domain.Shift) ShiftResponse {
	return ShiftResponse{
		ShiftID:    shift.ID,
		CompanyID:  shift.CompanyID,
		Title:      shift.Title,
		Location:   shift.Location,
		HourlyRate: shift.HourlyRate,
		StartTime:  shift.StartTime,
		EndTime:    shift.EndTime,
		Status:     shift.Status.String(),
	}
}
