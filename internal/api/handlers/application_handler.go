package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"shiftmarket/internal/domain"
	"shiftmarket/internal/services"
	"shiftmarket/pkg/logger"
)

type ApplicationHandler struct {
	applications *services.ApplicationService
	log          logger.Logger
}

type ApplyRequest struct {
	ShiftID  string `json:"shift_id"`
	WorkerID string `json:"worker_id"`
}

type ApplicationResponse struct {
	ApplicationID string `json:"application_id"`
	ShiftID       string `json:"shift_id"`
	WorkerID      string `json:"worker_id"`
	Status        string `json:"status"`
}

func NewApplicationHandler(applications *services.ApplicationService, log logger.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		applications: applications,
		log:          log,
	}
}

func (h *ApplicationHandler) Apply(c echo.Context) error {
	var req ApplyRequest
	if err := c.Bind(&req); err != nil {
		h.log.Error("Failed to bind request", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if req.ShiftID == "" || req.WorkerID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Shift id and worker id required"})
	}

	application, err := h.applications.Apply(c.Request().Context(), req.ShiftID, req.WorkerID)
	if err != nil {
		h.log.Error("Failed to apply", "shift_id", req.ShiftID, "error", err)
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, toApplicationResponse(application))
}

func (h *ApplicationHandler) Accept(c echo.Context) error {
	applicationID := c.Param("id")

	if err := h.applications.Accept(c.Request().Context(), applicationID); err != nil {
		h.log.Error("Failed to accept application", "application_id", applicationID, "error", err)
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Application accepted"})
}

func (h *ApplicationHandler) Reject(c echo.Context) error {
	applicationID := c.Param("id")

	if err := h.applications.Reject(c.Request().Context(), applicationID); err != nil {
		h.log.Error("Failed to reject application", "application_id", applicationID, "error", err)
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Application rejected"})
}

func (h *ApplicationHandler) Withdraw(c echo.Context) error {
	applicationID := c.Param("id")
	workerID := c.QueryParam("worker_id")

	if err := h.applications.Withdraw(c.Request().Context(), applicationID, workerID); err != nil {
		h.log.Error("Failed to withdraw application", "application_id", applicationID, "error", err)
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Application withdrawn"})
}

func (h *ApplicationHandler) ListForWorker(c echo.Context) error {
	workerID := c.Param("workerID")

	applications, err := h.applications.GetApplicationsForWorker(c.Request().Context(), workerID)
	if err != nil {
		h.log.Error("Failed to list applications", "worker_id", workerID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list applications"})
	}

	responses := make([]ApplicationResponse, 0, len(applications))
	for _, application := range applications {
		responses = append(responses, toApplicationResponse(application))
	}
	return c.JSON(http.StatusOK, responses)
}

func toApplicationResponse(application *domain.Application) ApplicationResponse {
	return ApplicationResponse{
		ApplicationID: application.ID,
		ShiftID:       application.ShiftID,
		WorkerID:      application.WorkerID,
		Status:        application.Status.String(),
	}
}
