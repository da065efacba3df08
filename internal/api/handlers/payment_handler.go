package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"shiftmarket/internal/services"
	"shiftmarket/pkg/logger"
)

type PaymentHandler struct {
	payments *services.PaymentService
	log      logger.Logger
}

type PaymentResponse struct {
	PaymentID string  `json:"payment_id"`
	ShiftID   string  `json:"shift_id"`
	Amount    float64 `json:"amount"`
	Status    string  `json:"status"`
}

func NewPaymentHandler(payments *services.PaymentService, log logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		log:      log,
	}
}

func (h *PaymentHandler) ListForWorker(c echo.Context) error {
	workerID := c.Param("workerID")

	payments, err := h.payments.GetPaymentsForWorker(c.Request().Context(), workerID)
	if err != nil {
		h.log.Error("Failed to list payments", "worker_id", workerID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list payments"})
	}

	responses := make([]PaymentResponse, 0, len(payments))
	for _, payment := range payments {
		responses = append(responses, PaymentResponse{
			PaymentID: payment.ID,
			ShiftID:   payment.ShiftID,
			Amount:    payment.Amount,
			Status:    payment.Status.String(),
		})
	}
	return c.JSON(http.StatusOK, responses)
}

func (h *PaymentHandler) MarkPaidOut(c echo.Context) error {
	paymentID := c.Param("id")

	if err := h.payments.MarkPaidOut(c.Request().Context(), paymentID); err != nil {
		h.log.Error("Failed to mark payment paid out", "payment_id", paymentID, "error", err)
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Payment paid out"})
}
