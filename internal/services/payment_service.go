package services

import (
	"context"
	"fmt"
	"time"

	"shiftmarket/internal/domain"
	"shiftmarket/pkg/logger"
	"shiftmarket/pkg/utils"
)

type PaymentService struct {
	paymentRepo domain.PaymentRepository
	publisher   domain.EventPublisher
	log         logger.Logger
}

func NewPaymentService(
	paymentRepo domain.PaymentRepository,
	publisher domain.EventPublisher,
	log logger.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		publisher:   publisher,
		log:         log,
	}
}

// HoldPayment creates the escrow row when a shift is filled. The amount is
// the full shift value at the agreed rate.
func (s *PaymentService) HoldPayment(ctx context.Context, shift *domain.Shift, workerID string) (*domain.Payment, error) {
	hours := shift.EndTime.Sub(shift.StartTime).Hours()
	now := time.Now()
	payment := &domain.Payment{
		ID:        utils.GenerateID("pay"),
		ShiftID:   shift.ID,
		WorkerID:  workerID,
		CompanyID: shift.CompanyID,
		Amount:    shift.HourlyRate * hours,
		Status:    domain.PaymentHeld,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.paymentRepo.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	s.publishPaymentUpdate(ctx, payment, domain.PaymentHeld)
	s.log.Info("Payment held", "payment_id", payment.ID, "shift_id", shift.ID, "amount", payment.Amount)
	return payment, nil
}

// ReleasePaymentForShift moves the held payment to released once the shift
// completed and the release delay elapsed.
func (s *PaymentService) ReleasePaymentForShift(ctx context.Context, shiftID string) error {
	payment, err := s.paymentRepo.GetPaymentForShift(ctx, shiftID)
	if err != nil {
		return fmt.Errorf("load payment for shift %s: %w", shiftID, err)
	}

	if payment.Status != domain.PaymentHeld {
		s.log.Debug("Payment not held, skipping release",
			"payment_id", payment.ID, "status", payment.Status.String())
		return nil
	}

	return s.transition(ctx, payment, domain.PaymentReleased)
}

func (s *PaymentService) MarkPaidOut(ctx context.Context, paymentID string) error {
	payment, err := s.paymentRepo.GetPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("load payment %s: %w", paymentID, err)
	}
	if payment.Status != domain.PaymentReleased {
		return fmt.Errorf("payment %s is %s, not released", paymentID, payment.Status.String())
	}
	return s.transition(ctx, payment, domain.PaymentPaidOut)
}

func (s *PaymentService) RefundPayment(ctx context.Context, paymentID string) error {
	payment, err := s.paymentRepo.GetPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("load payment %s: %w", paymentID, err)
	}
	if payment.Status == domain.PaymentPaidOut {
		return fmt.Errorf("payment %s already paid out", paymentID)
	}
	return s.transition(ctx, payment, domain.PaymentRefunded)
}

func (s *PaymentService) GetPaymentsForWorker(ctx context.Context, workerID string) ([]*domain.Payment, error) {
	return s.paymentRepo.GetPaymentsForWorker(ctx, workerID)
}

func (s *PaymentService) transition(ctx context.Context, payment *domain.Payment, status domain.PaymentStatus) error {
	if err := s.paymentRepo.UpdatePaymentStatus(ctx, payment.ID, status); err != nil {
		return fmt.Errorf("update payment %s status: %w", payment.ID, err)
	}

	s.publishPaymentUpdate(ctx, payment, status)
	s.log.Info("Payment status changed", "payment_id", payment.ID, "status", status.String())
	return nil
}

func (s *PaymentService) publishPaymentUpdate(ctx context.Context, payment *domain.Payment, status domain.PaymentStatus) {
	event, err := domain.NewPushEvent(domain.MessagePaymentUpdate, payment.WorkerID, map[string]interface{}{
		"payment_id": payment.ID,
		"shift_id":   payment.ShiftID,
		"amount":     payment.Amount,
		"status":     status.String(),
	})
	if err != nil {
		s.log.Error("Failed to build payment update", "payment_id", payment.ID, "error", err)
		return
	}
	if err := s.publisher.PublishUpdate(ctx, event); err != nil {
		s.log.Error("Failed to publish payment update", "payment_id", payment.ID, "error", err)
	}
}
