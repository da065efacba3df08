package services

import (
	"context"
	"fmt"
	"time"

	"shiftmarket/internal/domain"
	"shiftmarket/pkg/logger"
	"shiftmarket/pkg/utils"
)

// paymentReleaseDelay is how long after a shift completes its held payment
// becomes releasable.
const paymentReleaseDelay = 24 * time.Hour

type ShiftService struct {
	shiftRepo  domain.ShiftRepository
	stateCache domain.ShiftStateCache
	claimCache domain.ClaimCache
	payments   *PaymentService
	publisher  domain.EventPublisher
	scheduler  domain.ShiftScheduler
	log        logger.Logger
}

func NewShiftService(
	shiftRepo domain.ShiftRepository,
	stateCache domain.ShiftStateCache,
	claimCache domain.ClaimCache,
	payments *PaymentService,
	publisher domain.EventPublisher,
	log logger.Logger,
) *ShiftService {
	return &ShiftService{
		shiftRepo:  shiftRepo,
		stateCache: stateCache,
		claimCache: claimCache,
		payments:   payments,
		publisher:  publisher,
		log:        log,
	}
}

// SetScheduler breaks the construction cycle between the service and the
// scheduler that calls back into it.
func (s *ShiftService) SetScheduler(scheduler domain.ShiftScheduler) {
	s.scheduler = scheduler
}

func (s *ShiftService) CreateShift(ctx context.Context, companyID, title, location string,
	hourlyRate float64, startTime, endTime time.Time) (*domain.Shift, error) {

	now := time.Now()
	shift := &domain.Shift{
		ID:         utils.GenerateID("shift"),
		CompanyID:  companyID,
		Title:      title,
		Location:   location,
		HourlyRate: hourlyRate,
		StartTime:  startTime,
		EndTime:    endTime,
		Status:     domain.ShiftOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.shiftRepo.CreateShift(ctx, shift); err != nil {
		return nil, fmt.Errorf("create shift: %w", err)
	}
	if err := s.stateCache.SetShiftStatus(ctx, shift.ID, shift.Status); err != nil {
		s.log.Error("Failed to cache shift status", "shift_id", shift.ID, "error", err)
	}

	if s.scheduler != nil {
		if err := s.scheduler.ScheduleShiftClose(ctx, shift.ID, endTime); err != nil {
			s.log.Error("Failed to schedule shift close", "shift_id", shift.ID, "error", err)
		}
	}

	s.publishShiftUpdate(ctx, shift.ID, shift.Status)
	s.log.Info("Shift created", "shift_id", shift.ID, "company_id", companyID)
	return shift, nil
}

func (s *ShiftService) GetShift(ctx context.Context, shiftID string) (*domain.Shift, error) {
	return s.shiftRepo.GetShift(ctx, shiftID)
}

func (s *ShiftService) GetOpenShifts(ctx context.Context) ([]*domain.Shift, error) {
	return s.shiftRepo.GetOpenShifts(ctx)
}

func (s *ShiftService) GetShiftsForCompany(ctx context.Context, companyID string) ([]*domain.Shift, error) {
	return s.shiftRepo.GetShiftsForCompany(ctx, companyID)
}

// MarkFilled transitions an open shift once an application wins acceptance.
func (s *ShiftService) MarkFilled(ctx context.Context, shiftID string) error {
	return s.transition(ctx, shiftID, domain.ShiftFilled)
}

// CloseShift ends a shift at its end time. Filled shifts complete and queue
// their payment release; unfilled shifts are cancelled.
func (s *ShiftService) CloseShift(ctx context.Context, shiftID string) error {
	shift, err := s.shiftRepo.GetShift(ctx, shiftID)
	if err != nil {
		return fmt.Errorf("load shift %s: %w", shiftID, err)
	}

	switch shift.Status {
	case domain.ShiftFilled:
		if err := s.transition(ctx, shiftID, domain.ShiftCompleted); err != nil {
			return err
		}
		if s.scheduler != nil {
			releaseAt := time.Now().Add(paymentReleaseDelay)
			if err := s.scheduler.SchedulePaymentRelease(ctx, shiftID, releaseAt); err != nil {
				s.log.Error("Failed to schedule payment release", "shift_id", shiftID, "error", err)
			}
		}
		return nil
	case domain.ShiftOpen:
		return s.CancelShift(ctx, shiftID)
	default:
		s.log.Debug("Shift already closed", "shift_id", shiftID, "status", shift.Status.String())
		return nil
	}
}

func (s *ShiftService) CancelShift(ctx context.Context, shiftID string) error {
	if err := s.transition(ctx, shiftID, domain.ShiftCancelled); err != nil {
		return err
	}
	if err := s.claimCache.ReleaseClaim(ctx, shiftID); err != nil {
		s.log.Error("Failed to release shift claim", "shift_id", shiftID, "error", err)
	}
	if s.scheduler != nil {
		if err := s.scheduler.CancelSchedule(ctx, shiftID); err != nil {
			s.log.Error("Failed to cancel shift schedule", "shift_id", shiftID, "error", err)
		}
	}
	return nil
}

func (s *ShiftService) transition(ctx context.Context, shiftID string, status domain.ShiftStatus) error {
	if err := s.shiftRepo.UpdateShiftStatus(ctx, shiftID, status); err != nil {
		return fmt.Errorf("update shift %s status: %w", shiftID, err)
	}
	if err := s.stateCache.SetShiftStatus(ctx, shiftID, status); err != nil {
		s.log.Error("Failed to cache shift status", "shift_id", shiftID, "error", err)
	}

	s.publishShiftUpdate(ctx, shiftID, status)
	s.log.Info("Shift status changed", "shift_id", shiftID, "status", status.String())
	return nil
}

func (s *ShiftService) publishShiftUpdate(ctx context.Context, shiftID string, status domain.ShiftStatus) {
	event, err := domain.NewPushEvent(domain.MessageShiftUpdate, "", map[string]string{
		"shift_id": shiftID,
		"status":   status.String(),
	})
	if err != nil {
		s.log.Error("Failed to build shift update", "shift_id", shiftID, "error", err)
		return
	}
	if err := s.publisher.PublishUpdate(ctx, event); err != nil {
		s.log.Error("Failed to publish shift update", "shift_id", shiftID, "error", err)
	}
}
