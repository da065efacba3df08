package services

import (
	"context"
	"fmt"
	"time"

	"shiftmarket/internal/domain"
	"shiftmarket/pkg/logger"
	"shiftmarket/pkg/utils"
)

type ApplicationService struct {
	applicationRepo domain.ApplicationRepository
	shifts          *ShiftService
	claimCache      domain.ClaimCache
	stateCache      domain.ShiftStateCache
	payments        *PaymentService
	notifications   *NotificationService
	publisher       domain.EventPublisher
	log             logger.Logger
}

func NewApplicationService(
	applicationRepo domain.ApplicationRepository,
	shifts *ShiftService,
	claimCache domain.ClaimCache,
	stateCache domain.ShiftStateCache,
	payments *PaymentService,
	notifications *NotificationService,
	publisher domain.EventPublisher,
	log logger.Logger,
) *ApplicationService {
	return &ApplicationService{
		applicationRepo: applicationRepo,
		shifts:          shifts,
		claimCache:      claimCache,
		stateCache:      stateCache,
		payments:        payments,
		notifications:   notifications,
		publisher:       publisher,
		log:             log,
	}
}

func (s *ApplicationService) Apply(ctx context.Context, shiftID, workerID string) (*domain.Application, error) {
	s.log.Info("Worker applying to shift", "shift_id", shiftID, "worker_id", workerID)

	status, err := s.stateCache.GetShiftStatus(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if status != domain.ShiftOpen {
		return nil, fmt.Errorf("shift %s is %s, not open for applications", shiftID, status.String())
	}

	now := time.Now()
	application := &domain.Application{
		ID:        utils.GenerateID("app"),
		ShiftID:   shiftID,
		WorkerID:  workerID,
		Status:    domain.ApplicationPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.applicationRepo.CreateApplication(ctx, application); err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}

	shift, err := s.shifts.GetShift(ctx, shiftID)
	if err == nil {
		s.notifications.Notify(ctx, shift.CompanyID, "New application",
			fmt.Sprintf("A worker applied to %s", shift.Title))
	}

	s.publishApplicationUpdate(ctx, application)
	return application, nil
}

// Accept resolves concurrent accepts for one shift atomically: the first
// application claimed wins, later accepts fail without side effects.
func (s *ApplicationService) Accept(ctx context.Context, applicationID string) error {
	application, err := s.applicationRepo.GetApplication(ctx, applicationID)
	if err != nil {
		return fmt.Errorf("load application %s: %w", applicationID, err)
	}
	if application.Status != domain.ApplicationPending {
		return fmt.Errorf("application %s is %s, not pending", applicationID, application.Status.String())
	}

	claimed, err := s.claimCache.AtomicClaim(ctx, application.ShiftID, applicationID)
	if err != nil {
		return fmt.Errorf("claim shift %s: %w", application.ShiftID, err)
	}
	if !claimed {
		return s.markStatus(ctx, application, domain.ApplicationRejected)
	}

	if err := s.markStatus(ctx, application, domain.ApplicationAccepted); err != nil {
		return err
	}
	if err := s.shifts.MarkFilled(ctx, application.ShiftID); err != nil {
		return err
	}

	shift, err := s.shifts.GetShift(ctx, application.ShiftID)
	if err != nil {
		return fmt.Errorf("load shift %s: %w", application.ShiftID, err)
	}
	if _, err := s.payments.HoldPayment(ctx, shift, application.WorkerID); err != nil {
		s.log.Error("Failed to hold payment", "shift_id", shift.ID, "error", err)
	}

	s.notifications.Notify(ctx, application.WorkerID, "Application accepted",
		fmt.Sprintf("You got the shift %s", shift.Title))

	// Everyone else loses.
	s.rejectRemaining(ctx, application.ShiftID, applicationID)
	return nil
}

func (s *ApplicationService) Reject(ctx context.Context, applicationID string) error {
	application, err := s.applicationRepo.GetApplication(ctx, applicationID)
	if err != nil {
		return fmt.Errorf("load application %s: %w", applicationID, err)
	}
	if application.Status != domain.ApplicationPending {
		return fmt.Errorf("application %s is %s, not pending", applicationID, application.Status.String())
	}
	return s.markStatus(ctx, application, domain.ApplicationRejected)
}

func (s *ApplicationService) Withdraw(ctx context.Context, applicationID, workerID string) error {
	application, err := s.applicationRepo.GetApplication(ctx, applicationID)
	if err != nil {
		return fmt.Errorf("load application %s: %w", applicationID, err)
	}
	if application.WorkerID != workerID {
		return fmt.Errorf("application %s does not belong to worker %s", applicationID, workerID)
	}
	if application.Status != domain.ApplicationPending {
		return fmt.Errorf("application %s is %s, not pending", applicationID, application.Status.String())
	}
	return s.markStatus(ctx, application, domain.ApplicationWithdrawn)
}

func (s *ApplicationService) GetApplicationsForShift(ctx context.Context, shiftID string) ([]*domain.Application, error) {
	return s.applicationRepo.GetApplicationsForShift(ctx, shiftID)
}

func (s *ApplicationService) GetApplicationsForWorker(ctx context.Context, workerID string) ([]*domain.Application, error) {
	return s.applicationRepo.GetApplicationsForWorker(ctx, workerID)
}

func (s *ApplicationService) rejectRemaining(ctx context.Context, shiftID, acceptedID string) {
	applications, err := s.applicationRepo.GetApplicationsForShift(ctx, shiftID)
	if err != nil {
		s.log.Error("Failed to load applications for shift", "shift_id", shiftID, "error", err)
		return
	}
	for _, application := range applications {
		if application.ID == acceptedID || application.Status != domain.ApplicationPending {
			continue
		}
		if err := s.markStatus(ctx, application, domain.ApplicationRejected); err != nil {
			s.log.Error("Failed to reject application", "application_id", application.ID, "error", err)
		}
	}
}

func (s *ApplicationService) markStatus(ctx context.Context, application *domain.Application, status domain.ApplicationStatus) error {
	if err := s.applicationRepo.UpdateApplicationStatus(ctx, application.ID, status); err != nil {
		return fmt.Errorf("update application %s status: %w", application.ID, err)
	}
	application.Status = status
	s.publishApplicationUpdate(ctx, application)
	s.log.Info("Application status changed", "application_id", application.ID, "status", status.String())
	return nil
}

func (s *ApplicationService) publishApplicationUpdate(ctx context.Context, application *domain.Application) {
	event, err := domain.NewPushEvent(domain.MessageApplicationUpdate, application.WorkerID, map[string]string{
		"application_id": application.ID,
		"shift_id":       application.ShiftID,
		"status":         application.Status.String(),
	})
	if err != nil {
		s.log.Error("Failed to build application update", "application_id", application.ID, "error", err)
		return
	}
	if err := s.publisher.PublishUpdate(ctx, event); err != nil {
		s.log.Error("Failed to publish application update", "application_id", application.ID, "error", err)
	}
}
