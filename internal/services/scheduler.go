package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"shiftmarket/internal/domain"
	"shiftmarket/pkg/logger"
	"shiftmarket/pkg/utils"
)

// CronShiftScheduler persists lifecycle jobs and sweeps them on a cron tick.
// Only the leader instance executes the sweep.
type CronShiftScheduler struct {
	cron       *cron.Cron
	repo       domain.SchedulerRepository
	shifts     *ShiftService
	payments   *PaymentService
	leader     domain.LeaderElection
	instanceID string
	log        logger.Logger
}

func NewCronShiftScheduler(repo domain.SchedulerRepository, shifts *ShiftService,
	payments *PaymentService, leader domain.LeaderElection, instanceID string,
	log logger.Logger) *CronShiftScheduler {
	return &CronShiftScheduler{
		cron:       cron.New(cron.WithSeconds()),
		repo:       repo,
		shifts:     shifts,
		payments:   payments,
		leader:     leader,
		instanceID: instanceID,
		log:        log,
	}
}

func (s *CronShiftScheduler) Start(ctx context.Context) error {
	s.log.Info("Starting shift scheduler")

	_, err := s.cron.AddFunc("@every 1m", func() {
		s.processPendingJobs(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *CronShiftScheduler) Stop() error {
	s.log.Info("Stopping shift scheduler")
	s.cron.Stop()
	return nil
}

func (s *CronShiftScheduler) ScheduleShiftOpen(ctx context.Context, shiftID string, startTime time.Time) error {
	return s.createJob(ctx, shiftID, domain.JobOpenShift, startTime)
}

func (s *CronShiftScheduler) ScheduleShiftClose(ctx context.Context, shiftID string, endTime time.Time) error {
	return s.createJob(ctx, shiftID, domain.JobCloseShift, endTime)
}

func (s *CronShiftScheduler) SchedulePaymentRelease(ctx context.Context, shiftID string, releaseAt time.Time) error {
	return s.createJob(ctx, shiftID, domain.JobReleasePayment, releaseAt)
}

func (s *CronShiftScheduler) CancelSchedule(ctx context.Context, shiftID string) error {
	return s.repo.CancelJobsForShift(ctx, shiftID)
}

func (s *CronShiftScheduler) createJob(ctx context.Context, shiftID string, jobType domain.JobType, runAt time.Time) error {
	job := &domain.ScheduledJob{
		ID:        utils.GenerateID("job"),
		ShiftID:   shiftID,
		JobType:   jobType,
		RunAt:     runAt,
		Status:    domain.JobPending,
		CreatedAt: time.Now(),
	}
	return s.repo.CreateJob(ctx, job)
}

func (s *CronShiftScheduler) processPendingJobs(ctx context.Context) {
	isLeader, err := s.leader.IsLeader(ctx, s.instanceID)
	if err != nil {
		s.log.Error("Failed to check leadership", "error", err)
		return
	}
	if !isLeader {
		return
	}

	jobs, err := s.repo.GetPendingJobs(ctx, time.Now())
	if err != nil {
		s.log.Error("Failed to load pending jobs", "error", err)
		return
	}

	for _, job := range jobs {
		if err := s.executeJob(ctx, job); err != nil {
			s.log.Error("Failed to execute job", "job_id", job.ID,
				"job_type", string(job.JobType), "error", err)
			continue
		}
		if err := s.repo.UpdateJobStatus(ctx, job.ID, domain.JobExecuted); err != nil {
			s.log.Error("Failed to mark job executed", "job_id", job.ID, "error", err)
		}
	}
}

func (s *CronShiftScheduler) executeJob(ctx context.Context, job *domain.ScheduledJob) error {
	s.log.Info("Executing scheduled job", "job_id", job.ID,
		"job_type", string(job.JobType), "shift_id", job.ShiftID)

	switch job.JobType {
	case domain.JobOpenShift:
		return s.shifts.transition(ctx, job.ShiftID, domain.ShiftOpen)
	case domain.JobCloseShift:
		return s.shifts.CloseShift(ctx, job.ShiftID)
	case domain.JobReleasePayment:
		return s.payments.ReleasePaymentForShift(ctx, job.ShiftID)
	default:
		s.log.Warn("Unknown job type", "job_id", job.ID, "job_type", string(job.JobType))
		return nil
	}
}
