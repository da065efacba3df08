package mysql

import (
	"context"
	"database/sql"
	"time"

	"shiftmarket/internal/domain"
)

type MySQLSchedulerRepository struct {
	db *sql.DB
}

func NewMySQLSchedulerRepository(db *sql.DB) *MySQLSchedulerRepository {
	return &MySQLSchedulerRepository{db: db}
}

func (r *MySQLSchedulerRepository) CreateJob(ctx context.Context, job *domain.ScheduledJob) error {
	query := `
        INSERT INTO scheduled_jobs (id, shift_id, job_type, run_at, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.ShiftID, string(job.JobType), job.RunAt, string(job.Status), job.CreatedAt)
	return err
}

func (r *MySQLSchedulerRepository) GetPendingJobs(ctx context.Context, before time.Time) ([]*domain.ScheduledJob, error) {
	query := `
        SELECT id, shift_id, job_type, run_at, status, created_at
        FROM scheduled_jobs WHERE status = ? AND run_at <= ? ORDER BY run_at
    `

	rows, err := r.db.QueryContext(ctx, query, string(domain.JobPending), before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.ScheduledJob
	for rows.Next() {
		var job domain.ScheduledJob
		var jobType, status string
		if err := rows.Scan(&job.ID, &job.ShiftID, &jobType, &job.RunAt, &status, &job.CreatedAt); err != nil {
			return nil, err
		}
		job.JobType = domain.JobType(jobType)
		job.Status = domain.JobStatus(status)
		jobs = append(jobs, &job)
	}

	return jobs, rows.Err()
}

func (r *MySQLSchedulerRepository) UpdateJobStatus(ctx context.Context, jobID string, status domain.JobStatus) error {
	query := `UPDATE scheduled_jobs SET status = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, string(status), jobID)
	return err
}

func (r *MySQLSchedulerRepository) CancelJobsForShift(ctx context.Context, shiftID string) error {
	query := `UPDATE scheduled_jobs SET status = ? WHERE shift_id = ? AND status = ?`
	_, err := r.db.ExecContext(ctx, query, string(domain.JobCancelled), shiftID, string(domain.JobPending))
	return err
}
