package mysql

import (
	"context"
	"database/sql"
	"time"

	"shiftmarket/internal/domain"
)

type MySQLApplicationRepository struct {
	db *sql.DB
}

func NewMySQLApplicationRepository(db *sql.DB) *MySQLApplicationRepository {
	return &MySQLApplicationRepository{db: db}
}

func (r *MySQLApplicationRepository) CreateApplication(ctx context.Context, application *domain.Application) error {
	query := `
        INSERT INTO applications (id, shift_id, worker_id, status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		application.ID, application.ShiftID, application.WorkerID,
		int(application.Status), application.CreatedAt, application.UpdatedAt)
	return err
}

func (r *MySQLApplicationRepository) GetApplication(ctx context.Context, applicationID string) (*domain.Application, error) {
	query := `
        SELECT id, shift_id, worker_id, status, created_at, updated_at
        FROM applications WHERE id = ?
    `

	var application domain.Application
	var status int

	err := r.db.QueryRowContext(ctx, query, applicationID).Scan(
		&application.ID, &application.ShiftID, &application.WorkerID,
		&status, &application.CreatedAt, &application.UpdatedAt)

	if err != nil {
		return nil, err
	}

	application.Status = domain.ApplicationStatus(status)
	return &application, nil
}

func (r *MySQLApplicationRepository) UpdateApplicationStatus(ctx context.Context, applicationID string, status domain.ApplicationStatus) error {
	query := `UPDATE applications SET status = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, int(status), time.Now(), applicationID)
	return err
}

func (r *MySQLApplicationRepository) GetApplicationsForShift(ctx context.Context, shiftID string) ([]*domain.Application, error) {
	query := `
        SELECT id, shift_id, worker_id, status, created_at, updated_at
        FROM applications WHERE shift_id = ? ORDER BY created_at
    `
	return r.queryApplications(ctx, query, shiftID)
}

func (r *MySQLApplicationRepository) GetApplicationsForWorker(ctx context.Context, workerID string) ([]*domain.Application, error) {
	query := `
        SELECT id, shift_id, worker_id, status, created_at, updated_at
        FROM applications WHERE worker_id = ? ORDER BY created_at DESC
    `
	return r.queryApplications(ctx, query, workerID)
}

func (r *MySQLApplicationRepository) queryApplications(ctx context.Context, query string, args ...interface{}) ([]*domain.Application, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var applications []*domain.Application
	for rows.Next() {
		var application domain.Application
		var status int
		if err := rows.Scan(
			&application.ID, &application.ShiftID, &application.WorkerID,
			&status, &application.CreatedAt, &application.UpdatedAt); err != nil {
			return nil, err
		}
		application.Status = domain.ApplicationStatus(status)
		applications = append(applications, &application)
	}

	return applications, rows.Err()
}
