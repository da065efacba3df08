package mysql

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"shiftmarket/internal/domain"
)

type MySQLShiftRepository struct {
	db *sql.DB
}

func NewMySQLShiftRepository(db *sql.DB) *MySQLShiftRepository {
	return &MySQLShiftRepository{db: db}
}

func (r *MySQLShiftRepository) CreateShift(ctx context.Context, shift *domain.Shift) error {
	query := `
        INSERT INTO shifts (id, company_id, title, location, hourly_rate, start_time, end_time, status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		shift.ID, shift.CompanyID, shift.Title, shift.Location, shift.HourlyRate,
		shift.StartTime, shift.EndTime, int(shift.Status), shift.CreatedAt, shift.UpdatedAt)
	return err
}

func (r *MySQLShiftRepository) GetShift(ctx context.Context, shiftID string) (*domain.Shift, error) {
	query := `
        SELECT id, company_id, title, location, hourly_rate, start_time, end_time, status, created_at, updated_at
        FROM shifts WHERE id = ?
    `

	var shift domain.Shift
	var status int

	err := r.db.QueryRowContext(ctx, query, shiftID).Scan(
		&shift.ID, &shift.CompanyID, &shift.Title, &shift.Location, &shift.HourlyRate,
		&shift.StartTime, &shift.EndTime, &status, &shift.CreatedAt, &shift.UpdatedAt)

	if err != nil {
		return nil, err
	}

	shift.Status = domain.ShiftStatus(status)
	return &shift, nil
}

func (r *MySQLShiftRepository) UpdateShiftStatus(ctx context.Context, shiftID string, status domain.ShiftStatus) error {
	query := `UPDATE shifts SET status = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, int(status), time.Now(), shiftID)
	return err
}

func (r *MySQLShiftRepository) GetOpenShifts(ctx context.Context) ([]*domain.Shift, error) {
	query := `
        SELECT id, company_id, title, location, hourly_rate, start_time, end_time, status, created_at, updated_at
        FROM shifts WHERE status = ? ORDER BY start_time
    `
	return r.queryShifts(ctx, query, int(domain.ShiftOpen))
}

func (r *MySQLShiftRepository) GetShiftsForCompany(ctx context.Context, companyID string) ([]*domain.Shift, error) {
	query := `
        SELECT id, company_id, title, location, hourly_rate, start_time, end_time, status, created_at, updated_at
        FROM shifts WHERE company_id = ? ORDER BY start_time DESC
    `
	return r.queryShifts(ctx, query, companyID)
}

func (r *MySQLShiftRepository) queryShifts(ctx context.Context, query string, args ...interface{}) ([]*domain.Shift, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shifts []*domain.Shift
	for rows.Next() {
		var shift domain.Shift
		var status int
		if err := rows.Scan(
			&shift.ID, &shift.CompanyID, &shift.Title, &shift.Location, &shift.HourlyRate,
			&shift.StartTime, &shift.EndTime, &status, &shift.CreatedAt, &shift.UpdatedAt); err != nil {
			return nil, err
		}
		shift.Status = domain.ShiftStatus(status)
		shifts = append(shifts, &shift)
	}

	return shifts, rows.Err()
}
