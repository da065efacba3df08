package mysql

import (
	"context"
	"database/sql"
	"time"

	"shiftmarket/internal/domain"
)

type MySQLPaymentRepository struct {
	db *sql.DB
}

func NewMySQLPaymentRepository(db *sql.DB) *MySQLPaymentRepository {
	return &MySQLPaymentRepository{db: db}
}

func (r *MySQLPaymentRepository) CreatePayment(ctx context.Context, payment *domain.Payment) error {
	query := `
        INSERT INTO payments (id, shift_id, worker_id, company_id, amount, status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		payment.ID, payment.ShiftID, payment.WorkerID, payment.CompanyID,
		payment.Amount, int(payment.Status), payment.CreatedAt, payment.UpdatedAt)
	return err
}

func (r *MySQLPaymentRepository) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	query := `
        SELECT id, shift_id, worker_id, company_id, amount, status, created_at, updated_at
        FROM payments WHERE id = ?
    `
	return r.queryPayment(ctx, query, paymentID)
}

func (r *MySQLPaymentRepository) GetPaymentForShift(ctx context.Context, shiftID string) (*domain.Payment, error) {
	query := `
        SELECT id, shift_id, worker_id, company_id, amount, status, created_at, updated_at
        FROM payments WHERE shift_id = ?
    `
	return r.queryPayment(ctx, query, shiftID)
}

func (r *MySQLPaymentRepository) queryPayment(ctx context.Context, query string, arg interface{}) (*domain.Payment, error) {
	var payment domain.Payment
	var status int

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&payment.ID, &payment.ShiftID, &payment.WorkerID, &payment.CompanyID,
		&payment.Amount, &status, &payment.CreatedAt, &payment.UpdatedAt)

	if err != nil {
		return nil, err
	}

	payment.Status = domain.PaymentStatus(status)
	return &payment, nil
}

func (r *MySQLPaymentRepository) UpdatePaymentStatus(ctx context.Context, paymentID string, status domain.PaymentStatus) error {
	query := `UPDATE payments SET status = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, int(status), time.Now(), paymentID)
	return err
}

func (r *MySQLPaymentRepository) GetPaymentsForWorker(ctx context.Context, workerID string) ([]*domain.Payment, error) {
	query := `
        SELECT id, shift_id, worker_id, company_id, amount, status, created_at, updated_at
        FROM payments WHERE worker_id = ? ORDER BY created_at DESC
    `

	rows, err := r.db.QueryContext(ctx, query, workerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		var payment domain.Payment
		var status int
		if err := rows.Scan(
			&payment.ID, &payment.ShiftID, &payment.WorkerID, &payment.CompanyID,
			&payment.Amount, &status, &payment.CreatedAt, &payment.UpdatedAt); err != nil {
			return nil, err
		}
		payment.Status = domain.PaymentStatus(status)
		payments = append(payments, &payment)
	}

	return payments, rows.Err()
}
