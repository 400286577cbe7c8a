package localstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/champlabs/schoolsync/internal/models"
)

const paymentColumns = `id, student_id, amount, payment_date, payment_method, remarks,
	created_at, created_by,
	_offline_created, _offline_updated, _offline_deleted, _sync_pending, _sync_dead, _last_sync`

// PutFeePayment inserts or overwrites a fee payment by id.
func (s *Store) PutFeePayment(ctx context.Context, payment models.FeePayment) error {
	const query = `
	INSERT INTO fee_payments (` + paymentColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		student_id = excluded.student_id,
		amount = excluded.amount,
		payment_date = excluded.payment_date,
		payment_method = excluded.payment_method,
		remarks = excluded.remarks,
		created_at = excluded.created_at,
		created_by = excluded.created_by,
		_offline_created = excluded._offline_created,
		_offline_updated = excluded._offline_updated,
		_offline_deleted = excluded._offline_deleted,
		_sync_pending = excluded._sync_pending,
		_sync_dead = excluded._sync_dead,
		_last_sync = excluded._last_sync`

	_, err := s.db.ExecContext(ctx, query,
		payment.ID,
		payment.StudentID,
		payment.Amount,
		formatTime(payment.PaymentDate),
		nullString(payment.PaymentMethod),
		nullString(payment.Remarks),
		formatTime(payment.CreatedAt),
		payment.CreatedBy,
		boolToInt(payment.OfflineCreated),
		boolToInt(payment.OfflineUpdated),
		boolToInt(payment.OfflineDeleted),
		boolToInt(payment.SyncPending),
		boolToInt(payment.SyncDead),
		formatTime(payment.LastSync),
	)
	if err != nil {
		return storeFault("put fee payment", err)
	}
	return nil
}

// GetFeePayment loads a single payment by id. Returns (nil, nil) when absent.
func (s *Store) GetFeePayment(ctx context.Context, id string) (*models.FeePayment, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+paymentColumns+" FROM fee_payments WHERE id = ?", id)
	payment, err := scanFeePayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeFault("get fee payment", err)
	}
	return &payment, nil
}

// ListFeePayments returns cached payments ordered by creation time,
// optionally restricted to one student.
func (s *Store) ListFeePayments(ctx context.Context, filter models.FeePaymentFilter) ([]models.FeePayment, error) {
	if filter.StudentID != "" {
		return s.queryFeePayments(ctx, "WHERE student_id = ? ORDER BY created_at ASC", filter.StudentID)
	}
	return s.queryFeePayments(ctx, "ORDER BY created_at ASC")
}

func (s *Store) queryFeePayments(ctx context.Context, clause string, args ...interface{}) ([]models.FeePayment, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+paymentColumns+" FROM fee_payments "+clause, args...)
	if err != nil {
		return nil, storeFault("query fee payments", err)
	}
	defer rows.Close()

	var payments []models.FeePayment
	for rows.Next() {
		payment, err := scanFeePayment(rows)
		if err != nil {
			return nil, storeFault("scan fee payment", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFault("iterate fee payments", err)
	}
	return payments, nil
}

func scanFeePayment(row rowScanner) (models.FeePayment, error) {
	var (
		payment                          models.FeePayment
		method, remark                   sql.NullString
		paymentDate, createdAt, lastSync string
		created, updated, deleted        int
		pending, dead                    int
	)

	err := row.Scan(
		&payment.ID,
		&payment.StudentID,
		&payment.Amount,
		&paymentDate,
		&method,
		&remark,
		&createdAt,
		&payment.CreatedBy,
		&created,
		&updated,
		&deleted,
		&pending,
		&dead,
		&lastSync,
	)
	if err != nil {
		return models.FeePayment{}, err
	}

	payment.PaymentMethod = fromNullString(method)
	payment.Remarks = fromNullString(remark)
	payment.PaymentDate = parseTime(paymentDate)
	payment.CreatedAt = parseTime(createdAt)
	payment.OfflineCreated = created == 1
	payment.OfflineUpdated = updated == 1
	payment.OfflineDeleted = deleted == 1
	payment.SyncPending = pending == 1
	payment.SyncDead = dead == 1
	payment.LastSync = parseTime(lastSync)
	return payment, nil
}
