package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/champlabs/schoolsync/internal/models"
	appErrors "github.com/champlabs/schoolsync/pkg/errors"
)

// remoteFault tags a failed remote call so callers can tell connectivity
// faults apart from local store faults.
func remoteFault(op string, err error) error {
	return appErrors.Wrap(fmt.Errorf("%s: %w", op, err), appErrors.ErrRemoteUnavailable.Code, appErrors.ErrRemoteUnavailable.Status, appErrors.ErrRemoteUnavailable.Message)
}

// Postgres implements Adapter against the remote PostgreSQL store. List
// reads go through an optional redis cache; every mutation invalidates the
// collection's cached entries.
type Postgres struct {
	db     *sqlx.DB
	cache  *ReadCache
	logger *zap.Logger
}

// NewPostgres constructs the adapter. The cache may be nil.
func NewPostgres(db *sqlx.DB, cache *ReadCache, logger *zap.Logger) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{db: db, cache: cache, logger: logger}
}

// InsertStudent creates the student remotely under its local id.
func (p *Postgres) InsertStudent(ctx context.Context, student models.Student) error {
	const query = `INSERT INTO students (id, student_id, name, roll_number, class, section, contact, address,
		total_fee, fee_paid, attendance_percentage, remarks, created_at, updated_at, created_by)
		VALUES (:id, :student_id, :name, :roll_number, :class, :section, :contact, :address,
		:total_fee, :fee_paid, :attendance_percentage, :remarks, :created_at, :updated_at, :created_by)`
	if _, err := p.db.NamedExecContext(ctx, query, student); err != nil {
		return remoteFault("insert student", err)
	}
	p.cache.invalidate(ctx, models.CollectionStudents)
	return nil
}

// UpdateStudent pushes the student's current domain fields by id.
func (p *Postgres) UpdateStudent(ctx context.Context, student models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET student_id = :student_id, name = :name, roll_number = :roll_number,
		class = :class, section = :section, contact = :contact, address = :address,
		total_fee = :total_fee, fee_paid = :fee_paid, attendance_percentage = :attendance_percentage,
		remarks = :remarks, updated_at = :updated_at WHERE id = :id`
	if _, err := p.db.NamedExecContext(ctx, query, student); err != nil {
		return remoteFault("update student", err)
	}
	p.cache.invalidate(ctx, models.CollectionStudents)
	return nil
}

// DeleteStudent removes the student remotely.
func (p *Postgres) DeleteStudent(ctx context.Context, id string) error {
	if _, err := p.db.ExecContext(ctx, "DELETE FROM students WHERE id = $1", id); err != nil {
		return remoteFault("delete student", err)
	}
	p.cache.invalidate(ctx, models.CollectionStudents)
	return nil
}

// SelectStudents fetches all students ordered by creation time descending.
func (p *Postgres) SelectStudents(ctx context.Context) ([]models.Student, error) {
	key := p.cache.key(models.CollectionStudents, "all")
	var students []models.Student
	if p.cache.get(ctx, key, &students) {
		return students, nil
	}

	const query = `SELECT id, student_id, name, roll_number, class, section, contact, address,
		total_fee, fee_paid, attendance_percentage, remarks, created_at, updated_at, created_by
		FROM students ORDER BY created_at DESC`
	if err := p.db.SelectContext(ctx, &students, query); err != nil {
		return nil, remoteFault("select students", err)
	}
	p.cache.set(ctx, key, students)
	return students, nil
}

// InsertFeePayment creates the payment remotely under its local id.
func (p *Postgres) InsertFeePayment(ctx context.Context, payment models.FeePayment) error {
	const query = `INSERT INTO fee_payments (id, student_id, amount, payment_date, payment_method, remarks, created_at, created_by)
		VALUES (:id, :student_id, :amount, :payment_date, :payment_method, :remarks, :created_at, :created_by)`
	if _, err := p.db.NamedExecContext(ctx, query, payment); err != nil {
		return remoteFault("insert fee payment", err)
	}
	p.cache.invalidate(ctx, models.CollectionFeePayments)
	return nil
}

// UpdateFeePayment pushes the payment's current domain fields by id.
func (p *Postgres) UpdateFeePayment(ctx context.Context, payment models.FeePayment) error {
	const query = `UPDATE fee_payments SET student_id = :student_id, amount = :amount,
		payment_date = :payment_date, payment_method = :payment_method, remarks = :remarks
		WHERE id = :id`
	if _, err := p.db.NamedExecContext(ctx, query, payment); err != nil {
		return remoteFault("update fee payment", err)
	}
	p.cache.invalidate(ctx, models.CollectionFeePayments)
	return nil
}

// DeleteFeePayment removes the payment remotely.
func (p *Postgres) DeleteFeePayment(ctx context.Context, id string) error {
	if _, err := p.db.ExecContext(ctx, "DELETE FROM fee_payments WHERE id = $1", id); err != nil {
		return remoteFault("delete fee payment", err)
	}
	p.cache.invalidate(ctx, models.CollectionFeePayments)
	return nil
}

// SelectFeePayments fetches payments, optionally for one student, ordered by
// creation time descending.
func (p *Postgres) SelectFeePayments(ctx context.Context, filter models.FeePaymentFilter) ([]models.FeePayment, error) {
	scope := "all"
	if filter.StudentID != "" {
		scope = filter.StudentID
	}
	key := p.cache.key(models.CollectionFeePayments, scope)
	var payments []models.FeePayment
	if p.cache.get(ctx, key, &payments) {
		return payments, nil
	}

	query := `SELECT id, student_id, amount, payment_date, payment_method, remarks, created_at, created_by
		FROM fee_payments`
	args := []interface{}{}
	if filter.StudentID != "" {
		query += " WHERE student_id = $1"
		args = append(args, filter.StudentID)
	}
	query += " ORDER BY created_at DESC"

	if err := p.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, remoteFault("select fee payments", err)
	}
	p.cache.set(ctx, key, payments)
	return payments, nil
}

// InsertAttendanceRecord creates the record remotely under its local id.
func (p *Postgres) InsertAttendanceRecord(ctx context.Context, record models.AttendanceRecord) error {
	const query = `INSERT INTO attendance_records (id, student_id, date, status, remarks, created_at, created_by)
		VALUES (:id, :student_id, :date, :status, :remarks, :created_at, :created_by)`
	if _, err := p.db.NamedExecContext(ctx, query, record); err != nil {
		return remoteFault("insert attendance record", err)
	}
	p.cache.invalidate(ctx, models.CollectionAttendance)
	return nil
}

// UpdateAttendanceRecord pushes the record's current domain fields by id.
func (p *Postgres) UpdateAttendanceRecord(ctx context.Context, record models.AttendanceRecord) error {
	const query = `UPDATE attendance_records SET student_id = :student_id, date = :date,
		status = :status, remarks = :remarks WHERE id = :id`
	if _, err := p.db.NamedExecContext(ctx, query, record); err != nil {
		return remoteFault("update attendance record", err)
	}
	p.cache.invalidate(ctx, models.CollectionAttendance)
	return nil
}

// DeleteAttendanceRecord removes the record remotely.
func (p *Postgres) DeleteAttendanceRecord(ctx context.Context, id string) error {
	if _, err := p.db.ExecContext(ctx, "DELETE FROM attendance_records WHERE id = $1", id); err != nil {
		return remoteFault("delete attendance record", err)
	}
	p.cache.invalidate(ctx, models.CollectionAttendance)
	return nil
}

// SelectAttendanceRecords fetches attendance, optionally filtered by student
// and/or date, ordered by creation time descending.
func (p *Postgres) SelectAttendanceRecords(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	scope := "all"
	if filter.StudentID != "" {
		scope = filter.StudentID
	}
	if filter.Date != nil {
		scope += ":" + filter.Date.UTC().Format("2006-01-02")
	}
	key := p.cache.key(models.CollectionAttendance, scope)
	var records []models.AttendanceRecord
	if p.cache.get(ctx, key, &records) {
		return records, nil
	}

	query := `SELECT id, student_id, date, status, remarks, created_at, created_by
		FROM attendance_records`
	conditions := ""
	args := []interface{}{}
	if filter.StudentID != "" {
		conditions = " WHERE student_id = $1"
		args = append(args, filter.StudentID)
	}
	if filter.Date != nil {
		if conditions == "" {
			conditions = fmt.Sprintf(" WHERE date = $%d", len(args)+1)
		} else {
			conditions += fmt.Sprintf(" AND date = $%d", len(args)+1)
		}
		args = append(args, filter.Date.UTC())
	}
	query += conditions + " ORDER BY created_at DESC"

	if err := p.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, remoteFault("select attendance records", err)
	}
	p.cache.set(ctx, key, records)
	return records, nil
}
