package localstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/champlabs/schoolsync/internal/models"
)

const studentColumns = `id, student_id, name, roll_number, class, section, contact, address,
	total_fee, fee_paid, attendance_percentage, remarks, created_at, updated_at, created_by,
	_offline_created, _offline_updated, _offline_deleted, _sync_pending, _sync_dead, _last_sync`

// PutStudent inserts or overwrites a student by id. Envelope fields are
// persisted exactly as provided by the caller.
func (s *Store) PutStudent(ctx context.Context, student models.Student) error {
	const query = `
	INSERT INTO students (` + studentColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		student_id = excluded.student_id,
		name = excluded.name,
		roll_number = excluded.roll_number,
		class = excluded.class,
		section = excluded.section,
		contact = excluded.contact,
		address = excluded.address,
		total_fee = excluded.total_fee,
		fee_paid = excluded.fee_paid,
		attendance_percentage = excluded.attendance_percentage,
		remarks = excluded.remarks,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at,
		created_by = excluded.created_by,
		_offline_created = excluded._offline_created,
		_offline_updated = excluded._offline_updated,
		_offline_deleted = excluded._offline_deleted,
		_sync_pending = excluded._sync_pending,
		_sync_dead = excluded._sync_dead,
		_last_sync = excluded._last_sync`

	_, err := s.db.ExecContext(ctx, query,
		student.ID,
		student.StudentID,
		student.Name,
		student.RollNumber,
		student.Class,
		nullString(student.Section),
		nullString(student.Contact),
		nullString(student.Address),
		nullFloat(student.TotalFee),
		nullFloat(student.FeePaid),
		nullFloat(student.AttendancePercentage),
		nullString(student.Remarks),
		formatTime(student.CreatedAt),
		formatTime(student.UpdatedAt),
		student.CreatedBy,
		boolToInt(student.OfflineCreated),
		boolToInt(student.OfflineUpdated),
		boolToInt(student.OfflineDeleted),
		boolToInt(student.SyncPending),
		boolToInt(student.SyncDead),
		formatTime(student.LastSync),
	)
	if err != nil {
		return storeFault("put student", err)
	}
	return nil
}

// GetStudent loads a single student by id. Returns (nil, nil) when absent.
func (s *Store) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+studentColumns+" FROM students WHERE id = ?", id)
	student, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeFault("get student", err)
	}
	return &student, nil
}

// ListStudents returns every cached student in an index-ordered scan by
// creation time. Deleted-flag filtering is the caller's concern.
func (s *Store) ListStudents(ctx context.Context) ([]models.Student, error) {
	return s.queryStudents(ctx, "ORDER BY created_at ASC")
}

func (s *Store) queryStudents(ctx context.Context, clause string) ([]models.Student, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+studentColumns+" FROM students "+clause)
	if err != nil {
		return nil, storeFault("query students", err)
	}
	defer rows.Close()

	var students []models.Student
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, storeFault("scan student", err)
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFault("iterate students", err)
	}
	return students, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStudent(row rowScanner) (models.Student, error) {
	var (
		student                           models.Student
		section, contact, address, remark sql.NullString
		totalFee, feePaid, attendancePct  sql.NullFloat64
		createdAt, updatedAt, lastSync    string
		created, updated, deleted         int
		pending, dead                     int
	)

	err := row.Scan(
		&student.ID,
		&student.StudentID,
		&student.Name,
		&student.RollNumber,
		&student.Class,
		&section,
		&contact,
		&address,
		&totalFee,
		&feePaid,
		&attendancePct,
		&remark,
		&createdAt,
		&updatedAt,
		&student.CreatedBy,
		&created,
		&updated,
		&deleted,
		&pending,
		&dead,
		&lastSync,
	)
	if err != nil {
		return models.Student{}, err
	}

	student.Section = fromNullString(section)
	student.Contact = fromNullString(contact)
	student.Address = fromNullString(address)
	student.Remarks = fromNullString(remark)
	student.TotalFee = fromNullFloat(totalFee)
	student.FeePaid = fromNullFloat(feePaid)
	student.AttendancePercentage = fromNullFloat(attendancePct)
	student.CreatedAt = parseTime(createdAt)
	student.UpdatedAt = parseTime(updatedAt)
	student.OfflineCreated = created == 1
	student.OfflineUpdated = updated == 1
	student.OfflineDeleted = deleted == 1
	student.SyncPending = pending == 1
	student.SyncDead = dead == 1
	student.LastSync = parseTime(lastSync)
	return student, nil
}
