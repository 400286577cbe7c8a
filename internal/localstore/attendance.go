package localstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/champlabs/schoolsync/internal/models"
)

const attendanceColumns = `id, student_id, date, status, remarks, created_at, created_by,
	_offline_created, _offline_updated, _offline_deleted, _sync_pending, _sync_dead, _last_sync`

// PutAttendanceRecord inserts or overwrites an attendance record by id.
func (s *Store) PutAttendanceRecord(ctx context.Context, record models.AttendanceRecord) error {
	const query = `
	INSERT INTO attendance_records (` + attendanceColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		student_id = excluded.student_id,
		date = excluded.date,
		status = excluded.status,
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
		record.ID,
		record.StudentID,
		formatTime(record.Date),
		string(record.Status),
		nullString(record.Remarks),
		formatTime(record.CreatedAt),
		record.CreatedBy,
		boolToInt(record.OfflineCreated),
		boolToInt(record.OfflineUpdated),
		boolToInt(record.OfflineDeleted),
		boolToInt(record.SyncPending),
		boolToInt(record.SyncDead),
		formatTime(record.LastSync),
	)
	if err != nil {
		return storeFault("put attendance record", err)
	}
	return nil
}

// GetAttendanceRecord loads a record by id. Returns (nil, nil) when absent.
func (s *Store) GetAttendanceRecord(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+attendanceColumns+" FROM attendance_records WHERE id = ?", id)
	record, err := scanAttendanceRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeFault("get attendance record", err)
	}
	return &record, nil
}

// ListAttendanceRecords returns cached attendance ordered by creation time,
// optionally restricted to a student and/or a date.
func (s *Store) ListAttendanceRecords(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	clause := ""
	args := []interface{}{}
	switch {
	case filter.StudentID != "" && filter.Date != nil:
		clause = "WHERE student_id = ? AND date = ? "
		args = append(args, filter.StudentID, formatTime(*filter.Date))
	case filter.StudentID != "":
		clause = "WHERE student_id = ? "
		args = append(args, filter.StudentID)
	case filter.Date != nil:
		clause = "WHERE date = ? "
		args = append(args, formatTime(*filter.Date))
	}
	return s.queryAttendance(ctx, clause+"ORDER BY created_at ASC", args...)
}

func (s *Store) queryAttendance(ctx context.Context, clause string, args ...interface{}) ([]models.AttendanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+attendanceColumns+" FROM attendance_records "+clause, args...)
	if err != nil {
		return nil, storeFault("query attendance records", err)
	}
	defer rows.Close()

	var records []models.AttendanceRecord
	for rows.Next() {
		record, err := scanAttendanceRecord(rows)
		if err != nil {
			return nil, storeFault("scan attendance record", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFault("iterate attendance records", err)
	}
	return records, nil
}

func scanAttendanceRecord(row rowScanner) (models.AttendanceRecord, error) {
	var (
		record                    models.AttendanceRecord
		remark                    sql.NullString
		status                    string
		date, createdAt, lastSync string
		created, updated, deleted int
		pending, dead             int
	)

	err := row.Scan(
		&record.ID,
		&record.StudentID,
		&date,
		&status,
		&remark,
		&createdAt,
		&record.CreatedBy,
		&created,
		&updated,
		&deleted,
		&pending,
		&dead,
		&lastSync,
	)
	if err != nil {
		return models.AttendanceRecord{}, err
	}

	record.Status = models.AttendanceStatus(status)
	record.Remarks = fromNullString(remark)
	record.Date = parseTime(date)
	record.CreatedAt = parseTime(createdAt)
	record.OfflineCreated = created == 1
	record.OfflineUpdated = updated == 1
	record.OfflineDeleted = deleted == 1
	record.SyncPending = pending == 1
	record.SyncDead = dead == 1
	record.LastSync = parseTime(lastSync)
	return record, nil
}
