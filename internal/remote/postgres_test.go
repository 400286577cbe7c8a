package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/champlabs/schoolsync/internal/models"
	appErrors "github.com/champlabs/schoolsync/pkg/errors"
)

func newAdapterMock(t *testing.T) (*Postgres, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	adapter := NewPostgres(sqlx.NewDb(db, "sqlmock"), nil, nil)
	return adapter, mock, func() { db.Close() }
}

func TestInsertStudent(t *testing.T) {
	adapter, mock, cleanup := newAdapterMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(1, 1))

	section := "A"
	err := adapter.InsertStudent(context.Background(), models.Student{
		ID:         "st-1",
		StudentID:  "S-1",
		Name:       "Student",
		RollNumber: "1",
		Class:      "10",
		Section:    &section,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
		CreatedBy:  "tester",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStudent(t *testing.T) {
	adapter, mock, cleanup := newAdapterMock(t)
	defer cleanup()

	mock.ExpectExec("UPDATE students SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := adapter.UpdateStudent(context.Background(), models.Student{
		ID: "st-1", StudentID: "S-1", Name: "Renamed", RollNumber: "1", Class: "10",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteStudent(t *testing.T) {
	adapter, mock, cleanup := newAdapterMock(t)
	defer cleanup()

	mock.ExpectExec("DELETE FROM students WHERE id").
		WithArgs("st-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, adapter.DeleteStudent(context.Background(), "st-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectStudents(t *testing.T) {
	adapter, mock, cleanup := newAdapterMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "student_id", "name", "roll_number", "class", "section", "contact", "address", "total_fee", "fee_paid", "attendance_percentage", "remarks", "created_at", "updated_at", "created_by"}).
		AddRow("st-1", "S-1", "Student", "1", "10", nil, nil, nil, nil, nil, nil, nil, time.Now(), time.Now(), "tester")
	mock.ExpectQuery("SELECT (.+) FROM students ORDER BY created_at DESC").
		WillReturnRows(rows)

	students, err := adapter.SelectStudents(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "st-1", students[0].ID)
	assert.Nil(t, students[0].Section)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectStudentsError(t *testing.T) {
	adapter, mock, cleanup := newAdapterMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM students").
		WillReturnError(assert.AnError)

	_, err := adapter.SelectStudents(context.Background())
	assert.Error(t, err)
}

func TestInsertFeePayment(t *testing.T) {
	adapter, mock, cleanup := newAdapterMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO fee_payments").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := adapter.InsertFeePayment(context.Background(), models.FeePayment{
		ID: "pay-1", StudentID: "st-1", Amount: 100, PaymentDate: time.Now(), CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectFeePaymentsByStudent(t *testing.T) {
	adapter, mock, cleanup := newAdapterMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "student_id", "amount", "payment_date", "payment_method", "remarks", "created_at", "created_by"}).
		AddRow("pay-1", "st-1", 100.0, time.Now(), "cash", nil, time.Now(), "tester")
	mock.ExpectQuery("SELECT (.+) FROM fee_payments WHERE student_id").
		WithArgs("st-1").
		WillReturnRows(rows)

	payments, err := adapter.SelectFeePayments(context.Background(), models.FeePaymentFilter{StudentID: "st-1"})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, 100.0, payments[0].Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertAttendanceRecord(t *testing.T) {
	adapter, mock, cleanup := newAdapterMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO attendance_records").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := adapter.InsertAttendanceRecord(context.Background(), models.AttendanceRecord{
		ID: "att-1", StudentID: "st-1", Date: time.Now(), Status: models.AttendanceStatusPresent, CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectAttendanceRecordsWithDate(t *testing.T) {
	adapter, mock, cleanup := newAdapterMock(t)
	defer cleanup()

	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "student_id", "date", "status", "remarks", "created_at", "created_by"}).
		AddRow("att-1", "st-1", date, "present", nil, time.Now(), "tester")
	mock.ExpectQuery("SELECT (.+) FROM attendance_records WHERE student_id = \\$1 AND date = \\$2").
		WithArgs("st-1", date).
		WillReturnRows(rows)

	records, err := adapter.SelectAttendanceRecords(context.Background(), models.AttendanceFilter{StudentID: "st-1", Date: &date})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.AttendanceStatusPresent, records[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoteFailureTaggedUnavailable(t *testing.T) {
	adapter, mock, cleanup := newAdapterMock(t)
	defer cleanup()

	mock.ExpectExec("DELETE FROM students").
		WillReturnError(errors.New("dial tcp 10.0.0.1:5432: connection refused"))

	err := adapter.DeleteStudent(context.Background(), "st-1")
	require.Error(t, err)

	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrRemoteUnavailable.Code, typed.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectFailureTaggedUnavailable(t *testing.T) {
	adapter, mock, cleanup := newAdapterMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM students").
		WillReturnError(errors.New("read tcp: i/o timeout"))

	_, err := adapter.SelectStudents(context.Background())
	require.Error(t, err)

	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrRemoteUnavailable.Code, typed.Code)
}
