package localstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/champlabs/schoolsync/internal/models"
)

func testPayment(id, studentID string) models.FeePayment {
	now := time.Now().UTC()
	return models.FeePayment{
		ID:            id,
		StudentID:     studentID,
		Amount:        500,
		PaymentDate:   now,
		PaymentMethod: strPtr("cash"),
		CreatedAt:     now,
		CreatedBy:     "tester",
	}
}

func TestFeePaymentRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	payment := testPayment("pay-1", "st-1")
	payment.StampCreated()
	require.NoError(t, store.PutFeePayment(ctx, payment))

	got, err := store.GetFeePayment(ctx, "pay-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 500.0, got.Amount)
	assert.Equal(t, "cash", *got.PaymentMethod)
	assert.True(t, got.SyncPending)
	assert.WithinDuration(t, payment.PaymentDate, got.PaymentDate, time.Second)
}

func TestListFeePaymentsByStudent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutFeePayment(ctx, testPayment("pay-1", "st-1")))
	require.NoError(t, store.PutFeePayment(ctx, testPayment("pay-2", "st-2")))
	require.NoError(t, store.PutFeePayment(ctx, testPayment("pay-3", "st-1")))

	all, err := store.ListFeePayments(ctx, models.FeePaymentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	scoped, err := store.ListFeePayments(ctx, models.FeePaymentFilter{StudentID: "st-1"})
	require.NoError(t, err)
	require.Len(t, scoped, 2)
	for _, payment := range scoped {
		assert.Equal(t, "st-1", payment.StudentID)
	}
}

func testAttendance(id, studentID string, date time.Time) models.AttendanceRecord {
	return models.AttendanceRecord{
		ID:        id,
		StudentID: studentID,
		Date:      date,
		Status:    models.AttendanceStatusPresent,
		CreatedAt: time.Now().UTC(),
		CreatedBy: "tester",
	}
}

func TestAttendanceRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := testAttendance("att-1", "st-1", time.Now().UTC())
	record.Remarks = strPtr("late arrival")
	record.StampCreated()
	require.NoError(t, store.PutAttendanceRecord(ctx, record))

	got, err := store.GetAttendanceRecord(ctx, "att-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.AttendanceStatusPresent, got.Status)
	assert.Equal(t, "late arrival", *got.Remarks)
	assert.True(t, got.OfflineCreated)
}

func TestListAttendanceFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	today := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	require.NoError(t, store.PutAttendanceRecord(ctx, testAttendance("att-1", "st-1", today)))
	require.NoError(t, store.PutAttendanceRecord(ctx, testAttendance("att-2", "st-2", today)))
	require.NoError(t, store.PutAttendanceRecord(ctx, testAttendance("att-3", "st-1", yesterday)))

	byStudent, err := store.ListAttendanceRecords(ctx, models.AttendanceFilter{StudentID: "st-1"})
	require.NoError(t, err)
	assert.Len(t, byStudent, 2)

	byDate, err := store.ListAttendanceRecords(ctx, models.AttendanceFilter{Date: &today})
	require.NoError(t, err)
	assert.Len(t, byDate, 2)

	both, err := store.ListAttendanceRecords(ctx, models.AttendanceFilter{StudentID: "st-1", Date: &today})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "att-1", both[0].ID)
}
