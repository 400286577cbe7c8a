// Package remote is the thin adapter to the authoritative backend store.
// Only domain fields cross this boundary: the sync envelope is local-cache
// bookkeeping and never leaves the device.
package remote

import (
	"context"

	"github.com/champlabs/schoolsync/internal/models"
)

// Adapter is the call contract the data service and the sync engine hold
// against the remote store. Inserts are keyed by the locally generated id.
type Adapter interface {
	InsertStudent(ctx context.Context, student models.Student) error
	UpdateStudent(ctx context.Context, student models.Student) error
	DeleteStudent(ctx context.Context, id string) error
	SelectStudents(ctx context.Context) ([]models.Student, error)

	InsertFeePayment(ctx context.Context, payment models.FeePayment) error
	UpdateFeePayment(ctx context.Context, payment models.FeePayment) error
	DeleteFeePayment(ctx context.Context, id string) error
	SelectFeePayments(ctx context.Context, filter models.FeePaymentFilter) ([]models.FeePayment, error)

	InsertAttendanceRecord(ctx context.Context, record models.AttendanceRecord) error
	UpdateAttendanceRecord(ctx context.Context, record models.AttendanceRecord) error
	DeleteAttendanceRecord(ctx context.Context, id string) error
	SelectAttendanceRecords(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}
