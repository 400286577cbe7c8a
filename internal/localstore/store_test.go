package localstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/champlabs/schoolsync/internal/models"
	"github.com/champlabs/schoolsync/pkg/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := New(db, zap.NewNop())
	require.NoError(t, err)
	return store
}

func strPtr(v string) *string     { return &v }
func floatPtr(v float64) *float64 { return &v }

func testStudent(id string) models.Student {
	now := time.Now().UTC()
	return models.Student{
		ID:         id,
		StudentID:  "S-" + id,
		Name:       "Student " + id,
		RollNumber: "42",
		Class:      "10",
		Section:    strPtr("A"),
		TotalFee:   floatPtr(1200),
		CreatedAt:  now,
		UpdatedAt:  now,
		CreatedBy:  "tester",
	}
}

func TestStudentRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	student := testStudent("st-1")
	student.StampCreated()
	require.NoError(t, store.PutStudent(ctx, student))

	got, err := store.GetStudent(ctx, "st-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, student.Name, got.Name)
	assert.Equal(t, "A", *got.Section)
	assert.Equal(t, 1200.0, *got.TotalFee)
	assert.Nil(t, got.Contact)
	assert.True(t, got.OfflineCreated)
	assert.True(t, got.SyncPending)
	assert.False(t, got.SyncDead)
	assert.WithinDuration(t, student.CreatedAt, got.CreatedAt, time.Second)
}

func TestGetStudentAbsent(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetStudent(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPutStudentOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	student := testStudent("st-1")
	student.StampCreated()
	require.NoError(t, store.PutStudent(ctx, student))

	student.Name = "Renamed"
	student.StampUpdated()
	require.NoError(t, store.PutStudent(ctx, student))

	got, err := store.GetStudent(ctx, "st-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Renamed", got.Name)
	// A record still awaiting its first upload keeps the created flag.
	assert.True(t, got.OfflineCreated)
	assert.False(t, got.OfflineUpdated)

	students, err := store.ListStudents(ctx)
	require.NoError(t, err)
	assert.Len(t, students, 1)
}

func TestListStudentsOrdered(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := testStudent("st-old")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := testStudent("st-new")

	require.NoError(t, store.PutStudent(ctx, newer))
	require.NoError(t, store.PutStudent(ctx, older))

	students, err := store.ListStudents(ctx)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "st-old", students[0].ID)
	assert.Equal(t, "st-new", students[1].ID)
}

func TestMarkSyncedClearsPendingOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	student := testStudent("st-1")
	student.StampCreated()
	require.NoError(t, store.PutStudent(ctx, student))

	require.NoError(t, store.MarkSynced(ctx, models.CollectionStudents, "st-1"))

	got, err := store.GetStudent(ctx, "st-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.SyncPending)
	assert.True(t, got.OfflineCreated, "historical flag survives")
	assert.WithinDuration(t, time.Now(), got.LastSync, 5*time.Second)
}

func TestPendingDirtyPartitionsAndSkipsDead(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dirty := testStudent("st-dirty")
	dirty.StampCreated()
	clean := testStudent("st-clean")
	dead := testStudent("st-dead")
	dead.StampCreated()

	require.NoError(t, store.PutStudent(ctx, dirty))
	require.NoError(t, store.PutStudent(ctx, clean))
	require.NoError(t, store.PutStudent(ctx, dead))
	require.NoError(t, store.MarkDead(ctx, models.CollectionStudents, "st-dead"))

	payment := models.FeePayment{
		ID:          "pay-1",
		StudentID:   "st-dirty",
		Amount:      100,
		PaymentDate: time.Now().UTC(),
		CreatedAt:   time.Now().UTC(),
		CreatedBy:   "tester",
	}
	payment.StampCreated()
	require.NoError(t, store.PutFeePayment(ctx, payment))

	pending, err := store.PendingDirty(ctx)
	require.NoError(t, err)
	require.Len(t, pending.Students, 1)
	assert.Equal(t, "st-dirty", pending.Students[0].ID)
	require.Len(t, pending.Payments, 1)
	assert.Empty(t, pending.Attendance)
	assert.Equal(t, 2, pending.Count())

	count, err := store.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDeleteStudent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	student := testStudent("st-1")
	require.NoError(t, store.PutStudent(ctx, student))
	require.NoError(t, store.Delete(ctx, models.CollectionStudents, "st-1"))

	got, err := store.GetStudent(ctx, "st-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTableForRejectsUnknownCollection(t *testing.T) {
	err := newTestStore(t).MarkSynced(context.Background(), models.Collection("users; DROP TABLE students"), "x")
	assert.Error(t, err)
}
