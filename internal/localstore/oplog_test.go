package localstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/champlabs/schoolsync/internal/models"
)

func TestOpLogAppendAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := models.OpLogEntry{
		Table:     models.CollectionStudents,
		RecordID:  "st-1",
		Op:        models.OpCreate,
		Payload:   `{"id":"st-1"}`,
		Timestamp: time.Now().UTC().Add(-time.Minute),
	}
	second := models.OpLogEntry{
		Table:    models.CollectionStudents,
		RecordID: "st-1",
		Op:       models.OpUpdate,
		Payload:  `{"id":"st-1","name":"x"}`,
	}
	require.NoError(t, store.AppendOp(ctx, first))
	require.NoError(t, store.AppendOp(ctx, second))

	entries, err := store.ListOps(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.OpCreate, entries[0].Op)
	assert.Equal(t, models.OpUpdate, entries[1].Op)
	assert.Equal(t, models.CollectionStudents, entries[0].Table)
	assert.False(t, entries[1].Timestamp.IsZero(), "zero timestamp is filled in")
}

func TestOpLogRetryCounter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendOp(ctx, models.OpLogEntry{
		Table: models.CollectionFeePayments, RecordID: "pay-1", Op: models.OpCreate,
	}))

	for want := 1; want <= 3; want++ {
		got, err := store.IncrementOpRetry(ctx, models.CollectionFeePayments, "pay-1")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// Other records are untouched.
	require.NoError(t, store.AppendOp(ctx, models.OpLogEntry{
		Table: models.CollectionFeePayments, RecordID: "pay-2", Op: models.OpCreate,
	}))
	got, err := store.IncrementOpRetry(ctx, models.CollectionFeePayments, "pay-2")
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestOpLogClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendOp(ctx, models.OpLogEntry{
		Table: models.CollectionStudents, RecordID: "st-1", Op: models.OpCreate,
	}))
	require.NoError(t, store.AppendOp(ctx, models.OpLogEntry{
		Table: models.CollectionStudents, RecordID: "st-2", Op: models.OpCreate,
	}))

	require.NoError(t, store.ClearOps(ctx, models.CollectionStudents, "st-1"))
	entries, err := store.ListOps(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "st-2", entries[0].RecordID)

	require.NoError(t, store.ClearAllOps(ctx))
	entries, err = store.ListOps(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLastSyncRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	last, err := store.LastSync(ctx)
	require.NoError(t, err)
	assert.Nil(t, last, "no sync recorded yet")

	now := time.Now().UTC()
	require.NoError(t, store.SetLastSync(ctx, now))

	last, err = store.LastSync(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.WithinDuration(t, now, *last, time.Second)
}
