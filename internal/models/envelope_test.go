package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStampCreatedThenUpdatedStaysCreate(t *testing.T) {
	var e SyncEnvelope
	e.StampCreated()
	e.StampUpdated()

	assert.True(t, e.OfflineCreated, "an unuploaded creation keeps pushing as an insert")
	assert.False(t, e.OfflineUpdated)
	assert.True(t, e.Dirty())
}

func TestStampUpdatedAfterClean(t *testing.T) {
	var e SyncEnvelope
	e.StampCreated()
	e.MarkClean(time.Now())
	e.StampUpdated()

	assert.False(t, e.OfflineCreated)
	assert.True(t, e.OfflineUpdated)
	assert.True(t, e.Dirty())
}

func TestStampClearsDeadFlag(t *testing.T) {
	var e SyncEnvelope
	e.SyncDead = true
	e.StampUpdated()

	assert.False(t, e.SyncDead, "a new local edit re-enters the sync queue")
}

func TestMarkClean(t *testing.T) {
	var e SyncEnvelope
	e.StampDeleted()
	at := time.Now().UTC()
	e.MarkClean(at)

	assert.False(t, e.Dirty())
	assert.False(t, e.OfflineDeleted)
	assert.Equal(t, at, e.LastSync)
}

func TestAttendanceStatusValid(t *testing.T) {
	assert.True(t, AttendanceStatusPresent.Valid())
	assert.True(t, AttendanceStatusLeave.Valid())
	assert.False(t, AttendanceStatus("vacation").Valid())
}
