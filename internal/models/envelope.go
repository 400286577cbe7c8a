package models

import "time"

// Collection identifies one of the synced record collections. Values double
// as table names in both the local cache and the remote store.
type Collection string

const (
	CollectionStudents    Collection = "students"
	CollectionFeePayments Collection = "fee_payments"
	CollectionAttendance  Collection = "attendance_records"
)

// Collections lists every synced collection in the order upload passes
// process them. Students go first so payment and attendance rows never
// reference a student the remote store has not seen yet.
var Collections = []Collection{CollectionStudents, CollectionFeePayments, CollectionAttendance}

// SyncEnvelope carries the sync bookkeeping attached to every cached record.
// The underscore-prefixed names are the on-disk and wire names; they never
// leave the data layer with different spellings.
//
// Flags are stamped explicitly by the data service and sync engine, never
// inferred by the store. OfflineCreated/Updated/Deleted record what kind of
// local mutation is outstanding, SyncPending marks the record dirty, and
// SyncDead parks a record that kept failing to push so passes stop retrying
// it. LastSync is the zero time until the record has synced at least once.
type SyncEnvelope struct {
	OfflineCreated bool      `db:"_offline_created" json:"_offline_created"`
	OfflineUpdated bool      `db:"_offline_updated" json:"_offline_updated"`
	OfflineDeleted bool      `db:"_offline_deleted" json:"_offline_deleted"`
	SyncPending    bool      `db:"_sync_pending" json:"_sync_pending"`
	SyncDead       bool      `db:"_sync_dead" json:"_sync_dead"`
	LastSync       time.Time `db:"_last_sync" json:"_last_sync"`
}

// Dirty reports whether the record has local changes awaiting upload.
func (e SyncEnvelope) Dirty() bool {
	return e.SyncPending
}

// StampCreated marks the record as created locally while offline or
// unsynced.
func (e *SyncEnvelope) StampCreated() {
	e.OfflineCreated = true
	e.SyncPending = true
	e.SyncDead = false
}

// StampUpdated marks the record as modified locally. A record still awaiting
// its initial upload keeps its created flag so the push stays an insert.
func (e *SyncEnvelope) StampUpdated() {
	if !e.OfflineCreated {
		e.OfflineUpdated = true
	}
	e.SyncPending = true
	e.SyncDead = false
}

// StampDeleted marks the record for remote deletion. The row stays in the
// local store until the remote store confirms.
func (e *SyncEnvelope) StampDeleted() {
	e.OfflineDeleted = true
	e.SyncPending = true
	e.SyncDead = false
}

// MarkClean resets the envelope after a confirmed sync at the given time.
func (e *SyncEnvelope) MarkClean(at time.Time) {
	e.OfflineCreated = false
	e.OfflineUpdated = false
	e.OfflineDeleted = false
	e.SyncPending = false
	e.SyncDead = false
	e.LastSync = at
}
