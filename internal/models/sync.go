package models

import "time"

// SyncStatus is the snapshot published to sync listeners. PendingChanges is
// recomputed from the local store on every notification rather than cached.
type SyncStatus struct {
	IsOnline       bool       `json:"is_online"`
	LastSync       *time.Time `json:"last_sync,omitempty"`
	PendingChanges int        `json:"pending_changes"`
	IsSyncing      bool       `json:"is_syncing"`
}

// SyncMetricsSnapshot aggregates sync and request counters for the status
// endpoint, complementing the Prometheus exposition.
type SyncMetricsSnapshot struct {
	SyncPasses               uint64    `json:"sync_passes"`
	SyncPassFailures         uint64    `json:"sync_pass_failures"`
	RecordPushes             uint64    `json:"record_pushes"`
	RecordPushFailures       uint64    `json:"record_push_failures"`
	DeadLetters              uint64    `json:"dead_letters"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// PendingRecords holds the dirty records of all collections, partitioned by
// collection, as returned by the local store's dirty query.
type PendingRecords struct {
	Students   []Student
	Payments   []FeePayment
	Attendance []AttendanceRecord
}

// Count returns the total number of dirty records across all collections.
func (p PendingRecords) Count() int {
	return len(p.Students) + len(p.Payments) + len(p.Attendance)
}
