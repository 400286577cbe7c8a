package models

import "time"

// OpKind is the kind of local mutation captured in the operation log.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// OpLogEntry is one row of the FIFO operation log kept alongside the cached
// collections. The log is an auxiliary replay mechanism: each local mutation
// appends an entry, a confirmed sync clears the record's entries, and the
// retry counter caps how often a failing push is re-attempted before the
// record is dead-lettered.
type OpLogEntry struct {
	ID         int64      `db:"id" json:"id"`
	Table      Collection `db:"tbl" json:"table"`
	RecordID   string     `db:"record_id" json:"record_id"`
	Op         OpKind     `db:"op" json:"operation"`
	Payload    string     `db:"payload" json:"payload"`
	Timestamp  time.Time  `db:"ts" json:"timestamp"`
	RetryCount int        `db:"retry_count" json:"retry_count"`
}
