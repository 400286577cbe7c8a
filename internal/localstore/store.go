// Package localstore implements the durable on-device cache for the synced
// collections. Every record row carries the sync envelope columns alongside
// its domain fields, plus a FIFO operation log and a small kv bucket used
// for state that must survive restarts (the last successful sync).
//
// The store never decides dirtiness on its own: callers write envelope
// fields explicitly, so the data service can stamp offline flags on user
// mutations and the sync engine can override them when applying confirmed
// remote state.
package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/champlabs/schoolsync/internal/models"
	appErrors "github.com/champlabs/schoolsync/pkg/errors"
)

const timeFormat = time.RFC3339Nano

const schema = `
CREATE TABLE IF NOT EXISTS students (
	id TEXT PRIMARY KEY,
	student_id TEXT NOT NULL,
	name TEXT NOT NULL,
	roll_number TEXT NOT NULL,
	class TEXT NOT NULL,
	section TEXT,
	contact TEXT,
	address TEXT,
	total_fee REAL,
	fee_paid REAL,
	attendance_percentage REAL,
	remarks TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	created_by TEXT NOT NULL,
	_offline_created INTEGER NOT NULL DEFAULT 0,
	_offline_updated INTEGER NOT NULL DEFAULT 0,
	_offline_deleted INTEGER NOT NULL DEFAULT 0,
	_sync_pending INTEGER NOT NULL DEFAULT 0,
	_sync_dead INTEGER NOT NULL DEFAULT 0,
	_last_sync TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS fee_payments (
	id TEXT PRIMARY KEY,
	student_id TEXT NOT NULL,
	amount REAL NOT NULL,
	payment_date TEXT NOT NULL,
	payment_method TEXT,
	remarks TEXT,
	created_at TEXT NOT NULL,
	created_by TEXT NOT NULL,
	_offline_created INTEGER NOT NULL DEFAULT 0,
	_offline_updated INTEGER NOT NULL DEFAULT 0,
	_offline_deleted INTEGER NOT NULL DEFAULT 0,
	_sync_pending INTEGER NOT NULL DEFAULT 0,
	_sync_dead INTEGER NOT NULL DEFAULT 0,
	_last_sync TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS attendance_records (
	id TEXT PRIMARY KEY,
	student_id TEXT NOT NULL,
	date TEXT NOT NULL,
	status TEXT NOT NULL,
	remarks TEXT,
	created_at TEXT NOT NULL,
	created_by TEXT NOT NULL,
	_offline_created INTEGER NOT NULL DEFAULT 0,
	_offline_updated INTEGER NOT NULL DEFAULT 0,
	_offline_deleted INTEGER NOT NULL DEFAULT 0,
	_sync_pending INTEGER NOT NULL DEFAULT 0,
	_sync_dead INTEGER NOT NULL DEFAULT 0,
	_last_sync TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS op_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	tbl TEXT NOT NULL,
	record_id TEXT NOT NULL,
	op TEXT NOT NULL,
	payload TEXT NOT NULL DEFAULT '',
	ts TEXT NOT NULL,
	retry_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_students_student_id ON students(student_id);
CREATE INDEX IF NOT EXISTS idx_students_created ON students(created_at);
CREATE INDEX IF NOT EXISTS idx_students_pending ON students(_sync_pending);
CREATE INDEX IF NOT EXISTS idx_payments_student ON fee_payments(student_id);
CREATE INDEX IF NOT EXISTS idx_payments_created ON fee_payments(created_at);
CREATE INDEX IF NOT EXISTS idx_payments_pending ON fee_payments(_sync_pending);
CREATE INDEX IF NOT EXISTS idx_attendance_student ON attendance_records(student_id);
CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance_records(date);
CREATE INDEX IF NOT EXISTS idx_attendance_created ON attendance_records(created_at);
CREATE INDEX IF NOT EXISTS idx_attendance_pending ON attendance_records(_sync_pending);
CREATE INDEX IF NOT EXISTS idx_op_log_record ON op_log(tbl, record_id);
CREATE INDEX IF NOT EXISTS idx_op_log_ts ON op_log(ts);
`

// Store is the durable local cache shared by the data service and the sync
// engine. Local writes are expected to succeed; failures are wrapped as
// local store faults and propagate to the caller.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// New wraps an opened SQLite handle. The schema is created on first use.
func New(db *sql.DB, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{db: db, logger: logger}
	if _, err := db.Exec(schema); err != nil {
		return nil, storeFault("init local schema", err)
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// tableFor maps a collection to its local table, guarding against arbitrary
// strings reaching query construction.
func tableFor(collection models.Collection) (string, error) {
	switch collection {
	case models.CollectionStudents, models.CollectionFeePayments, models.CollectionAttendance:
		return string(collection), nil
	default:
		return "", fmt.Errorf("unknown collection %q", collection)
	}
}

// MarkSynced clears the pending flag and refreshes the last-sync stamp after
// the remote store confirmed the record's outstanding operation. The
// offline-created/updated flags are left in place as historical markers.
func (s *Store) MarkSynced(ctx context.Context, collection models.Collection, id string) error {
	table, err := tableFor(collection)
	if err != nil {
		return storeFault("mark synced", err)
	}
	query := fmt.Sprintf("UPDATE %s SET _sync_pending = 0, _last_sync = ? WHERE id = ?", table)
	if _, err := s.db.ExecContext(ctx, query, time.Now().UTC().Format(timeFormat), id); err != nil {
		return storeFault("mark synced", err)
	}
	return nil
}

// MarkDead flags a record as dead-lettered: it stays visible locally but
// drops out of the dirty query, so sync passes stop retrying it until it is
// resolved manually.
func (s *Store) MarkDead(ctx context.Context, collection models.Collection, id string) error {
	table, err := tableFor(collection)
	if err != nil {
		return storeFault("mark dead", err)
	}
	query := fmt.Sprintf("UPDATE %s SET _sync_dead = 1 WHERE id = ?", table)
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return storeFault("mark dead", err)
	}
	return nil
}

// Delete hard-removes a record. Only called once the remote deletion is
// confirmed, or by the download pass when reconciling clean state.
func (s *Store) Delete(ctx context.Context, collection models.Collection, id string) error {
	table, err := tableFor(collection)
	if err != nil {
		return storeFault("delete record", err)
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", table)
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return storeFault("delete record", err)
	}
	return nil
}

// PendingDirty returns every dirty, non-dead record across the three
// collections, partitioned by collection and ordered by creation time.
func (s *Store) PendingDirty(ctx context.Context) (models.PendingRecords, error) {
	var pending models.PendingRecords

	students, err := s.queryStudents(ctx, "WHERE _sync_pending = 1 AND _sync_dead = 0 ORDER BY created_at ASC")
	if err != nil {
		return pending, err
	}
	payments, err := s.queryFeePayments(ctx, "WHERE _sync_pending = 1 AND _sync_dead = 0 ORDER BY created_at ASC")
	if err != nil {
		return pending, err
	}
	attendance, err := s.queryAttendance(ctx, "WHERE _sync_pending = 1 AND _sync_dead = 0 ORDER BY created_at ASC")
	if err != nil {
		return pending, err
	}

	pending.Students = students
	pending.Payments = payments
	pending.Attendance = attendance
	return pending, nil
}

// PendingCount is the total number of dirty, non-dead records. Computed
// fresh for every status notification.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	total := 0
	for _, collection := range models.Collections {
		table, err := tableFor(collection)
		if err != nil {
			return 0, storeFault("pending count", err)
		}
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE _sync_pending = 1 AND _sync_dead = 0", table)
		var n int
		if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return 0, storeFault("pending count", err)
		}
		total += n
	}
	return total, nil
}

func storeFault(op string, err error) error {
	return appErrors.Wrap(fmt.Errorf("%s: %w", op, err), appErrors.ErrLocalStore.Code, appErrors.ErrLocalStore.Status, appErrors.ErrLocalStore.Message)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeFormat, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func fromNullFloat(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	v := nf.Float64
	return &v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
