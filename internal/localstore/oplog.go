package localstore

import (
	"context"
	"time"

	"github.com/champlabs/schoolsync/internal/models"
)

// AppendOp records a local mutation in the FIFO operation log. The payload
// is the record's domain fields serialized at mutation time, so a replay can
// reconstruct the push even if the record row changes again afterwards.
func (s *Store) AppendOp(ctx context.Context, entry models.OpLogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO op_log (tbl, record_id, op, payload, ts, retry_count)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		string(entry.Table),
		entry.RecordID,
		string(entry.Op),
		entry.Payload,
		formatTime(entry.Timestamp),
		entry.RetryCount,
	)
	if err != nil {
		return storeFault("append op", err)
	}
	return nil
}

// ListOps returns the whole operation log in timestamp order.
func (s *Store) ListOps(ctx context.Context) ([]models.OpLogEntry, error) {
	const query = `SELECT id, tbl, record_id, op, payload, ts, retry_count
		FROM op_log ORDER BY ts ASC, id ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeFault("list ops", err)
	}
	defer rows.Close()

	var entries []models.OpLogEntry
	for rows.Next() {
		var (
			entry   models.OpLogEntry
			tbl, op string
			ts      string
		)
		if err := rows.Scan(&entry.ID, &tbl, &entry.RecordID, &op, &entry.Payload, &ts, &entry.RetryCount); err != nil {
			return nil, storeFault("scan op", err)
		}
		entry.Table = models.Collection(tbl)
		entry.Op = models.OpKind(op)
		entry.Timestamp = parseTime(ts)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFault("iterate ops", err)
	}
	return entries, nil
}

// IncrementOpRetry bumps the retry counter on every logged operation for the
// record and returns the highest counter value afterwards. The sync engine
// compares it against the dead-letter threshold.
func (s *Store) IncrementOpRetry(ctx context.Context, collection models.Collection, recordID string) (int, error) {
	const update = `UPDATE op_log SET retry_count = retry_count + 1 WHERE tbl = ? AND record_id = ?`
	if _, err := s.db.ExecContext(ctx, update, string(collection), recordID); err != nil {
		return 0, storeFault("increment op retry", err)
	}

	const query = `SELECT COALESCE(MAX(retry_count), 0) FROM op_log WHERE tbl = ? AND record_id = ?`
	var count int
	if err := s.db.QueryRowContext(ctx, query, string(collection), recordID).Scan(&count); err != nil {
		return 0, storeFault("read op retry", err)
	}
	return count, nil
}

// ClearOps drops the logged operations for one record after a confirmed sync.
func (s *Store) ClearOps(ctx context.Context, collection models.Collection, recordID string) error {
	const query = `DELETE FROM op_log WHERE tbl = ? AND record_id = ?`
	if _, err := s.db.ExecContext(ctx, query, string(collection), recordID); err != nil {
		return storeFault("clear ops", err)
	}
	return nil
}

// ClearAllOps empties the operation log.
func (s *Store) ClearAllOps(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM op_log"); err != nil {
		return storeFault("clear op log", err)
	}
	return nil
}
