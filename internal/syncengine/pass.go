package syncengine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/champlabs/schoolsync/internal/models"
	appErrors "github.com/champlabs/schoolsync/pkg/errors"
)

// SyncAllData runs one upload pass: every dirty record is pushed to the
// remote store, collection by collection, students first. A record that
// fails stays dirty and the pass moves on; only after its retry budget is
// exhausted is it dead-lettered. Returns immediately when a pass is already
// in flight.
func (e *Engine) SyncAllData(ctx context.Context) (err error) {
	if !e.syncing.CompareAndSwap(false, true) {
		return nil
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("sync pass panicked", zap.Any("panic", r))
			err = appErrors.Wrap(fmt.Errorf("sync pass panic: %v", r), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "sync pass aborted")
		}
		e.syncing.Store(false)
		e.metrics.ObserveSyncPass(err != nil, time.Since(start))
		e.notify(ctx)
	}()

	e.notify(ctx)

	pending, err := e.store.PendingDirty(ctx)
	if err != nil {
		return err
	}

	failures := 0
	for _, student := range pending.Students {
		if !e.pushStudent(ctx, student) {
			failures++
		}
	}
	for _, payment := range pending.Payments {
		if !e.pushFeePayment(ctx, payment) {
			failures++
		}
	}
	for _, record := range pending.Attendance {
		if !e.pushAttendance(ctx, record) {
			failures++
		}
	}

	now := time.Now().UTC()
	if err := e.store.SetLastSync(ctx, now); err != nil {
		e.logger.Warn("persist last sync failed", zap.Error(err))
	}
	e.metrics.SetLastSyncTime(now)
	e.logger.Info("sync pass finished",
		zap.Int("pushed", pending.Count()-failures),
		zap.Int("failed", failures),
		zap.Duration("took", time.Since(start)))
	return nil
}

func (e *Engine) pushStudent(ctx context.Context, student models.Student) bool {
	err := e.withTimeout(ctx, func(ctx context.Context) error {
		switch {
		case student.OfflineDeleted:
			return e.remote.DeleteStudent(ctx, student.ID)
		case student.OfflineCreated:
			return e.remote.InsertStudent(ctx, student)
		default:
			return e.remote.UpdateStudent(ctx, student)
		}
	})
	e.metrics.ObserveSyncPush(models.CollectionStudents, err)
	return e.settle(ctx, models.CollectionStudents, student.ID, student.OfflineDeleted, err)
}

func (e *Engine) pushFeePayment(ctx context.Context, payment models.FeePayment) bool {
	err := e.withTimeout(ctx, func(ctx context.Context) error {
		switch {
		case payment.OfflineDeleted:
			return e.remote.DeleteFeePayment(ctx, payment.ID)
		case payment.OfflineCreated:
			return e.remote.InsertFeePayment(ctx, payment)
		default:
			return e.remote.UpdateFeePayment(ctx, payment)
		}
	})
	e.metrics.ObserveSyncPush(models.CollectionFeePayments, err)
	return e.settle(ctx, models.CollectionFeePayments, payment.ID, payment.OfflineDeleted, err)
}

func (e *Engine) pushAttendance(ctx context.Context, record models.AttendanceRecord) bool {
	err := e.withTimeout(ctx, func(ctx context.Context) error {
		switch {
		case record.OfflineDeleted:
			return e.remote.DeleteAttendanceRecord(ctx, record.ID)
		case record.OfflineCreated:
			return e.remote.InsertAttendanceRecord(ctx, record)
		default:
			return e.remote.UpdateAttendanceRecord(ctx, record)
		}
	})
	e.metrics.ObserveSyncPush(models.CollectionAttendance, err)
	return e.settle(ctx, models.CollectionAttendance, record.ID, record.OfflineDeleted, err)
}

// settle updates local bookkeeping after one push attempt. On success a
// deleted record is removed outright, anything else is marked clean. On
// failure the retry counter advances and the record is parked once it
// crosses the threshold.
func (e *Engine) settle(ctx context.Context, collection models.Collection, id string, deleted bool, pushErr error) bool {
	if pushErr == nil {
		if deleted {
			if err := e.store.Delete(ctx, collection, id); err != nil {
				e.logger.Warn("local delete after confirmed push failed",
					zap.String("collection", string(collection)), zap.String("id", id), zap.Error(err))
				return false
			}
		} else {
			if err := e.store.MarkSynced(ctx, collection, id); err != nil {
				e.logger.Warn("mark synced failed",
					zap.String("collection", string(collection)), zap.String("id", id), zap.Error(err))
				return false
			}
		}
		if err := e.store.ClearOps(ctx, collection, id); err != nil {
			e.logger.Warn("clear ops failed",
				zap.String("collection", string(collection)), zap.String("id", id), zap.Error(err))
		}
		return true
	}

	e.logger.Warn("record push failed",
		zap.String("collection", string(collection)), zap.String("id", id), zap.Error(pushErr))

	retries, err := e.store.IncrementOpRetry(ctx, collection, id)
	if err != nil {
		e.logger.Warn("retry bookkeeping failed",
			zap.String("collection", string(collection)), zap.String("id", id), zap.Error(err))
		return false
	}
	if e.cfg.RetryThreshold > 0 && retries >= e.cfg.RetryThreshold {
		e.logger.Error("record exhausted push retries, parking it",
			zap.String("collection", string(collection)), zap.String("id", id), zap.Int("retries", retries))
		if err := e.store.MarkDead(ctx, collection, id); err != nil {
			e.logger.Warn("mark dead failed",
				zap.String("collection", string(collection)), zap.String("id", id), zap.Error(err))
		} else {
			e.metrics.ObserveDeadLetter()
		}
	}
	return false
}

// withTimeout bounds one remote call so a hung connection cannot stall the
// pass indefinitely.
func (e *Engine) withTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.RemoteTimeout)
	defer cancel()
	return fn(callCtx)
}

// DownloadAllData pulls every collection from the remote store into the
// cache. Records with unsynced local changes are skipped so a download can
// never clobber work that has not been uploaded yet.
func (e *Engine) DownloadAllData(ctx context.Context) error {
	start := time.Now()

	var students []models.Student
	if err := e.withTimeout(ctx, func(ctx context.Context) (err error) {
		students, err = e.remote.SelectStudents(ctx)
		return err
	}); err != nil {
		return err
	}
	var payments []models.FeePayment
	if err := e.withTimeout(ctx, func(ctx context.Context) (err error) {
		payments, err = e.remote.SelectFeePayments(ctx, models.FeePaymentFilter{})
		return err
	}); err != nil {
		return err
	}
	var attendance []models.AttendanceRecord
	if err := e.withTimeout(ctx, func(ctx context.Context) (err error) {
		attendance, err = e.remote.SelectAttendanceRecords(ctx, models.AttendanceFilter{})
		return err
	}); err != nil {
		return err
	}

	now := time.Now().UTC()
	stored := 0
	for _, student := range students {
		local, err := e.store.GetStudent(ctx, student.ID)
		if err != nil {
			return err
		}
		if local != nil && local.Dirty() {
			continue
		}
		student.MarkClean(now)
		if err := e.store.PutStudent(ctx, student); err != nil {
			return err
		}
		stored++
	}
	for _, payment := range payments {
		local, err := e.store.GetFeePayment(ctx, payment.ID)
		if err != nil {
			return err
		}
		if local != nil && local.Dirty() {
			continue
		}
		payment.MarkClean(now)
		if err := e.store.PutFeePayment(ctx, payment); err != nil {
			return err
		}
		stored++
	}
	for _, record := range attendance {
		local, err := e.store.GetAttendanceRecord(ctx, record.ID)
		if err != nil {
			return err
		}
		if local != nil && local.Dirty() {
			continue
		}
		record.MarkClean(now)
		if err := e.store.PutAttendanceRecord(ctx, record); err != nil {
			return err
		}
		stored++
	}

	e.logger.Info("download finished",
		zap.Int("stored", stored),
		zap.Int("fetched", len(students)+len(payments)+len(attendance)),
		zap.Duration("took", time.Since(start)))
	e.notify(ctx)
	return nil
}
